package rbac

import "github.com/odyssey-erp/odyssey-pos/internal/shared"

// Category groups permission names for bulk selection in the role editor.
type Category struct {
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	Permissions []string `json:"permissions"`
}

// CategoryView is a category resolved against stored permissions.
type CategoryView struct {
	Name          string  `json:"name"`
	Icon          string  `json:"icon"`
	PermissionIDs []int64 `json:"permissionIds"`
}

// DefaultCategories returns the built-in grouping of permission names.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Products", Icon: "package", Permissions: []string{
			shared.PermProductsView, shared.PermProductsCreate, shared.PermProductsEdit, shared.PermProductsDelete,
		}},
		{Name: "Sales", Icon: "shopping-cart", Permissions: []string{
			shared.PermSalesView, shared.PermSalesCreate, shared.PermSalesDebt, shared.PermSalesRefund,
		}},
		{Name: "Customers", Icon: "users", Permissions: []string{
			shared.PermCustomersView, shared.PermCustomersEdit,
		}},
		{Name: "Inventory", Icon: "boxes", Permissions: []string{
			shared.PermInventoryView, shared.PermInventoryAdjust,
		}},
		{Name: "Reports", Icon: "bar-chart", Permissions: []string{
			shared.PermReportsView, shared.PermReportsExport,
		}},
		{Name: "Users", Icon: "user-cog", Permissions: []string{
			shared.PermUsersView, shared.PermUsersCreate, shared.PermUsersEdit, shared.PermUsersDelete,
		}},
		{Name: "Roles & Permissions", Icon: "shield", Permissions: []string{
			shared.PermRolesView, shared.PermRolesCreate, shared.PermRolesEdit, shared.PermRolesDelete,
			shared.PermPermissionsView, shared.PermPermissionsManage,
		}},
		{Name: "Settings", Icon: "settings", Permissions: []string{
			shared.PermSettingsView, shared.PermSettingsEdit,
		}},
	}
}

// ResolveCategories maps each category's permission names to ids. Names with
// no stored permission are skipped.
func ResolveCategories(categories []Category, perms []Permission) []CategoryView {
	byName := make(map[string]int64, len(perms))
	for _, p := range perms {
		byName[p.Name] = p.ID
	}
	out := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		set := NewPermissionSet()
		for _, name := range c.Permissions {
			if id, ok := byName[name]; ok {
				set.Add(id)
			}
		}
		out = append(out, CategoryView{Name: c.Name, Icon: c.Icon, PermissionIDs: set.IDs()})
	}
	return out
}
