package rbac

import (
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

var demoEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DemoPermissions is the fixed permission list served when demo fallback is on.
func DemoPermissions() []Permission {
	names := append(shared.POSScopes(), shared.CoreScopes()...)
	perms := make([]Permission, len(names))
	for i, name := range names {
		perms[i] = Permission{ID: int64(i + 1), Name: name}
	}
	return perms
}

// DemoRoles is the fixed role list served when demo fallback is on.
func DemoRoles() []Role {
	perms := DemoPermissions()
	pick := func(names ...string) []Permission {
		want := make(map[string]struct{}, len(names))
		for _, n := range names {
			want[n] = struct{}{}
		}
		var out []Permission
		for _, p := range perms {
			if _, ok := want[p.Name]; ok {
				out = append(out, p)
			}
		}
		return out
	}
	return []Role{
		{ID: 1, Name: "Administrator", Description: "Full access", CreatedAt: demoEpoch, UpdatedAt: demoEpoch, Permissions: perms},
		{ID: 2, Name: "Cashier", Description: "Runs the register", CreatedAt: demoEpoch, UpdatedAt: demoEpoch, Permissions: pick(
			shared.PermProductsView, shared.PermSalesView, shared.PermSalesCreate, shared.PermCustomersView,
		)},
		{ID: 3, Name: "Store Manager", Description: "Register, debt and stock", CreatedAt: demoEpoch, UpdatedAt: demoEpoch, Permissions: pick(
			shared.PermProductsView, shared.PermProductsEdit, shared.PermSalesView, shared.PermSalesCreate,
			shared.PermSalesDebt, shared.PermSalesRefund, shared.PermCustomersView, shared.PermCustomersEdit,
			shared.PermInventoryView, shared.PermInventoryAdjust, shared.PermReportsView,
		)},
	}
}

// DemoAssignments is the fixed assignment list served when demo fallback is on.
func DemoAssignments() []RoleAssignment {
	return []RoleAssignment{
		{ID: 1, UserID: "4f6c1a52-7f0e-4a3b-9d4e-2b7f1c9e8a01", ProductID: 1, RoleID: 1, CreatedAt: demoEpoch},
		{ID: 2, UserID: "9b2d3e4f-1a2b-4c3d-8e9f-0a1b2c3d4e5f", ProductID: 1, RoleID: 2, CreatedAt: demoEpoch},
	}
}
