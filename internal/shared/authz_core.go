package shared

// Core platform permissions.
const (
	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersEdit   = "users.edit"
	PermUsersDelete = "users.delete"

	PermRolesView   = "roles.view"
	PermRolesCreate = "roles.create"
	PermRolesEdit   = "roles.edit"
	PermRolesDelete = "roles.delete"

	PermPermissionsView   = "permissions.view"
	PermPermissionsManage = "permissions.manage"

	PermSettingsView = "settings.view"
	PermSettingsEdit = "settings.edit"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersCreate,
		PermUsersEdit,
		PermUsersDelete,
		PermRolesView,
		PermRolesCreate,
		PermRolesEdit,
		PermRolesDelete,
		PermPermissionsView,
		PermPermissionsManage,
		PermSettingsView,
		PermSettingsEdit,
	}
}
