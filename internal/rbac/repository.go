package rbac

import (
	"github.com/odyssey-erp/odyssey-pos/internal/store"
)

func roleFromRow(row store.Row) Role {
	return Role{
		ID:          row.Int64("id"),
		Name:        row.String("name"),
		Description: row.String("description"),
		CreatedAt:   row.Time("created_at"),
		UpdatedAt:   row.Time("updated_at"),
		Permissions: []Permission{},
	}
}

func permissionFromRow(row store.Row) Permission {
	return Permission{
		ID:          row.Int64("id"),
		Name:        row.String("name"),
		Description: row.String("description"),
	}
}

func rolePermissionFromRow(row store.Row) RolePermission {
	return RolePermission{
		ID:           row.Int64("id"),
		RoleID:       row.Int64("role_id"),
		PermissionID: row.Int64("permission_id"),
	}
}

func userRoleFromRow(row store.Row) UserRole {
	return UserRole{
		ID:        row.Int64("id"),
		UserID:    row.String("user_id"),
		RoleID:    row.Int64("role_id"),
		CreatedAt: row.Time("created_at"),
	}
}

func assignmentFromRow(row store.Row) RoleAssignment {
	return RoleAssignment{
		ID:        row.Int64("id"),
		UserID:    row.String("user_id"),
		ProductID: row.Int64("product_id"),
		RoleID:    row.Int64("role_id"),
		CreatedAt: row.Time("created_at"),
	}
}
