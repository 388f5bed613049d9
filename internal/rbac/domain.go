package rbac

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = fmt.Errorf("rbac: not found: %w", shared.ErrNotFound)
	// ErrPermissionInUse is returned when deleting a permission still granted to a role.
	ErrPermissionInUse = fmt.Errorf("rbac: permission in use: %w", shared.ErrConflict)
	// ErrDuplicateAssignment is returned for an existing (user, product, role) triple.
	ErrDuplicateAssignment = fmt.Errorf("rbac: assignment already exists: %w", shared.ErrDuplicate)
	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = fmt.Errorf("rbac: invalid input: %w", shared.ErrValidation)
)

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Permissions []Permission `json:"permissions"`
}

// PermissionSet returns the ids of the role's permissions.
func (r Role) PermissionSet() PermissionSet {
	set := NewPermissionSet()
	for _, p := range r.Permissions {
		set.Add(p.ID)
	}
	return set
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RolePermission ties a permission to a role.
type RolePermission struct {
	ID           int64
	RoleID       int64
	PermissionID int64
}

// UserRole links a user to a role.
type UserRole struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	RoleID    int64     `json:"roleId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoleAssignment grants a role to a user for one product.
type RoleAssignment struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	ProductID int64     `json:"productId"`
	RoleID    int64     `json:"roleId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoleInput carries the editable fields of a role.
type RoleInput struct {
	Name          string  `json:"name" validate:"required,min=2,max=100"`
	Description   string  `json:"description" validate:"max=255"`
	PermissionIDs []int64 `json:"permissionIds" validate:"dive,gt=0"`
}

// PermissionInput carries the fields of a new permission.
type PermissionInput struct {
	Name        string `json:"name" validate:"required,min=3,max=100,contains=."`
	Description string `json:"description" validate:"max=255"`
}

// AssignmentInput identifies a (user, product, role) triple.
type AssignmentInput struct {
	UserID    string `json:"userId" validate:"required,uuid"`
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	RoleID    int64  `json:"roleId" validate:"required,gt=0"`
}

// UserRoleInput identifies a user and a role.
type UserRoleInput struct {
	UserID string `json:"userId" validate:"required,uuid"`
	RoleID int64  `json:"roleId" validate:"required,gt=0"`
}
