package rbac

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/store"
)

const (
	userA = "4f6c1a52-7f0e-4a3b-9d4e-2b7f1c9e8a01"
	userB = "9b2d3e4f-1a2b-4c3d-8e9f-0a1b2c3d4e5f"
)

type offlineStore struct{ store.RecordStore }

func (offlineStore) FetchRows(context.Context, string, store.Filter) ([]store.Row, error) {
	return nil, errors.New("connection refused")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := NewService(mem, Options{
		Logger: testLogger(),
		Clock:  func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) },
	})
	return svc, mem
}

func seedPermissions(t *testing.T, svc *Service, names ...string) []Permission {
	t.Helper()
	out := make([]Permission, 0, len(names))
	for _, name := range names {
		p, err := svc.CreatePermission(context.Background(), PermissionInput{Name: name})
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestCreateRoleValidatesAndGrantsPermissions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	perms := seedPermissions(t, svc, "products.view", "sales.create")

	_, err := svc.CreateRole(ctx, RoleInput{Name: " A "})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, shared.ErrValidation)

	role, err := svc.CreateRole(ctx, RoleInput{
		Name:          "Cashier",
		Description:   "Front desk",
		PermissionIDs: []int64{perms[1].ID, perms[0].ID, perms[1].ID},
	})
	require.NoError(t, err)
	require.Equal(t, "Cashier", role.Name)
	require.Len(t, role.Permissions, 2)
	require.Equal(t, "products.view", role.Permissions[0].Name)
	require.False(t, role.CreatedAt.IsZero())

	_, err = svc.CreateRole(ctx, RoleInput{Name: "Ghost", PermissionIDs: []int64{99}})
	require.ErrorIs(t, err, ErrNotFound)
	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
}

func TestUpdateRoleReplacesPermissionSet(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	perms := seedPermissions(t, svc, "products.view", "sales.create", "sales.debt")

	role, err := svc.CreateRole(ctx, RoleInput{Name: "Cashier", PermissionIDs: []int64{perms[0].ID, perms[1].ID}})
	require.NoError(t, err)

	updated, err := svc.UpdateRole(ctx, role.ID, RoleInput{Name: "Senior Cashier", PermissionIDs: []int64{perms[2].ID}})
	require.NoError(t, err)
	require.Equal(t, "Senior Cashier", updated.Name)
	require.Equal(t, []int64{perms[2].ID}, updated.PermissionSet().IDs())

	rows, err := mem.FetchRows(ctx, store.TableRolePermissions, store.Filter{"role_id": role.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = svc.UpdateRole(ctx, 404, RoleInput{Name: "Nobody"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRoleRemovesDependentRows(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	perms := seedPermissions(t, svc, "products.view")
	role, err := svc.CreateRole(ctx, RoleInput{Name: "Cashier", PermissionIDs: []int64{perms[0].ID}})
	require.NoError(t, err)
	require.NoError(t, svc.AssignUserRole(ctx, UserRoleInput{UserID: userA, RoleID: role.ID}))
	_, err = svc.AssignUserProductRole(ctx, AssignmentInput{UserID: userA, ProductID: 1, RoleID: role.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRole(ctx, role.ID))
	for _, table := range []string{store.TableRoles, store.TableRolePermissions, store.TableUserRoles, store.TableRoleAssignments} {
		rows, err := mem.FetchRows(ctx, table, nil)
		require.NoError(t, err)
		require.Empty(t, rows, table)
	}
	require.ErrorIs(t, svc.DeleteRole(ctx, role.ID), ErrNotFound)
}

func TestDeletePermissionRejectedWhileInUse(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	perms := seedPermissions(t, svc, "products.view", "reports.view")
	role, err := svc.CreateRole(ctx, RoleInput{Name: "Viewer", PermissionIDs: []int64{perms[0].ID}})
	require.NoError(t, err)

	err = svc.DeletePermission(ctx, perms[0].ID)
	require.ErrorIs(t, err, ErrPermissionInUse)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Contains(t, err.Error(), "1 role(s)")

	require.NoError(t, svc.DeletePermission(ctx, perms[1].ID))
	require.ErrorIs(t, svc.DeletePermission(ctx, perms[1].ID), ErrNotFound)

	_, err = svc.UpdateRole(ctx, role.ID, RoleInput{Name: "Viewer"})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePermission(ctx, perms[0].ID))
}

func TestCreatePermissionNormalisesAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	p, err := svc.CreatePermission(ctx, PermissionInput{Name: " Products.View "})
	require.NoError(t, err)
	require.Equal(t, "products.view", p.Name)

	_, err = svc.CreatePermission(ctx, PermissionInput{Name: "products.view"})
	require.ErrorIs(t, err, shared.ErrDuplicate)

	_, err = svc.CreatePermission(ctx, PermissionInput{Name: "nodot"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssignUserProductRoleRejectsDuplicateTriple(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	cashier, err := svc.CreateRole(ctx, RoleInput{Name: "Cashier"})
	require.NoError(t, err)
	manager, err := svc.CreateRole(ctx, RoleInput{Name: "Manager"})
	require.NoError(t, err)

	inputs := []AssignmentInput{
		{UserID: userA, ProductID: 1, RoleID: cashier.ID},
		{UserID: userA, ProductID: 1, RoleID: manager.ID},
		{UserID: userA, ProductID: 2, RoleID: cashier.ID},
		{UserID: userB, ProductID: 1, RoleID: cashier.ID},
	}
	for _, in := range inputs {
		_, err := svc.AssignUserProductRole(ctx, in)
		require.NoError(t, err)
	}
	for i := len(inputs) - 1; i >= 0; i-- {
		_, err := svc.AssignUserProductRole(ctx, inputs[i])
		require.ErrorIs(t, err, ErrDuplicateAssignment)
	}

	upper := AssignmentInput{UserID: "4F6C1A52-7F0E-4A3B-9D4E-2B7F1C9E8A01", ProductID: 1, RoleID: cashier.ID}
	_, err = svc.AssignUserProductRole(ctx, upper)
	require.ErrorIs(t, err, ErrDuplicateAssignment)

	_, err = svc.AssignUserProductRole(ctx, AssignmentInput{UserID: userB, ProductID: 9, RoleID: 404})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.AssignUserProductRole(ctx, AssignmentInput{UserID: "not-a-uuid", ProductID: 1, RoleID: cashier.ID})
	require.ErrorIs(t, err, ErrInvalidInput)

	assignments, err := svc.ListAssignments(ctx, userA)
	require.NoError(t, err)
	require.Len(t, assignments, 3)
}

func TestEffectivePermissionsCombinesUserRolesAndAssignments(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	perms := seedPermissions(t, svc, "products.view", "sales.create", "sales.debt")
	cashier, err := svc.CreateRole(ctx, RoleInput{Name: "Cashier", PermissionIDs: []int64{perms[0].ID, perms[1].ID}})
	require.NoError(t, err)
	debt, err := svc.CreateRole(ctx, RoleInput{Name: "Debt Desk", PermissionIDs: []int64{perms[1].ID, perms[2].ID}})
	require.NoError(t, err)

	require.NoError(t, svc.AssignUserRole(ctx, UserRoleInput{UserID: userA, RoleID: cashier.ID}))
	require.NoError(t, svc.AssignUserRole(ctx, UserRoleInput{UserID: userA, RoleID: cashier.ID}))
	_, err = svc.AssignUserProductRole(ctx, AssignmentInput{UserID: userA, ProductID: 1, RoleID: debt.ID})
	require.NoError(t, err)

	got, err := svc.EffectivePermissions(ctx, userA)
	require.NoError(t, err)
	require.Equal(t, []string{"products.view", "sales.create", "sales.debt"}, got)

	got, err = svc.EffectivePermissions(ctx, userB)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, svc.RemoveUserRole(ctx, UserRoleInput{UserID: userA, RoleID: cashier.ID}))
	got, err = svc.EffectivePermissions(ctx, userA)
	require.NoError(t, err)
	require.Equal(t, []string{"sales.create", "sales.debt"}, got)
}

func TestReadFailuresSurfaceByDefault(t *testing.T) {
	svc := NewService(offlineStore{}, Options{Logger: testLogger()})
	_, err := svc.ListRoles(context.Background())
	require.ErrorContains(t, err, "connection refused")
	_, err = svc.ListPermissions(context.Background())
	require.Error(t, err)
	_, err = svc.Console(context.Background())
	require.Error(t, err)
}

func TestReadFailuresServeDemoDataWhenEnabled(t *testing.T) {
	ctx := context.Background()
	svc := NewService(offlineStore{}, Options{Logger: testLogger(), DemoFallback: true})

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	require.Equal(t, DemoRoles(), roles)

	console, err := svc.Console(ctx)
	require.NoError(t, err)
	require.Len(t, console.Permissions, len(DemoPermissions()))
	require.Len(t, console.Assignments, 2)
	require.Len(t, console.Categories, len(DefaultCategories()))
	for _, c := range console.Categories {
		require.NotEmpty(t, c.PermissionIDs, c.Name)
	}
}
