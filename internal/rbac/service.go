package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-pos/internal/store"
)

// Options configures a Service.
type Options struct {
	Logger *slog.Logger
	// DemoFallback substitutes the demo dataset when a read fails.
	DemoFallback bool
	Categories   []Category
	Clock        func() time.Time
}

// Service orchestrates RBAC operations over the record store.
type Service struct {
	store      store.RecordStore
	logger     *slog.Logger
	validator  *validator.Validate
	fallback   bool
	categories []Category
	now        func() time.Time
}

// NewService constructs a Service.
func NewService(s store.RecordStore, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	categories := opts.Categories
	if categories == nil {
		categories = DefaultCategories()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:      s,
		logger:     logger,
		validator:  validator.New(),
		fallback:   opts.DemoFallback,
		categories: categories,
		now:        now,
	}
}

func (s *Service) validate(v any) error {
	if err := s.validator.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func withFallback[T any](s *Service, op string, err error, demo func() T) (T, error) {
	if !s.fallback {
		var zero T
		return zero, fmt.Errorf("rbac: %s: %w", op, err)
	}
	s.logger.Warn("rbac: serving demo data", slog.String("op", op), slog.Any("error", err))
	return demo(), nil
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	perms, err := s.listPermissions(ctx, s.store)
	if err != nil {
		return withFallback(s, "list permissions", err, DemoPermissions)
	}
	return perms, nil
}

func (s *Service) listPermissions(ctx context.Context, rs store.RecordStore) ([]Permission, error) {
	rows, err := rs.FetchRows(ctx, store.TablePermissions, nil)
	if err != nil {
		return nil, err
	}
	perms := make([]Permission, 0, len(rows))
	for _, row := range rows {
		perms = append(perms, permissionFromRow(row))
	}
	sort.SliceStable(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms, nil
}

// CreatePermission inserts a permission. Names are stored lower case.
func (s *Service) CreatePermission(ctx context.Context, input PermissionInput) (Permission, error) {
	input.Name = strings.ToLower(strings.TrimSpace(input.Name))
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validate(input); err != nil {
		return Permission{}, err
	}
	row, err := s.store.InsertRow(ctx, store.TablePermissions, store.Row{
		"name":        input.Name,
		"description": input.Description,
	})
	if err != nil {
		return Permission{}, fmt.Errorf("rbac: create permission %s: %w", input.Name, err)
	}
	return permissionFromRow(row), nil
}

// DeletePermission deletes a permission that no role references.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, rs store.RecordStore) error {
		refs, err := rs.FetchRows(ctx, store.TableRolePermissions, store.Filter{"permission_id": id})
		if err != nil {
			return fmt.Errorf("rbac: delete permission %d: %w", id, err)
		}
		if len(refs) > 0 {
			return fmt.Errorf("%w: permission %d is granted to %d role(s), remove it from those roles first", ErrPermissionInUse, id, len(refs))
		}
		if err := rs.DeleteRow(ctx, store.TablePermissions, id); err != nil {
			return s.mapMissing(err, "permission", id)
		}
		return nil
	})
}

// ListRoles returns all roles with their permissions, ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := s.listRoles(ctx, s.store, nil)
	if err != nil {
		return withFallback(s, "list roles", err, DemoRoles)
	}
	return roles, nil
}

func (s *Service) listRoles(ctx context.Context, rs store.RecordStore, filter store.Filter) ([]Role, error) {
	roleRows, err := rs.FetchRows(ctx, store.TableRoles, filter)
	if err != nil {
		return nil, err
	}
	if len(roleRows) == 0 {
		return []Role{}, nil
	}
	perms, err := s.listPermissions(ctx, rs)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Permission, len(perms))
	for _, p := range perms {
		byID[p.ID] = p
	}
	joinRows, err := rs.FetchRows(ctx, store.TableRolePermissions, nil)
	if err != nil {
		return nil, err
	}
	granted := make(map[int64]PermissionSet)
	for _, row := range joinRows {
		rp := rolePermissionFromRow(row)
		if granted[rp.RoleID] == nil {
			granted[rp.RoleID] = NewPermissionSet()
		}
		granted[rp.RoleID].Add(rp.PermissionID)
	}

	roles := make([]Role, 0, len(roleRows))
	for _, row := range roleRows {
		role := roleFromRow(row)
		for _, pid := range granted[role.ID].IDs() {
			if p, ok := byID[pid]; ok {
				role.Permissions = append(role.Permissions, p)
			}
		}
		sort.SliceStable(role.Permissions, func(i, j int) bool { return role.Permissions[i].Name < role.Permissions[j].Name })
		roles = append(roles, role)
	}
	sort.SliceStable(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	roles, err := s.listRoles(ctx, s.store, store.Filter{"id": id})
	if err != nil {
		return Role{}, fmt.Errorf("rbac: get role %d: %w", id, err)
	}
	if len(roles) == 0 {
		return Role{}, fmt.Errorf("%w: role %d", ErrNotFound, id)
	}
	return roles[0], nil
}

// CreateRole inserts a role and grants it the given permissions.
func (s *Service) CreateRole(ctx context.Context, input RoleInput) (Role, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validate(input); err != nil {
		return Role{}, err
	}
	var id int64
	err := s.store.WithTx(ctx, func(ctx context.Context, rs store.RecordStore) error {
		if err := s.checkPermissions(ctx, rs, input.PermissionIDs); err != nil {
			return err
		}
		now := s.now().UTC()
		row, err := rs.InsertRow(ctx, store.TableRoles, store.Row{
			"name":        input.Name,
			"description": input.Description,
			"created_at":  now,
			"updated_at":  now,
		})
		if err != nil {
			return fmt.Errorf("rbac: create role: %w", err)
		}
		id = row.Int64("id")
		return s.grant(ctx, rs, id, input.PermissionIDs)
	})
	if err != nil {
		return Role{}, err
	}
	return s.GetRole(ctx, id)
}

// UpdateRole updates a role and replaces its permission set.
func (s *Service) UpdateRole(ctx context.Context, id int64, input RoleInput) (Role, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validate(input); err != nil {
		return Role{}, err
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, rs store.RecordStore) error {
		if err := s.checkPermissions(ctx, rs, input.PermissionIDs); err != nil {
			return err
		}
		err := rs.UpdateRow(ctx, store.TableRoles, id, store.Row{
			"name":        input.Name,
			"description": input.Description,
			"updated_at":  s.now().UTC(),
		})
		if err != nil {
			return s.mapMissing(err, "role", id)
		}
		if err := s.deleteWhere(ctx, rs, store.TableRolePermissions, store.Filter{"role_id": id}); err != nil {
			return err
		}
		return s.grant(ctx, rs, id, input.PermissionIDs)
	})
	if err != nil {
		return Role{}, err
	}
	return s.GetRole(ctx, id)
}

// DeleteRole removes the role's grants, user links and assignments, then the role.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, rs store.RecordStore) error {
		for _, table := range []string{store.TableRolePermissions, store.TableUserRoles, store.TableRoleAssignments} {
			if err := s.deleteWhere(ctx, rs, table, store.Filter{"role_id": id}); err != nil {
				return err
			}
		}
		if err := rs.DeleteRow(ctx, store.TableRoles, id); err != nil {
			return s.mapMissing(err, "role", id)
		}
		return nil
	})
}

// AssignUserProductRole grants a role to a user for one product.
func (s *Service) AssignUserProductRole(ctx context.Context, input AssignmentInput) (RoleAssignment, error) {
	input.UserID = canonicalUser(input.UserID)
	if err := s.validate(input); err != nil {
		return RoleAssignment{}, err
	}
	userID := input.UserID
	var out RoleAssignment
	err := s.store.WithTx(ctx, func(ctx context.Context, rs store.RecordStore) error {
		existing, err := rs.FetchRows(ctx, store.TableRoleAssignments, store.Filter{
			"user_id":    userID,
			"product_id": input.ProductID,
			"role_id":    input.RoleID,
		})
		if err != nil {
			return fmt.Errorf("rbac: check assignment: %w", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: user %s product %d role %d", ErrDuplicateAssignment, userID, input.ProductID, input.RoleID)
		}
		if err := s.checkRole(ctx, rs, input.RoleID); err != nil {
			return err
		}
		row, err := rs.InsertRow(ctx, store.TableRoleAssignments, store.Row{
			"user_id":    userID,
			"product_id": input.ProductID,
			"role_id":    input.RoleID,
			"created_at": s.now().UTC(),
		})
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%w: user %s product %d role %d", ErrDuplicateAssignment, userID, input.ProductID, input.RoleID)
		}
		if err != nil {
			return fmt.Errorf("rbac: assign role: %w", err)
		}
		out = assignmentFromRow(row)
		return nil
	})
	return out, err
}

// ListAssignments returns role assignments, optionally for one user.
func (s *Service) ListAssignments(ctx context.Context, userID string) ([]RoleAssignment, error) {
	var filter store.Filter
	if userID != "" {
		if _, err := uuid.Parse(userID); err != nil {
			return nil, fmt.Errorf("%w: user id %q", ErrInvalidInput, userID)
		}
		filter = store.Filter{"user_id": canonicalUser(userID)}
	}
	rows, err := s.store.FetchRows(ctx, store.TableRoleAssignments, filter)
	if err != nil {
		return withFallback(s, "list assignments", err, DemoAssignments)
	}
	out := make([]RoleAssignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, assignmentFromRow(row))
	}
	return out, nil
}

// AssignUserRole links a user to a role. Repeated calls are no-ops.
func (s *Service) AssignUserRole(ctx context.Context, input UserRoleInput) error {
	input.UserID = canonicalUser(input.UserID)
	if err := s.validate(input); err != nil {
		return err
	}
	if err := s.checkRole(ctx, s.store, input.RoleID); err != nil {
		return err
	}
	_, err := s.store.InsertRow(ctx, store.TableUserRoles, store.Row{
		"user_id":    input.UserID,
		"role_id":    input.RoleID,
		"created_at": s.now().UTC(),
	})
	if err != nil && !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("rbac: assign user role: %w", err)
	}
	return nil
}

// RemoveUserRole unlinks a user from a role.
func (s *Service) RemoveUserRole(ctx context.Context, input UserRoleInput) error {
	input.UserID = canonicalUser(input.UserID)
	if err := s.validate(input); err != nil {
		return err
	}
	return s.deleteWhere(ctx, s.store, store.TableUserRoles, store.Filter{
		"user_id": input.UserID,
		"role_id": input.RoleID,
	})
}

// ListUserRoles returns the role links held by a user.
func (s *Service) ListUserRoles(ctx context.Context, userID string) ([]UserRole, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%w: user id %q", ErrInvalidInput, userID)
	}
	rows, err := s.store.FetchRows(ctx, store.TableUserRoles, store.Filter{"user_id": canonicalUser(userID)})
	if err != nil {
		return nil, fmt.Errorf("rbac: list user roles: %w", err)
	}
	out := make([]UserRole, 0, len(rows))
	for _, row := range rows {
		out = append(out, userRoleFromRow(row))
	}
	return out, nil
}

// EffectivePermissions returns the sorted, deduplicated permission names
// granted to a user through user roles and product role assignments.
func (s *Service) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%w: user id %q", ErrInvalidInput, userID)
	}
	userID = canonicalUser(userID)
	roleIDs := NewPermissionSet()
	for _, table := range []string{store.TableUserRoles, store.TableRoleAssignments} {
		rows, err := s.store.FetchRows(ctx, table, store.Filter{"user_id": userID})
		if err != nil {
			return nil, fmt.Errorf("rbac: effective permissions: %w", err)
		}
		for _, row := range rows {
			roleIDs.Add(row.Int64("role_id"))
		}
	}
	if roleIDs.Len() == 0 {
		return []string{}, nil
	}
	roles, err := s.listRoles(ctx, s.store, nil)
	if err != nil {
		return nil, fmt.Errorf("rbac: effective permissions: %w", err)
	}
	names := make(map[string]struct{})
	for _, role := range roles {
		if !roleIDs.Has(role.ID) {
			continue
		}
		for _, p := range role.Permissions {
			names[strings.ToLower(p.Name)] = struct{}{}
		}
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Categories returns the configured categories resolved against permissions.
func (s *Service) Categories(ctx context.Context) ([]CategoryView, error) {
	perms, err := s.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveCategories(s.categories, perms), nil
}

// Console is everything the role administration screen shows.
type Console struct {
	Roles       []Role           `json:"roles"`
	Permissions []Permission     `json:"permissions"`
	Categories  []CategoryView   `json:"categories"`
	Assignments []RoleAssignment `json:"assignments"`
}

// Console loads roles, permissions and assignments concurrently.
func (s *Service) Console(ctx context.Context) (Console, error) {
	var c Console
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		roles, err := s.ListRoles(ctx)
		if err != nil {
			return err
		}
		c.Roles = roles
		return nil
	})
	g.Go(func() error {
		perms, err := s.ListPermissions(ctx)
		if err != nil {
			return err
		}
		c.Permissions = perms
		return nil
	})
	g.Go(func() error {
		assignments, err := s.ListAssignments(ctx, "")
		if err != nil {
			return err
		}
		c.Assignments = assignments
		return nil
	})
	if err := g.Wait(); err != nil {
		return Console{}, err
	}
	c.Categories = ResolveCategories(s.categories, c.Permissions)
	return c, nil
}

func (s *Service) checkPermissions(ctx context.Context, rs store.RecordStore, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	perms, err := s.listPermissions(ctx, rs)
	if err != nil {
		return fmt.Errorf("rbac: check permissions: %w", err)
	}
	known := NewPermissionSet()
	for _, p := range perms {
		known.Add(p.ID)
	}
	for _, id := range ids {
		if !known.Has(id) {
			return fmt.Errorf("%w: permission %d", ErrNotFound, id)
		}
	}
	return nil
}

func (s *Service) checkRole(ctx context.Context, rs store.RecordStore, id int64) error {
	rows, err := rs.FetchRows(ctx, store.TableRoles, store.Filter{"id": id})
	if err != nil {
		return fmt.Errorf("rbac: check role: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: role %d", ErrNotFound, id)
	}
	return nil
}

func (s *Service) grant(ctx context.Context, rs store.RecordStore, roleID int64, ids []int64) error {
	for _, pid := range NewPermissionSet(ids...).IDs() {
		_, err := rs.InsertRow(ctx, store.TableRolePermissions, store.Row{
			"role_id":       roleID,
			"permission_id": pid,
		})
		if err != nil {
			return fmt.Errorf("rbac: grant permission %d: %w", pid, err)
		}
	}
	return nil
}

func (s *Service) deleteWhere(ctx context.Context, rs store.RecordStore, table string, filter store.Filter) error {
	rows, err := rs.FetchRows(ctx, table, filter)
	if err != nil {
		return fmt.Errorf("rbac: clear %s: %w", table, err)
	}
	for _, row := range rows {
		if err := rs.DeleteRow(ctx, table, row.Int64("id")); err != nil {
			return fmt.Errorf("rbac: clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *Service) mapMissing(err error, kind string, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	return fmt.Errorf("rbac: %s %d: %w", kind, id, err)
}

func canonicalUser(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return parsed.String()
}
