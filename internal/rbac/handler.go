package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler exposes role and permission administration over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers RBAC routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/rbac", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermRolesView))
			r.Get("/console", h.console)
			r.Get("/roles", h.listRoles)
			r.Get("/roles/{id}", h.getRole)
			r.Get("/categories", h.categories)
			r.Get("/assignments", h.listAssignments)
		})
		r.With(h.rbac.RequireAny(shared.PermRolesCreate)).Post("/roles", h.createRole)
		r.With(h.rbac.RequireAny(shared.PermRolesEdit)).Put("/roles/{id}", h.updateRole)
		r.With(h.rbac.RequireAny(shared.PermRolesDelete)).Delete("/roles/{id}", h.deleteRole)
		r.With(h.rbac.RequireAny(shared.PermRolesCreate, shared.PermRolesEdit)).Post("/drafts/toggle", h.toggleDraft)
		r.With(h.rbac.RequireAny(shared.PermRolesEdit)).Post("/assignments", h.createAssignment)

		r.With(h.rbac.RequireAny(shared.PermPermissionsView)).Get("/permissions", h.listPermissions)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermPermissionsManage))
			r.Post("/permissions", h.createPermission)
			r.Delete("/permissions/{id}", h.deletePermission)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermUsersEdit))
			r.Post("/user-roles", h.assignUserRole)
			r.Delete("/user-roles", h.removeUserRole)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermUsersView))
			r.Get("/users/{userID}/permissions", h.userPermissions)
			r.Get("/users/{userID}/roles", h.userRoles)
		})
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) console(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Console(r.Context())
	if err != nil {
		h.fail(w, "rbac console", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, "rbac list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.fail(w, "rbac get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var input RoleInput
	if !h.decode(w, r, &input) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), input)
	if err != nil {
		h.fail(w, "rbac create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input RoleInput
	if !h.decode(w, r, &input) {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, input)
	if err != nil {
		h.fail(w, "rbac update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.fail(w, "rbac delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, "rbac list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var input PermissionInput
	if !h.decode(w, r, &input) {
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), input)
	if err != nil {
		h.fail(w, "rbac create permission", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		h.fail(w, "rbac delete permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		h.fail(w, "rbac categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cats)
}

type draftToggleRequest struct {
	Selected     []int64 `json:"selected" validate:"dive,gt=0"`
	PermissionID int64   `json:"permissionId" validate:"gte=0"`
	Category     string  `json:"category" validate:"max=100"`
}

type draftCategory struct {
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
	Count    int    `json:"count"`
	Total    int    `json:"total"`
}

type draftResponse struct {
	Selected   []int64         `json:"selected"`
	Categories []draftCategory `json:"categories"`
}

func (h *Handler) toggleDraft(w http.ResponseWriter, r *http.Request) {
	var req draftToggleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	if req.PermissionID == 0 && req.Category == "" {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "permissionId or category required")
		return
	}
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		h.fail(w, "rbac draft toggle", err)
		return
	}
	draft := NewRoleDraft()
	draft.Selected.Add(req.Selected...)
	if req.PermissionID > 0 {
		draft.TogglePermission(req.PermissionID)
	}
	if req.Category != "" {
		found := false
		for _, c := range cats {
			if c.Name == req.Category {
				draft.ToggleCategoryPermissions(c.PermissionIDs)
				found = true
				break
			}
		}
		if !found {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown category "+req.Category)
			return
		}
	}
	resp := draftResponse{Selected: draft.Selected.IDs(), Categories: make([]draftCategory, 0, len(cats))}
	for _, c := range cats {
		resp.Categories = append(resp.Categories, draftCategory{
			Name:     c.Name,
			Selected: draft.IsCategorySelected(c.PermissionIDs),
			Count:    draft.CountSelectedInCategory(c.PermissionIDs),
			Total:    len(c.PermissionIDs),
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.ListAssignments(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.fail(w, "rbac list assignments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignments)
}

func (h *Handler) createAssignment(w http.ResponseWriter, r *http.Request) {
	var input AssignmentInput
	if !h.decode(w, r, &input) {
		return
	}
	assignment, err := h.service.AssignUserProductRole(r.Context(), input)
	if err != nil {
		h.fail(w, "rbac assign role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, assignment)
}

func (h *Handler) assignUserRole(w http.ResponseWriter, r *http.Request) {
	var input UserRoleInput
	if !h.decode(w, r, &input) {
		return
	}
	if err := h.service.AssignUserRole(r.Context(), input); err != nil {
		h.fail(w, "rbac assign user role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeUserRole(w http.ResponseWriter, r *http.Request) {
	var input UserRoleInput
	if !h.decode(w, r, &input) {
		return
	}
	if err := h.service.RemoveUserRole(r.Context(), input); err != nil {
		h.fail(w, "rbac remove user role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.EffectivePermissions(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, "rbac user permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) userRoles(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ListUserRoles(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, "rbac user roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, links)
}
