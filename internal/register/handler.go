package register

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Guard restricts routes to users holding permissions.
type Guard interface {
	RequireAny(perms ...string) func(http.Handler) http.Handler
	RequireAll(perms ...string) func(http.Handler) http.Handler
}

// Handler exposes register sessions over JSON.
type Handler struct {
	logger    *slog.Logger
	registry  *Registry
	guard     Guard
	validator *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, registry *Registry, guard Guard) *Handler {
	return &Handler{logger: logger, registry: registry, guard: guard, validator: validator.New()}
}

// MountRoutes registers the register routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/registers/{registerID}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireAny(shared.PermProductsView, shared.PermSalesCreate))
			r.Get("/products", h.products)
			r.Get("/categories", h.categories)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireAny(shared.PermSalesCreate))
			r.Get("/", h.state)
			r.Post("/cart/items", h.addItem)
			r.Delete("/cart/items/{productID}", h.removeItem)
			r.Delete("/cart", h.clearCart)
			r.Post("/scan", h.scan)
			r.Put("/payment", h.setPayment)
			r.Put("/filter", h.setFilter)
			r.Post("/checkout", h.checkout)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireAll(shared.PermSalesCreate, shared.PermSalesDebt))
			r.Put("/debt", h.setDebt)
			r.Put("/customer", h.selectCustomer)
		})
		r.With(h.guard.RequireAny(shared.PermCustomersView, shared.PermSalesDebt)).Get("/customers", h.customers)
	})
}

type registerPath struct {
	RegisterID string `validate:"required,max=64,printascii,excludesall=:/"`
}

type addItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}

type scanRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type paymentRequest struct {
	Payment string `json:"payment" validate:"max=32"`
}

type debtRequest struct {
	IsDebt bool `json:"isDebt"`
}

type customerRequest struct {
	Customer string `json:"customer" validate:"max=128"`
}

type filterRequest struct {
	Category *string `json:"category" validate:"omitempty,max=128"`
	Search   *string `json:"search" validate:"omitempty,max=128"`
}

type stateResponse struct {
	State   State                `json:"state"`
	Receipt *Receipt             `json:"receipt,omitempty"`
	Notices []shared.Notice      `json:"notices"`
	Error   *httpx.ProblemDetail `json:"error,omitempty"`
}

func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*Engine, bool) {
	path := registerPath{RegisterID: chi.URLParam(r, "registerID")}
	if err := h.validator.Struct(path); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid register", err.Error())
		return nil, false
	}
	e, err := h.registry.Engine(r.Context(), path.RegisterID)
	if err != nil {
		h.logger.Error("register: load engine", slog.String("register_id", path.RegisterID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
	}
	return e, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return false
	}
	return true
}

// apply runs op and captures the resulting state and notices before any other
// request reaches e. Domain rejections keep the state in the body alongside
// the problem.
func (h *Handler) apply(w http.ResponseWriter, e *Engine, op func() (*Receipt, error)) {
	var (
		resp stateResponse
		err  error
	)
	e.Exclusive(func() {
		resp.Receipt, err = op()
		resp.State = e.State()
		resp.Notices = e.PopNotices()
	})
	status := http.StatusOK
	if err != nil {
		var title string
		status, title = httpx.StatusFor(err)
		problem := &httpx.ProblemDetail{Title: title, Status: status}
		if status != http.StatusInternalServerError {
			problem.Detail = err.Error()
		}
		resp.Error = problem
	}
	if resp.Notices == nil {
		resp.Notices = []shared.Notice{}
	}
	httpx.JSON(w, status, resp)
}

// run adapts a receipt-less operation for apply.
func run(fn func() error) func() (*Receipt, error) {
	return func() (*Receipt, error) { return nil, fn() }
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.apply(w, e, run(func() error { return nil }))
}

func (h *Handler) products(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	products := e.VisibleProducts()
	out := make([]ProductView, len(products))
	for i, p := range products {
		out[i] = ProductView{Product: p, AtStockLimit: e.IsAtStockLimit(p.ID)}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, e.Categories())
}

func (h *Handler) customers(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, e.Customers())
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.apply(w, e, run(func() error { return e.AddToCart(r.Context(), req.ProductID) }))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid product", "product id must be a positive integer")
		return
	}
	h.apply(w, e, run(func() error { return e.RemoveFromCart(r.Context(), id) }))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.apply(w, e, run(func() error { return e.ClearCart(r.Context()) }))
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req scanRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.apply(w, e, run(func() error { return e.HandleBarcodeScanned(r.Context(), req.Code) }))
}

func (h *Handler) setPayment(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.apply(w, e, run(func() error { return e.SetPayment(r.Context(), req.Payment) }))
}

func (h *Handler) setDebt(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req debtRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.apply(w, e, run(func() error { return e.SetDebt(r.Context(), req.IsDebt) }))
}

func (h *Handler) selectCustomer(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req customerRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.apply(w, e, run(func() error { return e.SelectCustomer(r.Context(), req.Customer) }))
}

func (h *Handler) setFilter(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.apply(w, e, run(func() error {
		if req.Category != nil {
			if err := e.SelectCategory(r.Context(), *req.Category); err != nil {
				return err
			}
		}
		if req.Search != nil {
			return e.SetSearch(r.Context(), *req.Search)
		}
		return nil
	}))
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.apply(w, e, func() (*Receipt, error) {
		receipt, err := e.Checkout(r.Context())
		if err != nil {
			return nil, err
		}
		return &receipt, nil
	})
}
