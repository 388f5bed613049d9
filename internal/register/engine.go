package register

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Config groups the data and collaborators of an Engine.
type Config struct {
	RegisterID string
	Products   []catalog.Product
	Categories []catalog.Category
	Customers  []catalog.Customer

	Store    SessionStore
	Resolver BarcodeResolver
	Recorder SaleRecorder
	Observer Observer
	Logger   *slog.Logger
	Clock    func() time.Time

	// RestoreStockOnClear returns reserved units to the catalog when the cart
	// is cleared. Removing single units always returns them.
	RestoreStockOnClear bool
}

// Engine is the cart and stock state machine of one register.
type Engine struct {
	// reqMu serialises Exclusive callers; mu guards state.
	reqMu    sync.Mutex
	mu       sync.Mutex
	cfg      Config
	state    session
	notices  *shared.NoticeLog
	logger   *slog.Logger
	observer Observer
	resolver BarcodeResolver
	now      func() time.Time
}

// NewEngine builds an Engine and rehydrates its session from the store.
func NewEngine(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("register_id", cfg.RegisterID))
	e := &Engine{
		cfg:      cfg,
		notices:  shared.NewNoticeLog(logger),
		logger:   logger,
		observer: cfg.Observer,
		resolver: cfg.Resolver,
		now:      cfg.Clock,
	}
	if e.observer == nil {
		e.observer = noopObserver{}
	}
	if e.resolver == nil {
		e.resolver = IDResolver{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	values, err := cfg.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("register: load session: %w", err)
	}
	e.state = restoreSession(values, cfg.Products, logger)
	return e, nil
}

// PopNotices returns and clears the notices produced since the last call.
func (e *Engine) PopNotices() []shared.Notice {
	return e.notices.Pop()
}

// Exclusive runs fn while no other Exclusive call on e is running, so an
// operation, the state it leaves and the notices it raised are read together.
// fn may call any Engine method except Exclusive.
func (e *Engine) Exclusive(fn func()) {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	fn()
}

func (e *Engine) notify(kind, format string, args ...any) {
	e.notices.Notify(shared.Notice{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// commit persists the fields that changed between prev and the current state.
// On failure the current state is rolled back to prev.
func (e *Engine) commit(ctx context.Context, prev session) error {
	changed := changedValues(prev, e.state)
	if len(changed) == 0 {
		return nil
	}
	if err := e.cfg.Store.Save(ctx, changed); err != nil {
		e.state = prev
		e.logger.Error("register: save session", slog.Any("error", err))
		e.notify(shared.NoticeError, "Could not save the register session, please retry")
		return fmt.Errorf("register: save session: %w", err)
	}
	return nil
}

// AddToCart adds one unit of the product. Out of stock products are ignored.
func (e *Engine) AddToCart(ctx context.Context, productID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addToCart(ctx, productID)
}

func (e *Engine) addToCart(ctx context.Context, productID int64) error {
	idx := e.state.productIndex(productID)
	if idx < 0 {
		e.observer.CartRejected("not_found")
		e.notify(shared.NoticeError, "Product %d not found", productID)
		return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	product := e.state.products[idx]
	if !product.InStock {
		return nil
	}
	if product.HasStockCeiling() && *product.StockQuantity < 1 {
		e.observer.CartRejected("stock_limit")
		e.notify(shared.NoticeError, "Stock limit reached for %s", product.Name)
		return fmt.Errorf("%w: %s", ErrStockLimit, product.Name)
	}

	prev := e.state.clone()
	line := e.state.lineIndex(productID)
	if line >= 0 {
		e.state.cart[line].Quantity++
	} else {
		e.state.cart = append(e.state.cart, CartLine{Product: product.Clone(), Quantity: 1})
	}
	e.state.total = e.state.total.Add(product.Price)
	if product.HasStockCeiling() {
		*e.state.products[idx].StockQuantity--
	}
	if err := e.commit(ctx, prev); err != nil {
		return err
	}
	if line < 0 {
		e.notify(shared.NoticeSuccess, "%s added to cart", product.Name)
	}
	return nil
}

// RemoveFromCart removes one unit of the product, dropping the line at zero.
func (e *Engine) RemoveFromCart(ctx context.Context, productID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	line := e.state.lineIndex(productID)
	if line < 0 {
		return nil
	}
	prev := e.state.clone()
	price := e.state.cart[line].Price
	e.state.cart[line].Quantity--
	if e.state.cart[line].Quantity <= 0 {
		e.state.cart = append(e.state.cart[:line], e.state.cart[line+1:]...)
	}
	e.state.total = e.state.total.Sub(price)
	if idx := e.state.productIndex(productID); idx >= 0 && e.state.products[idx].HasStockCeiling() {
		*e.state.products[idx].StockQuantity++
	}
	return e.commit(ctx, prev)
}

// IsAtStockLimit reports whether the product is in the cart and no further
// unit can be reserved.
func (e *Engine) IsAtStockLimit(productID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.lineIndex(productID) < 0 {
		return false
	}
	idx := e.state.productIndex(productID)
	if idx < 0 || !e.state.products[idx].HasStockCeiling() {
		return false
	}
	return *e.state.products[idx].StockQuantity <= 0
}

// CalculateChange returns payment − total, or zero when payment is unreadable.
func (e *Engine) CalculateChange() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.change()
}

func (e *Engine) change() decimal.Decimal {
	payment, ok := parsePayment(e.state.payment)
	if !ok {
		return decimal.Zero
	}
	return payment.Sub(e.state.total)
}

// due treats an unreadable payment as nothing paid.
func (e *Engine) due() decimal.Decimal {
	payment, _ := parsePayment(e.state.payment)
	return payment.Sub(e.state.total)
}

// CanCheckout reports whether Checkout would complete the sale.
func (e *Engine) CanCheckout() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canCheckout()
}

func (e *Engine) canCheckout() bool {
	if len(e.state.cart) == 0 {
		return false
	}
	if e.state.isDebt {
		return e.state.customer != ""
	}
	return !e.due().IsNegative()
}

// Checkout completes the sale, resets the session and hands the receipt to
// the configured recorder.
func (e *Engine) Checkout(ctx context.Context) (Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.canCheckout() {
		e.notify(shared.NoticeError, "%s", e.blockedReason())
		return Receipt{}, ErrCheckoutBlocked
	}

	payment, _ := parsePayment(e.state.payment)
	due := e.due()
	receipt := Receipt{
		ID:          uuid.New(),
		RegisterID:  e.cfg.RegisterID,
		Lines:       e.state.clone().cart,
		Total:       e.state.total,
		Payment:     payment,
		Change:      decimal.Max(due, decimal.Zero),
		Debt:        decimal.Zero,
		CompletedAt: e.now().UTC(),
	}
	debtSale := e.state.isDebt && due.IsNegative()
	if debtSale {
		receipt.Debt = due.Abs()
		receipt.Customer = e.state.customer
	}

	prev := e.state.clone()
	e.state.cart = nil
	e.state.total = decimal.Zero
	e.state.payment = ""
	e.state.isDebt = false
	e.state.customer = ""
	if err := e.cfg.Store.Erase(ctx, checkoutKeys...); err != nil {
		e.state = prev
		e.logger.Error("register: erase session", slog.Any("error", err))
		e.notify(shared.NoticeError, "Could not complete the sale, please retry")
		return Receipt{}, fmt.Errorf("register: erase session: %w", err)
	}

	if debtSale {
		e.notify(shared.NoticeSuccess, "Sale completed with debt: %s owes %s", receipt.Customer, receipt.Debt.StringFixed(2))
	} else {
		e.notify(shared.NoticeSuccess, "Sale completed. Change: %s", receipt.Change.StringFixed(2))
	}
	e.observer.SaleCompleted(debtSale)

	if e.cfg.Recorder != nil {
		if err := e.cfg.Recorder.RecordSale(ctx, receipt); err != nil {
			e.logger.Warn("register: record sale", slog.String("receipt_id", receipt.ID.String()), slog.Any("error", err))
			e.notify(shared.NoticeWarning, "Sale completed but could not be queued for recording")
		}
	}
	return receipt, nil
}

func (e *Engine) blockedReason() string {
	switch {
	case len(e.state.cart) == 0:
		return "Cart is empty"
	case e.state.isDebt && e.state.customer == "":
		return "Select a customer to record the debt"
	default:
		return "Payment is less than the total"
	}
}

// ClearCart empties the cart and payment.
func (e *Engine) ClearCart(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.state.clone()
	if e.cfg.RestoreStockOnClear {
		for _, line := range e.state.cart {
			idx := e.state.productIndex(line.ID)
			if idx >= 0 && e.state.products[idx].HasStockCeiling() {
				*e.state.products[idx].StockQuantity += line.Quantity
			}
		}
	}
	e.state.cart = nil
	e.state.total = decimal.Zero
	e.state.payment = ""
	if err := e.commit(ctx, prev); err != nil {
		return err
	}
	e.notify(shared.NoticeInfo, "Cart cleared")
	return nil
}

// HandleBarcodeScanned resolves the code and adds the product to the cart.
func (e *Engine) HandleBarcodeScanned(ctx context.Context, code string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.resolver.Resolve(code)
	if err != nil || e.state.productIndex(id) < 0 {
		e.observer.CartRejected("not_found")
		e.notify(shared.NoticeError, "Product not found for barcode %s", code)
		return fmt.Errorf("%w: barcode %q", ErrProductNotFound, code)
	}
	return e.addToCart(ctx, id)
}

// SetPayment stores the amount typed by the operator.
func (e *Engine) SetPayment(ctx context.Context, payment string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.state.clone()
	e.state.payment = payment
	return e.commit(ctx, prev)
}

// SetDebt toggles whether a short payment is recorded as debt.
func (e *Engine) SetDebt(ctx context.Context, isDebt bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.state.clone()
	e.state.isDebt = isDebt
	return e.commit(ctx, prev)
}

// SelectCustomer selects the debtor by name. An empty name clears it.
func (e *Engine) SelectCustomer(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name != "" && !e.knownCustomer(name) {
		e.notify(shared.NoticeError, "Customer %s not found", name)
		return fmt.Errorf("%w: %s", ErrCustomerNotFound, name)
	}
	prev := e.state.clone()
	e.state.customer = name
	return e.commit(ctx, prev)
}

func (e *Engine) knownCustomer(name string) bool {
	for _, c := range e.cfg.Customers {
		if c.Name == name {
			return true
		}
	}
	return false
}

// SelectCategory narrows the visible products. Empty selects AllProducts.
func (e *Engine) SelectCategory(ctx context.Context, category string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if category == "" {
		category = catalog.AllProducts
	}
	if category != catalog.AllProducts && len(e.cfg.Categories) > 0 && !e.knownCategory(category) {
		e.notify(shared.NoticeError, "Category %s not found", category)
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
	}
	prev := e.state.clone()
	e.state.category = category
	return e.commit(ctx, prev)
}

func (e *Engine) knownCategory(name string) bool {
	for _, c := range e.cfg.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// SetSearch updates the product search text.
func (e *Engine) SetSearch(ctx context.Context, query string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.state.clone()
	e.state.search = query
	return e.commit(ctx, prev)
}

// VisibleProducts returns the catalog filtered by category and search text.
func (e *Engine) VisibleProducts() []catalog.Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	return catalog.Filter(e.state.products, e.state.category, e.state.search)
}

// Products returns the catalog with current stock levels.
func (e *Engine) Products() []catalog.Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	return catalog.CloneProducts(e.state.products)
}

// Customers returns the selectable customers.
func (e *Engine) Customers() []catalog.Customer {
	out := make([]catalog.Customer, len(e.cfg.Customers))
	copy(out, e.cfg.Customers)
	return out
}

// Categories returns the selectable categories.
func (e *Engine) Categories() []catalog.Category {
	out := make([]catalog.Category, len(e.cfg.Categories))
	copy(out, e.cfg.Categories)
	return out
}

// State returns a snapshot of the session.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := e.state.clone()
	cart := snapshot.cart
	if cart == nil {
		cart = []CartLine{}
	}
	return State{
		RegisterID:       e.cfg.RegisterID,
		Cart:             cart,
		Total:            snapshot.total,
		Payment:          snapshot.payment,
		Change:           e.change(),
		IsDebt:           snapshot.isDebt,
		SelectedCustomer: snapshot.customer,
		SelectedCategory: snapshot.category,
		SearchQuery:      snapshot.search,
		CanCheckout:      e.canCheckout(),
	}
}

func parsePayment(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
