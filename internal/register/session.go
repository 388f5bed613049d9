package register

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
)

// Persisted session keys.
const (
	KeyCart             = "cart"
	KeyCartTotal        = "cartTotal"
	KeyPayment          = "payment"
	KeyIsDebt           = "isDebt"
	KeySelectedCustomer = "selectedCustomer"
	KeySelectedCategory = "selectedCategory"
	KeySearchQuery      = "searchQuery"
	KeyModifiedProducts = "modifiedProducts"
)

// AllKeys lists every persisted key.
var AllKeys = []string{
	KeyCart,
	KeyCartTotal,
	KeyPayment,
	KeyIsDebt,
	KeySelectedCustomer,
	KeySelectedCategory,
	KeySearchQuery,
	KeyModifiedProducts,
}

// checkoutKeys are erased on a completed sale; category, search and stock survive.
var checkoutKeys = []string{KeyCart, KeyCartTotal, KeyPayment, KeyIsDebt, KeySelectedCustomer}

// SessionStore mirrors the register session as text values.
type SessionStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
	Erase(ctx context.Context, keys ...string) error
}

type session struct {
	cart     []CartLine
	total    decimal.Decimal
	payment  string
	isDebt   bool
	customer string
	category string
	search   string
	products []catalog.Product
}

func newSession(pristine []catalog.Product) session {
	return session{
		total:    decimal.Zero,
		category: catalog.AllProducts,
		products: catalog.CloneProducts(pristine),
	}
}

func (s session) clone() session {
	out := s
	out.cart = make([]CartLine, len(s.cart))
	for i, line := range s.cart {
		out.cart[i] = CartLine{Product: line.Product.Clone(), Quantity: line.Quantity}
	}
	out.products = catalog.CloneProducts(s.products)
	return out
}

func (s session) lineIndex(productID int64) int {
	for i, line := range s.cart {
		if line.ID == productID {
			return i
		}
	}
	return -1
}

func (s session) productIndex(productID int64) int {
	for i, p := range s.products {
		if p.ID == productID {
			return i
		}
	}
	return -1
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (s session) encode() map[string]string {
	cart := s.cart
	if cart == nil {
		cart = []CartLine{}
	}
	return map[string]string{
		KeyCart:             mustJSON(cart),
		KeyCartTotal:        mustJSON(s.total),
		KeyPayment:          mustJSON(s.payment),
		KeyIsDebt:           mustJSON(s.isDebt),
		KeySelectedCustomer: mustJSON(s.customer),
		KeySelectedCategory: mustJSON(s.category),
		KeySearchQuery:      mustJSON(s.search),
		KeyModifiedProducts: mustJSON(s.products),
	}
}

// changedValues returns the encoded fields of next that differ from prev.
func changedValues(prev, next session) map[string]string {
	before := prev.encode()
	after := next.encode()
	out := make(map[string]string)
	for k, v := range after {
		if before[k] != v {
			out[k] = v
		}
	}
	return out
}

// restoreSession rehydrates each field independently, keeping the default for
// missing or unreadable keys. Stock levels are taken from the persisted catalog
// for products that still exist in pristine.
func restoreSession(values map[string]string, pristine []catalog.Product, logger *slog.Logger) session {
	s := newSession(pristine)
	decode := func(key string, dest any) bool {
		raw, ok := values[key]
		if !ok || raw == "" {
			return false
		}
		if err := json.Unmarshal([]byte(raw), dest); err != nil {
			logger.Warn("register: discard unreadable session key", slog.String("key", key), slog.Any("error", err))
			return false
		}
		return true
	}

	var cart []CartLine
	if decode(KeyCart, &cart) {
		kept := cart[:0]
		for _, line := range cart {
			if line.Quantity >= 1 {
				kept = append(kept, line)
			}
		}
		s.cart = kept
	}
	var total decimal.Decimal
	if decode(KeyCartTotal, &total) {
		s.total = total
	}
	var payment string
	if decode(KeyPayment, &payment) {
		s.payment = payment
	}
	var isDebt bool
	if decode(KeyIsDebt, &isDebt) {
		s.isDebt = isDebt
	}
	var customer string
	if decode(KeySelectedCustomer, &customer) {
		s.customer = customer
	}
	var category string
	if decode(KeySelectedCategory, &category) && category != "" {
		s.category = category
	}
	var search string
	if decode(KeySearchQuery, &search) {
		s.search = search
	}
	var modified []catalog.Product
	if decode(KeyModifiedProducts, &modified) {
		stock := make(map[int64]*int, len(modified))
		for _, p := range modified {
			stock[p.ID] = p.StockQuantity
		}
		for i, p := range s.products {
			q, ok := stock[p.ID]
			if ok && q != nil && p.StockQuantity != nil {
				v := *q
				s.products[i].StockQuantity = &v
			}
		}
	}
	return s
}
