package register

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

var (
	// ErrStockLimit is returned when another unit would exceed the stock ceiling.
	ErrStockLimit = fmt.Errorf("register: stock limit reached: %w", shared.ErrValidation)
	// ErrProductNotFound is returned for unknown product ids and barcodes.
	ErrProductNotFound = fmt.Errorf("register: product not found: %w", shared.ErrNotFound)
	// ErrCustomerNotFound is returned when selecting an unknown customer.
	ErrCustomerNotFound = fmt.Errorf("register: customer not found: %w", shared.ErrNotFound)
	// ErrCategoryNotFound is returned when selecting an unknown category.
	ErrCategoryNotFound = fmt.Errorf("register: category not found: %w", shared.ErrNotFound)
	// ErrCheckoutBlocked is returned when the sale cannot be completed yet.
	ErrCheckoutBlocked = fmt.Errorf("register: checkout not allowed: %w", shared.ErrValidation)
)

// CartLine is a product held in the cart together with its quantity.
type CartLine struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// Subtotal returns price × quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ProductView is a catalog product as listed on the register.
type ProductView struct {
	catalog.Product
	AtStockLimit bool `json:"atStockLimit"`
}

// State is a read-only snapshot of a checkout session.
type State struct {
	RegisterID       string          `json:"registerId"`
	Cart             []CartLine      `json:"cart"`
	Total            decimal.Decimal `json:"total"`
	Payment          string          `json:"payment"`
	Change           decimal.Decimal `json:"change"`
	IsDebt           bool            `json:"isDebt"`
	SelectedCustomer string          `json:"selectedCustomer"`
	SelectedCategory string          `json:"selectedCategory"`
	SearchQuery      string          `json:"searchQuery"`
	CanCheckout      bool            `json:"canCheckout"`
}

// Receipt describes a completed sale.
type Receipt struct {
	ID          uuid.UUID       `json:"id"`
	RegisterID  string          `json:"registerId"`
	Lines       []CartLine      `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	Payment     decimal.Decimal `json:"payment"`
	Change      decimal.Decimal `json:"change"`
	Debt        decimal.Decimal `json:"debt"`
	Customer    string          `json:"customer,omitempty"`
	CompletedAt time.Time       `json:"completedAt"`
}

// IsDebtSale reports whether part of the total was left owing.
func (r Receipt) IsDebtSale() bool {
	return r.Debt.IsPositive()
}

// SaleRecorder forwards completed sales to durable storage.
type SaleRecorder interface {
	RecordSale(ctx context.Context, receipt Receipt) error
}

// Observer is told about sales and rejected cart operations.
type Observer interface {
	SaleCompleted(debt bool)
	CartRejected(reason string)
}

// BarcodeResolver maps a scanned code to a product id.
type BarcodeResolver interface {
	Resolve(code string) (int64, error)
}

// IDResolver treats the barcode as the numeric product id.
type IDResolver struct{}

// Resolve implements BarcodeResolver.
func (IDResolver) Resolve(code string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(code), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: barcode %q", ErrProductNotFound, code)
	}
	return id, nil
}

type noopObserver struct{}

func (noopObserver) SaleCompleted(bool)  {}
func (noopObserver) CartRejected(string) {}
