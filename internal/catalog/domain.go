package catalog

import "github.com/shopspring/decimal"

// AllProducts is the category sentinel that disables category filtering.
const AllProducts = "All Products"

// Product is a sellable catalog item.
type Product struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Discount      bool             `json:"discount"`
	Image         string           `json:"image"`
	InStock       bool             `json:"inStock"`
	StockQuantity *int             `json:"stockQuantity,omitempty"`
	Category      string           `json:"category"`
	Description   string           `json:"description"`
}

// HasStockCeiling reports whether the product limits sellable units.
func (p Product) HasStockCeiling() bool {
	return p.StockQuantity != nil
}

// Clone returns a deep copy so stock adjustments never alias another catalog.
func (p Product) Clone() Product {
	out := p
	if p.StockQuantity != nil {
		q := *p.StockQuantity
		out.StockQuantity = &q
	}
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		out.OriginalPrice = &op
	}
	return out
}

// Category groups products for filtering.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Customer can be selected as the debtor of a sale.
type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CloneProducts deep copies a product list.
func CloneProducts(products []Product) []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}
