package catalog

import "context"

// Source supplies the catalog a register starts from.
type Source interface {
	Products(ctx context.Context) ([]Product, error)
	Categories(ctx context.Context) ([]Category, error)
	Customers(ctx context.Context) ([]Customer, error)
}

// Static serves a fixed catalog held in memory.
type Static struct {
	products   []Product
	categories []Category
	customers  []Customer
}

// NewStatic constructs a Static source from the given data.
func NewStatic(products []Product, categories []Category, customers []Customer) *Static {
	return &Static{products: CloneProducts(products), categories: categories, customers: customers}
}

// NewSeedSource returns the built-in demo catalog.
func NewSeedSource() *Static {
	return NewStatic(SeedProducts(), SeedCategories(), SeedCustomers())
}

// Products implements Source.
func (s *Static) Products(context.Context) ([]Product, error) {
	return CloneProducts(s.products), nil
}

// Categories implements Source.
func (s *Static) Categories(context.Context) ([]Category, error) {
	return append([]Category(nil), s.categories...), nil
}

// Customers implements Source.
func (s *Static) Customers(context.Context) ([]Customer, error) {
	return append([]Customer(nil), s.customers...), nil
}

var (
	_ Source = (*Static)(nil)
	_ Source = (*Repository)(nil)
)
