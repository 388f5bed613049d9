package catalog

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-pos/internal/store"
)

// Repository loads catalog data from the record store.
type Repository struct {
	store store.RecordStore
}

// NewRepository constructs a repository.
func NewRepository(s store.RecordStore) *Repository {
	return &Repository{store: s}
}

// Products returns every product ordered by id.
func (r *Repository) Products(ctx context.Context) ([]Product, error) {
	rows, err := r.store.FetchRows(ctx, store.TableProducts, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: products: %w", err)
	}
	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, Product{
			ID:            row.Int64("id"),
			Name:          row.String("name"),
			Price:         row.Decimal("price"),
			OriginalPrice: row.OptionalDecimal("original_price"),
			Discount:      row.Bool("discount"),
			Image:         row.String("image"),
			InStock:       row.Bool("in_stock"),
			StockQuantity: row.OptionalInt("stock_quantity"),
			Category:      row.String("category"),
			Description:   row.String("description"),
		})
	}
	return products, nil
}

// Categories returns the stored categories prefixed with the AllProducts sentinel.
func (r *Repository) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.store.FetchRows(ctx, store.TableCategories, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: categories: %w", err)
	}
	categories := []Category{{Name: AllProducts, Icon: "grid"}}
	for _, row := range rows {
		if row.String("name") == AllProducts {
			continue
		}
		categories = append(categories, Category{ID: row.Int64("id"), Name: row.String("name"), Icon: row.String("icon")})
	}
	return categories, nil
}

// Customers returns every customer ordered by id.
func (r *Repository) Customers(ctx context.Context) ([]Customer, error) {
	rows, err := r.store.FetchRows(ctx, store.TableCustomers, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: customers: %w", err)
	}
	customers := make([]Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, Customer{ID: row.Int64("id"), Name: row.String("name")})
	}
	return customers, nil
}

// Seed writes the given catalog into an empty store.
func (r *Repository) Seed(ctx context.Context, products []Product, categories []Category, customers []Customer) error {
	return r.store.WithTx(ctx, func(ctx context.Context, tx store.RecordStore) error {
		for _, c := range categories {
			if c.Name == AllProducts {
				continue
			}
			if _, err := tx.InsertRow(ctx, store.TableCategories, store.Row{"name": c.Name, "icon": c.Icon}); err != nil {
				return fmt.Errorf("catalog: seed category %s: %w", c.Name, err)
			}
		}
		for _, p := range products {
			row := store.Row{
				"name":           p.Name,
				"price":          p.Price,
				"original_price": p.OriginalPrice,
				"discount":       p.Discount,
				"image":          p.Image,
				"in_stock":       p.InStock,
				"stock_quantity": p.StockQuantity,
				"category":       p.Category,
				"description":    p.Description,
			}
			if _, err := tx.InsertRow(ctx, store.TableProducts, row); err != nil {
				return fmt.Errorf("catalog: seed product %s: %w", p.Name, err)
			}
		}
		for _, c := range customers {
			if _, err := tx.InsertRow(ctx, store.TableCustomers, store.Row{"name": c.Name}); err != nil {
				return fmt.Errorf("catalog: seed customer %s: %w", c.Name, err)
			}
		}
		return nil
	})
}
