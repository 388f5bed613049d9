// Package store defines the generic record store the register and RBAC layers
// persist through, plus its Postgres and in-memory implementations.
package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Table names known to the schema.
const (
	TableProducts        = "products"
	TableCategories      = "categories"
	TableCustomers       = "customers"
	TableRoles           = "roles"
	TablePermissions     = "permissions"
	TableRolePermissions = "role_permissions"
	TableUserRoles       = "user_roles"
	TableRoleAssignments = "role_assignments"
	TableSales           = "sales"
	TableSaleLines       = "sale_lines"
	TableCustomerDebts   = "customer_debts"
)

var (
	// ErrNotFound is returned when an update or delete matched nothing.
	ErrNotFound = fmt.Errorf("store: row not found: %w", shared.ErrNotFound)
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = fmt.Errorf("store: duplicate row: %w", shared.ErrDuplicate)
	// ErrUnknownTable is returned for tables outside the schema.
	ErrUnknownTable = fmt.Errorf("store: unknown table: %w", shared.ErrValidation)
)

// Row is a single record keyed by column name.
type Row map[string]any

// Filter restricts FetchRows to rows whose columns equal the given values.
type Filter map[string]any

// RecordStore is the narrow collaborator every backend implements.
type RecordStore interface {
	FetchRows(ctx context.Context, table string, filter Filter) ([]Row, error)
	InsertRow(ctx context.Context, table string, fields Row) (Row, error)
	UpdateRow(ctx context.Context, table string, id int64, fields Row) error
	DeleteRow(ctx context.Context, table string, id int64) error
	// WithTx runs fn against a store whose writes commit or roll back together.
	WithTx(ctx context.Context, fn func(context.Context, RecordStore) error) error
}

// Int64 reads an integer column, accepting the numeric types drivers produce.
func (r Row) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// OptionalInt reads a nullable integer column.
func (r Row) OptionalInt(key string) *int {
	if r[key] == nil {
		return nil
	}
	n := int(r.Int64(key))
	return &n
}

// String reads a text column.
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(r[key])
}

// Bool reads a boolean column.
func (r Row) Bool(key string) bool {
	v, _ := r[key].(bool)
	return v
}

// Time reads a timestamp column.
func (r Row) Time(key string) time.Time {
	v, _ := r[key].(time.Time)
	return v
}

// Decimal reads a numeric column.
func (r Row) Decimal(key string) decimal.Decimal {
	switch v := r[key].(type) {
	case decimal.Decimal:
		return v
	case string:
		d, _ := decimal.NewFromString(v)
		return d
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case driver.Valuer:
		raw, err := v.Value()
		if err != nil {
			return decimal.Zero
		}
		if s, ok := raw.(string); ok {
			d, _ := decimal.NewFromString(s)
			return d
		}
	}
	return decimal.Zero
}

// OptionalDecimal reads a nullable numeric column.
func (r Row) OptionalDecimal(key string) *decimal.Decimal {
	if r[key] == nil {
		return nil
	}
	d := r.Decimal(key)
	return &d
}
