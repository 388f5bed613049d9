package store

import (
	_ "embed"
	"fmt"
)

// Schema holds the DDL for every table the record store serves.
//
//go:embed schema.sql
var Schema string

var knownTables = map[string]struct{}{
	TableProducts:        {},
	TableCategories:      {},
	TableCustomers:       {},
	TableRoles:           {},
	TablePermissions:     {},
	TableRolePermissions: {},
	TableUserRoles:       {},
	TableRoleAssignments: {},
	TableSales:           {},
	TableSaleLines:       {},
	TableCustomerDebts:   {},
}

// uniqueKeys mirrors the unique constraints declared in schema.sql.
var uniqueKeys = map[string][][]string{
	TablePermissions:     {{"name"}},
	TableRolePermissions: {{"role_id", "permission_id"}},
	TableUserRoles:       {{"user_id", "role_id"}},
	TableRoleAssignments: {{"user_id", "product_id", "role_id"}},
	TableSales:           {{"receipt_id"}},
}

func checkTable(table string) error {
	if _, ok := knownTables[table]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return nil
}
