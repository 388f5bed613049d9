package shared

// Point of sale permissions.
const (
	PermProductsView   = "products.view"
	PermProductsCreate = "products.create"
	PermProductsEdit   = "products.edit"
	PermProductsDelete = "products.delete"

	PermSalesView     = "sales.view"
	PermSalesCreate   = "sales.create"
	PermSalesDebt     = "sales.debt"
	PermSalesRefund   = "sales.refund"
	PermCustomersView = "customers.view"
	PermCustomersEdit = "customers.edit"

	PermInventoryView   = "inventory.view"
	PermInventoryAdjust = "inventory.adjust"

	PermReportsView   = "reports.view"
	PermReportsExport = "reports.export"
)

// POSScopes lists all permissions used by the register.
func POSScopes() []string {
	return []string{
		PermProductsView,
		PermProductsCreate,
		PermProductsEdit,
		PermProductsDelete,
		PermSalesView,
		PermSalesCreate,
		PermSalesDebt,
		PermSalesRefund,
		PermCustomersView,
		PermCustomersEdit,
		PermInventoryView,
		PermInventoryAdjust,
		PermReportsView,
		PermReportsExport,
	}
}
