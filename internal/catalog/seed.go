package catalog

import "github.com/shopspring/decimal"

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

func stock(n int) *int {
	return &n
}

// SeedCategories returns the demo categories, including the AllProducts sentinel.
func SeedCategories() []Category {
	return []Category{
		{ID: 0, Name: AllProducts, Icon: "grid"},
		{ID: 1, Name: "Beverages", Icon: "coffee"},
		{ID: 2, Name: "Bakery", Icon: "croissant"},
		{ID: 3, Name: "Snacks", Icon: "cookie"},
		{ID: 4, Name: "Household", Icon: "home"},
	}
}

// SeedProducts returns the demo catalog.
func SeedProducts() []Product {
	return []Product{
		{ID: 1, Name: "Arabica Coffee Beans", Price: price("10.99"), OriginalPrice: pricePtr("12.99"), Discount: true, Image: "/img/coffee-beans.png", InStock: true, StockQuantity: stock(15), Category: "Beverages", Description: "Medium roast, 250g bag"},
		{ID: 2, Name: "Green Tea", Price: price("4.50"), Image: "/img/green-tea.png", InStock: true, StockQuantity: stock(30), Category: "Beverages", Description: "20 sachets"},
		{ID: 3, Name: "Sourdough Loaf", Price: price("6.25"), Image: "/img/sourdough.png", InStock: false, StockQuantity: stock(0), Category: "Bakery", Description: "Baked daily"},
		{ID: 4, Name: "Butter Croissant", Price: price("2.75"), Image: "/img/croissant.png", InStock: true, StockQuantity: stock(12), Category: "Bakery", Description: "Freshly baked"},
		{ID: 5, Name: "Sea Salt Crisps", Price: price("1.99"), Image: "/img/crisps.png", InStock: true, Category: "Snacks", Description: "150g"},
		{ID: 6, Name: "Dark Chocolate Bar", Price: price("3.49"), OriginalPrice: pricePtr("3.99"), Discount: true, Image: "/img/chocolate.png", InStock: true, StockQuantity: stock(5), Category: "Snacks", Description: "70% cocoa"},
		{ID: 7, Name: "Dish Soap", Price: price("2.20"), Image: "/img/dish-soap.png", InStock: true, StockQuantity: stock(20), Category: "Household", Description: "Lemon scent, 500ml"},
		{ID: 8, Name: "Paper Towels", Price: price("5.80"), Image: "/img/paper-towels.png", InStock: true, Category: "Household", Description: "6 rolls"},
	}
}

// SeedCustomers returns the demo customer list.
func SeedCustomers() []Customer {
	return []Customer{
		{ID: 1, Name: "Customer A"},
		{ID: 2, Name: "Customer B"},
		{ID: 3, Name: "Customer C"},
	}
}
