package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// Filter restricts products to category (unless it is AllProducts or empty),
// then keeps those whose name or category contains search, ignoring case.
// search is matched as entered, surrounding spaces included.
func Filter(products []Product, category, search string) []Product {
	folder := cases.Fold()
	needle := folder.String(search)
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && category != AllProducts && p.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(folder.String(p.Name), needle) &&
			!strings.Contains(folder.String(p.Category), needle) {
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}
