package catalog

// Product is a catalog entry as returned by the product read API.
//
// Products are read-only to the cart subsystem: the cart captures a price
// snapshot at add time and never writes back to the catalog. Price is in
// cents to avoid floating-point drift in cart totals.
type Product struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	SKU          string `json:"sku"`
	Price        int64  `json:"price"`
	Stock        int    `json:"stock"`
	IsActive     bool   `json:"is_active"`
	PrimaryImage string `json:"primary_image,omitempty"`
}

// InStock reports whether the product can currently be added to a cart.
func (p Product) InStock() bool {
	return p.Stock > 0
}
