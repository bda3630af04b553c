package cart

import (
	"time"

	"github.com/axiskeys/storefront/internal/catalog"
)

// Item is one product-quantity pairing in the cart.
//
// UnitPrice is the price snapshot captured when the item was added. Totals
// always use the snapshot (or a server-supplied subtotal), never the live
// catalog price, so catalog price changes do not retroactively alter an
// existing cart.
type Item struct {
	// RemoteID is the server-side cart item identifier.
	// Zero for items added while the remote store was unreachable.
	RemoteID  int64           `json:"id,omitempty"`
	Product   catalog.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
	UnitPrice int64           `json:"unit_price"`
	// Subtotal is the server-computed line total. Zero means absent;
	// the line total is then derived from UnitPrice.
	Subtotal int64 `json:"subtotal,omitempty"`
}

// LineTotal returns the price contribution of this item: the server subtotal
// when present, otherwise UnitPrice times Quantity.
func (it Item) LineTotal() int64 {
	if it.Subtotal > 0 {
		return it.Subtotal
	}
	return it.UnitPrice * int64(it.Quantity)
}

// Valid reports whether a persisted item passes the structural-integrity
// check applied when restoring a backup.
func (it Item) Valid() bool {
	return it.Product.ID > 0 && it.Quantity > 0
}

// Snapshot is a normalized authoritative cart as returned by a backend.
// Totals are not carried: they are always derived from the items.
type Snapshot struct {
	CartID int64  `json:"cart_id,omitempty"`
	Items  []Item `json:"items"`
}

// Totals computes the aggregate item count and price for a list of items.
//
// Pure and deterministic: called after every mutation, before the state is
// published, so the aggregate invariant (totals always derived) holds at
// every observable point.
func Totals(items []Item) (totalItems int, totalPrice int64) {
	for _, it := range items {
		totalItems += it.Quantity
		totalPrice += it.LineTotal()
	}
	return totalItems, totalPrice
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
