package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/axiskeys/storefront/internal/catalog"
)

var (
	keycaps  = catalog.Product{ID: 1, Name: "Keycap Set", Slug: "keycap-set", Price: 1000, Stock: 10, IsActive: true}
	switches = catalog.Product{ID: 2, Name: "Switch Pack", Slug: "switch-pack", Price: 2500, Stock: 5, IsActive: true}
	soldOut  = catalog.Product{ID: 3, Name: "Artisan Cap", Slug: "artisan-cap", Price: 9000, Stock: 0, IsActive: true}
)

// item builds a fixture line in UTC so fixtures compare equal after a JSON
// round trip, which normalizes the location.
func item(p catalog.Product, qty int) Item {
	return Item{Product: p, Quantity: qty, AddedAt: time.Unix(1700000000, 0).UTC(), UnitPrice: p.Price}
}

func TestTotals_Empty(t *testing.T) {
	count, price := Totals(nil)
	assert.Equal(t, 0, count)
	assert.Equal(t, int64(0), price)
}

func TestTotals_SumsQuantitiesAndPrices(t *testing.T) {
	count, price := Totals([]Item{item(keycaps, 2), item(switches, 3)})
	assert.Equal(t, 5, count)
	assert.Equal(t, int64(2*1000+3*2500), price)
}

func TestTotals_PrefersServerSubtotal(t *testing.T) {
	discounted := item(keycaps, 2)
	discounted.Subtotal = 1500 // server applied a promotion

	count, price := Totals([]Item{discounted, item(switches, 1)})
	assert.Equal(t, 3, count)
	assert.Equal(t, int64(1500+2500), price)
}

func TestTotals_UsesPriceSnapshotNotLivePrice(t *testing.T) {
	it := item(keycaps, 2)
	// Catalog price changed after the item was added; the snapshot rules.
	it.Product.Price = 99999

	_, price := Totals([]Item{it})
	assert.Equal(t, int64(2000), price)
}

func TestLineTotal(t *testing.T) {
	it := item(switches, 4)
	assert.Equal(t, int64(10000), it.LineTotal())

	it.Subtotal = 9000
	assert.Equal(t, int64(9000), it.LineTotal())
}

func TestItemValid(t *testing.T) {
	assert.True(t, item(keycaps, 1).Valid())
	assert.False(t, Item{Quantity: 1}.Valid(), "missing product reference")
	assert.False(t, Item{Product: keycaps, Quantity: 0}.Valid(), "non-positive quantity")
}
