package cart

import (
	"time"

	"github.com/axiskeys/storefront/internal/catalog"
)

// State is the in-memory cart aggregate exposed to the UI layer.
//
// TotalItems and TotalPrice are always derived by Totals; reduce is the only
// place that writes them and it recomputes both on every item-list change.
type State struct {
	CartID     int64
	Items      []Item
	TotalItems int
	TotalPrice int64
	IsOpen     bool
	IsLoading  bool
	IsSynced   bool
}

// actionKind enumerates the discrete transitions of the cart state machine.
type actionKind int

const (
	actionAdd actionKind = iota + 1
	actionRemove
	actionSetQuantity
	actionClear
	actionOpen
	actionClose
	actionToggle
	actionLoad
	actionSyncRemote
	actionSetLoading
	actionSetSynced
)

// action carries the payload for one transition. Which fields are meaningful
// depends on kind.
type action struct {
	kind      actionKind
	product   catalog.Product
	productID int64
	quantity  int
	at        time.Time
	items     []Item
	snapshot  Snapshot
	flag      bool
}

// reduce applies one action to a state and returns the next state.
//
// The item slice is copied before mutation so previously published State
// values stay immutable. Totals are recomputed on every path that touches
// the item list.
func reduce(st State, a action) State {
	switch a.kind {
	case actionAdd:
		items := cloneItems(st.Items)
		found := false
		for i := range items {
			if items[i].Product.ID == a.product.ID {
				// Duplicate add increments the existing line item.
				items[i].Quantity += a.quantity
				items[i].Subtotal = 0
				found = true
				break
			}
		}
		if !found {
			items = append(items, Item{
				Product:   a.product,
				Quantity:  a.quantity,
				AddedAt:   a.at,
				UnitPrice: a.product.Price,
			})
		}
		st.Items = items
		st.TotalItems, st.TotalPrice = Totals(items)
		return st

	case actionRemove:
		items := make([]Item, 0, len(st.Items))
		for _, it := range st.Items {
			if it.Product.ID != a.productID {
				items = append(items, it)
			}
		}
		st.Items = items
		st.TotalItems, st.TotalPrice = Totals(items)
		return st

	case actionSetQuantity:
		if a.quantity <= 0 {
			return reduce(st, action{kind: actionRemove, productID: a.productID})
		}
		items := cloneItems(st.Items)
		for i := range items {
			if items[i].Product.ID == a.productID {
				items[i].Quantity = a.quantity
				items[i].Subtotal = 0
				break
			}
		}
		st.Items = items
		st.TotalItems, st.TotalPrice = Totals(items)
		return st

	case actionClear:
		st.Items = nil
		st.TotalItems = 0
		st.TotalPrice = 0
		st.CartID = 0
		return st

	case actionOpen:
		st.IsOpen = true
		return st

	case actionClose:
		st.IsOpen = false
		return st

	case actionToggle:
		st.IsOpen = !st.IsOpen
		return st

	case actionLoad:
		items := cloneItems(a.items)
		st.Items = items
		st.TotalItems, st.TotalPrice = Totals(items)
		return st

	case actionSyncRemote:
		items := cloneItems(a.snapshot.Items)
		st.CartID = a.snapshot.CartID
		st.Items = items
		st.TotalItems, st.TotalPrice = Totals(items)
		st.IsSynced = true
		st.IsLoading = false
		return st

	case actionSetLoading:
		st.IsLoading = a.flag
		return st

	case actionSetSynced:
		st.IsSynced = a.flag
		return st

	default:
		return st
	}
}

// find returns the line item for a product ID, if present.
func (st State) find(productID int64) (Item, bool) {
	for _, it := range st.Items {
		if it.Product.ID == productID {
			return it, true
		}
	}
	return Item{}, false
}
