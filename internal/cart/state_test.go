package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_Add_NewItem(t *testing.T) {
	at := time.Unix(1700000000, 0)
	st := reduce(State{}, action{kind: actionAdd, product: keycaps, quantity: 2, at: at})

	require.Len(t, st.Items, 1)
	assert.Equal(t, keycaps.ID, st.Items[0].Product.ID)
	assert.Equal(t, 2, st.Items[0].Quantity)
	assert.Equal(t, keycaps.Price, st.Items[0].UnitPrice)
	assert.Equal(t, at, st.Items[0].AddedAt)
	assert.Equal(t, 2, st.TotalItems)
	assert.Equal(t, int64(2000), st.TotalPrice)
}

func TestReduce_Add_ConsolidatesDuplicates(t *testing.T) {
	st := reduce(State{}, action{kind: actionAdd, product: keycaps, quantity: 2})
	st = reduce(st, action{kind: actionAdd, product: keycaps, quantity: 1})

	require.Len(t, st.Items, 1, "duplicate add must never create a second line item")
	assert.Equal(t, 3, st.Items[0].Quantity)
	assert.Equal(t, 3, st.TotalItems)
	assert.Equal(t, int64(3000), st.TotalPrice)
}

func TestReduce_Add_DoesNotMutatePriorState(t *testing.T) {
	st1 := reduce(State{}, action{kind: actionAdd, product: keycaps, quantity: 2})
	st2 := reduce(st1, action{kind: actionAdd, product: keycaps, quantity: 5})

	assert.Equal(t, 2, st1.Items[0].Quantity, "published state must stay immutable")
	assert.Equal(t, 7, st2.Items[0].Quantity)
}

func TestReduce_Remove(t *testing.T) {
	st := State{Items: []Item{item(keycaps, 2), item(switches, 1)}}
	st.TotalItems, st.TotalPrice = Totals(st.Items)

	st = reduce(st, action{kind: actionRemove, productID: keycaps.ID})
	require.Len(t, st.Items, 1)
	assert.Equal(t, switches.ID, st.Items[0].Product.ID)
	assert.Equal(t, 1, st.TotalItems)
	assert.Equal(t, int64(2500), st.TotalPrice)

	// Removing an absent product is a no-op.
	st = reduce(st, action{kind: actionRemove, productID: 999})
	assert.Len(t, st.Items, 1)
}

func TestReduce_SetQuantity(t *testing.T) {
	st := State{Items: []Item{item(keycaps, 2)}}
	st.TotalItems, st.TotalPrice = Totals(st.Items)

	st = reduce(st, action{kind: actionSetQuantity, productID: keycaps.ID, quantity: 5})
	assert.Equal(t, 5, st.Items[0].Quantity)
	assert.Equal(t, int64(5000), st.TotalPrice)
}

func TestReduce_SetQuantity_ZeroRemoves(t *testing.T) {
	st := State{Items: []Item{item(keycaps, 2)}}
	st.TotalItems, st.TotalPrice = Totals(st.Items)

	st = reduce(st, action{kind: actionSetQuantity, productID: keycaps.ID, quantity: 0})
	assert.Empty(t, st.Items)
	assert.Equal(t, 0, st.TotalItems)
	assert.Equal(t, int64(0), st.TotalPrice)
}

func TestReduce_SetQuantity_DropsStaleSubtotal(t *testing.T) {
	it := item(keycaps, 2)
	it.Subtotal = 1500
	st := State{Items: []Item{it}}

	st = reduce(st, action{kind: actionSetQuantity, productID: keycaps.ID, quantity: 3})
	assert.Zero(t, st.Items[0].Subtotal, "server subtotal no longer matches the new quantity")
	assert.Equal(t, int64(3000), st.TotalPrice)
}

func TestReduce_Clear(t *testing.T) {
	st := State{CartID: 7, Items: []Item{item(keycaps, 2)}, TotalItems: 2, TotalPrice: 2000}

	st = reduce(st, action{kind: actionClear})
	assert.Empty(t, st.Items)
	assert.Zero(t, st.TotalItems)
	assert.Zero(t, st.TotalPrice)
	assert.Zero(t, st.CartID)
}

func TestReduce_Sidebar(t *testing.T) {
	st := State{}
	st = reduce(st, action{kind: actionOpen})
	assert.True(t, st.IsOpen)
	st = reduce(st, action{kind: actionClose})
	assert.False(t, st.IsOpen)
	st = reduce(st, action{kind: actionToggle})
	assert.True(t, st.IsOpen)
	st = reduce(st, action{kind: actionToggle})
	assert.False(t, st.IsOpen)
}

func TestReduce_SyncRemote_ReplacesWholesale(t *testing.T) {
	// Local optimistic state that never reached the server.
	st := reduce(State{}, action{kind: actionAdd, product: soldOut, quantity: 1})
	st.IsLoading = true
	st.IsSynced = false

	server := Snapshot{CartID: 42, Items: []Item{
		{RemoteID: 9, Product: keycaps, Quantity: 2, UnitPrice: 1000, Subtotal: 2000},
	}}
	st = reduce(st, action{kind: actionSyncRemote, snapshot: server})

	require.Len(t, st.Items, 1, "no locally-added items survive a full sync")
	assert.Equal(t, keycaps.ID, st.Items[0].Product.ID)
	assert.Equal(t, int64(42), st.CartID)
	assert.Equal(t, 2, st.TotalItems)
	assert.Equal(t, int64(2000), st.TotalPrice)
	assert.True(t, st.IsSynced)
	assert.False(t, st.IsLoading)
}

func TestReduce_Load_RecomputesTotals(t *testing.T) {
	st := reduce(State{}, action{kind: actionLoad, items: []Item{item(keycaps, 2), item(switches, 1)}})
	assert.Equal(t, 3, st.TotalItems)
	assert.Equal(t, int64(4500), st.TotalPrice)
}

func TestReduce_Flags(t *testing.T) {
	st := reduce(State{}, action{kind: actionSetLoading, flag: true})
	assert.True(t, st.IsLoading)
	st = reduce(st, action{kind: actionSetSynced, flag: true})
	assert.True(t, st.IsSynced)
}
