package cart

import (
	"context"

	"github.com/axiskeys/storefront/internal/catalog"
)

// Backend is the authoritative store behind the cart state machine.
//
// Two strategies implement it: remote.Client (the HTTP store, which may fail
// and trigger the optimistic fallback) and LocalBackend (purely local,
// authoritative in the SQLite store, never unreachable). The state machine
// logic is identical across both; the strategy is selected by configuration.
//
// Every mutating call returns the canonical snapshot after the mutation.
// The store replaces its item list wholesale with that snapshot - server
// state is never merged field by field.
type Backend interface {
	// Get fetches the current canonical cart.
	Get(ctx context.Context) (Snapshot, error)

	// AddItem adds quantity of a product, consolidating duplicates.
	AddItem(ctx context.Context, p catalog.Product, quantity int) (Snapshot, error)

	// UpdateItem sets the quantity of an existing line item.
	UpdateItem(ctx context.Context, itemID int64, quantity int) (Snapshot, error)

	// RemoveItem deletes a line item.
	RemoveItem(ctx context.Context, itemID int64) (Snapshot, error)

	// Clear empties the cart.
	Clear(ctx context.Context) error

	// Merge folds the guest session's cart into the caller's cart and
	// returns the combined snapshot.
	Merge(ctx context.Context, guestSessionID string) (Snapshot, error)
}
