package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/axiskeys/storefront/internal/catalog"
	"github.com/axiskeys/storefront/internal/notify"
)

// Store is the cart state machine.
//
// It owns the in-memory cart aggregate exclusively and transitions it
// through the reducer. Public operations follow one contract:
//
//  1. Validate preconditions (positive quantity, product in stock).
//  2. Mark loading.
//  3. Attempt the backend call.
//  4. On success, replace the item list with the canonical snapshot and mark
//     synced.
//  5. On failure, apply the mutation optimistically, mark unsynced, and
//     continue - callers never block or roll back on a backend failure.
//
// Backend errors are absorbed here; the UI observes only the resulting state
// and notifications.
//
// Thread-safety: operations are serialized per store by an internal mutex.
// The backend call happens outside the lock (the suspension point), so two
// rapid operations may complete out of order; a mutation generation counter
// prevents a stale snapshot from overwriting newer optimistic state.
type Store struct {
	mu    sync.Mutex
	state State
	gen   uint64 // bumped at each mutation issuance

	backend Backend
	notes   *notify.Queue
	backup  *Backup
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithNotifications attaches the queue that receives operation outcomes.
func WithNotifications(q *notify.Queue) Option {
	return func(s *Store) { s.notes = q }
}

// WithBackup attaches the local backup mirror.
func WithBackup(b *Backup) Option {
	return func(s *Store) { s.backup = b }
}

// WithClock substitutes the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a cart store over the given backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current cart aggregate.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Items = cloneItems(s.state.Items)
	return st
}

// Add puts quantity of a product into the cart.
//
// Rejected synchronously (warning/error notification, no mutation) when the
// quantity is not positive or the product is out of stock.
func (s *Store) Add(ctx context.Context, p catalog.Product, quantity int) {
	if quantity <= 0 {
		s.push(notify.SeverityError, "Invalid quantity",
			notify.WithMessage("Quantity must be greater than zero"))
		return
	}
	if !p.InStock() {
		s.push(notify.SeverityWarning, "Out of stock",
			notify.WithMessage(fmt.Sprintf("%s is currently unavailable", p.Name)),
			notify.WithDuration(4*time.Second))
		return
	}

	gen := s.begin()
	snap, err := s.backend.AddItem(ctx, p, quantity)
	if err == nil {
		s.applySnapshot(gen, snap)
		s.push(notify.SeveritySuccess, "Added to cart",
			notify.WithMessage(fmt.Sprintf("%s × %d", p.Name, quantity)))
	} else {
		slog.Warn("cart add failed, applying locally", "product_id", p.ID, "error", err)
		s.applyOptimistic(action{kind: actionAdd, product: p, quantity: quantity, at: s.now()})
		s.push(notify.SeverityWarning, "Added to cart (offline)",
			notify.WithMessage(fmt.Sprintf("%s × %d", p.Name, quantity)))
	}
	s.mirror(ctx)
}

// Remove deletes a product's line item. Removing an absent product is a
// silent no-op.
func (s *Store) Remove(ctx context.Context, productID int64) {
	s.mu.Lock()
	item, ok := s.state.find(productID)
	s.mu.Unlock()
	if !ok {
		return
	}

	if item.RemoteID == 0 {
		// Never reached the server; a local removal is already consistent.
		s.applyLocal(action{kind: actionRemove, productID: productID})
		s.push(notify.SeverityInfo, "Removed from cart", notify.WithMessage(item.Product.Name))
		s.mirror(ctx)
		return
	}

	gen := s.begin()
	snap, err := s.backend.RemoveItem(ctx, item.RemoteID)
	if err == nil {
		s.applySnapshot(gen, snap)
	} else {
		slog.Warn("cart remove failed, applying locally", "product_id", productID, "error", err)
		s.applyOptimistic(action{kind: actionRemove, productID: productID})
	}
	s.push(notify.SeverityInfo, "Removed from cart", notify.WithMessage(item.Product.Name))
	s.mirror(ctx)
}

// SetQuantity changes a line item's quantity. A quantity of zero or below
// removes the item; an absent product is a silent no-op.
func (s *Store) SetQuantity(ctx context.Context, productID int64, quantity int) {
	if quantity <= 0 {
		s.Remove(ctx, productID)
		return
	}

	s.mu.Lock()
	item, ok := s.state.find(productID)
	s.mu.Unlock()
	if !ok {
		return
	}

	if item.RemoteID == 0 {
		s.applyLocal(action{kind: actionSetQuantity, productID: productID, quantity: quantity})
		s.mirror(ctx)
		return
	}

	gen := s.begin()
	snap, err := s.backend.UpdateItem(ctx, item.RemoteID, quantity)
	if err == nil {
		s.applySnapshot(gen, snap)
	} else {
		slog.Warn("cart update failed, applying locally", "product_id", productID, "error", err)
		s.applyOptimistic(action{kind: actionSetQuantity, productID: productID, quantity: quantity})
	}
	s.mirror(ctx)
}

// Clear empties the cart. Clearing an empty cart is a no-op.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	empty := len(s.state.Items) == 0
	s.mu.Unlock()
	if empty {
		return
	}

	s.begin()
	err := s.backend.Clear(ctx)

	s.mu.Lock()
	s.state = reduce(s.state, action{kind: actionClear})
	s.state = reduce(s.state, action{kind: actionSetLoading, flag: false})
	s.state = reduce(s.state, action{kind: actionSetSynced, flag: err == nil})
	s.mu.Unlock()

	if err != nil {
		slog.Warn("cart clear failed, applying locally", "error", err)
	}
	if s.backup != nil {
		if berr := s.backup.Clear(ctx); berr != nil {
			slog.Warn("cart backup clear failed", "error", berr)
		}
	}
	s.push(notify.SeverityInfo, "Cart cleared", notify.WithDuration(2*time.Second))
}

// Sync replaces local state with the remote snapshot. When the backend is
// unreachable the last local backup is restored instead, with structurally
// invalid records filtered out.
func (s *Store) Sync(ctx context.Context) {
	gen := s.begin()
	snap, err := s.backend.Get(ctx)
	if err == nil {
		s.applySnapshot(gen, snap)
		s.mirror(ctx)
		return
	}

	slog.Warn("cart sync failed, restoring backup", "error", err)
	if s.backup != nil {
		if items, berr := s.backup.Load(ctx); berr != nil {
			slog.Warn("cart backup load failed", "error", berr)
		} else if len(items) > 0 {
			s.mu.Lock()
			s.state = reduce(s.state, action{kind: actionLoad, items: items})
			s.mu.Unlock()
		}
	}
	s.mu.Lock()
	s.state = reduce(s.state, action{kind: actionSetLoading, flag: false})
	s.mu.Unlock()
}

// Merge folds the guest session's server-side cart into the authenticated
// user's cart. Returns true when the merge succeeded and the guest token can
// be discarded. On failure it falls back to a plain Sync; the guest cart's
// unmerged items are an accepted loss.
func (s *Store) Merge(ctx context.Context, guestSessionID string) bool {
	gen := s.begin()
	snap, err := s.backend.Merge(ctx, guestSessionID)
	if err == nil {
		s.applySnapshot(gen, snap)
		s.mirror(ctx)
		return true
	}

	slog.Warn("cart merge failed, falling back to sync", "error", err)
	s.mu.Lock()
	s.state = reduce(s.state, action{kind: actionSetLoading, flag: false})
	s.mu.Unlock()
	s.Sync(ctx)
	return false
}

// Reset drops all local cart state without touching the backend or the
// backup. Used when the session changes hands (sign-out) and the next owner
// must not see the previous owner's items.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = reduce(s.state, action{kind: actionClear})
	s.state = reduce(s.state, action{kind: actionSetSynced, flag: true})
}

// Open opens the cart sidebar.
func (s *Store) Open() { s.applyLocal(action{kind: actionOpen}) }

// Close closes the cart sidebar.
func (s *Store) Close() { s.applyLocal(action{kind: actionClose}) }

// Toggle flips the cart sidebar.
func (s *Store) Toggle() { s.applyLocal(action{kind: actionToggle}) }

// begin marks the store loading and issues a new mutation generation.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = reduce(s.state, action{kind: actionSetLoading, flag: true})
	s.gen++
	return s.gen
}

// applySnapshot installs a canonical snapshot unless a newer mutation was
// issued while the call was in flight. A stale snapshot is dropped entirely;
// the newer operation's completion settles the loading flag.
func (s *Store) applySnapshot(gen uint64, snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		slog.Debug("dropping stale cart snapshot", "issued_gen", gen, "current_gen", s.gen)
		return false
	}
	s.state = reduce(s.state, action{kind: actionSyncRemote, snapshot: snap})
	return true
}

// applyOptimistic applies a local mutation after a backend failure and marks
// the aggregate unsynced.
func (s *Store) applyOptimistic(a action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = reduce(s.state, a)
	s.state = reduce(s.state, action{kind: actionSetSynced, flag: false})
	s.state = reduce(s.state, action{kind: actionSetLoading, flag: false})
}

// applyLocal applies a transition that involves no backend call.
func (s *Store) applyLocal(a action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = reduce(s.state, a)
}

// mirror writes the current item list to the local backup. Only non-empty
// lists are written so a transient empty state cannot clobber a valid
// backup; emptying goes through Clear, which deletes the record.
func (s *Store) mirror(ctx context.Context) {
	if s.backup == nil {
		return
	}
	s.mu.Lock()
	items := cloneItems(s.state.Items)
	s.mu.Unlock()
	if len(items) == 0 {
		return
	}
	if err := s.backup.Save(ctx, items); err != nil {
		slog.Warn("cart backup save failed", "error", err)
	}
}

func (s *Store) push(sev notify.Severity, title string, opts ...notify.PushOption) {
	if s.notes == nil {
		return
	}
	s.notes.Push(sev, title, opts...)
}
