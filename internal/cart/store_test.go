package cart

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiskeys/storefront/internal/catalog"
	"github.com/axiskeys/storefront/internal/localstore"
	"github.com/axiskeys/storefront/internal/notify"
	"github.com/axiskeys/storefront/internal/testutil"
)

var errRemoteDown = errors.New("remote store unreachable")

// stubBackend lets each test script backend behavior per call.
type stubBackend struct {
	getFn    func(ctx context.Context) (Snapshot, error)
	addFn    func(ctx context.Context, p catalog.Product, qty int) (Snapshot, error)
	updateFn func(ctx context.Context, itemID int64, qty int) (Snapshot, error)
	removeFn func(ctx context.Context, itemID int64) (Snapshot, error)
	clearFn  func(ctx context.Context) error
	mergeFn  func(ctx context.Context, sessionID string) (Snapshot, error)
}

func (b *stubBackend) Get(ctx context.Context) (Snapshot, error) {
	if b.getFn == nil {
		return Snapshot{}, errRemoteDown
	}
	return b.getFn(ctx)
}

func (b *stubBackend) AddItem(ctx context.Context, p catalog.Product, qty int) (Snapshot, error) {
	if b.addFn == nil {
		return Snapshot{}, errRemoteDown
	}
	return b.addFn(ctx, p, qty)
}

func (b *stubBackend) UpdateItem(ctx context.Context, itemID int64, qty int) (Snapshot, error) {
	if b.updateFn == nil {
		return Snapshot{}, errRemoteDown
	}
	return b.updateFn(ctx, itemID, qty)
}

func (b *stubBackend) RemoveItem(ctx context.Context, itemID int64) (Snapshot, error) {
	if b.removeFn == nil {
		return Snapshot{}, errRemoteDown
	}
	return b.removeFn(ctx, itemID)
}

func (b *stubBackend) Clear(ctx context.Context) error {
	if b.clearFn == nil {
		return errRemoteDown
	}
	return b.clearFn(ctx)
}

func (b *stubBackend) Merge(ctx context.Context, sessionID string) (Snapshot, error) {
	if b.mergeFn == nil {
		return Snapshot{}, errRemoteDown
	}
	return b.mergeFn(ctx, sessionID)
}

func newTestQueue(t *testing.T) *notify.Queue {
	t.Helper()
	q := notify.NewQueue(
		notify.WithScheduler(testutil.NewManualScheduler()),
		notify.WithIDGenerator(testutil.NewSequentialIDs("note").Next),
	)
	t.Cleanup(q.Close)
	return q
}

func lastNote(t *testing.T, q *notify.Queue) notify.Notification {
	t.Helper()
	active := q.Active()
	require.NotEmpty(t, active, "expected a notification")
	return active[len(active)-1]
}

func remoteSnap(items ...Item) Snapshot {
	return Snapshot{CartID: 42, Items: items}
}

func serverItem(id int64, p catalog.Product, qty int) Item {
	return Item{RemoteID: id, Product: p, Quantity: qty, UnitPrice: p.Price, AddedAt: time.Unix(1700000000, 0).UTC()}
}

func TestAdd_RemoteSuccess_ReplacesWithSnapshot(t *testing.T) {
	q := newTestQueue(t)
	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(9, p, qty)), nil
		},
	}
	s := New(backend, WithNotifications(q))

	s.Add(context.Background(), keycaps, 2)

	st := s.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, int64(9), st.Items[0].RemoteID)
	assert.Equal(t, 2, st.TotalItems)
	assert.Equal(t, int64(2000), st.TotalPrice)
	assert.True(t, st.IsSynced)
	assert.False(t, st.IsLoading)

	n := lastNote(t, q)
	assert.Equal(t, notify.SeveritySuccess, n.Severity)
	assert.Equal(t, "Added to cart", n.Title)
	assert.Equal(t, "Keycap Set × 2", n.Message)
}

func TestAdd_RemoteFailure_OptimisticFallback(t *testing.T) {
	q := newTestQueue(t)
	s := New(&stubBackend{}, WithNotifications(q)) // every call fails

	s.Add(context.Background(), keycaps, 2)

	st := s.State()
	require.Len(t, st.Items, 1)
	assert.Zero(t, st.Items[0].RemoteID, "offline item has no server identifier")
	assert.Equal(t, 2, st.TotalItems)
	assert.Equal(t, int64(2000), st.TotalPrice)
	assert.False(t, st.IsSynced)
	assert.False(t, st.IsLoading, "the UI must never stay blocked on a failure")

	n := lastNote(t, q)
	assert.Equal(t, notify.SeverityWarning, n.Severity)
	assert.Equal(t, "Added to cart (offline)", n.Title)
}

func TestAdd_ScenarioFromServer(t *testing.T) {
	// cart empty → add(ProductA price=1000, qty=2) → totals 2/2000, synced.
	// Then add(ProductA, qty=1) → one line item qty=3, total 3000.
	server := map[int64]*Item{}
	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			if it, ok := server[p.ID]; ok {
				it.Quantity += qty
			} else {
				server[p.ID] = &Item{RemoteID: p.ID, Product: p, Quantity: qty, UnitPrice: p.Price}
			}
			snap := Snapshot{CartID: 1}
			for _, it := range server {
				snap.Items = append(snap.Items, *it)
			}
			return snap, nil
		},
	}
	s := New(backend)
	ctx := context.Background()

	s.Add(ctx, keycaps, 2)
	st := s.State()
	assert.Equal(t, 2, st.TotalItems)
	assert.Equal(t, int64(2000), st.TotalPrice)
	assert.True(t, st.IsSynced)

	s.Add(ctx, keycaps, 1)
	st = s.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, 3, st.Items[0].Quantity)
	assert.Equal(t, int64(3000), st.TotalPrice)
}

func TestAdd_InvalidQuantity_NoMutation(t *testing.T) {
	q := newTestQueue(t)
	called := false
	backend := &stubBackend{addFn: func(context.Context, catalog.Product, int) (Snapshot, error) {
		called = true
		return Snapshot{}, nil
	}}
	s := New(backend, WithNotifications(q))

	s.Add(context.Background(), keycaps, 0)

	assert.Empty(t, s.State().Items)
	assert.False(t, called, "backend must not be reached")
	n := lastNote(t, q)
	assert.Equal(t, notify.SeverityError, n.Severity)
	assert.Equal(t, "Invalid quantity", n.Title)
}

func TestAdd_OutOfStock_WarningNoMutation(t *testing.T) {
	q := newTestQueue(t)
	s := New(&stubBackend{}, WithNotifications(q))

	s.Add(context.Background(), soldOut, 1)

	assert.Empty(t, s.State().Items)
	n := lastNote(t, q)
	assert.Equal(t, notify.SeverityWarning, n.Severity)
	assert.Equal(t, "Out of stock", n.Title)
	assert.Equal(t, "Artisan Cap is currently unavailable", n.Message)
	assert.Equal(t, 4*time.Second, n.Duration)
}

func TestRemove_RemoteSuccess(t *testing.T) {
	q := newTestQueue(t)
	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(9, p, qty)), nil
		},
		removeFn: func(_ context.Context, itemID int64) (Snapshot, error) {
			assert.Equal(t, int64(9), itemID)
			return remoteSnap(), nil
		},
	}
	s := New(backend, WithNotifications(q))
	ctx := context.Background()

	s.Add(ctx, keycaps, 2)
	s.Remove(ctx, keycaps.ID)

	st := s.State()
	assert.Empty(t, st.Items)
	assert.True(t, st.IsSynced)
	n := lastNote(t, q)
	assert.Equal(t, notify.SeverityInfo, n.Severity)
	assert.Equal(t, "Removed from cart", n.Title)
	assert.Equal(t, "Keycap Set", n.Message)
}

func TestRemove_AbsentProduct_SilentNoop(t *testing.T) {
	q := newTestQueue(t)
	s := New(&stubBackend{}, WithNotifications(q))

	s.Remove(context.Background(), 999)

	assert.Empty(t, s.State().Items)
	assert.Zero(t, q.Len(), "no notification for a no-op")
}

func TestRemove_LocalOnlyItem_NoBackendCall(t *testing.T) {
	q := newTestQueue(t)
	removeCalled := false
	backend := &stubBackend{removeFn: func(context.Context, int64) (Snapshot, error) {
		removeCalled = true
		return Snapshot{}, nil
	}}
	s := New(backend, WithNotifications(q))
	ctx := context.Background()

	s.Add(ctx, keycaps, 1) // addFn nil → fails → optimistic local item, RemoteID 0
	s.Remove(ctx, keycaps.ID)

	assert.Empty(t, s.State().Items)
	assert.False(t, removeCalled, "an item the server never saw is removed locally")
}

func TestRemove_RemoteFailure_OptimisticStillRemoves(t *testing.T) {
	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(9, p, qty)), nil
		},
	}
	s := New(backend)
	ctx := context.Background()

	s.Add(ctx, keycaps, 2)
	s.Remove(ctx, keycaps.ID) // removeFn nil → remote failure

	st := s.State()
	assert.Empty(t, st.Items)
	assert.False(t, st.IsSynced)
	assert.Zero(t, st.TotalItems)
}

func TestSetQuantity_RemoteSuccess(t *testing.T) {
	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(9, p, qty)), nil
		},
		updateFn: func(_ context.Context, itemID int64, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(itemID, keycaps, qty)), nil
		},
	}
	s := New(backend)
	ctx := context.Background()

	s.Add(ctx, keycaps, 2)
	s.SetQuantity(ctx, keycaps.ID, 5)

	st := s.State()
	assert.Equal(t, 5, st.TotalItems)
	assert.Equal(t, int64(5000), st.TotalPrice)
	assert.True(t, st.IsSynced)
}

func TestSetQuantity_ZeroDelegatesToRemove(t *testing.T) {
	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(9, p, qty)), nil
		},
		removeFn: func(context.Context, int64) (Snapshot, error) {
			return remoteSnap(), nil
		},
	}
	s := New(backend)
	ctx := context.Background()

	s.Add(ctx, keycaps, 2)
	s.SetQuantity(ctx, keycaps.ID, 0)

	assert.Empty(t, s.State().Items)
}

func TestSetQuantity_AbsentProduct_Noop(t *testing.T) {
	s := New(&stubBackend{})
	s.SetQuantity(context.Background(), 999, 3)
	assert.Empty(t, s.State().Items)
}

func TestSetQuantity_RemoteFailure_Optimistic(t *testing.T) {
	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(9, p, qty)), nil
		},
	}
	s := New(backend)
	ctx := context.Background()

	s.Add(ctx, keycaps, 2)
	s.SetQuantity(ctx, keycaps.ID, 7) // updateFn nil → failure

	st := s.State()
	assert.Equal(t, 7, st.TotalItems)
	assert.Equal(t, int64(7000), st.TotalPrice)
	assert.False(t, st.IsSynced)
}

func TestClear_RemoteSuccess(t *testing.T) {
	q := newTestQueue(t)
	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(9, p, qty)), nil
		},
		clearFn: func(context.Context) error { return nil },
	}
	s := New(backend, WithNotifications(q))
	ctx := context.Background()

	s.Add(ctx, keycaps, 2)
	s.Clear(ctx)

	st := s.State()
	assert.Empty(t, st.Items)
	assert.True(t, st.IsSynced)
	n := lastNote(t, q)
	assert.Equal(t, "Cart cleared", n.Title)
	assert.Equal(t, 2*time.Second, n.Duration)
}

func TestClear_EmptyCart_Noop(t *testing.T) {
	q := newTestQueue(t)
	called := false
	backend := &stubBackend{clearFn: func(context.Context) error {
		called = true
		return nil
	}}
	s := New(backend, WithNotifications(q))

	s.Clear(context.Background())

	assert.False(t, called)
	assert.Zero(t, q.Len())
}

func TestClear_RemoteFailure_ClearsLocallyUnsynced(t *testing.T) {
	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(9, p, qty)), nil
		},
	}
	s := New(backend)
	ctx := context.Background()

	s.Add(ctx, keycaps, 2)
	s.Clear(ctx) // clearFn nil → failure

	st := s.State()
	assert.Empty(t, st.Items)
	assert.False(t, st.IsSynced)
}

func TestSync_Success(t *testing.T) {
	backend := &stubBackend{
		getFn: func(context.Context) (Snapshot, error) {
			return remoteSnap(serverItem(9, keycaps, 2)), nil
		},
	}
	s := New(backend)

	s.Sync(context.Background())

	st := s.State()
	assert.Equal(t, 2, st.TotalItems)
	assert.True(t, st.IsSynced)
	assert.Equal(t, int64(42), st.CartID)
}

func TestSync_Failure_RestoresBackup(t *testing.T) {
	kv, err := localstore.Open(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	defer kv.Close()
	backup := NewBackup(kv)
	ctx := context.Background()

	// Previous run left a backup containing one valid and one corrupt record.
	require.NoError(t, backup.Save(ctx, []Item{item(keycaps, 2), {Quantity: 3}}))

	s := New(&stubBackend{}, WithBackup(backup)) // getFn nil → sync fails
	s.Sync(ctx)

	st := s.State()
	require.Len(t, st.Items, 1, "corrupt record filtered out")
	assert.Equal(t, keycaps.ID, st.Items[0].Product.ID)
	assert.Equal(t, 2, st.TotalItems)
	assert.False(t, st.IsSynced)
	assert.False(t, st.IsLoading)
}

func TestMerge_Success_ReturnsTrue(t *testing.T) {
	backend := &stubBackend{
		mergeFn: func(_ context.Context, sessionID string) (Snapshot, error) {
			assert.Equal(t, "guest-1", sessionID)
			return remoteSnap(serverItem(9, keycaps, 2), serverItem(10, switches, 1)), nil
		},
	}
	s := New(backend)

	merged := s.Merge(context.Background(), "guest-1")

	assert.True(t, merged)
	st := s.State()
	assert.Equal(t, 3, st.TotalItems)
	assert.True(t, st.IsSynced)
}

func TestMerge_Failure_FallsBackToSync(t *testing.T) {
	backend := &stubBackend{
		getFn: func(context.Context) (Snapshot, error) {
			return remoteSnap(serverItem(9, keycaps, 1)), nil
		},
	}
	s := New(backend) // mergeFn nil → merge fails

	merged := s.Merge(context.Background(), "guest-1")

	assert.False(t, merged, "token must be retained on failure")
	st := s.State()
	assert.Equal(t, 1, st.TotalItems, "fell back to the user's own cart")
	assert.True(t, st.IsSynced)
}

func TestStaleSnapshot_DoesNotOverwriteNewerState(t *testing.T) {
	release := make(chan struct{})
	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			if p.ID == keycaps.ID {
				<-release // slow response for the first operation
				return remoteSnap(serverItem(9, p, qty)), nil
			}
			return remoteSnap(serverItem(9, keycaps, 2), serverItem(10, p, qty)), nil
		},
	}
	s := New(backend)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		s.Add(ctx, keycaps, 2) // issued first, completes last
		close(done)
	}()

	// Wait for the first operation to reach the backend.
	for s.State().IsLoading == false {
		time.Sleep(time.Millisecond)
	}

	s.Add(ctx, switches, 1) // issued second, completes first
	st := s.State()
	require.Equal(t, 3, st.TotalItems)

	close(release)
	<-done

	st = s.State()
	assert.Equal(t, 3, st.TotalItems, "stale snapshot from the first add must be dropped")
	require.Len(t, st.Items, 2)
}

func TestMirror_WritesBackupAfterChange(t *testing.T) {
	kv, err := localstore.Open(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	defer kv.Close()
	backup := NewBackup(kv)
	ctx := context.Background()

	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(9, p, qty)), nil
		},
	}
	s := New(backend, WithBackup(backup))

	s.Add(ctx, keycaps, 2)

	saved, err := backup.Load(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, keycaps.ID, saved[0].Product.ID)
}

func TestClear_RemovesBackup(t *testing.T) {
	kv, err := localstore.Open(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	defer kv.Close()
	backup := NewBackup(kv)
	ctx := context.Background()

	backend := &stubBackend{
		addFn: func(_ context.Context, p catalog.Product, qty int) (Snapshot, error) {
			return remoteSnap(serverItem(9, p, qty)), nil
		},
		clearFn: func(context.Context) error { return nil },
	}
	s := New(backend, WithBackup(backup))

	s.Add(ctx, keycaps, 2)
	s.Clear(ctx)

	saved, err := backup.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestSidebar(t *testing.T) {
	s := New(&stubBackend{})
	s.Open()
	assert.True(t, s.State().IsOpen)
	s.Toggle()
	assert.False(t, s.State().IsOpen)
	s.Toggle()
	s.Close()
	assert.False(t, s.State().IsOpen)
}
