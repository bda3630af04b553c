package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/axiskeys/storefront/internal/catalog"
	"github.com/axiskeys/storefront/internal/localstore"
)

// localCartKey is the record holding the local-only backend's cart.
// Distinct from BackupKey: this is authoritative state, not a mirror.
const localCartKey = "local_cart"

// LocalBackend is the local-only cart strategy.
//
// It keeps the authoritative cart in the local store instead of a remote
// server, so it never fails with a network error and the store above it
// never enters degraded mode. Used when the storefront runs without a
// remote cart service.
type LocalBackend struct {
	mu  sync.Mutex
	kv  *localstore.Store
	now func() time.Time
}

// localCartRecord is the persisted form of the local cart.
type localCartRecord struct {
	NextID int64  `json:"next_id"`
	Items  []Item `json:"items"`
}

// NewLocalBackend creates a local-only backend over the given store.
// If now is nil, time.Now is used.
func NewLocalBackend(kv *localstore.Store, now func() time.Time) *LocalBackend {
	if now == nil {
		now = time.Now
	}
	return &LocalBackend{kv: kv, now: now}
}

// Get implements Backend.
func (b *LocalBackend) Get(ctx context.Context) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Items: cloneItems(rec.Items)}, nil
}

// AddItem implements Backend, consolidating duplicate products.
func (b *LocalBackend) AddItem(ctx context.Context, p catalog.Product, quantity int) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	found := false
	for i := range rec.Items {
		if rec.Items[i].Product.ID == p.ID {
			rec.Items[i].Quantity += quantity
			rec.Items[i].Subtotal = 0
			found = true
			break
		}
	}
	if !found {
		rec.NextID++
		rec.Items = append(rec.Items, Item{
			RemoteID:  rec.NextID,
			Product:   p,
			Quantity:  quantity,
			AddedAt:   b.now(),
			UnitPrice: p.Price,
		})
	}
	return b.save(ctx, rec)
}

// UpdateItem implements Backend. A quantity of zero or below removes the
// item, matching the remote store's behavior.
func (b *LocalBackend) UpdateItem(ctx context.Context, itemID int64, quantity int) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	for i := range rec.Items {
		if rec.Items[i].RemoteID == itemID {
			if quantity <= 0 {
				rec.Items = append(rec.Items[:i], rec.Items[i+1:]...)
			} else {
				rec.Items[i].Quantity = quantity
				rec.Items[i].Subtotal = 0
			}
			return b.save(ctx, rec)
		}
	}
	return Snapshot{}, fmt.Errorf("local cart: item %d not found", itemID)
}

// RemoveItem implements Backend. Removing an absent item is a no-op.
func (b *LocalBackend) RemoveItem(ctx context.Context, itemID int64) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	items := rec.Items[:0]
	for _, it := range rec.Items {
		if it.RemoteID != itemID {
			items = append(items, it)
		}
	}
	rec.Items = items
	return b.save(ctx, rec)
}

// Clear implements Backend.
func (b *LocalBackend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.kv.Delete(ctx, localCartKey); err != nil {
		return fmt.Errorf("clear local cart: %w", err)
	}
	return nil
}

// Merge implements Backend. With no remote store there is nothing to merge;
// the current local cart is already the user's cart.
func (b *LocalBackend) Merge(ctx context.Context, _ string) (Snapshot, error) {
	return b.Get(ctx)
}

func (b *LocalBackend) load(ctx context.Context) (localCartRecord, error) {
	data, err := b.kv.Get(ctx, localCartKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return localCartRecord{}, nil
	}
	if err != nil {
		return localCartRecord{}, fmt.Errorf("read local cart: %w", err)
	}

	var rec localCartRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return localCartRecord{}, fmt.Errorf("decode local cart: %w", err)
	}
	return rec, nil
}

func (b *LocalBackend) save(ctx context.Context, rec localCartRecord) (Snapshot, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal local cart: %w", err)
	}
	if err := b.kv.Put(ctx, localCartKey, data); err != nil {
		return Snapshot{}, fmt.Errorf("save local cart: %w", err)
	}
	return Snapshot{Items: cloneItems(rec.Items)}, nil
}
