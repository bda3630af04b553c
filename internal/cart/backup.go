package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/axiskeys/storefront/internal/localstore"
)

// BackupKey is the local record holding the offline cart backup.
const BackupKey = "cart"

// Backup mirrors the cart's item list into the local store.
//
// The backup is a copy, never a second source of truth: it is written after
// every successful item-list change and read back only when the remote sync
// fails at startup.
type Backup struct {
	kv  *localstore.Store
	key string
}

// NewBackup creates a backup mirror under the default key.
func NewBackup(kv *localstore.Store) *Backup {
	return &Backup{kv: kv, key: BackupKey}
}

// Save serializes the item list over the previous backup.
func (b *Backup) Save(ctx context.Context, items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart backup: %w", err)
	}
	if err := b.kv.Put(ctx, b.key, data); err != nil {
		return fmt.Errorf("save cart backup: %w", err)
	}
	return nil
}

// Load reads the last backup, dropping records that fail the structural
// integrity check (missing product reference or non-positive quantity).
// A missing backup yields an empty list, not an error.
func (b *Backup) Load(ctx context.Context) ([]Item, error) {
	data, err := b.kv.Get(ctx, b.key)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cart backup: %w", err)
	}

	var raw []Item
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode cart backup: %w", err)
	}

	items := make([]Item, 0, len(raw))
	for _, it := range raw {
		if it.Valid() {
			items = append(items, it)
		}
	}
	return items, nil
}

// Clear removes the backup record.
func (b *Backup) Clear(ctx context.Context) error {
	if err := b.kv.Delete(ctx, b.key); err != nil {
		return fmt.Errorf("clear cart backup: %w", err)
	}
	return nil
}
