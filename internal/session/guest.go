// Package session manages the anonymous guest identity used to address a
// server-side cart before login.
//
// The token is created lazily on the first unauthenticated cart operation,
// never eagerly on startup, so visitors who never touch the cart are not
// allocated a server-side session. After a successful merge into an
// authenticated cart the token is discarded.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/axiskeys/storefront/internal/localstore"
)

// StorageKey is the local record holding the guest session token.
const StorageKey = "guest_session"

// Guest hands out the persistent anonymous session token.
type Guest struct {
	store *localstore.Store
	gen   TokenGenerator
}

// NewGuest creates a guest identity manager backed by the local store.
// If gen is nil, UUIDv7Generator is used.
func NewGuest(store *localstore.Store, gen TokenGenerator) *Guest {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return &Guest{store: store, gen: gen}
}

// GetOrCreate returns the stored token, generating and persisting a new one
// if none exists yet.
func (g *Guest) GetOrCreate(ctx context.Context) (string, error) {
	raw, err := g.store.Get(ctx, StorageKey)
	if err == nil && len(raw) > 0 {
		return string(raw), nil
	}
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return "", fmt.Errorf("read guest session: %w", err)
	}

	token := g.gen.Generate()
	if err := g.store.Put(ctx, StorageKey, []byte(token)); err != nil {
		return "", fmt.Errorf("persist guest session: %w", err)
	}
	return token, nil
}

// Current returns the stored token without creating one.
// The second return is false when no token exists.
func (g *Guest) Current(ctx context.Context) (string, bool, error) {
	raw, err := g.store.Get(ctx, StorageKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read guest session: %w", err)
	}
	if len(raw) == 0 {
		return "", false, nil
	}
	return string(raw), true, nil
}

// Clear removes the stored token. Called after a successful cart merge.
func (g *Guest) Clear(ctx context.Context) error {
	if err := g.store.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear guest session: %w", err)
	}
	return nil
}
