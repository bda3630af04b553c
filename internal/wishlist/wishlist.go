// Package wishlist keeps a signed-in user's saved products.
//
// Unlike the cart, the wishlist has no server-side copy: it lives entirely in
// the local store, one record per user, and is only usable while signed in.
// Guests who try to save an item get a sign-in prompt instead of a mutation.
package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/axiskeys/storefront/internal/auth"
	"github.com/axiskeys/storefront/internal/catalog"
	"github.com/axiskeys/storefront/internal/localstore"
	"github.com/axiskeys/storefront/internal/notify"
)

// Key returns the local record name for a user's wishlist.
func Key(userID int64) string {
	return fmt.Sprintf("wishlist:%d", userID)
}

// Store holds the current user's wishlist.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	kv    *localstore.Store
	notes *notify.Queue

	user  *auth.User
	items []catalog.Product
}

// Option configures a Store.
type Option func(*Store)

// WithNotifications attaches the queue that receives operation outcomes.
func WithNotifications(q *notify.Queue) Option {
	return func(s *Store) { s.notes = q }
}

// New creates a wishlist store with no signed-in user.
func New(kv *localstore.Store, opts ...Option) *Store {
	s := &Store{kv: kv}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetUser switches the wishlist to the given user, loading their saved
// products. A nil user clears the in-memory list but leaves every user's
// persisted wishlist intact for their next session.
func (s *Store) SetUser(ctx context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u == nil {
		s.user = nil
		s.items = nil
		return nil
	}

	items, err := s.load(ctx, u.ID)
	if err != nil {
		return err
	}
	s.user = u
	s.items = items
	return nil
}

// Items returns the saved products in insertion order. The returned slice is
// a copy.
func (s *Store) Items() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Product, len(s.items))
	copy(out, s.items)
	return out
}

// Contains reports whether the product is on the current wishlist.
func (s *Store) Contains(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.items {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// Add saves a product. Signed-out callers get a sign-in prompt and no
// mutation; a product already on the list is reported, not duplicated.
func (s *Store) Add(ctx context.Context, p catalog.Product) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		s.push(notify.SeverityWarning, "Sign in required",
			notify.WithMessage("Log in to save items to your wishlist"))
		return
	}
	for _, existing := range s.items {
		if existing.ID == p.ID {
			s.mu.Unlock()
			s.push(notify.SeverityInfo, "Already in wishlist", notify.WithMessage(p.Name))
			return
		}
	}
	s.items = append(s.items, p)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.push(notify.SeveritySuccess, "Added to wishlist", notify.WithMessage(p.Name))
}

// Remove takes a product off the list. Removing an absent product is a
// silent no-op.
func (s *Store) Remove(ctx context.Context, productID int64) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	var name string
	found := false
	for i, p := range s.items {
		if p.ID == productID {
			name = p.Name
			s.items = append(s.items[:i], s.items[i+1:]...)
			found = true
			break
		}
	}
	if found {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if found {
		s.push(notify.SeverityInfo, "Removed from wishlist", notify.WithMessage(name))
	}
}

// Clear empties the current user's wishlist and persists the empty list.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	s.items = s.items[:0]
	s.persistLocked(ctx)
	s.mu.Unlock()
}

// load reads a user's persisted wishlist, dropping records that lost their
// product identity.
func (s *Store) load(ctx context.Context, userID int64) ([]catalog.Product, error) {
	data, err := s.kv.Get(ctx, Key(userID))
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read wishlist: %w", err)
	}

	var raw []catalog.Product
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode wishlist: %w", err)
	}

	items := make([]catalog.Product, 0, len(raw))
	for _, p := range raw {
		if p.ID > 0 {
			items = append(items, p)
		}
	}
	return items, nil
}

// persistLocked writes the current list under the current user's key.
// Caller holds s.mu.
func (s *Store) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.items)
	if err != nil {
		slog.Warn("marshal wishlist failed", "user_id", s.user.ID, "error", err)
		return
	}
	if err := s.kv.Put(ctx, Key(s.user.ID), data); err != nil {
		slog.Warn("persist wishlist failed", "user_id", s.user.ID, "error", err)
	}
}

func (s *Store) push(sev notify.Severity, title string, opts ...notify.PushOption) {
	if s.notes == nil {
		return
	}
	s.notes.Push(sev, title, opts...)
}
