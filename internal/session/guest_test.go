package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiskeys/storefront/internal/localstore"
)

func newTestStore(t *testing.T) *localstore.Store {
	t.Helper()
	s, err := localstore.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreate_GeneratesOnce(t *testing.T) {
	ctx := context.Background()
	g := NewGuest(newTestStore(t), NewFixedGenerator("guest-1"))

	first, err := g.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "guest-1", first)

	// Second call must reuse the stored token, not the generator
	// (FixedGenerator would panic on a second Generate call).
	second, err := g.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCurrent_DoesNotAllocate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	g := NewGuest(store, NewFixedGenerator("guest-1"))

	_, ok, err := g.Current(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "Current must not create a token")

	// Nothing persisted either.
	_, err = store.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	g := NewGuest(newTestStore(t), NewFixedGenerator("guest-1", "guest-2"))

	_, err := g.GetOrCreate(ctx)
	require.NoError(t, err)
	require.NoError(t, g.Clear(ctx))

	_, ok, err := g.Current(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A fresh token is minted after clearing.
	next, err := g.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "guest-2", next)
}

func TestUUIDv7Generator_UniqueTokens(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestGuest_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s1, err := localstore.Open(path)
	require.NoError(t, err)
	token, err := NewGuest(s1, NewFixedGenerator("guest-1")).GetOrCreate(ctx)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := localstore.Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := NewGuest(s2, UUIDv7Generator{}).Current(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, token, got)
}
