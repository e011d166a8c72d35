package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) OddsStore {
	t.Helper()
	store, err := InitSqliteStore(filepath.Join(t.TempDir(), "odds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSqliteStore_MissIsNotError(t *testing.T) {
	store := newTestStore(t)

	odds, found, err := store.GetPrevious(context.Background(), "abc123def456")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, odds)
}

func TestSqliteStore_StoreThenGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payload := []byte(`{"spread":{"away":{"line":-6.5,"price":-110}}}`)
	require.NoError(t, store.Store(ctx, "abc123def456", payload))

	odds, found, err := store.GetPrevious(ctx, "abc123def456")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload, odds)
}

func TestSqliteStore_StoreOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "k1", []byte(`{"v":1}`)))
	require.NoError(t, store.Store(ctx, "k1", []byte(`{"v":2}`)))

	odds, found, err := store.GetPrevious(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"v":2}`), odds)
}
