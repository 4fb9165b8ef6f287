package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	value, err := store.Get(ctx, "varejo:loja1:entitlement")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, store.Set(ctx, "varejo:loja1:entitlement", []byte("payload"), 0))

	value, err = store.Get(ctx, "varejo:loja1:entitlement")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), value)

	require.NoError(t, store.Delete(ctx, "varejo:loja1:entitlement"))
	value, err = store.Get(ctx, "varejo:loja1:entitlement")
	require.NoError(t, err)
	assert.Nil(t, value)

	// deleting an absent key is not an error
	assert.NoError(t, store.Delete(ctx, "varejo:loja1:entitlement"))
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("x"), 20*time.Millisecond))
	require.NoError(t, store.Set(ctx, "forever", []byte("y"), 0))

	value, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.NotNil(t, value)

	time.Sleep(40 * time.Millisecond)

	value, err = store.Get(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = store.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), value)
}

func TestMemoryStoreStats(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	_, _ = store.Get(ctx, "a")
	_, _ = store.Get(ctx, "a")
	_, _ = store.Get(ctx, "missing")

	hits, misses := store.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1, store.Count())
}

func TestMemoryStoreCloseIdempotent(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
