package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newMiniredis(t)

	store := redis.NewFromClient(client, redis.WithScanCount(2))
	ports.RunKeyValueStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newMiniredis(t)

	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "tree:current", []byte(`{"state":"root"}`), time.Second))

	exists, err := store.Exists(ctx, "tree:current")
	require.NoError(t, err)
	assert.True(t, exists)

	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, "tree:current")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newMiniredis(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "mcts:s1:001:final", []byte("{}"), 0))

	assert.True(t, mr.Exists("custom:app:mcts:s1:001:final"), "Expected key with custom prefix to exist")

	keys, err := store.Scan(ctx, "mcts:s1:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"mcts:s1:001:final"}, keys, "Scan strips the prefix")
}
