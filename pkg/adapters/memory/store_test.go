package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunKeyValueStoreContract(t, store)
}

func TestMemoryStore_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "tree:current", []byte("{}"), time.Minute))
	require.NoError(t, store.Set(ctx, "forever", []byte("{}"), 0))

	_, err := store.Get(ctx, "tree:current")
	require.NoError(t, err)

	now = now.Add(time.Minute)

	_, err = store.Get(ctx, "tree:current")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	exists, err := store.Exists(ctx, "tree:current")
	require.NoError(t, err)
	assert.False(t, exists)

	keys, err := store.Scan(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"forever"}, keys)
	assert.Equal(t, 1, store.Len(), "Scan prunes expired keys")
}

func TestMemoryStore_InvalidPattern(t *testing.T) {
	_, err := memory.NewStore().Scan(context.Background(), "mcts:[")
	assert.ErrorIs(t, err, domain.ErrMalformed)
}

func TestMemoryLocker(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "migrate:s1", time.Minute)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "migrate:s1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locker.Lock(ctx, "migrate:s2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	acquired := make(chan struct{})
	go func() {
		unlock2, err := locker.Lock(ctx, "migrate:s1", time.Minute)
		if err == nil {
			_ = unlock2(ctx)
		}
		close(acquired)
	}()

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx), "unlocking twice is harmless")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by unlock")
	}
}
