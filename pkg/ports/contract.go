package ports

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKeyValueStoreContract runs a suite of tests to verify that a KeyValueStore
// implementation adheres to the defined interface contract.
func RunKeyValueStoreContract(t *testing.T, store KeyValueStore) {
	ctx := context.Background()
	ns := "contract:" + time.Now().Format("20060102150405.000000") + ":"

	t.Run("Set and Get", func(t *testing.T) {
		key := ns + "tree"
		value := []byte(`{"root":{"state":["a"]}}`)

		require.NoError(t, store.Set(ctx, key, value, 0), "Set should not return error")

		got, err := store.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, value, got)
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		key := ns + "copy"
		require.NoError(t, store.Set(ctx, key, []byte("abc"), 0))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		got[0] = 'z'

		again, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, ns+"missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Exists and Delete", func(t *testing.T) {
		key := ns + "deleted"
		require.NoError(t, store.Set(ctx, key, []byte("1"), 0))

		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, store.Delete(ctx, key), "Delete should not return error")
		require.NoError(t, store.Delete(ctx, key), "Deleting twice should not return error")

		exists, err = store.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrNotFound, "Get after Delete should return ErrNotFound")
	})

	t.Run("Scan", func(t *testing.T) {
		keys := []string{
			ns + "s1:001:final",
			ns + "s1:002:final",
			ns + "s1:002:growth_1:tree",
			ns + "s2:001:final",
		}
		for _, k := range keys {
			require.NoError(t, store.Set(ctx, k, []byte("{}"), 0))
		}
		defer func() {
			for _, k := range keys {
				_ = store.Delete(ctx, k)
			}
		}()

		found, err := store.Scan(ctx, ns+"s1:*:final")
		require.NoError(t, err)
		sort.Strings(found)
		assert.Equal(t, []string{ns + "s1:001:final", ns + "s1:002:final"}, found)

		found, err = store.Scan(ctx, ns+"s1:*")
		require.NoError(t, err)
		assert.Len(t, found, 3)

		found, err = store.Scan(ctx, ns+"nobody:*")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}
