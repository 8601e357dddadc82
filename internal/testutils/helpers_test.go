package testutils_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/mapper"
)

func TestSeed(t *testing.T) {
	store := memory.NewStore()
	testutils.Seed(t, store, map[string]string{"a": "1", "b": "2"})

	got, err := store.Get(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))
}

func TestStorageTree_Decodes(t *testing.T) {
	doc := `{"root":` + testutils.StorageTree("r", 3, testutils.StorageTree("a", 3)) + `}`
	tree, err := mapper.DecodeStorageTree([]byte(doc))
	require.NoError(t, err)
	require.Len(t, tree.Root.Children, 1)
	assert.Equal(t, []string{"a"}, tree.Root.Children[0].State)
}

func TestWriteFile(t *testing.T) {
	path := testutils.WriteFile(t, "x.json", "{}")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
