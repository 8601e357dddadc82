package arbor_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/patch"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/processing"
)

type countingObserver struct {
	applied int
	steps   int
}

func (c *countingObserver) OperationApplied(_, _ int, o patch.Outcome) {
	if o == patch.Applied {
		c.applied++
	}
}
func (c *countingObserver) StepEmitted(domain.TreeGrowthStep) { c.steps++ }
func (c *countingObserver) PatchFailed(int, int, error)       {}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, strings.TrimSpace(arbor.Version))
}

func TestNew_WiresServices(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	obs := &countingObserver{}

	a := arbor.New(store,
		arbor.WithKeyPrefix("test:"),
		arbor.WithObserver(obs),
		arbor.WithTreeCache("cache:tree", time.Minute),
	)

	keys := a.Sessions().Keys()
	require.NoError(t, store.Set(ctx, keys.Initial("s1", 1), []byte(`{"id":"r","state":"root","children":[]}`), 0))
	require.NoError(t, store.Set(ctx, keys.Patch("s1", 1, 1), []byte(`[{"op":"add","path":"/children/0","value":{"id":"a","state":"a","children":[]}}]`), 0))

	steps, err := a.Sessions().ReplayGrowth(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, obs.applied)
	assert.Equal(t, 2, obs.steps)
	assert.True(t, strings.HasPrefix(keys.Initial("s1", 1), "test:"))

	_, err = a.Trees().ProcessTreeData(ctx, []byte(`{"state":"root"}`))
	require.NoError(t, err)
	exists, err := store.Exists(ctx, "cache:tree")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReplay(t *testing.T) {
	ops, err := domain.DecodeOperations([]byte(`[{"op":"add","path":"/children/-","value":{"state":"a","statistics":{"numVisits":1}}}]`))
	require.NoError(t, err)

	steps, err := arbor.Replay(2, &domain.TreeNode{State: "root"}, []domain.TreePatch{{Turn: 2, PatchNumber: 1, Operations: ops}})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Tree.Count())
	assert.Equal(t, 2, steps[1].Tree.Count())
	assert.Equal(t, domain.Float(100), steps[1].Tree.Children[0].Statistics.RelativeVisits)
}

func TestMapStorageTree(t *testing.T) {
	tree, err := arbor.MapStorageTree([]byte(`{"root":{"state":["a","b"],"statistics":{"numVisits":3},"children":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, "a, b", tree.State)
	assert.Equal(t, 3, tree.Visits())

	_, err = arbor.MapStorageTree([]byte(`{}`))
	assert.ErrorIs(t, err, domain.ErrMalformed)
}

func TestProcessTree(t *testing.T) {
	tree := &domain.TreeNode{State: "r", Children: []*domain.TreeNode{{State: "a"}, {State: "b"}}}
	out, err := arbor.ProcessTree(tree)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Children[1].Depth)
}

func TestNew_EncryptedTreeCache(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("0123456789abcdef0123456789abcdef")})
	require.NoError(t, err)

	a := arbor.New(store, arbor.WithTreeStoreMiddleware(mw))
	_, err = a.Trees().ProcessTreeData(ctx, []byte(`{"state":"hidden-root"}`))
	require.NoError(t, err)

	raw, err := store.Get(ctx, processing.DefaultTreeKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hidden-root")

	tree, err := a.Trees().CurrentTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hidden-root", tree.State)
}
