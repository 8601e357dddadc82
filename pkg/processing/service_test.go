package processing_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/processing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clientTree = `{
	"id": "r",
	"state": "root",
	"statistics": {"numVisits": 0},
	"children": [
		{"id": "a", "state": "a", "statistics": {"numVisits": 6}, "children": [
			{"id": "a1", "state": "a1", "statistics": {"numVisits": 2}}
		]},
		{"id": "b", "state": "b", "statistics": {"numVisits": 2, "relativeVisits": "NaN"}}
	]
}`

func TestProcessTreeData(t *testing.T) {
	store := memory.NewStore()
	svc := processing.NewService(store, processing.WithTreeKey("tree:test"), processing.WithTTL(time.Minute))
	ctx := context.Background()

	tree, err := svc.ProcessTreeData(ctx, []byte(clientTree))
	require.NoError(t, err)

	assert.Equal(t, domain.Float(100), tree.Statistics.RelativeVisits, "root with an empty level")
	assert.Equal(t, domain.Float(75), tree.Children[0].Statistics.RelativeVisits)
	assert.Equal(t, domain.Float(25), tree.Children[1].Statistics.RelativeVisits)
	assert.Equal(t, domain.Float(100), tree.Children[0].Children[0].Statistics.RelativeVisits)
	assert.Equal(t, 2, tree.Children[0].Children[0].Depth)

	exists, err := svc.TreeExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	current, err := svc.CurrentTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, tree.Count(), current.Count())
	assert.Equal(t, "a1", current.Children[0].Children[0].ID)
	assert.Equal(t, 2, current.Children[0].Children[0].Depth)

	require.NoError(t, svc.Clear(ctx))
	_, err = svc.CurrentTree(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessTreeData_Malformed(t *testing.T) {
	svc := processing.NewService(memory.NewStore())

	_, err := svc.ProcessTreeData(context.Background(), []byte(`{"state": 12`))
	assert.ErrorIs(t, err, domain.ErrMalformed)

	_, err = svc.ProcessTreeData(context.Background(), []byte(`null`))
	assert.ErrorIs(t, err, domain.ErrMalformed)
}

func TestCurrentTree_CorruptCache(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "tree:current", []byte(`{"state":`), 0))

	_, err := processing.NewService(store, processing.WithTreeKey("tree:current")).CurrentTree(ctx)
	assert.ErrorIs(t, err, domain.ErrCorrupt)
	assert.NotErrorIs(t, err, domain.ErrMalformed)
}

func TestCurrentTree_Expires(t *testing.T) {
	now := time.Now()
	store := memory.NewStore(memory.WithClock(func() time.Time { return now }))
	svc := processing.NewService(store, processing.WithTTL(time.Minute))
	ctx := context.Background()

	_, err := svc.ProcessTreeData(ctx, []byte(clientTree))
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)

	_, err = svc.CurrentTree(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
