package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionExists(t *testing.T) {
	store := memory.NewStore()
	testutils.Seed(t, store, map[string]string{"mcts:s1:001:final": "{}"})

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "offline"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "afile"), []byte("x"), 0o644))

	svc := session.NewService(store, session.WithMatchesPath(dir))
	ctx := context.Background()

	assert.True(t, svc.SessionExists(ctx, "s1"))
	assert.False(t, svc.SessionExists(ctx, "s"), "prefix of another session id")
	assert.True(t, svc.SessionExists(ctx, "offline"))
	assert.False(t, svc.SessionExists(ctx, "afile"))
	assert.False(t, svc.SessionExists(ctx, "../etc"))
	assert.False(t, svc.SessionExists(ctx, "nobody"))
}

func TestAvailableTurns(t *testing.T) {
	store := memory.NewStore()
	testutils.Seed(t, store, map[string]string{
		"mcts:s1:003:final":                  "{}",
		"mcts:s1:001:final":                  "{}",
		"mcts:s1:002:growth_00001:selection": "{}",
		"mcts:s2:004:growth_1:tree":          "{}",
		"mcts:s2:002:growth_00001:playout":   "{}",
		"mcts:s2:004:growth_2:tree":          "{}",
	})
	svc := session.NewService(store)
	ctx := context.Background()

	turns, err := svc.AvailableTurns(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, turns, "final trees take precedence")

	turns, err = svc.AvailableTurns(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, turns)

	turns, err = svc.AvailableTurns(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestTreeForTurn(t *testing.T) {
	store := memory.NewStore()
	testutils.Seed(t, store, map[string]string{
		"mcts:s1:001:final": `{"root":` + testutils.StorageTree("a", 10, testutils.StorageTree("b", 3), testutils.StorageTree("c", 1)) + `}`,
		"mcts:s1:002:final": `{"root": 5}`,
	})
	svc := session.NewService(store)
	ctx := context.Background()

	tree, err := svc.TreeForTurn(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, "a", tree.State)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, domain.Float(75), tree.Children[0].Statistics.RelativeVisits)

	_, err = svc.TreeForTurn(ctx, "s1", 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.TreeForTurn(ctx, "s1", 2)
	assert.ErrorIs(t, err, domain.ErrCorrupt)
	assert.NotErrorIs(t, err, domain.ErrMalformed, "stored data is not caller input")
}

func TestGrowthSteps(t *testing.T) {
	store := memory.NewStore()
	testutils.Seed(t, store, map[string]string{
		"mcts:s1:001:growth_10:tree": `{"root":` + testutils.StorageTree("g10", 3) + `}`,
		"mcts:s1:001:growth_2:tree":  `{"root":` + testutils.StorageTree("g2", 1) + `}`,
		"mcts:s1:001:growth_5:tree":  `broken`,
		"mcts:s1:001:final":          `{"root":` + testutils.StorageTree("final", 9) + `}`,
	})
	svc := session.NewService(store, session.WithFetchConcurrency(2))

	steps, err := svc.GrowthSteps(context.Background(), "s1", 1)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, "g2", steps[0].Tree.State)
	assert.Equal(t, 2, steps[0].PatchNumber)
	assert.Equal(t, "g10", steps[1].Tree.State)
	assert.Equal(t, 10, steps[1].PatchNumber)
	assert.Equal(t, "final", steps[2].Tree.State)
	assert.True(t, steps[2].IsFinal())
	for i, step := range steps {
		assert.Equal(t, i, step.StepNumber)
		assert.Equal(t, 1, step.Turn)
	}

	_, err = svc.GrowthSteps(context.Background(), "s1", 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReplayGrowth(t *testing.T) {
	store := memory.NewStore()
	testutils.Seed(t, store, map[string]string{
		"mcts:s1:001:initial": `{"root":` + testutils.StorageTree("root", 10) + `}`,
		"mcts:s1:001:patch_2": `[{"op":"add","path":"/children/-","value":{"state":"B","statistics":{"numVisits":1},"children":[]}}]`,
		"mcts:s1:001:patch_1": `[{"op":"add","path":"/children/0","value":{"state":"A","statistics":{"numVisits":3},"children":[]}}]`,
		"mcts:s1:001:patch_3": `{"not":"an array"}`,
		"mcts:s1:001:patch_4": `[{"op":"remove","path":"/children/7"}]`,
		"mcts:s1:001:final":   `{"root":` + testutils.StorageTree("root", 14) + `}`,
	})
	svc := session.NewService(store)

	steps, err := svc.ReplayGrowth(context.Background(), "s1", 1)
	require.NoError(t, err)
	require.Len(t, steps, 5)

	assert.Equal(t, domain.InitialPatchNumber, steps[0].PatchNumber)
	assert.Empty(t, steps[0].Tree.Children)

	assert.Equal(t, 1, steps[1].PatchNumber)
	require.Len(t, steps[1].Tree.Children, 1)
	assert.Equal(t, domain.Float(100), steps[1].Tree.Children[0].Statistics.RelativeVisits)

	assert.Equal(t, 2, steps[2].PatchNumber)
	require.Len(t, steps[2].Tree.Children, 2)
	assert.Equal(t, "B", steps[2].Tree.Children[1].State)
	assert.Equal(t, domain.Float(75), steps[2].Tree.Children[0].Statistics.RelativeVisits)

	assert.Equal(t, 4, steps[3].PatchNumber, "undecodable patch 3 is skipped")
	assert.Len(t, steps[3].Tree.Children, 2)

	assert.True(t, steps[4].IsFinal())
	assert.Equal(t, 4, steps[4].StepNumber)
}

func TestReplayGrowth_MissingInitial(t *testing.T) {
	svc := session.NewService(memory.NewStore())

	_, err := svc.ReplayGrowth(context.Background(), "s1", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReplayGrowth_CorruptInitial(t *testing.T) {
	store := memory.NewStore()
	testutils.Seed(t, store, map[string]string{"mcts:s1:001:initial": `{not json`})

	_, err := session.NewService(store).ReplayGrowth(context.Background(), "s1", 1)
	assert.ErrorIs(t, err, domain.ErrCorrupt)
	assert.NotErrorIs(t, err, domain.ErrMalformed)
}

func TestIterationDetails(t *testing.T) {
	store := memory.NewStore()
	testutils.Seed(t, store, map[string]string{
		"mcts:s1:001:growth_00007:selection": `{"iterationNumber":7,"pathLength":3,"selectedNodeState":"(cell 1 1 x)","isLeaf":true}`,
		"mcts:s1:001:growth_00007:expansion": `{"expandedNodesCount":2,"parentNodeState":"p","selectedNodeState":"s"}`,
		"mcts:s1:001:growth_00007:playout":   `[not json`,
	})
	svc := session.NewService(store)
	ctx := context.Background()

	details, err := svc.IterationDetails(ctx, "s1", 1, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, details.IterationNumber)
	assert.Equal(t, 1, details.TurnNumber)

	require.NotNil(t, details.Selection)
	require.Len(t, details.Selection.Path, 3)
	assert.Equal(t, "(cell 1 1 x)", details.Selection.Path[2].State)
	assert.Equal(t, "(cell 1 1 x)", details.Selection.SelectedNode.State)

	require.NotNil(t, details.Expansion)
	assert.Len(t, details.Expansion.NewNodes, 2)
	assert.Equal(t, "s", details.Expansion.NodeForPlayout.State)

	require.NotNil(t, details.Playout)
	assert.Equal(t, "Error parsing playout data", details.Playout.StartNode.State)

	assert.Nil(t, details.Backpropagation)

	_, err = svc.IterationDetails(ctx, "s1", 1, 8)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMigrateLegacyIterations(t *testing.T) {
	store := memory.NewStore()
	testutils.Seed(t, store, map[string]string{
		"mcts:s1:001:iteration:00003": `{
			"iterationNumber": 3,
			"turnNumber": 1,
			"selection": {"pathLength": 1, "selectedNodeState": "legacy"},
			"backpropagation": {"pathNodes": ["a", "b"], "roleScores": {"white": 100}}
		}`,
		"mcts:s1:001:growth_00003:selection": `{"selectedNodeState":"already there"}`,
		"mcts:s1:002:iteration:00001":        `nope`,
	})
	svc := session.NewService(store, session.WithLocker(memory.NewLocker()))
	ctx := context.Background()

	report, err := svc.MigrateLegacyIterations(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.MigrationReport{Migrated: 1, Failed: 1}, report)

	exists, err := store.Exists(ctx, "mcts:s1:001:iteration:00003")
	require.NoError(t, err)
	assert.False(t, exists, "migrated legacy key is deleted")

	details, err := svc.IterationDetails(ctx, "s1", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "already there", details.Selection.SelectedNodeState, "existing stage keys are kept")
	require.NotNil(t, details.Backpropagation)
	assert.Len(t, details.Backpropagation.Path, 2)
	assert.Equal(t, 100.0, details.Backpropagation.Results["white"])
}

type failingStore struct {
	*memory.Store
}

func (f failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection reset")
}

func TestGrowthSteps_PropagatesStoreErrors(t *testing.T) {
	store := memory.NewStore()
	testutils.Seed(t, store, map[string]string{"mcts:s1:001:growth_1:tree": "{}"})
	svc := session.NewService(failingStore{store})

	_, err := svc.GrowthSteps(context.Background(), "s1", 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestMigrateLegacyIterations_LockTimeout(t *testing.T) {
	locker := memory.NewLocker()
	unlock, err := locker.Lock(context.Background(), "migrate:s1", time.Minute)
	require.NoError(t, err)
	defer unlock(context.Background())

	svc := session.NewService(memory.NewStore(), session.WithLocker(locker))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = svc.MigrateLegacyIterations(ctx, "s1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
