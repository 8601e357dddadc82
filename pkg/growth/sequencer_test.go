package growth_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/growth"
	"github.com/aretw0/arbor/pkg/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ops(t *testing.T, raw string) []domain.PatchOperation {
	t.Helper()
	decoded, err := domain.DecodeOperations([]byte(raw))
	require.NoError(t, err)
	return decoded
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}
}

type recordingObserver struct {
	outcomes []patch.Outcome
	steps    []int
	failed   []int
}

func (r *recordingObserver) OperationApplied(_, _ int, o patch.Outcome) {
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingObserver) StepEmitted(step domain.TreeGrowthStep) {
	r.steps = append(r.steps, step.StepNumber)
}

func (r *recordingObserver) PatchFailed(_, patchNumber int, _ error) {
	r.failed = append(r.failed, patchNumber)
}

func TestSequence_OnlyChildIsFullyRepresented(t *testing.T) {
	initial := &domain.TreeNode{
		State:      "root",
		Statistics: &domain.NodeStatistics{NumVisits: 10},
		Children:   []*domain.TreeNode{},
	}
	patches := []domain.TreePatch{{
		Turn:        1,
		PatchNumber: 1,
		Operations:  ops(t, `[{"op":"add","path":"/children/0","value":{"state":"A","statistics":{"numVisits":4},"children":[]}}]`),
	}}

	steps, err := growth.New().Sequence(1, initial, patches)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	tree := steps[1].Tree
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "A", tree.Children[0].State)
	assert.Equal(t, 1, tree.Children[0].Depth)
	assert.Equal(t, domain.Float(100), tree.Children[0].Statistics.RelativeVisits)
}

func TestSequence_CumulativeSteps(t *testing.T) {
	initial := &domain.TreeNode{State: "root", Statistics: &domain.NodeStatistics{NumVisits: 0}}
	var patches []domain.TreePatch
	for i := 0; i < 3; i++ {
		patches = append(patches, domain.TreePatch{
			Turn:        2,
			PatchNumber: i*2 + 1,
			Operations: ops(t, fmt.Sprintf(
				`[{"op":"add","path":"/children/%d","value":{"state":"c%d","statistics":{"numVisits":1},"children":[]}}]`, i, i)),
		})
	}

	steps, err := growth.New(growth.WithIDGenerator(sequentialIDs())).Sequence(2, initial, patches)
	require.NoError(t, err)
	require.Len(t, steps, 4)

	for i, step := range steps {
		assert.Equal(t, i, step.StepNumber)
		assert.Equal(t, 2, step.Turn)
		assert.Len(t, step.Tree.Children, i, "step %d carries every earlier patch", i)
	}
	assert.Equal(t, domain.InitialPatchNumber, steps[0].PatchNumber)
	assert.Equal(t, []int{1, 3, 5}, []int{steps[1].PatchNumber, steps[2].PatchNumber, steps[3].PatchNumber})

	// ids assigned once are stable across later snapshots
	assert.Equal(t, steps[0].Tree.ID, steps[3].Tree.ID)
	assert.Equal(t, steps[1].Tree.Children[0].ID, steps[3].Tree.Children[0].ID)

	for _, child := range steps[3].Tree.Children {
		assert.InDelta(t, 100.0/3, float64(child.Statistics.RelativeVisits), 1e-9)
	}
}

func TestSequence_SnapshotsAreIndependent(t *testing.T) {
	initial := &domain.TreeNode{ID: "root", State: "root"}
	patches := []domain.TreePatch{
		{PatchNumber: 1, Operations: ops(t, `[{"op":"add","path":"/children/0","value":{"id":"a","state":"a"}}]`)},
		{PatchNumber: 2, Operations: ops(t, `[{"op":"replace","path":"/children/0/state","value":"changed"}]`)},
	}

	steps, err := growth.New().Sequence(1, initial, patches)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, "a", steps[1].Tree.Children[0].State)
	assert.Equal(t, "changed", steps[2].Tree.Children[0].State)

	steps[2].Tree.Children[0].State = "mutated"
	assert.Equal(t, "a", steps[1].Tree.Children[0].State)
	assert.Empty(t, initial.Children, "input tree is never mutated")
}

func TestSequence_BadOperationsDoNotAbortPatch(t *testing.T) {
	var logs bytes.Buffer
	observer := &recordingObserver{}
	seq := growth.New(
		growth.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		growth.WithObserver(observer),
	)

	initial := &domain.TreeNode{ID: "root", State: "root"}
	patches := []domain.TreePatch{{
		PatchNumber: 7,
		Operations: ops(t, `[
			{"op":"remove","path":"/children/4"},
			{"op":"add","path":"/","value":{}},
			{"op":"add","path":"/children/0","value":{"id":"a","state":"a"}},
			{"op":"replace","path":"/nothing/here","value":1}
		]`),
	}}

	steps, err := seq.Sequence(3, initial, patches)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	require.Len(t, steps[1].Tree.Children, 1)
	assert.Equal(t, "a", steps[1].Tree.Children[0].ID)

	assert.Equal(t, []patch.Outcome{patch.Skipped, patch.Failed, patch.Applied, patch.Skipped}, observer.outcomes)
	assert.Equal(t, []int{0, 1}, observer.steps)
	assert.Contains(t, logs.String(), "turn=3")
	assert.Contains(t, logs.String(), "patch=7")
}

func TestSequence_UndecodablePatchIsSkipped(t *testing.T) {
	observer := &recordingObserver{}
	initial := &domain.TreeNode{ID: "root", State: "root"}
	patches := []domain.TreePatch{
		{PatchNumber: 1, Operations: ops(t, `[{"op":"replace","path":"/children","value":"not a list"}]`)},
		{PatchNumber: 2, Operations: ops(t, `[{"op":"replace","path":"/children","value":[{"id":"x","state":"x"}]}]`)},
	}

	steps, err := growth.New(growth.WithObserver(observer)).Sequence(1, initial, patches)
	require.NoError(t, err)

	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[1].StepNumber)
	assert.Equal(t, 2, steps[1].PatchNumber)
	assert.Equal(t, []int{1}, observer.failed)
}

func TestSequence_UndecodablePatchDoesNotBlockLaterPatches(t *testing.T) {
	observer := &recordingObserver{}
	initial := &domain.TreeNode{ID: "root", State: "root"}
	patches := []domain.TreePatch{
		{PatchNumber: 1, Operations: ops(t, `[{"op":"add","path":"/children/0","value":"oops"}]`)},
		{PatchNumber: 2, Operations: ops(t, `[{"op":"add","path":"/children/-","value":{"id":"b","state":"B","children":[]}}]`)},
		{PatchNumber: 3, Operations: ops(t, `[{"op":"add","path":"/children/-","value":{"id":"c","state":"C","children":[]}}]`)},
	}

	steps, err := growth.New(growth.WithObserver(observer)).Sequence(1, initial, patches)
	require.NoError(t, err)

	require.Len(t, steps, 3)
	assert.Equal(t, []int{1}, observer.failed)

	assert.Equal(t, 2, steps[1].PatchNumber)
	require.Len(t, steps[1].Tree.Children, 1)
	assert.Equal(t, "B", steps[1].Tree.Children[0].State)

	assert.Equal(t, 3, steps[2].PatchNumber)
	assert.Equal(t, 2, steps[2].StepNumber)
	require.Len(t, steps[2].Tree.Children, 2)
	assert.Equal(t, "C", steps[2].Tree.Children[1].State)
}

func TestSequence_SpecialFloats(t *testing.T) {
	initial := &domain.TreeNode{ID: "root", State: "root"}
	patches := []domain.TreePatch{{
		PatchNumber: 1,
		Operations: ops(t, `[{"op":"add","path":"/statistics","value":{
			"NumVisits": "3",
			"statisticsForActions":[{"role":"white","actions":[
				{"action":"a","averageActionScore":"infinity","actionNumUsed":2},
				{"action":"b","averageActionScore":"NaN","actionNumUsed":1},
				{"action":"c","averageActionScore":"bogus","actionNumUsed":1}
			]}]
		}}]`),
	}}

	steps, err := growth.New().Sequence(1, initial, patches)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	s := steps[1].Tree.Statistics
	require.NotNil(t, s)
	assert.Equal(t, 3, s.NumVisits)
	actions := s.StatisticsForActions[0].Actions
	assert.True(t, math.IsInf(float64(actions[0].AverageActionScore), 1))
	assert.True(t, math.IsNaN(float64(actions[1].AverageActionScore)))
	assert.Equal(t, domain.Float(0), actions[2].AverageActionScore)
}

func TestSequence_MissingInitialTree(t *testing.T) {
	_, err := growth.New().Sequence(1, nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
