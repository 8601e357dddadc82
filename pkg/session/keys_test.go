package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys_Layout(t *testing.T) {
	k := NewKeys("")

	assert.Equal(t, "mcts:s1:007:final", k.Final("s1", 7))
	assert.Equal(t, "mcts:s1:007:growth_3:tree", k.GrowthTree("s1", 7, 3))
	assert.Equal(t, "mcts:s1:007:initial", k.Initial("s1", 7))
	assert.Equal(t, "mcts:s1:007:patch_12", k.Patch("s1", 7, 12))
	assert.Equal(t, "mcts:s1:007:growth_00042:selection", k.Stage("s1", 7, 42, "selection"))
	assert.Equal(t, "mcts:s1:007:iteration:00042", k.LegacyIteration("s1", 7, 42))
	assert.Equal(t, "mcts:s1:*:final", k.FinalPattern("s1"))
	assert.Equal(t, "mcts:s1:007:patch_*", k.PatchPattern("s1", 7))
}

func TestKeys_Parse(t *testing.T) {
	k := NewKeys("game:")

	turn, ok := k.TurnOf("game:42:003:final")
	assert.True(t, ok)
	assert.Equal(t, 3, turn)

	turn, ok = k.TurnOf("game:s1:012:growth_00001:selection")
	assert.True(t, ok)
	assert.Equal(t, 12, turn)

	_, ok = k.TurnOf("game:s1:meta")
	assert.False(t, ok)

	n, ok := k.GrowthNumberOf("game:s1:001:growth_15:tree")
	assert.True(t, ok)
	assert.Equal(t, 15, n)

	_, ok = k.GrowthNumberOf("game:s1:001:growth_00015:selection")
	assert.False(t, ok)

	n, ok = k.PatchNumberOf("game:s1:001:patch_4")
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	turn, iteration, ok := k.LegacyIterationOf("game:s1:002:iteration:00009")
	assert.True(t, ok)
	assert.Equal(t, 2, turn)
	assert.Equal(t, 9, iteration)
}

func TestKeys_EscapesSessionID(t *testing.T) {
	k := NewKeys("")
	assert.Equal(t, `mcts:a\*b\?:*`, k.SessionPattern("a*b?"))
}

func TestSortNumbered(t *testing.T) {
	k := NewKeys("")
	got := sortNumbered([]string{
		"mcts:s:001:patch_10",
		"mcts:s:001:patch_2",
		"mcts:s:001:patch_x",
		"mcts:s:001:patch_1",
	}, k.PatchNumberOf)

	assert.Equal(t, []numberedKey{
		{key: "mcts:s:001:patch_1", n: 1},
		{key: "mcts:s:001:patch_2", n: 2},
		{key: "mcts:s:001:patch_10", n: 10},
	}, got)
}
