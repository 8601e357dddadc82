/*
Package arbor reconstructs how a Monte Carlo Tree Search tree grew during a game.

A search engine records, for every turn, an initial tree snapshot, an ordered list of
structural patches (add, remove and replace operations addressed by slash-delimited
pointers) and the final tree. Arbor replays those patches to produce one immutable
snapshot per patch, converts the engine's compact storage format into a display
tree, and annotates every node with its share of its siblings' visits.

# Usage

	store, err := redis.New("localhost:6379", "", 0)
	if err != nil {
		log.Fatal(err)
	}
	a := arbor.New(store, arbor.WithKeyPrefix("mcts:"))

	steps, err := a.Sessions().ReplayGrowth(ctx, "match-42", 3)
	if err != nil {
		log.Fatal(err)
	}
	for _, step := range steps {
		fmt.Println(step.StepNumber, step.Tree.Count())
	}

Offline replays that do not need a store use Replay directly.

# Packages

  - pkg/jsondoc: ordered JSON document model and pointer resolution.
  - pkg/patch: add, remove and replace with index clamping and soft misses.
  - pkg/growth: the growth sequencer.
  - pkg/mapper and pkg/stats: storage-format mapping and visit statistics.
  - pkg/session and pkg/processing: store-backed services behind the HTTP and MCP adapters.
*/
package arbor
