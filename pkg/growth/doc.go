// Package growth replays the incremental build-up of a search tree.
//
// A turn is recorded as an initial tree plus an ordered list of patches.
// The Sequencer applies the patches cumulatively to a single working document
// and snapshots the typed tree after each one.
package growth
