// Package session answers queries over recorded game sessions.
//
// A session is a set of keys in a ports.KeyValueStore written by the search
// process: the final tree of every turn, optional stored growth snapshots,
// the initial tree and patches used for replay, and per-stage iteration data.
// Keys is the single place that knows their layout.
package session
