// Package observability collects replay events.
//
// Fanout lets several growth.Observer implementations (metrics, recorders,
// custom hooks) watch the same replay. Recorder keeps per-turn counters that
// commands print once a replay finishes.
package observability
