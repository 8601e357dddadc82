// Package stats computes visit statistics over display trees.
//
// Two relative-visit computations exist and are not interchangeable:
// RecalculateRelativeVisits is sibling-scoped only, while
// CalculateRelativeStatistics runs a depth-scoped pass that the sibling pass
// then overwrites wherever a sibling group has visits.
package stats
