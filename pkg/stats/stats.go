package stats

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

// fullShare is the relative value of a node that accounts for all visits in its scope.
const fullShare = 100.0

// RecalculateRelativeVisits sets, for every sibling group below node, each
// sibling's RelativeVisits to its share of the group's visits. A group whose
// visits sum to zero gets 0 everywhere. The root's own value is not touched.
func RecalculateRelativeVisits(node *domain.TreeNode) {
	if node == nil || len(node.Children) == 0 {
		return
	}

	total := 0
	for _, child := range node.Children {
		total += child.Visits()
	}

	for _, child := range node.Children {
		s := child.EnsureStatistics()
		if total > 0 {
			s.RelativeVisits = domain.Float(float64(s.NumVisits) / float64(total) * fullShare)
		} else {
			s.RelativeVisits = 0
		}
		RecalculateRelativeVisits(child)
	}
}

// VisitsByDepth returns the visit totals of every depth level, counted by
// traversal position (root = 0). Missing statistics are materialized.
func VisitsByDepth(node *domain.TreeNode) map[int]int {
	totals := make(map[int]int)
	visitsByDepth(node, 0, totals)
	return totals
}

func visitsByDepth(node *domain.TreeNode, depth int, totals map[int]int) {
	if node == nil {
		return
	}
	totals[depth] += node.EnsureStatistics().NumVisits
	for _, child := range node.Children {
		visitsByDepth(child, depth+1, totals)
	}
}

// CalculateRelativeStatistics assigns RelativeVisits in two stages.
//
// Every node first receives its share of its depth level's total (100 for a
// root whose level has no visits, 0 for any other empty level). Each child is
// then overwritten with its share of its sibling group, when that group has visits.
func CalculateRelativeStatistics(node *domain.TreeNode, totalsByDepth map[int]int) {
	calculateRelative(node, totalsByDepth, 0)
}

func calculateRelative(node *domain.TreeNode, totalsByDepth map[int]int, depth int) {
	s := node.EnsureStatistics()

	if total := totalsByDepth[depth]; total > 0 {
		s.RelativeVisits = domain.Float(float64(s.NumVisits) / float64(total) * fullShare)
	} else if depth == 0 {
		s.RelativeVisits = fullShare
	} else {
		s.RelativeVisits = 0
	}

	if len(node.Children) == 0 {
		return
	}

	siblings := 0
	for _, child := range node.Children {
		siblings += child.Visits()
	}

	for _, child := range node.Children {
		calculateRelative(child, totalsByDepth, depth+1)
		if siblings > 0 {
			child.Statistics.RelativeVisits = domain.Float(float64(child.Statistics.NumVisits) / float64(siblings) * fullShare)
		}
	}
}

// AssignDepths stores the traversal depth of every node, root = 0.
func AssignDepths(node *domain.TreeNode) {
	assignDepths(node, 0)
}

func assignDepths(node *domain.TreeNode, depth int) {
	if node == nil {
		return
	}
	node.Depth = depth
	for _, child := range node.Children {
		assignDepths(child, depth+1)
	}
}

// DepthStatistics returns visit totals keyed by each node's stored Depth.
// Unlike VisitsByDepth it neither recomputes depths nor materializes statistics.
func DepthStatistics(node *domain.TreeNode) map[int]int {
	totals := make(map[int]int)
	node.Walk(func(n *domain.TreeNode) bool {
		totals[n.Depth] += n.Visits()
		return true
	})
	return totals
}

// Process prepares a client-submitted tree for display: children are
// normalized, relative statistics computed and depths assigned.
func Process(tree *domain.TreeNode) (*domain.TreeNode, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: tree is empty", domain.ErrMalformed)
	}
	tree.Normalize(0)
	CalculateRelativeStatistics(tree, VisitsByDepth(tree))
	AssignDepths(tree)
	return tree, nil
}
