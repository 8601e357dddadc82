package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// TreeNode is the display-format node of a search tree.
type TreeNode struct {
	ID         string          `json:"id"`
	State      string          `json:"state"`
	Statistics *NodeStatistics `json:"statistics,omitempty"`
	Children   []*TreeNode     `json:"children"`

	// Depth is assigned by traversal and never read from input.
	Depth int `json:"-"`
}

// NodeStatistics holds the visit counters of a node.
// RelativeVisits is derived (0-100) and recomputed on every normalization.
type NodeStatistics struct {
	NumVisits            int              `json:"numVisits"`
	RelativeVisits       Float            `json:"relativeVisits"`
	StatisticsForActions []RoleStatistics `json:"statisticsForActions"`
}

// RoleStatistics groups the action statistics of one role.
type RoleStatistics struct {
	Role    string             `json:"role"`
	Actions []ActionStatistics `json:"actions"`
}

// ActionStatistics describes how often an action was used and how it scored.
type ActionStatistics struct {
	Action             string `json:"action"`
	AverageActionScore Float  `json:"averageActionScore"`
	ActionNumUsed      int    `json:"actionNumUsed"`
}

// NewNodeID returns a fresh opaque node identifier.
func NewNodeID() string {
	return uuid.NewString()
}

// Visits returns the node's visit count, treating missing statistics as zero.
func (n *TreeNode) Visits() int {
	if n == nil || n.Statistics == nil {
		return 0
	}
	return n.Statistics.NumVisits
}

// EnsureStatistics materializes an empty statistics block if none is present.
func (n *TreeNode) EnsureStatistics() *NodeStatistics {
	if n.Statistics == nil {
		n.Statistics = &NodeStatistics{StatisticsForActions: []RoleStatistics{}}
	}
	return n.Statistics
}

// Walk visits the subtree rooted at n in pre-order.
// Returning false from fn skips the children of that node.
func (n *TreeNode) Walk(fn func(node *TreeNode) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *TreeNode) Count() int {
	count := 0
	n.Walk(func(*TreeNode) bool {
		count++
		return true
	})
	return count
}

// Clone returns a deep copy of the subtree. No slice or pointer is shared with n.
func (n *TreeNode) Clone() *TreeNode {
	if n == nil {
		return nil
	}
	out := &TreeNode{
		ID:         n.ID,
		State:      n.State,
		Statistics: n.Statistics.Clone(),
		Depth:      n.Depth,
		Children:   make([]*TreeNode, 0, len(n.Children)),
	}
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		out.Children = append(out.Children, child.Clone())
	}
	return out
}

// Clone returns a deep copy of the statistics block.
func (s *NodeStatistics) Clone() *NodeStatistics {
	if s == nil {
		return nil
	}
	out := &NodeStatistics{
		NumVisits:            s.NumVisits,
		RelativeVisits:       s.RelativeVisits,
		StatisticsForActions: make([]RoleStatistics, len(s.StatisticsForActions)),
	}
	for i, role := range s.StatisticsForActions {
		out.StatisticsForActions[i] = RoleStatistics{
			Role:    role.Role,
			Actions: append([]ActionStatistics(nil), role.Actions...),
		}
	}
	return out
}

// Normalize prepares a decoded tree for display: it drops nil children,
// generates missing ids, replaces nil lists with empty ones and assigns depths
// starting at depth.
func (n *TreeNode) Normalize(depth int) {
	if n == nil {
		return
	}
	n.Depth = depth
	if n.ID == "" {
		n.ID = NewNodeID()
	}
	if n.Statistics != nil && n.Statistics.StatisticsForActions == nil {
		n.Statistics.StatisticsForActions = []RoleStatistics{}
	}
	children := make([]*TreeNode, 0, len(n.Children))
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		child.Normalize(depth + 1)
		children = append(children, child)
	}
	n.Children = children
}

// DecodeTree parses a display-format tree and normalizes it.
// Errors wrap ErrMalformed.
func DecodeTree(data []byte) (*TreeNode, error) {
	var node *TreeNode
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: failed to decode tree: %v", ErrMalformed, err)
	}
	if node == nil {
		return nil, fmt.Errorf("%w: tree is empty", ErrMalformed)
	}
	node.Normalize(0)
	return node, nil
}
