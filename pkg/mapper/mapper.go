package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/stats"
)

// stateSeparator joins the state tokens of a storage node.
const stateSeparator = ", "

// Mapper converts storage-format trees into display trees.
type Mapper struct {
	newID func() string
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithIDGenerator overrides how display node ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(m *Mapper) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// New creates a Mapper.
func New(opts ...Option) *Mapper {
	m := &Mapper{newID: domain.NewNodeID}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MapNode converts node and its subtree. Relative visits are computed per
// sibling group once the whole subtree exists. The result shares no memory
// with node. A nil node maps to nil.
func (m *Mapper) MapNode(node *StorageNode) *domain.TreeNode {
	if node == nil {
		return nil
	}
	tree := m.mapNode(node, 0)
	stats.RecalculateRelativeVisits(tree)
	return tree
}

func (m *Mapper) mapNode(node *StorageNode, depth int) *domain.TreeNode {
	out := &domain.TreeNode{
		ID:       m.newID(),
		State:    strings.Join(node.State, stateSeparator),
		Depth:    depth,
		Children: make([]*domain.TreeNode, 0, len(node.Children)),
		Statistics: &domain.NodeStatistics{
			StatisticsForActions: mapRoles(node.Statistics),
		},
	}
	if node.Statistics != nil {
		out.Statistics.NumVisits = node.Statistics.NumVisits
	}

	for _, child := range node.Children {
		if child == nil {
			continue
		}
		out.Children = append(out.Children, m.mapNode(child, depth+1))
	}
	return out
}

// mapRoles emits one RoleStatistics per listed role that has an action map.
func mapRoles(s *StorageStatistics) []domain.RoleStatistics {
	roles := []domain.RoleStatistics{}
	if s == nil || s.StatisticsForActions == nil || s.StatisticsForActions.Map == nil {
		return roles
	}

	for _, role := range s.StatisticsForActions.Roles {
		name := role.name()
		actions, ok := s.StatisticsForActions.Map.Get(name)
		if !ok || actions == nil {
			continue
		}

		rs := domain.RoleStatistics{Role: name, Actions: make([]domain.ActionStatistics, 0, actions.Len())}
		for pair := actions.Oldest(); pair != nil; pair = pair.Next() {
			rs.Actions = append(rs.Actions, domain.ActionStatistics{
				Action:             pair.Key,
				AverageActionScore: pair.Value.ActionScore,
				ActionNumUsed:      pair.Value.ActionNumUsed,
			})
		}
		roles = append(roles, rs)
	}
	return roles
}

// DecodeStorageTree parses a storage envelope. Errors wrap domain.ErrMalformed.
func DecodeStorageTree(data []byte) (*StorageTree, error) {
	var tree StorageTree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: failed to decode storage tree: %v", domain.ErrMalformed, err)
	}
	if tree.Root == nil {
		return nil, fmt.Errorf("%w: storage tree has no root", domain.ErrMalformed)
	}
	return &tree, nil
}

// DecodeSnapshot reads a stored tree in either format. Documents with a root
// envelope are storage trees and get mapped; anything else is decoded as a
// display tree as-is.
func (m *Mapper) DecodeSnapshot(data []byte) (*domain.TreeNode, error) {
	var probe struct {
		Root json.RawMessage `json:"root"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: failed to decode snapshot: %v", domain.ErrMalformed, err)
	}

	if len(probe.Root) == 0 || bytes.Equal(bytes.TrimSpace(probe.Root), []byte("null")) {
		return domain.DecodeTree(data)
	}

	tree, err := DecodeStorageTree(data)
	if err != nil {
		return nil, err
	}
	return m.MapNode(tree.Root), nil
}
