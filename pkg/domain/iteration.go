package domain

import "fmt"

// Iteration stage names, as used in storage keys.
const (
	StageSelection       = "selection"
	StageExpansion       = "expansion"
	StagePlayout         = "playout"
	StageBackpropagation = "backpropagation"
)

// Stages lists the iteration stages in execution order.
var Stages = []string{StageSelection, StageExpansion, StagePlayout, StageBackpropagation}

// IterationDetails describes the four stages of a single search iteration.
type IterationDetails struct {
	IterationNumber int                       `json:"iterationNumber"`
	TurnNumber      int                       `json:"turnNumber"`
	Selection       *SelectionStageData       `json:"selection,omitempty"`
	Expansion       *ExpansionStageData       `json:"expansion,omitempty"`
	Playout         *PlayoutStageData         `json:"playout,omitempty"`
	Backpropagation *BackpropagationStageData `json:"backpropagation,omitempty"`
}

// Empty reports whether no stage is present.
func (d *IterationDetails) Empty() bool {
	return d.Selection == nil && d.Expansion == nil && d.Playout == nil && d.Backpropagation == nil
}

// SelectionStageData is the selection stage. The search process writes only
// the summary fields; Path and SelectedNode are display nodes.
type SelectionStageData struct {
	Path         []*TreeNode `json:"path"`
	SelectedNode *TreeNode   `json:"selectedNode,omitempty"`

	IterationNumber   int    `json:"iterationNumber"`
	PathLength        int    `json:"pathLength"`
	SelectedNodeState string `json:"selectedNodeState,omitempty"`
	IsTerminal        bool   `json:"isTerminal"`
	IsLeaf            bool   `json:"isLeaf"`
}

// Synthesize fills missing display nodes from the summary fields.
func (s *SelectionStageData) Synthesize() {
	if s.SelectedNodeState == "" {
		return
	}
	if s.SelectedNode == nil {
		s.SelectedNode = placeholderNode(s.SelectedNodeState)
	}
	if len(s.Path) == 0 && s.PathLength > 0 {
		s.Path = make([]*TreeNode, 0, s.PathLength)
		for i := 0; i < s.PathLength; i++ {
			state := fmt.Sprintf("Path node %d", i)
			if i == s.PathLength-1 {
				state = s.SelectedNodeState
			}
			s.Path = append(s.Path, placeholderNode(state))
		}
	}
}

// ExpansionStageData is the expansion stage.
type ExpansionStageData struct {
	ExpandedNode   *TreeNode   `json:"expandedNode,omitempty"`
	NewNodes       []*TreeNode `json:"newNodes"`
	NodeForPlayout *TreeNode   `json:"nodeForPlayout,omitempty"`

	IterationNumber    int    `json:"iterationNumber"`
	ExpandedNodesCount int    `json:"expandedNodesCount"`
	ParentNodeState    string `json:"parentNodeState,omitempty"`
	SelectedNodeState  string `json:"selectedNodeState,omitempty"`
}

// Synthesize fills missing display nodes from the summary fields.
func (s *ExpansionStageData) Synthesize() {
	if s.ExpandedNode == nil && s.ParentNodeState != "" {
		s.ExpandedNode = placeholderNode(s.ParentNodeState)
	}
	if len(s.NewNodes) == 0 && s.ExpandedNodesCount > 0 {
		s.NewNodes = make([]*TreeNode, 0, s.ExpandedNodesCount)
		for i := 0; i < s.ExpandedNodesCount; i++ {
			s.NewNodes = append(s.NewNodes, placeholderNode(fmt.Sprintf("Expanded node %d", i)))
		}
	}
	if s.NodeForPlayout == nil && s.SelectedNodeState != "" {
		s.NodeForPlayout = placeholderNode(s.SelectedNodeState)
	}
}

// PlayoutStageData is the playout stage.
type PlayoutStageData struct {
	StartNode *TreeNode          `json:"startNode,omitempty"`
	Depth     int                `json:"depth"`
	Results   map[string]float64 `json:"results"`
}

// Synthesize replaces a nil result map with an empty one.
func (s *PlayoutStageData) Synthesize() {
	if s.Results == nil {
		s.Results = map[string]float64{}
	}
}

// BackpropagationStageData is the backpropagation stage.
type BackpropagationStageData struct {
	Path    []*TreeNode        `json:"path"`
	Results map[string]float64 `json:"results"`

	IterationNumber int                `json:"iterationNumber"`
	PathLength      int                `json:"pathLength"`
	PathNodes       []string           `json:"pathNodes,omitempty"`
	RoleScores      map[string]float64 `json:"roleScores,omitempty"`
}

// Synthesize fills the path from the state summaries and the results from the role scores.
func (s *BackpropagationStageData) Synthesize() {
	if len(s.Path) == 0 {
		switch {
		case len(s.PathNodes) > 0:
			s.Path = make([]*TreeNode, 0, len(s.PathNodes))
			for _, state := range s.PathNodes {
				s.Path = append(s.Path, placeholderNode(state))
			}
		case s.PathLength > 0:
			s.Path = make([]*TreeNode, 0, s.PathLength)
			for i := 0; i < s.PathLength; i++ {
				s.Path = append(s.Path, placeholderNode(fmt.Sprintf("Path node %d", i)))
			}
		}
	}
	if len(s.Results) == 0 && len(s.RoleScores) > 0 {
		s.Results = make(map[string]float64, len(s.RoleScores))
		for role, score := range s.RoleScores {
			s.Results[role] = score
		}
	}
	if s.Results == nil {
		s.Results = map[string]float64{}
	}
}

func placeholderNode(state string) *TreeNode {
	return &TreeNode{
		ID:         NewNodeID(),
		State:      state,
		Statistics: &NodeStatistics{NumVisits: 1, StatisticsForActions: []RoleStatistics{}},
		Children:   []*TreeNode{},
	}
}
