package mapper

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/aretw0/arbor/pkg/domain"
)

// ActionMap holds the statistics of every action of one role, in stored order.
type ActionMap = orderedmap.OrderedMap[string, ActionStat]

// RoleActionMap maps role names to their action statistics, in stored order.
type RoleActionMap = orderedmap.OrderedMap[string, *ActionMap]

// StorageTree is the at-rest envelope written by the search engine.
type StorageTree struct {
	Root *StorageNode `json:"root"`
}

// StorageNode is the compact at-rest form of a search-tree node.
type StorageNode struct {
	Children           []*StorageNode      `json:"children"`
	State              []string            `json:"state"`
	Statistics         *StorageStatistics  `json:"statistics"`
	IsPlayout          bool                `json:"isPlayout"`
	PrecedingJointMove *PrecedingJointMove `json:"precedingJointMove,omitempty"`
}

// StorageStatistics holds the counters of a StorageNode.
type StorageStatistics struct {
	NumVisits            int                `json:"numVisits"`
	StatisticsForActions *ActionsStatistics `json:"statisticsForActions"`
}

// ActionsStatistics pairs the per-role action maps with the ordered role list.
type ActionsStatistics struct {
	Map   *RoleActionMap `json:"map"`
	Roles []Role         `json:"roles"`
}

// ActionStat is the score and usage of a single action.
type ActionStat struct {
	ActionScore   domain.Float `json:"actionScore"`
	ActionNumUsed int          `json:"actionNumUsed"`
}

// Role names a player.
type Role struct {
	Name *Item `json:"name"`
}

// Item wraps a single string value.
type Item struct {
	Value string `json:"value"`
}

// PrecedingJointMove records the joint move that led to a node. It is carried
// but not used for mapping.
type PrecedingJointMove struct {
	Roles      []Role            `json:"roles"`
	ActionsMap map[string]Action `json:"actionsMap"`
}

// Action is one role's part of a joint move.
type Action struct {
	Contents *Contents `json:"contents"`
}

// Contents is the term describing an action.
type Contents struct {
	Value string `json:"value"`
	Name  *Item  `json:"name"`
	Body  []Item `json:"body"`
}

// NewActionMap returns an empty ActionMap.
func NewActionMap() *ActionMap {
	return orderedmap.New[string, ActionStat]()
}

// NewRoleActionMap returns an empty RoleActionMap.
func NewRoleActionMap() *RoleActionMap {
	return orderedmap.New[string, *ActionMap]()
}

func (r Role) name() string {
	if r.Name == nil {
		return ""
	}
	return r.Name.Value
}
