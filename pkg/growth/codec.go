package growth

import (
	"fmt"
	"strconv"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/jsondoc"
)

// encodeTree builds a working document from a typed tree. Non-finite floats
// are written as their string tokens.
func encodeTree(n *domain.TreeNode) *jsondoc.Value {
	children := jsondoc.Array()
	for _, child := range n.Children {
		if child != nil {
			children.Append(encodeTree(child))
		}
	}

	fields := []jsondoc.Field{
		{Key: "id", Value: jsondoc.String(n.ID)},
		{Key: "state", Value: jsondoc.String(n.State)},
	}
	if n.Statistics != nil {
		fields = append(fields, jsondoc.Field{Key: "statistics", Value: encodeStatistics(n.Statistics)})
	}
	fields = append(fields, jsondoc.Field{Key: "children", Value: children})
	return jsondoc.Object(fields...)
}

func encodeStatistics(s *domain.NodeStatistics) *jsondoc.Value {
	roles := jsondoc.Array()
	for _, role := range s.StatisticsForActions {
		actions := jsondoc.Array()
		for _, a := range role.Actions {
			actions.Append(jsondoc.Object(
				jsondoc.Field{Key: "action", Value: jsondoc.String(a.Action)},
				jsondoc.Field{Key: "averageActionScore", Value: encodeFloat(float64(a.AverageActionScore))},
				jsondoc.Field{Key: "actionNumUsed", Value: jsondoc.Int(a.ActionNumUsed)},
			))
		}
		roles.Append(jsondoc.Object(
			jsondoc.Field{Key: "role", Value: jsondoc.String(role.Role)},
			jsondoc.Field{Key: "actions", Value: actions},
		))
	}
	return jsondoc.Object(
		jsondoc.Field{Key: "numVisits", Value: jsondoc.Int(s.NumVisits)},
		jsondoc.Field{Key: "relativeVisits", Value: encodeFloat(float64(s.RelativeVisits))},
		jsondoc.Field{Key: "statisticsForActions", Value: roles},
	)
}

func encodeFloat(f float64) *jsondoc.Value {
	if token, special := domain.FormatFloat(f); special {
		return jsondoc.String(token)
	}
	return jsondoc.Float(f)
}

// decoder turns a working document back into a typed tree. Keys match
// case-insensitively. Nodes without an id get one from newID, and the id is
// written back into the document so later snapshots reuse it.
type decoder struct {
	newID func() string
}

func (d decoder) node(v *jsondoc.Value, depth int) (*domain.TreeNode, error) {
	if !v.IsObject() {
		return nil, fmt.Errorf("node at depth %d is a %s, expected object", depth, v.Kind())
	}

	n := &domain.TreeNode{Depth: depth, Children: []*domain.TreeNode{}}

	id, err := optionalString(v, "id")
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = d.newID()
		v.Set("id", jsondoc.String(id))
	}
	n.ID = id

	if n.State, err = optionalString(v, "state"); err != nil {
		return nil, err
	}

	if raw, ok := v.Lookup("statistics"); ok && !raw.IsNull() {
		if n.Statistics, err = decodeStatistics(raw); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}

	if raw, ok := v.Lookup("children"); ok && !raw.IsNull() {
		if !raw.IsArray() {
			return nil, fmt.Errorf("node %s: children is a %s, expected array", n.ID, raw.Kind())
		}
		for _, item := range raw.Items() {
			if item.IsNull() {
				continue
			}
			child, err := d.node(item, depth+1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	}
	return n, nil
}

func decodeStatistics(v *jsondoc.Value) (*domain.NodeStatistics, error) {
	if !v.IsObject() {
		return nil, fmt.Errorf("statistics is a %s, expected object", v.Kind())
	}
	s := &domain.NodeStatistics{StatisticsForActions: []domain.RoleStatistics{}}

	var err error
	if s.NumVisits, err = optionalInt(v, "numVisits"); err != nil {
		return nil, err
	}
	rel, err := optionalFloat(v, "relativeVisits")
	if err != nil {
		return nil, err
	}
	s.RelativeVisits = domain.Float(rel)

	raw, ok := v.Lookup("statisticsForActions")
	if !ok || raw.IsNull() {
		return s, nil
	}
	if !raw.IsArray() {
		return nil, fmt.Errorf("statisticsForActions is a %s, expected array", raw.Kind())
	}
	for _, item := range raw.Items() {
		role, err := decodeRole(item)
		if err != nil {
			return nil, err
		}
		s.StatisticsForActions = append(s.StatisticsForActions, role)
	}
	return s, nil
}

func decodeRole(v *jsondoc.Value) (domain.RoleStatistics, error) {
	var role domain.RoleStatistics
	if !v.IsObject() {
		return role, fmt.Errorf("role statistics is a %s, expected object", v.Kind())
	}

	var err error
	if role.Role, err = optionalString(v, "role"); err != nil {
		return role, err
	}
	role.Actions = []domain.ActionStatistics{}

	raw, ok := v.Lookup("actions")
	if !ok || raw.IsNull() {
		return role, nil
	}
	if !raw.IsArray() {
		return role, fmt.Errorf("actions is a %s, expected array", raw.Kind())
	}
	for _, item := range raw.Items() {
		if !item.IsObject() {
			return role, fmt.Errorf("action statistics is a %s, expected object", item.Kind())
		}
		var a domain.ActionStatistics
		if a.Action, err = optionalString(item, "action"); err != nil {
			return role, err
		}
		score, err := optionalFloat(item, "averageActionScore")
		if err != nil {
			return role, err
		}
		a.AverageActionScore = domain.Float(score)
		if a.ActionNumUsed, err = optionalInt(item, "actionNumUsed"); err != nil {
			return role, err
		}
		role.Actions = append(role.Actions, a)
	}
	return role, nil
}

func optionalString(v *jsondoc.Value, key string) (string, error) {
	raw, ok := v.Lookup(key)
	if !ok || raw.IsNull() {
		return "", nil
	}
	s, ok := raw.AsString()
	if !ok {
		return "", fmt.Errorf("%s is a %s, expected string", key, raw.Kind())
	}
	return s, nil
}

// optionalInt accepts numbers and numeric strings.
func optionalInt(v *jsondoc.Value, key string) (int, error) {
	raw, ok := v.Lookup(key)
	if !ok || raw.IsNull() {
		return 0, nil
	}
	if i, ok := raw.AsInt(); ok {
		return i, nil
	}
	if s, ok := raw.AsString(); ok {
		if i, err := strconv.Atoi(s); err == nil {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%s is not an integer: %s", key, raw)
}

// optionalFloat accepts numbers and string tokens; unrecognized strings read as 0.
func optionalFloat(v *jsondoc.Value, key string) (float64, error) {
	raw, ok := v.Lookup(key)
	if !ok || raw.IsNull() {
		return 0, nil
	}
	if f, ok := raw.AsFloat(); ok {
		return f, nil
	}
	if s, ok := raw.AsString(); ok {
		return domain.ParseFloat(s), nil
	}
	return 0, fmt.Errorf("%s is a %s, expected number", key, raw.Kind())
}
