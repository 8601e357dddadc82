package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	// AddedNodes are styled as new, typically the nodes a growth step introduced.
	AddedNodes []string
	// CurrentNode is styled as the focus of the view.
	CurrentNode string
	// MaxDepth hides nodes deeper than this. Zero means unlimited.
	MaxDepth int
}

// GenerateMermaid produces a Mermaid flowchart for a search tree.
// Shapes follow the node's role in the search:
// - Root: ((Circle))
// - Expanded: [Rectangle]
// - Leaf: ([Stadium])
// Edges carry the child's relative visit share.
func GenerateMermaid(tree *domain.TreeNode, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if tree == nil {
		return sb.String()
	}

	maxDepth := 0
	if overlay != nil {
		maxDepth = overlay.MaxDepth
	}

	var walk func(n *domain.TreeNode, depth int, root bool)
	walk = func(n *domain.TreeNode, depth int, root bool) {
		safeID := sanitizeMermaidID(n.ID)

		opener, closer := "[", "]"
		switch {
		case root:
			opener, closer = "((", "))"
		case len(n.Children) == 0:
			opener, closer = "([", "])"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, nodeLabel(n), closer))

		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		for _, child := range n.Children {
			if child == nil {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, edgeLabel(child), sanitizeMermaidID(child.ID)))
			walk(child, depth+1, false)
		}
	}
	walk(tree, 0, true)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef added fill:#e8f5e9,stroke:#1b5e20,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.AddedNodes {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && id != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s added;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

// AddedNodes returns the ids present in next but not in prev, in pre-order.
func AddedNodes(prev, next *domain.TreeNode) []string {
	known := make(map[string]bool)
	if prev != nil {
		prev.Walk(func(n *domain.TreeNode) bool {
			known[n.ID] = true
			return true
		})
	}
	var added []string
	if next != nil {
		next.Walk(func(n *domain.TreeNode) bool {
			if !known[n.ID] {
				added = append(added, n.ID)
			}
			return true
		})
	}
	return added
}

func nodeLabel(n *domain.TreeNode) string {
	state := strings.ReplaceAll(n.State, "\"", "'")
	if state == "" {
		state = "(empty)"
	}
	return fmt.Sprintf("%s <br/> visits: %d", state, n.Visits())
}

func edgeLabel(n *domain.TreeNode) string {
	if n.Statistics == nil {
		return "0%"
	}
	return formatPercent(float64(n.Statistics.RelativeVisits))
}

func formatPercent(v float64) string {
	if token, special := domain.FormatFloat(v); special {
		return token
	}
	return fmt.Sprintf("%.1f%%", v)
}

// sanitizeMermaidID prefixes ids so generated uuids starting with a digit stay valid.
func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return "n_" + s
}
