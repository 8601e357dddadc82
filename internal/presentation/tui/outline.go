package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Outline renders a tree as a nested markdown list. maxDepth <= 0 means unlimited.
func Outline(tree *domain.TreeNode, maxDepth int) string {
	if tree == nil {
		return "_empty tree_\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", escape(tree.State))
	fmt.Fprintf(&sb, "%d nodes, %d visits\n\n", tree.Count(), tree.Visits())

	var walk func(n *domain.TreeNode, depth int)
	walk = func(n *domain.TreeNode, depth int) {
		for _, child := range n.Children {
			if child == nil {
				continue
			}
			fmt.Fprintf(&sb, "%s- **%s** visits %d (%s)\n",
				strings.Repeat("  ", depth), escape(child.State), child.Visits(), relative(child))
			if maxDepth <= 0 || depth+1 < maxDepth {
				walk(child, depth+1)
			}
		}
	}
	walk(tree, 0)
	return sb.String()
}

// GrowthTable renders one row per growth step.
func GrowthTable(steps []domain.TreeGrowthStep) string {
	var sb strings.Builder
	sb.WriteString("| step | patch | nodes | root visits |\n")
	sb.WriteString("|---:|---:|---:|---:|\n")
	for _, s := range steps {
		patch := fmt.Sprintf("%d", s.PatchNumber)
		if s.IsFinal() {
			patch = "final"
		}
		fmt.Fprintf(&sb, "| %d | %s | %d | %d |\n", s.StepNumber, patch, s.Tree.Count(), s.Tree.Visits())
	}
	return sb.String()
}

func relative(n *domain.TreeNode) string {
	if n.Statistics == nil {
		return "0%"
	}
	v := float64(n.Statistics.RelativeVisits)
	if token, special := domain.FormatFloat(v); special {
		return token
	}
	return fmt.Sprintf("%.1f%%", v)
}

var markdownEscaper = strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`", "|", `\|`)

func escape(s string) string {
	if s == "" {
		return "(empty)"
	}
	return markdownEscaper.Replace(s)
}
