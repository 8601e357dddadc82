package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
)

// Output formats accepted by --format.
const (
	formatJSON     = "json"
	formatMermaid  = "mermaid"
	formatMarkdown = "markdown"
)

func validFormat(format string) error {
	switch format {
	case formatJSON, formatMermaid, formatMarkdown:
		return nil
	}
	return fmt.Errorf("unknown format %q (json, mermaid, markdown)", format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeMarkdown renders through glamour when stdout is a terminal and
// writes plain markdown otherwise.
func writeMarkdown(w io.Writer, markdown string) error {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		render, err := tui.NewRenderer()
		if err != nil {
			return err
		}
		out, err := render(markdown)
		if err != nil {
			return fmt.Errorf("failed to render markdown: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	}
	_, err := io.WriteString(w, markdown)
	return err
}

func writeTree(w io.Writer, format string, tree *domain.TreeNode, depth int) error {
	switch format {
	case formatMermaid:
		_, err := io.WriteString(w, graph.GenerateMermaid(tree, &graph.GraphOverlay{MaxDepth: depth}))
		return err
	case formatMarkdown:
		return writeMarkdown(w, tui.Outline(tree, depth))
	default:
		return writeJSON(w, tree)
	}
}

// writeSteps prints growth steps. Mermaid output shows the last step with
// the nodes it introduced highlighted.
func writeSteps(w io.Writer, format string, steps []domain.TreeGrowthStep, depth int) error {
	switch format {
	case formatMermaid:
		if len(steps) == 0 {
			return nil
		}
		last := steps[len(steps)-1]
		overlay := &graph.GraphOverlay{MaxDepth: depth}
		if len(steps) > 1 {
			overlay.AddedNodes = graph.AddedNodes(steps[len(steps)-2].Tree, last.Tree)
		}
		_, err := io.WriteString(w, graph.GenerateMermaid(last.Tree, overlay))
		return err
	case formatMarkdown:
		return writeMarkdown(w, tui.GrowthTable(steps))
	default:
		return writeJSON(w, steps)
	}
}
