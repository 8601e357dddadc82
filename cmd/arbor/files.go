package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/mapper"
)

// readTree loads a tree file in display or storage format.
func readTree(path string) (*domain.TreeNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return mapper.New().DecodeSnapshot(data)
}

// readPatches loads a JSON array of patch documents. Element i becomes patch i+1.
func readPatches(path string, turn int) ([]domain.TreePatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON array of patches: %v", domain.ErrMalformed, path, err)
	}

	patches := make([]domain.TreePatch, 0, len(docs))
	for i, doc := range docs {
		ops, err := domain.DecodeOperations(doc)
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i+1, err)
		}
		patches = append(patches, domain.TreePatch{Turn: turn, PatchNumber: i + 1, Operations: ops})
	}
	return patches, nil
}
