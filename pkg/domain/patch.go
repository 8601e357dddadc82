package domain

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/arbor/pkg/jsondoc"
)

// Patch operation names understood by the applicator.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// PatchOperation is a single structural mutation of a tree document.
// Value is nil for remove operations.
type PatchOperation struct {
	Op    string         `json:"op"`
	Path  string         `json:"path"`
	Value *jsondoc.Value `json:"value,omitempty"`
}

// TreePatch is an ordered batch of operations recorded for one growth step.
type TreePatch struct {
	Turn        int              `json:"turn"`
	PatchNumber int              `json:"patchNumber"`
	Operations  []PatchOperation `json:"operations"`
}

// DecodeOperations parses a patch document (a JSON array of operations) and
// normalizes every path to start with "/". Errors wrap ErrMalformed.
func DecodeOperations(data []byte) ([]PatchOperation, error) {
	var ops []PatchOperation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("%w: failed to decode patch operations: %v", ErrMalformed, err)
	}
	for i := range ops {
		ops[i].Path = jsondoc.NormalizePointer(ops[i].Path)
	}
	return ops, nil
}
