package patch

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/jsondoc"
)

// appendSegment is the JSON-Patch end-of-array marker, accepted by Add.
const appendSegment = "-"

// Add inserts value at path. Inside arrays the terminal segment is an index:
// negative indices clamp to 0 and indices past the end append.
// The document is mutated in place; value is cloned, never aliased.
func Add(doc *jsondoc.Value, path string, value *jsondoc.Value) error {
	path = jsondoc.NormalizePointer(path)
	if jsondoc.IsRoot(path) {
		return fmt.Errorf("%w: add cannot target the document root", ErrInvalidPatch)
	}

	parentPath, segment := jsondoc.SplitPointer(path)
	parent, ok := jsondoc.Resolve(doc, parentPath)
	if !ok {
		return miss(domain.OpAdd, path, "parent %q not found", parentPath)
	}

	index, numeric := jsondoc.ParseIndex(segment)
	switch parent.Kind() {
	case jsondoc.KindArray:
		if segment == appendSegment {
			parent.Append(value.Clone())
			return nil
		}
		if !numeric {
			return miss(domain.OpAdd, path, "segment %q is not an array index", segment)
		}
		parent.Insert(clamp(index, parent.Len()), value.Clone())
		return nil
	case jsondoc.KindObject:
		if numeric {
			return miss(domain.OpAdd, path, "numeric segment %q on an object", segment)
		}
		parent.Set(segment, value.Clone())
		return nil
	default:
		return miss(domain.OpAdd, path, "parent is a %s", parent.Kind())
	}
}

// Remove deletes the element at path. A missing key, an out-of-range index or
// a segment of the wrong kind for its parent is a miss.
func Remove(doc *jsondoc.Value, path string) error {
	path = jsondoc.NormalizePointer(path)
	if jsondoc.IsRoot(path) {
		return fmt.Errorf("%w: remove cannot target the document root", ErrInvalidPatch)
	}

	parent, segment, err := resolveParent(doc, domain.OpRemove, path)
	if err != nil {
		return err
	}

	switch parent.Kind() {
	case jsondoc.KindArray:
		index, numeric := jsondoc.ParseIndex(segment)
		if !numeric {
			return miss(domain.OpRemove, path, "segment %q is not an array index", segment)
		}
		if !parent.RemoveIndex(index) {
			return miss(domain.OpRemove, path, "index %d out of range (len %d)", index, parent.Len())
		}
		return nil
	case jsondoc.KindObject:
		if _, numeric := jsondoc.ParseIndex(segment); numeric {
			return miss(domain.OpRemove, path, "numeric segment %q on an object", segment)
		}
		if !parent.Delete(segment) {
			return miss(domain.OpRemove, path, "key %q not found", segment)
		}
		return nil
	default:
		return miss(domain.OpRemove, path, "parent is a %s", parent.Kind())
	}
}

// Replace overwrites the existing element at path with value.
func Replace(doc *jsondoc.Value, path string, value *jsondoc.Value) error {
	path = jsondoc.NormalizePointer(path)
	if jsondoc.IsRoot(path) {
		return fmt.Errorf("%w: replace cannot target the document root", ErrInvalidPatch)
	}

	parent, segment, err := resolveParent(doc, domain.OpReplace, path)
	if err != nil {
		return err
	}

	switch parent.Kind() {
	case jsondoc.KindArray:
		index, numeric := jsondoc.ParseIndex(segment)
		if !numeric {
			return miss(domain.OpReplace, path, "segment %q is not an array index", segment)
		}
		if !parent.SetIndex(index, value.Clone()) {
			return miss(domain.OpReplace, path, "index %d out of range (len %d)", index, parent.Len())
		}
		return nil
	case jsondoc.KindObject:
		if _, numeric := jsondoc.ParseIndex(segment); numeric {
			return miss(domain.OpReplace, path, "numeric segment %q on an object", segment)
		}
		if _, exists := parent.Get(segment); !exists {
			return miss(domain.OpReplace, path, "key %q not found", segment)
		}
		parent.Set(segment, value.Clone())
		return nil
	default:
		return miss(domain.OpReplace, path, "parent is a %s", parent.Kind())
	}
}

func resolveParent(doc *jsondoc.Value, op, path string) (*jsondoc.Value, string, error) {
	parentPath, segment := jsondoc.SplitPointer(path)
	parent, ok := jsondoc.Resolve(doc, parentPath)
	if !ok {
		return nil, "", miss(op, path, "parent %q not found", parentPath)
	}
	return parent, segment, nil
}

func clamp(index, length int) int {
	if index < 0 {
		return 0
	}
	if index > length {
		return length
	}
	return index
}
