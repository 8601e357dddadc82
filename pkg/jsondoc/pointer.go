package jsondoc

import (
	"strconv"
	"strings"
)

// Root is the pointer addressing the whole document.
const Root = "/"

// NormalizePointer ensures path starts with "/". The empty path becomes Root.
func NormalizePointer(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

// IsRoot reports whether path addresses the whole document.
func IsRoot(path string) bool {
	return path == "" || path == Root
}

// SplitPointer separates path into its parent pointer and terminal segment.
//
// A single trailing "/" is ignored. The terminal segment is whatever follows
// the last "/"; when there is none, the whole string is the terminal segment
// and the parent is Root.
func SplitPointer(path string) (parent, terminal string) {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return Root, path
	}
	parent = path[:idx]
	if parent == "" {
		parent = Root
	}
	return parent, path[idx+1:]
}

// Segments returns the individual segments of path. Root has none.
func Segments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// ParseIndex interprets a segment as an array index.
func ParseIndex(segment string) (int, bool) {
	i, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Resolve descends doc along path, treating every segment as an object key or,
// inside arrays, as an integer index. Resolving Root returns doc itself.
// A missing key, an out-of-range index or a scalar on the way yields false.
func Resolve(doc *Value, path string) (*Value, bool) {
	if doc == nil {
		return nil, false
	}
	current := doc
	for _, segment := range Segments(path) {
		switch current.Kind() {
		case KindObject:
			next, ok := current.Get(segment)
			if !ok {
				return nil, false
			}
			current = next
		case KindArray:
			i, ok := ParseIndex(segment)
			if !ok {
				return nil, false
			}
			next, ok := current.Index(i)
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	return current, true
}
