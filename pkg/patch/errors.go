package patch

import (
	"errors"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

var (
	// ErrInvalidPatch is returned when an operation targets the document root
	// or is otherwise structurally unusable. It is fatal to that operation only.
	ErrInvalidPatch = fmt.Errorf("%w: invalid patch", domain.ErrMalformed)

	// ErrUnsupportedOp is returned for operations other than add, remove and replace.
	ErrUnsupportedOp = fmt.Errorf("%w: unsupported patch operation", ErrInvalidPatch)

	// ErrPathMiss marks a soft resolution failure: the operation is skipped.
	ErrPathMiss = errors.New("path resolution miss")
)

// MissError describes why an operation could not be applied to its target.
type MissError struct {
	Op     string
	Path   string
	Reason string
}

func (e *MissError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Reason)
}

// Unwrap lets errors.Is match ErrPathMiss.
func (e *MissError) Unwrap() error {
	return ErrPathMiss
}

func miss(op, path, reason string, args ...any) error {
	return &MissError{Op: op, Path: path, Reason: fmt.Sprintf(reason, args...)}
}
