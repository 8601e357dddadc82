package patch

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/jsondoc"
)

// Outcome reports what happened to a single operation.
type Outcome int

const (
	// Applied means the document was changed.
	Applied Outcome = iota
	// Skipped means the target could not be resolved; the document is untouched.
	Skipped
	// Failed means the operation itself was invalid.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Applicator applies patch operations one at a time.
// Resolution misses are logged and skipped so a sequence can continue.
type Applicator struct {
	logger *slog.Logger
}

// NewApplicator creates an Applicator. A nil logger discards output.
func NewApplicator(logger *slog.Logger) *Applicator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Applicator{logger: logger}
}

// Apply mutates doc according to op. A miss returns Skipped together with
// its *MissError; callers that continue past misses may ignore the error.
func (a *Applicator) Apply(doc *jsondoc.Value, op domain.PatchOperation) (Outcome, error) {
	var err error
	switch strings.ToLower(op.Op) {
	case domain.OpAdd:
		err = Add(doc, op.Path, op.Value)
	case domain.OpRemove:
		err = Remove(doc, op.Path)
	case domain.OpReplace:
		err = Replace(doc, op.Path, op.Value)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedOp, op.Op)
	}

	switch {
	case err == nil:
		return Applied, nil
	case errors.Is(err, ErrPathMiss):
		a.logger.Warn("Patch operation skipped", "op", op.Op, "path", op.Path, "error", err)
		return Skipped, err
	default:
		a.logger.Error("Patch operation failed", "op", op.Op, "path", op.Path, "error", err)
		return Failed, err
	}
}

// ApplyAll applies ops in order and counts the outcomes. It never stops early.
func (a *Applicator) ApplyAll(doc *jsondoc.Value, ops []domain.PatchOperation) Summary {
	var s Summary
	for _, op := range ops {
		outcome, _ := a.Apply(doc, op)
		s.record(outcome)
	}
	return s
}

// Summary counts the outcomes of a batch of operations.
type Summary struct {
	Applied int
	Skipped int
	Failed  int
}

func (s *Summary) record(o Outcome) {
	switch o {
	case Applied:
		s.Applied++
	case Skipped:
		s.Skipped++
	case Failed:
		s.Failed++
	}
}

// Total returns the number of operations seen.
func (s Summary) Total() int {
	return s.Applied + s.Skipped + s.Failed
}
