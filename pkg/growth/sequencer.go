package growth

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/patch"
	"github.com/aretw0/arbor/pkg/stats"
)

// Observer is notified of what happens during a sequence.
type Observer interface {
	OperationApplied(turn, patchNumber int, outcome patch.Outcome)
	StepEmitted(step domain.TreeGrowthStep)
	PatchFailed(turn, patchNumber int, err error)
}

type nopObserver struct{}

func (nopObserver) OperationApplied(int, int, patch.Outcome) {}
func (nopObserver) StepEmitted(domain.TreeGrowthStep)        {}
func (nopObserver) PatchFailed(int, int, error)              {}

// Sequencer reconstructs the growth history of a turn from its initial tree
// and the ordered patches recorded after it.
type Sequencer struct {
	logger   *slog.Logger
	observer Observer
	newID    func() string
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the logger used for skipped operations and failed patches.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithIDGenerator overrides how ids are assigned to nodes that lack one.
func WithIDGenerator(fn func() string) Option {
	return func(s *Sequencer) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New creates a Sequencer.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		logger:   logging.NewNop(),
		observer: nopObserver{},
		newID:    domain.NewNodeID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sequence returns one step for the initial tree followed by one step per
// patch that could be applied. Patches are applied in the given order, each
// on top of the document produced by the previous one. Operations that miss
// their target are skipped; a patch whose result cannot be decoded produces
// no step and is rolled back. Every step owns its tree.
func (s *Sequencer) Sequence(turn int, initial *domain.TreeNode, patches []domain.TreePatch) ([]domain.TreeGrowthStep, error) {
	if initial == nil {
		return nil, fmt.Errorf("%w: no initial tree for turn %d", domain.ErrNotFound, turn)
	}

	dec := decoder{newID: s.newID}
	doc := encodeTree(initial)

	first, err := dec.node(doc, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode initial tree: %v", domain.ErrMalformed, err)
	}

	steps := make([]domain.TreeGrowthStep, 0, len(patches)+1)
	steps = s.emit(steps, turn, domain.InitialPatchNumber, first)

	for _, p := range patches {
		logger := s.logger.With("turn", turn, "patch", p.PatchNumber)
		applicator := patch.NewApplicator(logger)
		prev := doc.Clone()

		for _, op := range p.Operations {
			outcome, _ := applicator.Apply(doc, op)
			s.observer.OperationApplied(turn, p.PatchNumber, outcome)
		}

		tree, err := dec.node(doc, 0)
		if err != nil {
			logger.Error("Failed to decode patched tree", "error", err)
			s.observer.PatchFailed(turn, p.PatchNumber, err)
			doc = prev
			continue
		}
		steps = s.emit(steps, turn, p.PatchNumber, tree)
	}

	return steps, nil
}

func (s *Sequencer) emit(steps []domain.TreeGrowthStep, turn, patchNumber int, tree *domain.TreeNode) []domain.TreeGrowthStep {
	stats.AssignDepths(tree)
	stats.RecalculateRelativeVisits(tree)

	step := domain.TreeGrowthStep{
		StepNumber:  len(steps),
		Turn:        turn,
		PatchNumber: patchNumber,
		Tree:        tree,
	}
	s.observer.StepEmitted(step)
	return append(steps, step)
}
