package observability

import (
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/growth"
	"github.com/aretw0/arbor/pkg/patch"
)

// Fanout combines multiple observers into one. Nil entries are dropped.
func Fanout(observers ...growth.Observer) growth.Observer {
	var list fanout
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	if len(list) == 1 {
		return list[0]
	}
	return list
}

type fanout []growth.Observer

func (f fanout) OperationApplied(turn, patchNumber int, outcome patch.Outcome) {
	for _, o := range f {
		o.OperationApplied(turn, patchNumber, outcome)
	}
}

func (f fanout) StepEmitted(step domain.TreeGrowthStep) {
	for _, o := range f {
		o.StepEmitted(step)
	}
}

func (f fanout) PatchFailed(turn, patchNumber int, err error) {
	for _, o := range f {
		o.PatchFailed(turn, patchNumber, err)
	}
}

// TurnSummary counts what happened while a turn was replayed.
type TurnSummary struct {
	Turn          int           `json:"turn"`
	Operations    patch.Summary `json:"operations"`
	Steps         int           `json:"steps"`
	FailedPatches []int         `json:"failedPatches,omitempty"`
	MaxNodes      int           `json:"maxNodes"`
}

// Recorder aggregates replay events per turn. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	turns map[int]*TurnSummary
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{turns: make(map[int]*TurnSummary)}
}

func (r *Recorder) turn(n int) *TurnSummary {
	s, ok := r.turns[n]
	if !ok {
		s = &TurnSummary{Turn: n}
		r.turns[n] = s
	}
	return s
}

func (r *Recorder) OperationApplied(turn, _ int, outcome patch.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := &r.turn(turn).Operations
	switch outcome {
	case patch.Applied:
		ops.Applied++
	case patch.Skipped:
		ops.Skipped++
	case patch.Failed:
		ops.Failed++
	}
}

func (r *Recorder) StepEmitted(step domain.TreeGrowthStep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.turn(step.Turn)
	s.Steps++
	if n := step.Tree.Count(); n > s.MaxNodes {
		s.MaxNodes = n
	}
}

func (r *Recorder) PatchFailed(turn, patchNumber int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.turn(turn)
	s.FailedPatches = append(s.FailedPatches, patchNumber)
}

// Summary returns a copy of the counters for turn.
func (r *Recorder) Summary(turn int) TurnSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.turns[turn]
	if !ok {
		return TurnSummary{Turn: turn}
	}
	out := *s
	out.FailedPatches = append([]int(nil), s.FailedPatches...)
	return out
}
