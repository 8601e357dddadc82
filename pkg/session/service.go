package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/growth"
	"github.com/aretw0/arbor/pkg/mapper"
	"github.com/aretw0/arbor/pkg/ports"
)

const defaultFetchConcurrency = 8

// Service implements ports.SessionReader over a ports.KeyValueStore.
type Service struct {
	store       ports.KeyValueStore
	keys        Keys
	mapper      *mapper.Mapper
	sequencer   *growth.Sequencer
	locker      ports.DistributedLocker
	logger      *slog.Logger
	matchesPath string
	concurrency int
}

// Option configures the Service.
type Option func(*Service)

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyPrefix overrides DefaultPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Service) {
		s.keys = NewKeys(prefix)
	}
}

// WithMatchesPath sets the directory checked by SessionExists when the
// store has no keys for a session.
func WithMatchesPath(path string) Option {
	return func(s *Service) {
		s.matchesPath = path
	}
}

// WithSequencer replaces the default growth.Sequencer.
func WithSequencer(seq *growth.Sequencer) Option {
	return func(s *Service) {
		if seq != nil {
			s.sequencer = seq
		}
	}
}

// WithMapper replaces the default mapper.Mapper.
func WithMapper(m *mapper.Mapper) Option {
	return func(s *Service) {
		if m != nil {
			s.mapper = m
		}
	}
}

// WithLocker serializes migrations across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithFetchConcurrency bounds the number of concurrent store reads per request.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a session Service reading from store.
func NewService(store ports.KeyValueStore, opts ...Option) *Service {
	s := &Service{
		store:       store,
		keys:        NewKeys(DefaultPrefix),
		mapper:      mapper.New(),
		sequencer:   growth.New(),
		logger:      logging.NewNop(),
		concurrency: defaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the key layout used by the service.
func (s *Service) Keys() Keys {
	return s.keys
}

// SessionExists reports whether the store holds any key of the session or,
// failing that, whether a directory named after it exists under the matches
// path. Errors are logged and reported as false.
func (s *Service) SessionExists(ctx context.Context, sessionID string) bool {
	keys, err := s.store.Scan(ctx, s.keys.SessionPattern(sessionID))
	if err != nil {
		s.logger.Error("Failed to scan session keys", "session", sessionID, "error", err)
		return false
	}
	if len(keys) > 0 {
		s.logger.Debug("Session found in store", "session", sessionID, "keys", len(keys))
		return true
	}

	if s.matchesPath == "" || sessionID == "" || filepath.Base(sessionID) != sessionID {
		return false
	}
	info, err := os.Stat(filepath.Join(s.matchesPath, sessionID))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("Failed to check session directory", "session", sessionID, "error", err)
		}
		return false
	}
	return info.IsDir()
}

// AvailableTurns lists the turns that have a final tree, or when there are
// none, the turns that have any growth data. Turns are distinct and ascending.
func (s *Service) AvailableTurns(ctx context.Context, sessionID string) ([]int, error) {
	keys, err := s.store.Scan(ctx, s.keys.FinalPattern(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to list final trees of session %s: %w", sessionID, err)
	}
	if len(keys) == 0 {
		keys, err = s.store.Scan(ctx, s.keys.GrowthPattern(sessionID))
		if err != nil {
			return nil, fmt.Errorf("failed to list growth keys of session %s: %w", sessionID, err)
		}
	}

	seen := make(map[int]struct{})
	turns := []int{}
	for _, key := range keys {
		turn, ok := s.keys.TurnOf(key)
		if !ok {
			continue
		}
		if _, dup := seen[turn]; dup {
			continue
		}
		seen[turn] = struct{}{}
		turns = append(turns, turn)
	}
	sort.Ints(turns)
	return turns, nil
}

// TreeForTurn returns the final tree of a turn.
func (s *Service) TreeForTurn(ctx context.Context, sessionID string, turn int) (*domain.TreeNode, error) {
	data, err := s.store.Get(ctx, s.keys.Final(sessionID, turn))
	if err != nil {
		return nil, fmt.Errorf("failed to load tree for session %s turn %d: %w", sessionID, turn, err)
	}
	tree, err := s.mapper.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode tree for session %s turn %d: %v", domain.ErrCorrupt, sessionID, turn, err)
	}
	return tree, nil
}

// GrowthSteps returns the stored snapshots of a turn ordered by growth
// number, followed by the final tree. Snapshots that cannot be decoded are
// logged and left out.
func (s *Service) GrowthSteps(ctx context.Context, sessionID string, turn int) ([]domain.TreeGrowthStep, error) {
	logger := s.logger.With("session", sessionID, "turn", turn)

	keys, err := s.store.Scan(ctx, s.keys.GrowthTreePattern(sessionID, turn))
	if err != nil {
		return nil, fmt.Errorf("failed to list growth snapshots: %w", err)
	}
	ordered := sortNumbered(keys, s.keys.GrowthNumberOf)

	blobs, err := s.fetchAll(ctx, ordered)
	if err != nil {
		return nil, err
	}

	steps := make([]domain.TreeGrowthStep, 0, len(ordered)+1)
	for i, nk := range ordered {
		if blobs[i] == nil {
			continue
		}
		tree, err := s.mapper.DecodeSnapshot(blobs[i])
		if err != nil {
			logger.Error("Failed to decode growth snapshot", "key", nk.key, "error", err)
			continue
		}
		steps = append(steps, domain.TreeGrowthStep{
			StepNumber:  len(steps),
			Turn:        turn,
			PatchNumber: nk.n,
			Tree:        tree,
		})
	}

	steps, err = s.appendFinal(ctx, logger, steps, sessionID, turn)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no growth data for session %s turn %d", domain.ErrNotFound, sessionID, turn)
	}
	return steps, nil
}

// ReplayGrowth rebuilds the growth of a turn by applying its recorded
// patches to its initial tree, then appends the final tree when present.
func (s *Service) ReplayGrowth(ctx context.Context, sessionID string, turn int) ([]domain.TreeGrowthStep, error) {
	logger := s.logger.With("session", sessionID, "turn", turn)

	data, err := s.store.Get(ctx, s.keys.Initial(sessionID, turn))
	if err != nil {
		return nil, fmt.Errorf("failed to load initial tree: %w", err)
	}
	initial, err := s.mapper.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode initial tree: %v", domain.ErrCorrupt, err)
	}

	keys, err := s.store.Scan(ctx, s.keys.PatchPattern(sessionID, turn))
	if err != nil {
		return nil, fmt.Errorf("failed to list patches: %w", err)
	}
	ordered := sortNumbered(keys, s.keys.PatchNumberOf)

	blobs, err := s.fetchAll(ctx, ordered)
	if err != nil {
		return nil, err
	}

	patches := make([]domain.TreePatch, 0, len(ordered))
	for i, nk := range ordered {
		if blobs[i] == nil {
			continue
		}
		ops, err := domain.DecodeOperations(blobs[i])
		if err != nil {
			logger.Error("Failed to decode patch", "key", nk.key, "error", err)
			continue
		}
		patches = append(patches, domain.TreePatch{Turn: turn, PatchNumber: nk.n, Operations: ops})
	}

	steps, err := s.sequencer.Sequence(turn, initial, patches)
	if err != nil {
		return nil, fmt.Errorf("failed to replay growth: %w", err)
	}
	return s.appendFinal(ctx, logger, steps, sessionID, turn)
}

// appendFinal adds the final tree of a turn, if stored, as the terminal step.
func (s *Service) appendFinal(ctx context.Context, logger *slog.Logger, steps []domain.TreeGrowthStep, sessionID string, turn int) ([]domain.TreeGrowthStep, error) {
	key := s.keys.Final(sessionID, turn)
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return steps, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load final tree: %w", err)
	}

	tree, err := s.mapper.DecodeSnapshot(data)
	if err != nil {
		logger.Error("Failed to decode final tree", "key", key, "error", err)
		return steps, nil
	}
	return append(steps, domain.TreeGrowthStep{
		StepNumber:  len(steps),
		Turn:        turn,
		PatchNumber: domain.FinalPatchNumber,
		Tree:        tree,
	}), nil
}

// fetchAll reads keys concurrently. The result is index-aligned with keys;
// keys that vanished since they were listed yield nil.
func (s *Service) fetchAll(ctx context.Context, keys []numberedKey) ([][]byte, error) {
	blobs := make([][]byte, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, nk := range keys {
		g.Go(func() error {
			data, err := s.store.Get(gctx, nk.key)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", nk.key, err)
			}
			blobs[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blobs, nil
}

// IterationDetails loads the four stages of an iteration. A stage that
// cannot be decoded is replaced by a placeholder naming the failure.
// Returns domain.ErrNotFound when no stage is stored.
func (s *Service) IterationDetails(ctx context.Context, sessionID string, turn, iteration int) (*domain.IterationDetails, error) {
	logger := s.logger.With("session", sessionID, "turn", turn, "iteration", iteration)
	details := &domain.IterationDetails{IterationNumber: iteration, TurnNumber: turn}

	for _, stage := range domain.Stages {
		key := s.keys.Stage(sessionID, turn, iteration, stage)
		data, err := s.store.Get(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Stage data not found", "key", key)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s stage: %w", stage, err)
		}

		if err := decodeStage(details, stage, data); err != nil {
			logger.Error("Failed to decode stage data", "key", key, "error", err)
			placeholderStage(details, stage)
		}
	}

	if details.Empty() {
		return nil, fmt.Errorf("%w: no iteration data for session %s turn %d iteration %d",
			domain.ErrNotFound, sessionID, turn, iteration)
	}
	return details, nil
}

func decodeStage(details *domain.IterationDetails, stage string, data []byte) error {
	switch stage {
	case domain.StageSelection:
		var v domain.SelectionStageData
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		v.Synthesize()
		details.Selection = &v
	case domain.StageExpansion:
		var v domain.ExpansionStageData
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		v.Synthesize()
		details.Expansion = &v
	case domain.StagePlayout:
		var v domain.PlayoutStageData
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		v.Synthesize()
		details.Playout = &v
	case domain.StageBackpropagation:
		var v domain.BackpropagationStageData
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		v.Synthesize()
		details.Backpropagation = &v
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
	return nil
}

func placeholderStage(details *domain.IterationDetails, stage string) {
	node := func() *domain.TreeNode {
		return &domain.TreeNode{
			ID:       domain.NewNodeID(),
			State:    fmt.Sprintf("Error parsing %s data", stage),
			Children: []*domain.TreeNode{},
		}
	}
	switch stage {
	case domain.StageSelection:
		details.Selection = &domain.SelectionStageData{SelectedNode: node()}
	case domain.StageExpansion:
		details.Expansion = &domain.ExpansionStageData{ExpandedNode: node(), NodeForPlayout: node()}
	case domain.StagePlayout:
		details.Playout = &domain.PlayoutStageData{StartNode: node(), Results: map[string]float64{}}
	case domain.StageBackpropagation:
		details.Backpropagation = &domain.BackpropagationStageData{
			Path:    []*domain.TreeNode{node()},
			Results: map[string]float64{},
		}
	}
}
