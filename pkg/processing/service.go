// Package processing annotates trees submitted by clients and caches the
// most recent one.
package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/stats"
)

const (
	// DefaultTreeKey is where the current tree is cached.
	DefaultTreeKey = "tree:current"
	// DefaultTreeTTL is how long the current tree is kept.
	DefaultTreeTTL = 60 * time.Minute
)

// Service implements ports.TreeProcessor.
type Service struct {
	store  ports.KeyValueStore
	key    string
	ttl    time.Duration
	logger *slog.Logger
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

// WithTreeKey overrides DefaultTreeKey.
func WithTreeKey(key string) Option {
	return func(s *Service) {
		if key != "" {
			s.key = key
		}
	}
}

// WithTTL overrides DefaultTreeTTL. Zero keeps the tree until cleared.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// NewService creates a processing Service caching into store.
func NewService(store ports.KeyValueStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		key:    DefaultTreeKey,
		ttl:    DefaultTreeTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessTreeData decodes a client tree, computes its depth and relative
// statistics, caches it and returns it.
func (s *Service) ProcessTreeData(ctx context.Context, data []byte) (*domain.TreeNode, error) {
	tree, err := domain.DecodeTree(data)
	if err != nil {
		s.logger.Error("Error processing tree data", "error", err)
		return nil, err
	}

	if _, err := stats.Process(tree); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal processed tree: %w", err)
	}
	if err := s.store.Set(ctx, s.key, encoded, s.ttl); err != nil {
		s.logger.Error("Failed to store processed tree", "key", s.key, "error", err)
		return nil, fmt.Errorf("failed to store processed tree: %w", err)
	}

	s.logger.Debug("Processed tree", "nodes", tree.Count(), "key", s.key)
	return tree, nil
}

// CurrentTree returns the cached tree or domain.ErrNotFound.
func (s *Service) CurrentTree(ctx context.Context) (*domain.TreeNode, error) {
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load current tree: %w", err)
	}
	tree, err := domain.DecodeTree(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode current tree: %v", domain.ErrCorrupt, err)
	}
	return tree, nil
}

// TreeExists reports whether a tree is cached.
func (s *Service) TreeExists(ctx context.Context) (bool, error) {
	return s.store.Exists(ctx, s.key)
}

// Clear drops the cached tree.
func (s *Service) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, s.key)
}
