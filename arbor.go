package arbor

import (
	"log/slog"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/growth"
	"github.com/aretw0/arbor/pkg/mapper"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/processing"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/stats"
)

// Arbor bundles the services used by the transports.
type Arbor struct {
	sessions *session.Service
	trees    *processing.Service

	logger      *slog.Logger
	observers   []growth.Observer
	locker      ports.DistributedLocker
	keyPrefix   string
	matchesPath string
	treeKey     string
	treeTTL     time.Duration
	treeStore   []middleware.Middleware
}

// Option defines a functional option for configuring Arbor.
type Option func(*Arbor)

// WithLogger sets a custom structured logger for all services.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Arbor) {
		a.logger = logger
	}
}

// WithObserver receives patch outcomes and emitted steps of every replay.
// It may be given more than once.
func WithObserver(o growth.Observer) Option {
	return func(a *Arbor) {
		a.observers = append(a.observers, o)
	}
}

// WithLocker guards legacy migrations across processes.
func WithLocker(l ports.DistributedLocker) Option {
	return func(a *Arbor) {
		a.locker = l
	}
}

// WithKeyPrefix sets the namespace of session keys (default "mcts:").
func WithKeyPrefix(prefix string) Option {
	return func(a *Arbor) {
		a.keyPrefix = prefix
	}
}

// WithMatchesPath sets the directory of recorded matches checked by SessionExists.
func WithMatchesPath(path string) Option {
	return func(a *Arbor) {
		a.matchesPath = path
	}
}

// WithTreeCache configures where processed client trees are cached.
func WithTreeCache(key string, ttl time.Duration) Option {
	return func(a *Arbor) {
		a.treeKey = key
		a.treeTTL = ttl
	}
}

// WithTreeStoreMiddleware wraps the store used for the processed-tree cache,
// e.g. with middleware.NewEncryptionMiddleware. Session data is read unwrapped.
func WithTreeStoreMiddleware(mws ...middleware.Middleware) Option {
	return func(a *Arbor) {
		a.treeStore = append(a.treeStore, mws...)
	}
}

// New wires the session and processing services over store.
func New(store ports.KeyValueStore, opts ...Option) *Arbor {
	a := &Arbor{}
	for _, opt := range opts {
		opt(a)
	}

	seqOpts := []growth.Option{growth.WithLogger(a.logger)}
	if len(a.observers) > 0 {
		seqOpts = append(seqOpts, growth.WithObserver(observability.Fanout(a.observers...)))
	}

	sessOpts := []session.Option{
		session.WithLogger(a.logger),
		session.WithSequencer(growth.New(seqOpts...)),
		session.WithMatchesPath(a.matchesPath),
	}
	if a.keyPrefix != "" {
		sessOpts = append(sessOpts, session.WithKeyPrefix(a.keyPrefix))
	}
	if a.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(a.locker))
	}
	a.sessions = session.NewService(store, sessOpts...)

	procOpts := []processing.Option{processing.WithLogger(a.logger)}
	if a.treeKey != "" {
		procOpts = append(procOpts, processing.WithTreeKey(a.treeKey))
	}
	if a.treeTTL > 0 {
		procOpts = append(procOpts, processing.WithTTL(a.treeTTL))
	}
	a.trees = processing.NewService(middleware.Chain(store, a.treeStore...), procOpts...)

	return a
}

// Sessions returns the session query service.
func (a *Arbor) Sessions() *session.Service {
	return a.sessions
}

// Trees returns the client tree processing service.
func (a *Arbor) Trees() *processing.Service {
	return a.trees
}

// Replay sequences patches against initial without touching a store.
func Replay(turn int, initial *domain.TreeNode, patches []domain.TreePatch, opts ...growth.Option) ([]domain.TreeGrowthStep, error) {
	return growth.New(opts...).Sequence(turn, initial, patches)
}

// MapStorageTree decodes a storage-format tree into a display tree.
func MapStorageTree(data []byte) (*domain.TreeNode, error) {
	st, err := mapper.DecodeStorageTree(data)
	if err != nil {
		return nil, err
	}
	return mapper.New().MapNode(st.Root), nil
}

// ProcessTree annotates a display tree with depths and relative visits in place.
func ProcessTree(tree *domain.TreeNode) (*domain.TreeNode, error) {
	return stats.Process(tree)
}
