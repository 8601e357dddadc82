package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// SessionReader answers queries over recorded game sessions.
// Implementations return domain.ErrNotFound for missing turns or trees.
type SessionReader interface {
	SessionExists(ctx context.Context, sessionID string) bool
	AvailableTurns(ctx context.Context, sessionID string) ([]int, error)
	TreeForTurn(ctx context.Context, sessionID string, turn int) (*domain.TreeNode, error)

	// GrowthSteps returns the stored snapshots of a turn followed by its final tree.
	GrowthSteps(ctx context.Context, sessionID string, turn int) ([]domain.TreeGrowthStep, error)

	// ReplayGrowth rebuilds the snapshots of a turn from its initial tree and patches.
	ReplayGrowth(ctx context.Context, sessionID string, turn int) ([]domain.TreeGrowthStep, error)

	IterationDetails(ctx context.Context, sessionID string, turn, iteration int) (*domain.IterationDetails, error)
}

// TreeProcessor handles trees submitted directly by clients.
type TreeProcessor interface {
	// ProcessTreeData decodes, annotates and caches a client tree.
	// Undecodable input yields an error wrapping domain.ErrMalformed.
	ProcessTreeData(ctx context.Context, data []byte) (*domain.TreeNode, error)

	// CurrentTree returns the last processed tree or domain.ErrNotFound.
	CurrentTree(ctx context.Context) (*domain.TreeNode, error)
}
