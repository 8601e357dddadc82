package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

const migrationLockTTL = 5 * time.Minute

// MigrationReport summarizes a MigrateLegacyIterations run.
type MigrationReport struct {
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// MigrateLegacyIterations rewrites every single-document iteration of a
// session into per-stage keys and deletes the legacy key. Existing stage keys
// are never overwritten. Documents that cannot be decoded are kept and counted
// as failed.
func (s *Service) MigrateLegacyIterations(ctx context.Context, sessionID string) (MigrationReport, error) {
	var report MigrationReport
	logger := s.logger.With("session", sessionID)

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "migrate:"+sessionID, migrationLockTTL)
		if err != nil {
			return report, fmt.Errorf("failed to lock session %s for migration: %w", sessionID, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Error("Failed to release migration lock", "error", err)
			}
		}()
	}

	keys, err := s.store.Scan(ctx, s.keys.LegacyPattern(sessionID))
	if err != nil {
		return report, fmt.Errorf("failed to list legacy iterations: %w", err)
	}

	for _, key := range keys {
		turn, iteration, ok := s.keys.LegacyIterationOf(key)
		if !ok {
			report.Skipped++
			continue
		}

		data, err := s.store.Get(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			report.Skipped++
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to load %s: %w", key, err)
		}

		var legacy domain.IterationDetails
		if err := json.Unmarshal(data, &legacy); err != nil {
			logger.Error("Failed to decode legacy iteration", "key", key, "error", err)
			report.Failed++
			continue
		}
		if legacy.Empty() {
			report.Skipped++
			continue
		}

		if err := s.writeStages(ctx, sessionID, turn, iteration, &legacy); err != nil {
			return report, err
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return report, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		logger.Info("Migrated legacy iteration", "turn", turn, "iteration", iteration)
		report.Migrated++
	}
	return report, nil
}

func (s *Service) writeStages(ctx context.Context, sessionID string, turn, iteration int, d *domain.IterationDetails) error {
	stages := map[string]any{}
	if d.Selection != nil {
		stages[domain.StageSelection] = d.Selection
	}
	if d.Expansion != nil {
		stages[domain.StageExpansion] = d.Expansion
	}
	if d.Playout != nil {
		stages[domain.StagePlayout] = d.Playout
	}
	if d.Backpropagation != nil {
		stages[domain.StageBackpropagation] = d.Backpropagation
	}

	for _, stage := range domain.Stages {
		v, ok := stages[stage]
		if !ok {
			continue
		}
		key := s.keys.Stage(sessionID, turn, iteration, stage)
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", key, err)
		}
		if exists {
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s stage: %w", stage, err)
		}
		if err := s.store.Set(ctx, key, data, 0); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}
	return nil
}
