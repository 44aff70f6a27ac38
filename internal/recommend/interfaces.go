// Package recommend implements the candidate generators, rescorer,
// blender, and orchestrator described in spec.md §4 (C5-C10).
package recommend

import (
	"context"

	"github.com/resonanse/recommender/pkg/models"
)

// GeneratorInterface is satisfied by each of the three candidate
// generators (C5, C6, C7). They share no mutable state and are always
// invoked concurrently by the orchestrator.
type GeneratorInterface interface {
	Generate(ctx context.Context, userID int64, queryText string) ([]models.RecItem, error)
}

// RescorerInterface applies the time-decay and jitter transforms (C8) to
// one group's candidates, in that order, exactly once.
type RescorerInterface interface {
	Rescore(items []models.RecItem) []models.RecItem
}

// BlenderInterface merges rescored per-subsystem groups into one final
// list (C9).
type BlenderInterface interface {
	Blend(groups [][]models.RecItem) []models.RecItem
}

// OrchestratorInterface exposes the two RPC operations (C10).
type OrchestratorInterface interface {
	RecommendByUser(ctx context.Context, userID int64) ([]models.RecItem, error)
	SetUserDescription(ctx context.Context, userID int64, description string) (bool, error)
}
