package orchestration

import (
	"context"

	"github.com/spboyer/crucible/internal/models"
)

// CheckpointRequest describes a paused iteration awaiting a verdict.
type CheckpointRequest struct {
	SessionID string
	Topic     string
	Phase     models.Phase
	Iteration int
	Decision  models.LoopDecision
	Score     *models.CompositeScore
}

// CheckpointResolver decides whether a paused loop continues or stops.
// Only ActionStop ends the phase; any other action continues it.
type CheckpointResolver interface {
	Resolve(ctx context.Context, req CheckpointRequest) (models.Action, error)
}

// AutoContinue resolves every checkpoint by continuing.
type AutoContinue struct{}

// Resolve always continues.
func (AutoContinue) Resolve(context.Context, CheckpointRequest) (models.Action, error) {
	return models.ActionContinue, nil
}

// ResolverFunc adapts a function to CheckpointResolver.
type ResolverFunc func(ctx context.Context, req CheckpointRequest) (models.Action, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, req CheckpointRequest) (models.Action, error) {
	return f(ctx, req)
}

func isAutomatic(r CheckpointResolver) bool {
	_, ok := r.(AutoContinue)
	return ok
}
