package orchestration

import (
	"context"
	"log/slog"

	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/session"
)

// feedback is what one iteration hands to the next.
type feedback struct {
	artifact string
	critique string
	attack   string
	guidance *models.Guidance
	score    *models.CompositeScore
}

// runPhase loops one phase until the policy or a checkpoint stops it and
// returns the artifact carried forward.
func (o *Orchestrator) runPhase(ctx context.Context, r *run, phase models.Phase, mode models.Mode, phaseContext string) (*models.PhaseResult, error) {
	s := r.session
	if err := s.Advance(phase); err != nil {
		return nil, &PhaseError{Phase: s.Phase, Step: "advance", Err: err}
	}

	maxIterations := o.maxIterations(mode)
	slog.Info("Phase started", "session", s.ID, "phase", phase, "max_iterations", maxIterations)
	o.notifyProgress(ProgressEvent{EventType: EventPhaseStart, SessionID: s.ID, Phase: phase, MaxIterations: maxIterations, Progress: s.Progress()})

	var (
		prev    feedback
		history []float64
		result  *models.PhaseResult
	)

	for iteration := 1; iteration <= maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, &PhaseError{Phase: phase, Iteration: iteration, Step: StepGenerate, Err: err}
		}

		o.notifyProgress(ProgressEvent{EventType: EventIterationStart, SessionID: s.ID, Phase: phase, Iteration: iteration, MaxIterations: maxIterations, Progress: s.Progress()})

		rec, next, err := o.runIteration(ctx, r, iterationInput{
			phase:         phase,
			mode:          mode,
			iteration:     iteration,
			maxIterations: maxIterations,
			context:       phaseContext,
			history:       history,
			previous:      prev,
		})
		if err != nil {
			return nil, err
		}

		s.Iterations = append(s.Iterations, *rec)
		history = append(history, rec.FinalScore())
		prev = next

		o.metrics.ObserveIteration(string(phase), string(rec.Decision.Action), string(rec.Decision.Reason), rec.FinalScore(), len(rec.Score.RedFlags))
		o.logEvent(session.EventIterationComplete, session.IterationCompleteData(
			string(phase), iteration, rec.FinalScore(), rec.Score.Grade,
			string(rec.Decision.Action), string(rec.Decision.Reason), rec.Degraded))
		o.notifyProgress(ProgressEvent{
			EventType:     EventIterationComplete,
			SessionID:     s.ID,
			Phase:         phase,
			Iteration:     iteration,
			MaxIterations: maxIterations,
			Progress:      s.Progress(),
			Details: map[string]any{
				"final_score": rec.FinalScore(),
				"grade":       rec.Score.Grade,
				"red_flags":   len(rec.Score.RedFlags),
				"action":      string(rec.Decision.Action),
				"reason":      string(rec.Decision.Reason),
			},
		})
		slog.Info("Iteration complete",
			"phase", phase,
			"iteration", iteration,
			"score", rec.FinalScore(),
			"grade", rec.Score.Grade,
			"action", rec.Decision.Action,
			"reason", rec.Decision.Reason)

		switch rec.Decision.Action {
		case models.ActionStop:
			if rec.Decision.Reason == models.ReasonResourceExhausted {
				result = bestResult(s, phase, models.ReasonResourceExhausted)
			} else {
				result = resultFrom(s, phase, len(s.Iterations)-1, rec.Decision.Reason)
			}
		case models.ActionCheckpoint:
			if o.resolveCheckpoint(ctx, r, phase, rec) == models.ActionStop {
				result = resultFrom(s, phase, len(s.Iterations)-1, models.ReasonUserStopped)
			}
		}
		if result != nil {
			break
		}
	}

	// The policy stops at the iteration budget, so this only covers loops
	// that never ran a decision to completion.
	if result == nil {
		result = bestResult(s, phase, models.ReasonResourceExhausted)
	}

	o.logEvent(session.EventPhaseComplete, session.PhaseCompleteData(
		string(phase), result.Iterations, result.BestIteration, result.FinalScore, string(result.StopReason)))
	o.notifyProgress(ProgressEvent{
		EventType: EventPhaseComplete,
		SessionID: s.ID,
		Phase:     phase,
		Iteration: result.BestIteration,
		Progress:  s.Progress(),
		Details: map[string]any{
			"final_score": result.FinalScore,
			"stop_reason": string(result.StopReason),
		},
	})
	slog.Info("Phase complete", "phase", phase, "iterations", result.Iterations, "best_iteration", result.BestIteration, "score", result.FinalScore)
	return result, nil
}

// resolveCheckpoint asks the resolver for a verdict and logs it. Resolver
// errors continue the loop.
func (o *Orchestrator) resolveCheckpoint(ctx context.Context, r *run, phase models.Phase, rec *models.IterationRecord) models.Action {
	s := r.session
	req := CheckpointRequest{
		SessionID: s.ID,
		Topic:     s.Topic,
		Phase:     phase,
		Iteration: rec.Iteration,
		Decision:  rec.Decision,
		Score:     rec.Score,
	}
	o.notifyProgress(ProgressEvent{
		EventType: EventCheckpoint,
		SessionID: s.ID,
		Phase:     phase,
		Iteration: rec.Iteration,
		Progress:  s.Progress(),
		Details:   map[string]any{"reason": string(rec.Decision.Reason)},
	})

	var resolveErr string
	action, err := o.resolver.Resolve(ctx, req)
	if err != nil {
		slog.Warn("Checkpoint resolver failed, continuing", "phase", phase, "iteration", rec.Iteration, "error", err)
		o.degradeSession(r, phase, rec.Iteration, StepCheckpoint, err)
		resolveErr = err.Error()
		action = models.ActionContinue
	}
	if action != models.ActionStop {
		action = models.ActionContinue
	}

	info := models.CheckpointInfo{}
	if rec.Decision.Checkpoint != nil {
		info = *rec.Decision.Checkpoint
	}
	s.Checkpoints = append(s.Checkpoints, models.CheckpointRecord{
		Phase:      phase,
		Iteration:  rec.Iteration,
		Reason:     rec.Decision.Reason,
		Info:       info,
		Resolution: action,
		Automatic:  isAutomatic(o.resolver),
		Error:      resolveErr,
		Timestamp:  o.now().UTC(),
	})
	o.logEvent(session.EventCheckpoint, session.CheckpointData(string(phase), rec.Iteration, string(rec.Decision.Reason), string(action), isAutomatic(o.resolver)))
	slog.Info("Checkpoint resolved", "phase", phase, "iteration", rec.Iteration, "reason", rec.Decision.Reason, "resolution", action)
	return action
}

// bestResult carries forward the highest scoring iteration of phase. Ties go
// to the earliest iteration.
func bestResult(s *models.Session, phase models.Phase, reason models.DecisionReason) *models.PhaseResult {
	best := -1
	for i := range s.Iterations {
		if s.Iterations[i].Phase != phase {
			continue
		}
		if best < 0 || s.Iterations[i].FinalScore() > s.Iterations[best].FinalScore() {
			best = i
		}
	}
	if best < 0 {
		return &models.PhaseResult{Phase: phase, StopReason: reason}
	}
	return resultFrom(s, phase, best, reason)
}

func resultFrom(s *models.Session, phase models.Phase, index int, reason models.DecisionReason) *models.PhaseResult {
	rec := s.Iterations[index]
	res := &models.PhaseResult{
		Phase:         phase,
		Artifact:      rec.Outputs.Generation,
		Iterations:    s.IterationCount(phase),
		BestIteration: rec.Iteration,
		FinalScore:    rec.FinalScore(),
		StopReason:    reason,
	}
	if rec.Score != nil {
		res.Grade = rec.Score.Grade
		res.RedFlags = rec.Score.RedFlags
	}
	return res
}
