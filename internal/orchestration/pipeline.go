package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/spboyer/crucible/internal/agents"
	"github.com/spboyer/crucible/internal/decision"
	"github.com/spboyer/crucible/internal/esv"
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/scoring"
	"github.com/spboyer/crucible/internal/session"
)

var errNoValidation = errors.New("no validation results")

type iterationInput struct {
	phase         models.Phase
	mode          models.Mode
	iteration     int
	maxIterations int
	context       string
	history       []float64
	previous      feedback
}

// runIteration executes generate, critique and attack, diversity,
// validation, synthesis, scoring and decision for one iteration. Only
// generation and synthesis failures are fatal.
func (o *Orchestrator) runIteration(ctx context.Context, r *run, in iterationInput) (*models.IterationRecord, feedback, error) {
	primary, critic, adversary, synthesizer := o.agentsFor(in.mode)

	rec := &models.IterationRecord{
		Phase:     in.phase,
		Iteration: in.iteration,
		Timestamp: o.now().UTC(),
	}
	task := agents.Task{
		Mode:             in.mode,
		Topic:            r.session.Topic,
		Iteration:        in.iteration,
		Context:          in.context,
		PreviousArtifact: in.previous.artifact,
		PreviousCritique: in.previous.critique,
		PreviousAttack:   in.previous.attack,
		Guidance:         in.previous.guidance,
		Criteria:         o.scorer.Criteria(in.mode),
	}
	if in.previous.score != nil {
		task.ScoreFeedback = scoring.Suggestions(in.previous.score)
	}
	fatal := func(step string, err error) (*models.IterationRecord, feedback, error) {
		return nil, feedback{}, &PhaseError{Phase: in.phase, Iteration: in.iteration, Step: step, Err: err}
	}

	generated, err := o.runAgent(ctx, r, primary, task, StepGenerate)
	if err != nil {
		return fatal(StepGenerate, err)
	}
	task.Artifact = generated.Text
	rec.Outputs.Generation = generated.Text

	var (
		g                   errgroup.Group
		critique, attack    *agents.Output
		critiqueErr, atkErr error
	)
	g.Go(func() error {
		critique, critiqueErr = o.runAgent(ctx, r, critic, task, StepCritique)
		return nil
	})
	g.Go(func() error {
		attack, atkErr = o.runAgent(ctx, r, adversary, task, StepAttack)
		return nil
	})
	_ = g.Wait()

	if critiqueErr != nil {
		o.degrade(r, rec, StepCritique, critiqueErr)
	} else {
		task.Critique = critique.Text
		rec.Outputs.Critique = critique.Text
	}
	if atkErr != nil {
		o.degrade(r, rec, StepAttack, atkErr)
	} else {
		task.Attack = attack.Text
		rec.Outputs.Attack = attack.Text
	}

	if in.mode == models.ModeIdeas {
		start := o.now()
		report := o.analyzer.AnalyzeMarkdown(task.Artifact)
		o.metrics.ObserveStep(StepDiversity, o.now().Sub(start))
		rec.Diversity = report
		task.Diversity = report
	}

	if summary, err := o.validate(ctx, in.mode, task.Artifact); err != nil {
		o.degrade(r, rec, StepValidate, err)
	} else if summary != nil {
		rec.Outputs.Validation = summary
		task.Validation = summary
	}

	synthesized, err := o.runAgent(ctx, r, synthesizer, task, StepSynthesize)
	if err != nil {
		return fatal(StepSynthesize, err)
	}
	rec.Outputs.Synthesis = synthesized.Text

	synthesis, err := agents.ParseSynthesis(synthesized.Text)
	if err != nil {
		o.degrade(r, rec, StepContract, err)
		synthesis = agents.NeutralSynthesis(err.Error())
	}

	score, err := o.scorer.Score(in.mode, synthesis.RawScores(), synthesis.Notes())
	if err != nil {
		return fatal("score", err)
	}
	rec.Score = score
	if prev := in.previous.score; prev != nil {
		cmp := scoring.Compare(prev, score)
		slog.Debug("Score movement",
			"phase", in.phase,
			"iteration", in.iteration,
			"delta", cmp.ScoreDelta,
			"grade", cmp.GradeChange,
			"improved", len(cmp.Improved),
			"degraded", len(cmp.Degraded),
			"new_red_flags", cmp.NewRedFlags,
			"resolved_red_flags", cmp.ResolvedRedFlags)
	}

	rec.Decision = o.policy.Decide(decision.Input{
		Mode:          in.mode,
		Score:         score,
		Iteration:     in.iteration,
		MaxIterations: in.maxIterations,
		History:       in.history,
		Diversity:     rec.Diversity,
	})

	return rec, feedback{
		artifact: rec.Outputs.Generation,
		critique: rec.Outputs.Critique,
		attack:   rec.Outputs.Attack,
		guidance: rec.Decision.Guidance,
		score:    score,
	}, nil
}

// runAgent runs one agent, timing it and recording its performance.
func (o *Orchestrator) runAgent(ctx context.Context, r *run, a agents.Agent, task agents.Task, step string) (*agents.Output, error) {
	start := o.now()
	out, err := a.Run(ctx, task)
	elapsed := o.now().Sub(start)

	r.observeAgent(a.Role(), elapsed.Milliseconds(), err != nil)
	o.metrics.ObserveStep(step, elapsed)
	if err == nil {
		o.notifyProgress(ProgressEvent{
			EventType:  EventStepComplete,
			SessionID:  r.session.ID,
			Phase:      r.session.Phase,
			Iteration:  task.Iteration,
			Step:       step,
			Progress:   r.session.Progress(),
			DurationMs: elapsed.Milliseconds(),
		})
	}
	return out, err
}

// validate fact-checks the artifact. It returns nil, nil when validation is
// disabled or the artifact yields no queries.
func (o *Orchestrator) validate(ctx context.Context, mode models.Mode, artifact string) (*models.ValidationSummary, error) {
	if o.validator == nil || !o.cfg.ValidationEnabled() {
		return nil, nil
	}
	queries := esv.BuildQueries(mode, artifact)
	if len(queries) == 0 {
		return nil, nil
	}

	start := o.now()
	results := o.validator.ValidateAll(ctx, queries)
	o.metrics.ObserveStep(StepValidate, o.now().Sub(start))

	summary := esv.Summarize(results)
	if summary.Total == 0 {
		return nil, errNoValidation
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("validation interrupted: %w", err)
	}
	return summary, nil
}

// degrade records a non-fatal step failure on the iteration and session.
func (o *Orchestrator) degrade(r *run, rec *models.IterationRecord, step string, err error) {
	rec.Degraded = append(rec.Degraded, step)
	o.degradeSession(r, rec.Phase, rec.Iteration, step, err)
}

// degradeSession records a non-fatal failure on the session only. It is used
// once the iteration record has been appended.
func (o *Orchestrator) degradeSession(r *run, phase models.Phase, iteration int, step string, err error) {
	s := r.session
	s.Degraded = append(s.Degraded, models.DegradedStep{
		Phase:     phase,
		Iteration: iteration,
		Step:      step,
		Error:     err.Error(),
	})
	o.metrics.StepDegraded(step)
	o.logEvent(session.EventStepDegraded, session.StepDegradedData(string(phase), iteration, step, err.Error()))
	o.notifyProgress(ProgressEvent{
		EventType: EventStepDegraded,
		SessionID: s.ID,
		Phase:     phase,
		Iteration: iteration,
		Step:      step,
		Progress:  s.Progress(),
		Details:   map[string]any{"error": err.Error()},
	})
	slog.Warn("Step degraded, continuing with neutral substitute",
		"phase", phase,
		"iteration", iteration,
		"step", step,
		"error", err)
}
