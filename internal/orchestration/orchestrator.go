// Package orchestration drives a refinement session through its phases:
// an analysis loop, an idea loop and finalization. Each loop iteration
// generates an artifact, reviews it, validates it, scores it and decides
// whether to continue.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spboyer/crucible/internal/agents"
	"github.com/spboyer/crucible/internal/decision"
	"github.com/spboyer/crucible/internal/diversity"
	"github.com/spboyer/crucible/internal/esv"
	"github.com/spboyer/crucible/internal/execution"
	"github.com/spboyer/crucible/internal/metrics"
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/projectconfig"
	"github.com/spboyer/crucible/internal/recommend"
	"github.com/spboyer/crucible/internal/scoring"
	"github.com/spboyer/crucible/internal/session"
)

// adversaryPanelSize is how many adversarial roles attack each iteration.
const adversaryPanelSize = 2

// Brief is what a session is asked to work on.
type Brief struct {
	Topic string
	// Context is optional background handed to the analysis loop.
	Context string
}

// HistoryRecorder persists finished or failed sessions.
type HistoryRecorder interface {
	RecordSession(ctx context.Context, s *models.Session, runErr error) error
}

// Orchestrator runs refinement sessions. One Orchestrator runs one session
// at a time.
type Orchestrator struct {
	cfg    *projectconfig.Config
	engine execution.AgentEngine

	scorer    *scoring.Engine
	policy    *decision.Policy
	analyzer  *diversity.Analyzer
	validator *esv.Validator
	resolver  CheckpointResolver
	advisor   *recommend.Engine

	eventLog session.Logger
	metrics  *metrics.Collector
	history  HistoryRecorder

	newID         func() string
	now           func() time.Time
	bootstrapSeed int64

	runMu sync.Mutex

	// Progress tracking
	progressMu sync.Mutex
	listeners  []ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventSessionStart      EventType = "session_start"
	EventSessionComplete   EventType = "session_complete"
	EventPhaseStart        EventType = "phase_start"
	EventPhaseComplete     EventType = "phase_complete"
	EventIterationStart    EventType = "iteration_start"
	EventIterationComplete EventType = "iteration_complete"
	EventStepComplete      EventType = "step_complete"
	EventStepDegraded      EventType = "step_degraded"
	EventCheckpoint        EventType = "checkpoint"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType     EventType
	SessionID     string
	Phase         models.Phase
	Iteration     int
	MaxIterations int
	Step          string
	// Progress is the session completion percentage at the time of the event.
	Progress   float64
	DurationMs int64
	Details    map[string]any
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithValidator enables external validation through v.
func WithValidator(v *esv.Validator) Option {
	return func(o *Orchestrator) {
		o.validator = v
	}
}

// WithResolver sets who arbitrates checkpoints. The default auto-continues.
func WithResolver(r CheckpointResolver) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithEventLog writes session events to l.
func WithEventLog(l session.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.eventLog = l
		}
	}
}

// WithMetrics records loop metrics to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.metrics = c
	}
}

// WithHistory persists every session to h when it ends.
func WithHistory(h HistoryRecorder) Option {
	return func(o *Orchestrator) {
		o.history = h
	}
}

// WithProgress registers a progress listener.
func WithProgress(l ProgressListener) Option {
	return func(o *Orchestrator) {
		o.listeners = append(o.listeners, l)
	}
}

// WithBootstrapSeed makes the quality confidence intervals reproducible.
func WithBootstrapSeed(seed int64) Option {
	return func(o *Orchestrator) {
		o.bootstrapSeed = seed
	}
}

// New creates an orchestrator. cfg must already be validated.
func New(cfg *projectconfig.Config, engine execution.AgentEngine, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("orchestrator needs a configuration")
	}
	if engine == nil {
		return nil, errors.New("orchestrator needs an agent engine")
	}
	scorer, err := scoring.NewEngineFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating scoring engine: %w", err)
	}
	o := &Orchestrator{
		cfg:           cfg,
		engine:        engine,
		scorer:        scorer,
		policy:        decision.NewPolicy(cfg.Loop),
		analyzer:      diversity.NewAnalyzer(),
		resolver:      AutoContinue{},
		advisor:       recommend.NewEngine(),
		eventLog:      session.NopLogger{},
		newID:         uuid.NewString,
		now:           time.Now,
		bootstrapSeed: -1,
		listeners:     []ProgressListener{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// OnProgress registers a progress listener
func (o *Orchestrator) OnProgress(listener ProgressListener) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.listeners = append(o.listeners, listener)
}

func (o *Orchestrator) notifyProgress(event ProgressEvent) {
	o.progressMu.Lock()
	listeners := make([]ProgressListener, len(o.listeners))
	copy(listeners, o.listeners)
	o.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// run is the per-session state threaded through the pipeline.
type run struct {
	session *models.Session

	perfMu sync.Mutex
	perf   map[string]*models.RolePerformance

	analysis *models.PhaseResult
	ideas    *models.PhaseResult
}

func (r *run) observeAgent(role string, durationMs int64, failed bool) {
	r.perfMu.Lock()
	defer r.perfMu.Unlock()
	p, ok := r.perf[role]
	if !ok {
		p = &models.RolePerformance{}
		r.perf[role] = p
	}
	p.Calls++
	p.DurationMs += durationMs
	if failed {
		p.Failures++
	}
}

// Run executes a full session for brief. On failure the error is a
// *PhaseError naming where the session stopped; no partial session is
// returned.
func (o *Orchestrator) Run(ctx context.Context, brief Brief) (*models.Session, error) {
	if !o.runMu.TryLock() {
		return nil, ErrBusy
	}
	defer o.runMu.Unlock()

	if strings.TrimSpace(brief.Topic) == "" {
		return nil, errors.New("a session needs a topic")
	}

	r := &run{
		session: models.NewSession(o.newID(), brief.Topic, o.cfg.Settings()),
		perf:    map[string]*models.RolePerformance{},
	}
	s := r.session
	start := o.now()

	if err := o.engine.Initialize(ctx); err != nil {
		return nil, o.fail(ctx, r, &PhaseError{Phase: models.PhaseInitialization, Step: "initialize", Err: err})
	}
	defer func() {
		if err := o.engine.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to shut down agent engine", "error", err)
		}
	}()

	slog.Info("Session started", "session", s.ID, "topic", s.Topic)
	o.logEvent(session.EventSessionStart, session.SessionStartData(s.ID, s.Topic, o.cfg.LLM.Provider, o.cfg.LLM.Model))
	o.notifyProgress(ProgressEvent{EventType: EventSessionStart, SessionID: s.ID, Phase: s.Phase, Progress: s.Progress()})

	analysis, err := o.runPhase(ctx, r, models.PhaseAnalysisLoop, models.ModeAnalysis, brief.Context)
	if err != nil {
		return nil, o.fail(ctx, r, err)
	}
	r.analysis = analysis
	s.AnalysisResult = analysis.Artifact

	if o.cfg.Loop.SkipIdeas == nil || !*o.cfg.Loop.SkipIdeas {
		ideas, err := o.runPhase(ctx, r, models.PhaseIdeaLoop, models.ModeIdeas, analysis.Artifact)
		if err != nil {
			return nil, o.fail(ctx, r, err)
		}
		r.ideas = ideas
		s.IdeasResult = ideas.Artifact
	}

	if err := s.Advance(models.PhaseFinalization); err != nil {
		return nil, o.fail(ctx, r, &PhaseError{Phase: s.Phase, Step: "advance", Err: err})
	}
	s.Deliverables = o.finalize(r)
	if err := s.Advance(models.PhaseCompleted); err != nil {
		return nil, o.fail(ctx, r, &PhaseError{Phase: s.Phase, Step: "advance", Err: err})
	}

	durationMs := o.now().Sub(start).Milliseconds()
	o.logEvent(session.EventSessionComplete, session.SessionCompleteData(s.ID, phaseScore(r.analysis), phaseScore(r.ideas), len(s.Degraded), durationMs))
	o.notifyProgress(ProgressEvent{EventType: EventSessionComplete, SessionID: s.ID, Phase: s.Phase, Progress: s.Progress(), DurationMs: durationMs})
	slog.Info("Session completed", "session", s.ID, "analysis_score", phaseScore(r.analysis), "ideas_score", phaseScore(r.ideas), "duration_ms", durationMs)

	if o.history != nil {
		if err := o.history.RecordSession(ctx, s, nil); err != nil {
			slog.Warn("Failed to record session history", "session", s.ID, "error", err)
		}
	}
	return s, nil
}

// fail logs a terminal error and records the partial session.
func (o *Orchestrator) fail(ctx context.Context, r *run, err error) error {
	s := r.session
	details := map[string]any{"session_id": s.ID}
	var pe *PhaseError
	if errors.As(err, &pe) {
		details["phase"] = string(pe.Phase)
		details["iteration"] = pe.Iteration
		details["step"] = pe.Step
	}
	o.logEvent(session.EventError, session.ErrorData(err.Error(), details))
	slog.Error("Session failed", "session", s.ID, "error", err)

	if o.history != nil {
		if herr := o.history.RecordSession(context.WithoutCancel(ctx), s, err); herr != nil {
			slog.Warn("Failed to record session history", "session", s.ID, "error", herr)
		}
	}
	return err
}

func (o *Orchestrator) logEvent(t session.EventType, data map[string]any) {
	if err := o.eventLog.Log(session.NewEvent(t, data)); err != nil {
		slog.Warn("Failed to write session event", "type", t, "error", err)
	}
}

func (o *Orchestrator) maxIterations(mode models.Mode) int {
	if mode == models.ModeIdeas {
		return o.cfg.Loop.MaxIdeaIterations
	}
	return o.cfg.Loop.MaxAnalysisIterations
}

func (o *Orchestrator) intensity(mode models.Mode) string {
	if mode == models.ModeIdeas {
		return o.cfg.Agents.IdeasIntensity
	}
	return o.cfg.Agents.AnalysisIntensity
}

// agentsFor builds the four role agents for a phase.
func (o *Orchestrator) agentsFor(mode models.Mode) (primary, critic, adversary, synthesizer agents.Agent) {
	settings := agents.SettingsFromConfig(o.cfg.LLM)
	panel := o.cfg.Agents.AdversarialRoles
	if len(panel) > adversaryPanelSize {
		panel = panel[:adversaryPanelSize]
	}
	return agents.New(agents.Primary{}, o.engine, settings),
		agents.New(agents.Critic{FocusAreas: agents.DefaultCriticFocus}, o.engine, settings),
		agents.New(agents.Adversary{Roles: panel, Intensity: o.intensity(mode)}, o.engine, settings),
		agents.New(agents.Synthesizer{}, o.engine, settings)
}

func phaseScore(p *models.PhaseResult) float64 {
	if p == nil {
		return 0
	}
	return p.FinalScore
}
