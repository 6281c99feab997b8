// Package agents wraps model calls in the four roles of the refinement loop:
// the primary generator, the critic, the adversary and the synthesizer.
// Every role runs through the same Agent; roles differ only in how they
// build prompts and pick sampling settings.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spboyer/crucible/internal/execution"
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/projectconfig"
	"github.com/spboyer/crucible/internal/utils"
)

// Task is the input shared by every role for one iteration.
type Task struct {
	Mode      models.Mode
	Topic     string
	Iteration int

	// Context is the analysis carried into the ideas phase.
	Context string

	// Artifact is this iteration's primary output; empty for the primary role.
	Artifact string

	// PreviousArtifact, PreviousCritique and PreviousAttack come from the
	// prior iteration of the same phase.
	PreviousArtifact string
	PreviousCritique string
	PreviousAttack   string
	// ScoreFeedback is the scorer's improvement hints for the previous version.
	ScoreFeedback []string

	Critique   string
	Attack     string
	Validation *models.ValidationSummary
	Diversity  *models.DiversityReport
	Guidance   *models.Guidance

	Criteria []projectconfig.Criterion
}

// Output is one role's response.
type Output struct {
	Role       string
	Text       string
	ModelID    string
	DurationMs int64
}

// Agent runs one role against a model.
type Agent interface {
	Role() string
	Run(ctx context.Context, task Task) (*Output, error)
}

// Settings are the sampling defaults applied to every call.
type Settings struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// SettingsFromConfig extracts model settings from the LLM configuration.
func SettingsFromConfig(cfg projectconfig.LLMConfig) Settings {
	return Settings{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}
}

type agent struct {
	role     Role
	engine   execution.AgentEngine
	settings Settings
}

// New binds a role to an engine.
func New(role Role, engine execution.AgentEngine, settings Settings) Agent {
	return &agent{role: role, engine: engine, settings: settings}
}

func (a *agent) Role() string {
	return a.role.Name()
}

func (a *agent) Run(ctx context.Context, task Task) (*Output, error) {
	temperature := a.settings.Temperature
	if t, ok := a.role.Temperature(); ok {
		temperature = t
	}

	req := &execution.ExecutionRequest{
		Role:         a.role.Name(),
		SystemPrompt: a.role.SystemPrompt(task),
		Message:      a.role.Prompt(task),
		JSON:         a.role.WantsJSON(),
		Temperature:  temperature,
		MaxTokens:    a.settings.MaxTokens,
		Timeout:      a.settings.Timeout,
	}

	resp, err := a.engine.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s agent: %w", a.role.Name(), err)
	}
	utils.ResponseToSlog(a.role.Name(), resp)

	if !resp.Success {
		return nil, fmt.Errorf("%s agent: %s", a.role.Name(), resp.ErrorMsg)
	}
	if resp.FinalOutput == "" {
		return nil, fmt.Errorf("%s agent: %w", a.role.Name(), execution.ErrEmptyOutput)
	}

	slog.Debug("Agent finished", "role", a.role.Name(), "iteration", task.Iteration, "duration_ms", resp.DurationMs)

	return &Output{
		Role:       a.role.Name(),
		Text:       resp.FinalOutput,
		ModelID:    resp.ModelID,
		DurationMs: resp.DurationMs,
	}, nil
}
