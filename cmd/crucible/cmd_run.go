package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spboyer/crucible/internal/agents"
	"github.com/spboyer/crucible/internal/cache"
	"github.com/spboyer/crucible/internal/esv"
	"github.com/spboyer/crucible/internal/esv/sources"
	"github.com/spboyer/crucible/internal/execution"
	"github.com/spboyer/crucible/internal/hooks"
	"github.com/spboyer/crucible/internal/metrics"
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/orchestration"
	"github.com/spboyer/crucible/internal/projectconfig"
	"github.com/spboyer/crucible/internal/reporting"
	"github.com/spboyer/crucible/internal/session"
	"github.com/spboyer/crucible/internal/spinner"
	"github.com/spboyer/crucible/internal/store"
	"github.com/spboyer/crucible/internal/template"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type runOptions struct {
	configDir    string
	contextFile  string
	provider     string
	model        string
	maxAnalysis  int
	maxIdeas     int
	threshold    float64
	skipIdeas    bool
	noValidation bool
	noCache      bool
	noHistory    bool
	auto         bool
	outputPath   string
	junitPath    string
	metricsPath  string
	format       string
	interpret    bool
	verbose      bool
	strict       bool
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <topic>",
		Short: "Run a refinement session on a topic",
		Long: `Run a refinement session on a topic.

The analysis loop refines an analysis of the topic; the idea loop then
refines a set of business ideas built on the best analysis. Settings come
from .crucible.yaml (searched upwards from --config-dir) and can be
overridden with flags. API keys are read from the environment or a .env file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&opts.configDir, "config-dir", ".", "Directory to start searching for .crucible.yaml")
	cmd.Flags().StringVar(&opts.contextFile, "context-file", "", "File with background material for the analysis loop")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Generation provider: openai or mock (overrides config)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model to use (overrides config)")
	cmd.Flags().IntVar(&opts.maxAnalysis, "max-analysis", 0, "Maximum analysis iterations (overrides config)")
	cmd.Flags().IntVar(&opts.maxIdeas, "max-ideas", 0, "Maximum idea iterations (overrides config)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Quality threshold on the 0-10 scale (overrides config)")
	cmd.Flags().BoolVar(&opts.skipIdeas, "skip-ideas", false, "Stop after the analysis loop")
	cmd.Flags().BoolVar(&opts.noValidation, "no-validation", false, "Disable external validation")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Do not persist validation results between sessions")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record the session in the history database")
	cmd.Flags().BoolVar(&opts.auto, "auto", false, "Resolve checkpoints automatically instead of prompting")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Write the full session as JSON to this file")
	cmd.Flags().StringVar(&opts.junitPath, "junit", "", "Write a JUnit XML report to this file")
	cmd.Flags().StringVar(&opts.metricsPath, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	cmd.Flags().StringVar(&opts.format, "format", "default", "Output format: default, markdown")
	cmd.Flags().BoolVar(&opts.interpret, "interpret", false, "Print a plain-language interpretation of the results")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output with per-step progress")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit with code 1 when a carried-forward score is below the threshold")

	return cmd
}

func runSession(ctx context.Context, opts *runOptions, topic string) error {
	if opts.format != "default" && opts.format != "markdown" {
		return fmt.Errorf("unknown output format: %s (supported: default, markdown)", opts.format)
	}

	// A missing .env is normal; keys may already be in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}

	var brief = orchestration.Brief{Topic: topic}
	if opts.contextFile != "" {
		data, err := os.ReadFile(opts.contextFile)
		if err != nil {
			return fmt.Errorf("reading context file: %w", err)
		}
		brief.Context = string(data)
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	orchOpts := []orchestration.Option{orchestration.WithMetrics(collector)}

	if cfg.ValidationEnabled() {
		srcs := newSources(cfg.Validation)
		cacheDir := filepath.Join(cfg.Output.Dir, "cache")
		if opts.noCache {
			cacheDir = ""
		}
		validator := esv.NewFromConfig(cfg.Validation, srcs,
			esv.WithCache(cache.New(cacheDir)),
			esv.WithMetrics(collector),
		)
		orchOpts = append(orchOpts, orchestration.WithValidator(validator))
	}

	if cfg.Output.SessionLog != nil && *cfg.Output.SessionLog {
		logger, err := session.NewJSONLogger(session.DefaultLogPath(filepath.Join(cfg.Output.Dir, "sessions"), slugify(topic)))
		if err != nil {
			return err
		}
		defer logger.Close() //nolint:errcheck
		orchOpts = append(orchOpts, orchestration.WithEventLog(logger))
		if opts.verbose {
			fmt.Printf("Session log: %s\n", logger.Path())
		}
	}

	if !opts.noHistory && cfg.Output.History != nil && *cfg.Output.History {
		if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		st, err := store.Open(filepath.Join(cfg.Output.Dir, historyFile))
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer st.Close() //nolint:errcheck
		orchOpts = append(orchOpts, orchestration.WithHistory(st))
	}

	if !opts.auto && stdinIsTerminal() {
		orchOpts = append(orchOpts, orchestration.WithResolver(promptResolver{}))
	}

	if opts.verbose {
		orchOpts = append(orchOpts, orchestration.WithProgress(verboseProgressListener))
	} else {
		display := &progressDisplay{out: os.Stdout, animate: stdoutIsTerminal()}
		defer display.stop()
		orchOpts = append(orchOpts, orchestration.WithProgress(display.handle))
	}

	orch, err := orchestration.New(cfg, engine, orchOpts...)
	if err != nil {
		return err
	}

	fmt.Printf("Topic: %s\n", topic)
	fmt.Printf("Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("Model: %s\n", cfg.LLM.Model)
	fmt.Printf("Quality threshold: %.1f\n", cfg.Loop.QualityThreshold)
	fmt.Println()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	runner := &hooks.Runner{}
	if opts.verbose {
		runner.Output = os.Stdout
	}
	hookVars := &template.Context{
		Topic:     topic,
		OutputDir: cfg.Output.Dir,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := runner.Execute(ctx, "before_session", cfg.Hooks.BeforeSession, hookVars); err != nil {
		return err
	}

	s, runErr := orch.Run(ctx, brief)

	hookVars.Status = store.StatusCompleted
	if runErr != nil {
		hookVars.Status = store.StatusFailed
	}
	if s != nil {
		hookVars.SessionID = s.ID
		if d := s.Deliverables; d != nil {
			if d.Analysis != nil {
				hookVars.AnalysisScore = d.Analysis.FinalScore
			}
			if d.Ideas != nil {
				hookVars.IdeasScore = d.Ideas.FinalScore
			}
		}
	}
	// The session context may already be cancelled; after_session hooks still run.
	if err := runner.Execute(context.WithoutCancel(ctx), "after_session", cfg.Hooks.AfterSession, hookVars); err != nil {
		if runErr == nil {
			return err
		}
		slog.Warn("after_session hook failed", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("session failed: %w", runErr)
	}

	switch opts.format {
	case "markdown":
		fmt.Print(FormatMarkdownReport(s))
	default:
		printSummary(os.Stdout, s)
		if opts.interpret {
			fmt.Println()
			fmt.Print(reporting.FormatSessionReport(s))
		}
	}

	if opts.outputPath != "" {
		if err := saveSession(s, opts.outputPath); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Printf("\nSession saved to: %s\n", opts.outputPath)
	}
	if opts.junitPath != "" {
		if err := reporting.WriteJUnitXML(s, cfg.Loop.QualityThreshold, opts.junitPath); err != nil {
			return fmt.Errorf("failed to write JUnit report: %w", err)
		}
	}
	if opts.metricsPath != "" {
		if err := prometheus.WriteToTextfile(opts.metricsPath, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if opts.strict {
		return qualityGate(s, cfg.Loop.QualityThreshold)
	}
	return nil
}

// loadRunConfig loads .crucible.yaml and applies flag overrides.
func loadRunConfig(opts *runOptions) (*projectconfig.Config, error) {
	cfg, err := projectconfig.Load(opts.configDir)
	if err != nil {
		return nil, err
	}
	if opts.provider != "" {
		cfg.LLM.Provider = opts.provider
	}
	if opts.model != "" {
		cfg.LLM.Model = opts.model
	}
	if opts.maxAnalysis > 0 {
		cfg.Loop.MaxAnalysisIterations = opts.maxAnalysis
	}
	if opts.maxIdeas > 0 {
		cfg.Loop.MaxIdeaIterations = opts.maxIdeas
	}
	if opts.threshold > 0 {
		cfg.Loop.QualityThreshold = opts.threshold
	}
	if opts.skipIdeas {
		skip := true
		cfg.Loop.SkipIdeas = &skip
	}
	if opts.noValidation {
		disabled := false
		cfg.Validation.Enabled = &disabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newEngine creates the generation engine for the configured provider. The
// mock provider runs a scripted offline session.
func newEngine(cfg *projectconfig.Config) (execution.AgentEngine, error) {
	switch cfg.LLM.Provider {
	case "mock":
		return agents.ScriptOffline(execution.NewMockEngine(cfg.LLM.Model), cfg.Scoring.Criteria), nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set (use --provider mock to run offline)")
		}
		return execution.NewOpenAIEngineBuilder(cfg.LLM.Model, &execution.OpenAIEngineBuilderOptions{
			APIKey:     apiKey,
			BaseURL:    cfg.LLM.BaseURL,
			MaxRetries: cfg.LLM.MaxRetries,
		}).Build(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.LLM.Provider)
	}
}

// newSources creates the configured external sources in order.
func newSources(cfg projectconfig.ValidationConfig) []esv.Source {
	var out []esv.Source
	for _, name := range cfg.Sources {
		switch name {
		case "duckduckgo":
			out = append(out, sources.NewDuckDuckGo("", cfg.SourceTimeout))
		case "github":
			out = append(out, sources.NewGitHub("", os.Getenv("GITHUB_TOKEN"), cfg.SourceTimeout))
		case "feed":
			if len(cfg.Feeds) == 0 {
				slog.Warn("Feed source enabled without feeds, skipping")
				continue
			}
			out = append(out, sources.NewFeed(cfg.Feeds, cfg.SourceTimeout))
		}
	}
	return out
}

// qualityGate fails when a carried-forward score is below threshold.
func qualityGate(s *models.Session, threshold float64) error {
	d := s.Deliverables
	if d == nil {
		return &QualityGateError{Message: "session has no deliverables"}
	}
	var missed []string
	if d.Analysis != nil && d.Analysis.FinalScore < threshold {
		missed = append(missed, fmt.Sprintf("analysis score %.2f", d.Analysis.FinalScore))
	}
	if d.Ideas != nil && d.Ideas.FinalScore < threshold {
		missed = append(missed, fmt.Sprintf("ideas score %.2f", d.Ideas.FinalScore))
	}
	if len(missed) > 0 {
		return &QualityGateError{
			Message: fmt.Sprintf("%s below threshold %.2f", strings.Join(missed, " and "), threshold),
		}
	}
	return nil
}

func saveSession(s *models.Session, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// slugify turns a topic into a short file-name label.
func slugify(topic string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func verboseProgressListener(event orchestration.ProgressEvent) {
	switch event.EventType {
	case orchestration.EventSessionStart:
		fmt.Printf("Session %s started\n\n", event.SessionID)
	case orchestration.EventPhaseStart:
		fmt.Printf("▶ %s (up to %d iterations)\n", event.Phase, event.MaxIterations)
	case orchestration.EventIterationStart:
		fmt.Printf("  [%d/%d] Iteration %d\n", event.Iteration, event.MaxIterations, event.Iteration)
	case orchestration.EventStepComplete:
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Printf("    ✓ %s (%s)\n", event.Step, formatDuration(duration))
	case orchestration.EventStepDegraded:
		fmt.Printf("    ⚠ %s degraded: %v\n", event.Step, event.Details["error"])
	case orchestration.EventIterationComplete:
		fmt.Printf("  score=%.2f (%v) → %v [%v]  %.0f%%\n\n",
			event.Details["final_score"], event.Details["grade"], event.Details["action"], event.Details["reason"], event.Progress)
	case orchestration.EventCheckpoint:
		fmt.Printf("  ⏸ Checkpoint: %v\n", event.Details["reason"])
	case orchestration.EventPhaseComplete:
		fmt.Printf("✓ %s complete: best iteration %d, score %.2f [%v]\n\n",
			event.Phase, event.Iteration, event.Details["final_score"], event.Details["stop_reason"])
	case orchestration.EventSessionComplete:
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Printf("Session completed in %s\n\n", formatDuration(duration))
	}
}

// progressDisplay prints one line per finished iteration. On a terminal a
// spinner shows the running iteration and its latest step.
type progressDisplay struct {
	out     io.Writer
	animate bool

	mu       sync.Mutex
	spin     *spinner.Spinner
	label    string
	degraded []string
}

func (p *progressDisplay) handle(event orchestration.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.EventType {
	case orchestration.EventIterationStart:
		p.degraded = nil
		p.label = fmt.Sprintf("[%d/%d] %s", event.Iteration, event.MaxIterations, event.Phase)
		if p.animate {
			p.spin = spinner.Start(p.out, p.label)
		}
	case orchestration.EventStepComplete:
		if p.spin != nil {
			p.spin.Update(fmt.Sprintf("%s · %s done", p.label, event.Step))
		}
	case orchestration.EventStepDegraded:
		p.degraded = append(p.degraded, event.Step)
	case orchestration.EventIterationComplete:
		p.stopLocked()
		status := "✓"
		if event.Details["action"] != string(models.ActionStop) {
			status = "…"
		}
		line := fmt.Sprintf("%s %s score=%.2f", status, p.label, event.Details["final_score"])
		if len(p.degraded) > 0 {
			line += "  ⚠ degraded: " + strings.Join(p.degraded, ", ")
		}
		fmt.Fprintln(p.out, line)
	}
}

func (p *progressDisplay) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *progressDisplay) stopLocked() {
	if p.spin != nil {
		p.spin.Stop()
		p.spin = nil
	}
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
