// Package projectconfig provides the Config struct and loader for
// .crucible.yaml configuration files.
package projectconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spboyer/crucible/internal/hooks"
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/utils"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up by Load.
const FileName = ".crucible.yaml"

// Default values for configuration. New() references them and no other code
// should duplicate them.
const (
	DefaultMaxAnalysisIterations = 3
	DefaultMaxIdeaIterations     = 4
	DefaultQualityThreshold      = 9.0
	DefaultImprovementThreshold  = 5.0 // percent
	DefaultDiversityThreshold    = 0.7

	DefaultRedFlagThreshold = 3.0

	DefaultBatchSize      = 3
	DefaultMinInterval    = time.Second
	DefaultSourceTimeout  = 30 * time.Second
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = time.Second
	DefaultMaxResults     = 10

	DefaultProvider    = "openai"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
	DefaultLLMTimeout  = 60 * time.Second
	DefaultLLMRetries  = 3

	DefaultAnalysisIntensity = "moderate"
	DefaultIdeasIntensity    = "aggressive"

	DefaultOutputDir = ".crucible"
)

// ErrUnknownCriterion is returned when a config names a criterion or mode
// that has no built-in definition.
var ErrUnknownCriterion = errors.New("unknown criterion")

// DefaultCriteria is the built-in criteria set with weights, per mode.
// Order is the order scores are reported in.
var DefaultCriteria = map[models.Mode][]Criterion{
	models.ModeAnalysis: {
		{Name: "logic", Weight: 2.0},
		{Name: "comprehensiveness", Weight: 1.8},
		{Name: "consistency", Weight: 1.5},
		{Name: "evidence", Weight: 2.2},
		{Name: "depth", Weight: 1.5},
	},
	models.ModeIdeas: {
		{Name: "feasibility", Weight: 2.0},
		{Name: "market_potential", Weight: 2.5},
		{Name: "creativity", Weight: 1.5},
		{Name: "business_model", Weight: 2.0},
		{Name: "competitive_advantage", Weight: 2.0},
		{Name: "technical_risk", Weight: 1.5},
		{Name: "initial_investment", Weight: 1.2},
	},
}

// DefaultAdversarialRoles are the perspectives the adversarial agent argues from.
var DefaultAdversarialRoles = []string{"VC", "Engineer", "Competitor", "Marketing", "Legal"}

// Criterion is a named, weighted scoring criterion.
type Criterion struct {
	Name   string  `yaml:"name" validate:"required"`
	Weight float64 `yaml:"weight" validate:"gt=0"`
}

// LoopConfig controls iteration budgets and stopping thresholds.
type LoopConfig struct {
	MaxAnalysisIterations int     `yaml:"max_analysis_iterations,omitempty" validate:"gte=1,lte=50"`
	MaxIdeaIterations     int     `yaml:"max_idea_iterations,omitempty" validate:"gte=1,lte=50"`
	QualityThreshold      float64 `yaml:"quality_threshold,omitempty" validate:"gte=0,lte=10"`
	// ImprovementThreshold is a percentage, compared against the
	// iteration-over-iteration improvement rate.
	ImprovementThreshold float64 `yaml:"improvement_threshold,omitempty" validate:"gte=0"`
	DiversityThreshold   float64 `yaml:"diversity_threshold,omitempty" validate:"gte=0,lte=1"`
	SkipIdeas            *bool   `yaml:"skip_ideas,omitempty"`
}

// ScoringConfig holds the criteria sets and the red-flag threshold.
type ScoringConfig struct {
	RedFlagThreshold float64 `yaml:"red_flag_threshold,omitempty" validate:"gte=0,lte=10"`
	// Criteria replaces the built-in set for a mode. Keys are mode names.
	Criteria map[models.Mode][]Criterion `yaml:"criteria,omitempty" validate:"dive,min=1"`
}

// ValidationConfig holds external validation settings.
type ValidationConfig struct {
	Enabled        *bool         `yaml:"enabled,omitempty"`
	Sources        []string      `yaml:"sources,omitempty" validate:"dive,oneof=duckduckgo github feed"`
	Feeds          []string      `yaml:"feeds,omitempty" validate:"dive,url"`
	BatchSize      int           `yaml:"batch_size,omitempty" validate:"gte=1"`
	MinInterval    time.Duration `yaml:"min_interval,omitempty" validate:"gte=0"`
	SourceTimeout  time.Duration `yaml:"source_timeout,omitempty" validate:"gt=0"`
	MaxAttempts    int           `yaml:"max_attempts,omitempty" validate:"gte=1"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay,omitempty" validate:"gte=0"`
	MaxResults     int           `yaml:"max_results,omitempty" validate:"gte=1"`
}

// LLMConfig holds generation service settings. API keys come from the
// environment, never from this file.
type LLMConfig struct {
	Provider    string        `yaml:"provider,omitempty" validate:"oneof=openai mock"`
	Model       string        `yaml:"model,omitempty" validate:"required"`
	BaseURL     string        `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Temperature float64       `yaml:"temperature,omitempty" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens,omitempty" validate:"gt=0"`
	Timeout     time.Duration `yaml:"timeout,omitempty" validate:"gt=0"`
	MaxRetries  int           `yaml:"max_retries,omitempty" validate:"gte=1"`
}

// AgentsConfig holds agent role settings.
type AgentsConfig struct {
	AdversarialRoles  []string `yaml:"adversarial_roles,omitempty" validate:"min=2,dive,required"`
	AnalysisIntensity string   `yaml:"analysis_intensity,omitempty" validate:"oneof=mild moderate aggressive"`
	IdeasIntensity    string   `yaml:"ideas_intensity,omitempty" validate:"oneof=mild moderate aggressive"`
}

// OutputConfig holds where session artifacts go.
type OutputConfig struct {
	Dir        string `yaml:"dir,omitempty" validate:"required"`
	SessionLog *bool  `yaml:"session_log,omitempty"`
	History    *bool  `yaml:"history,omitempty"`
}

// Config is the top-level configuration loaded from .crucible.yaml.
type Config struct {
	Loop       LoopConfig        `yaml:"loop,omitempty"`
	Scoring    ScoringConfig     `yaml:"scoring,omitempty"`
	Validation ValidationConfig  `yaml:"validation,omitempty"`
	LLM        LLMConfig         `yaml:"llm,omitempty"`
	Agents     AgentsConfig      `yaml:"agents,omitempty"`
	Output     OutputConfig      `yaml:"output,omitempty"`
	Hooks      hooks.HooksConfig `yaml:"hooks,omitempty"`
}

var validate = validator.New()

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	criteria := make(map[models.Mode][]Criterion, len(DefaultCriteria))
	for mode, set := range DefaultCriteria {
		criteria[mode] = append([]Criterion(nil), set...)
	}
	return &Config{
		Loop: LoopConfig{
			MaxAnalysisIterations: DefaultMaxAnalysisIterations,
			MaxIdeaIterations:     DefaultMaxIdeaIterations,
			QualityThreshold:      DefaultQualityThreshold,
			ImprovementThreshold:  DefaultImprovementThreshold,
			DiversityThreshold:    DefaultDiversityThreshold,
			SkipIdeas:             boolPtr(false),
		},
		Scoring: ScoringConfig{
			RedFlagThreshold: DefaultRedFlagThreshold,
			Criteria:         criteria,
		},
		Validation: ValidationConfig{
			Enabled:        boolPtr(true),
			Sources:        []string{"duckduckgo", "github"},
			BatchSize:      DefaultBatchSize,
			MinInterval:    DefaultMinInterval,
			SourceTimeout:  DefaultSourceTimeout,
			MaxAttempts:    DefaultMaxAttempts,
			RetryBaseDelay: DefaultRetryBaseDelay,
			MaxResults:     DefaultMaxResults,
		},
		LLM: LLMConfig{
			Provider:    DefaultProvider,
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Timeout:     DefaultLLMTimeout,
			MaxRetries:  DefaultLLMRetries,
		},
		Agents: AgentsConfig{
			AdversarialRoles:  append([]string(nil), DefaultAdversarialRoles...),
			AnalysisIntensity: DefaultAnalysisIntensity,
			IdeasIntensity:    DefaultIdeasIntensity,
		},
		Output: OutputConfig{
			Dir:        DefaultOutputDir,
			SessionLog: boolPtr(true),
			History:    boolPtr(true),
		},
	}
}

// Load finds .crucible.yaml by walking up from startDir (max 10 levels),
// decodes it strictly, fills in missing fields with defaults and validates
// the result. A relative output.dir is resolved against the directory holding
// the file. If no config file is found, returns defaults with a nil error.
func Load(startDir string) (*Config, error) {
	path, data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Output.Dir = utils.ResolvePath(cfg.Output.Dir, filepath.Dir(path))
	return cfg, nil
}

// Parse decodes raw YAML onto the defaults and validates the result.
// Unknown keys and unknown criteria are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := New()

	var fileCfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	mergeConfig(cfg, &fileCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and that every configured criterion is known.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid %s: %w", FileName, err)
	}
	for _, mode := range sortedModes(c.Scoring.Criteria) {
		known, ok := DefaultCriteria[mode]
		if !ok {
			return fmt.Errorf("scoring mode %q: %w", mode, ErrUnknownCriterion)
		}
		seen := make(map[string]bool)
		for _, cr := range c.Scoring.Criteria[mode] {
			if !containsCriterion(known, cr.Name) {
				return fmt.Errorf("scoring.criteria.%s: %q: %w", mode, cr.Name, ErrUnknownCriterion)
			}
			if cr.Weight <= 0 {
				return fmt.Errorf("scoring.criteria.%s: %q: weight must be positive", mode, cr.Name)
			}
			if seen[cr.Name] {
				return fmt.Errorf("scoring.criteria.%s: %q listed twice", mode, cr.Name)
			}
			seen[cr.Name] = true
		}
	}
	return nil
}

// ValidationEnabled reports whether external validation should run.
func (c *Config) ValidationEnabled() bool {
	return c.Validation.Enabled != nil && *c.Validation.Enabled
}

// Settings returns the session-facing snapshot of this configuration.
func (c *Config) Settings() models.SessionSettings {
	return models.SessionSettings{
		MaxAnalysisIterations: c.Loop.MaxAnalysisIterations,
		MaxIdeaIterations:     c.Loop.MaxIdeaIterations,
		QualityThreshold:      c.Loop.QualityThreshold,
		ImprovementThreshold:  c.Loop.ImprovementThreshold,
		RedFlagThreshold:      c.Scoring.RedFlagThreshold,
		ValidationEnabled:     c.ValidationEnabled(),
		Model:                 c.LLM.Model,
	}
}

// findConfigFile walks up from dir looking for .crucible.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) (string, []byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	// Loop
	if src.Loop.MaxAnalysisIterations != 0 {
		dst.Loop.MaxAnalysisIterations = src.Loop.MaxAnalysisIterations
	}
	if src.Loop.MaxIdeaIterations != 0 {
		dst.Loop.MaxIdeaIterations = src.Loop.MaxIdeaIterations
	}
	if src.Loop.QualityThreshold != 0 {
		dst.Loop.QualityThreshold = src.Loop.QualityThreshold
	}
	if src.Loop.ImprovementThreshold != 0 {
		dst.Loop.ImprovementThreshold = src.Loop.ImprovementThreshold
	}
	if src.Loop.DiversityThreshold != 0 {
		dst.Loop.DiversityThreshold = src.Loop.DiversityThreshold
	}
	if src.Loop.SkipIdeas != nil {
		dst.Loop.SkipIdeas = src.Loop.SkipIdeas
	}

	// Scoring
	if src.Scoring.RedFlagThreshold != 0 {
		dst.Scoring.RedFlagThreshold = src.Scoring.RedFlagThreshold
	}
	for mode, set := range src.Scoring.Criteria {
		dst.Scoring.Criteria[mode] = set
	}

	// Validation
	if src.Validation.Enabled != nil {
		dst.Validation.Enabled = src.Validation.Enabled
	}
	if src.Validation.Sources != nil {
		dst.Validation.Sources = src.Validation.Sources
	}
	if src.Validation.Feeds != nil {
		dst.Validation.Feeds = src.Validation.Feeds
	}
	if src.Validation.BatchSize != 0 {
		dst.Validation.BatchSize = src.Validation.BatchSize
	}
	if src.Validation.MinInterval != 0 {
		dst.Validation.MinInterval = src.Validation.MinInterval
	}
	if src.Validation.SourceTimeout != 0 {
		dst.Validation.SourceTimeout = src.Validation.SourceTimeout
	}
	if src.Validation.MaxAttempts != 0 {
		dst.Validation.MaxAttempts = src.Validation.MaxAttempts
	}
	if src.Validation.RetryBaseDelay != 0 {
		dst.Validation.RetryBaseDelay = src.Validation.RetryBaseDelay
	}
	if src.Validation.MaxResults != 0 {
		dst.Validation.MaxResults = src.Validation.MaxResults
	}

	// LLM
	if src.LLM.Provider != "" {
		dst.LLM.Provider = src.LLM.Provider
	}
	if src.LLM.Model != "" {
		dst.LLM.Model = src.LLM.Model
	}
	if src.LLM.BaseURL != "" {
		dst.LLM.BaseURL = src.LLM.BaseURL
	}
	if src.LLM.Temperature != 0 {
		dst.LLM.Temperature = src.LLM.Temperature
	}
	if src.LLM.MaxTokens != 0 {
		dst.LLM.MaxTokens = src.LLM.MaxTokens
	}
	if src.LLM.Timeout != 0 {
		dst.LLM.Timeout = src.LLM.Timeout
	}
	if src.LLM.MaxRetries != 0 {
		dst.LLM.MaxRetries = src.LLM.MaxRetries
	}

	// Agents
	if src.Agents.AdversarialRoles != nil {
		dst.Agents.AdversarialRoles = src.Agents.AdversarialRoles
	}
	if src.Agents.AnalysisIntensity != "" {
		dst.Agents.AnalysisIntensity = src.Agents.AnalysisIntensity
	}
	if src.Agents.IdeasIntensity != "" {
		dst.Agents.IdeasIntensity = src.Agents.IdeasIntensity
	}

	// Output
	if src.Output.Dir != "" {
		dst.Output.Dir = src.Output.Dir
	}
	if src.Output.SessionLog != nil {
		dst.Output.SessionLog = src.Output.SessionLog
	}
	if src.Output.History != nil {
		dst.Output.History = src.Output.History
	}

	// Hooks
	if src.Hooks.BeforeSession != nil {
		dst.Hooks.BeforeSession = src.Hooks.BeforeSession
	}
	if src.Hooks.AfterSession != nil {
		dst.Hooks.AfterSession = src.Hooks.AfterSession
	}
}

func containsCriterion(set []Criterion, name string) bool {
	for _, c := range set {
		if c.Name == name {
			return true
		}
	}
	return false
}

func sortedModes(m map[models.Mode][]Criterion) []models.Mode {
	modes := make([]models.Mode, 0, len(m))
	for mode := range m {
		modes = append(modes, mode)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

func boolPtr(b bool) *bool {
	return &b
}
