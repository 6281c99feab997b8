// Package scoring turns per-criterion raw scores into a weighted composite
// score with a letter grade and red flags.
package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/projectconfig"
)

const (
	// MinRawScore and MaxRawScore bound every raw criterion score.
	MinRawScore = 1.0
	MaxRawScore = 10.0

	// NeutralScore replaces a missing or unusable raw score.
	NeutralScore = 5.0
)

// Notes carries optional per-criterion rationale and evidence.
type Notes struct {
	Rationale map[string]string
	Evidence  map[string][]string
}

// Scorer computes a composite score for a mode.
type Scorer interface {
	Score(mode models.Mode, raw map[string]float64, notes Notes) (*models.CompositeScore, error)
}

// Engine is the weighted scoring engine.
type Engine struct {
	criteria         map[models.Mode][]projectconfig.Criterion
	redFlagThreshold float64
	now              func() time.Time
}

// NewEngine creates an engine over the given criteria sets. Every set must be
// non-empty and every weight positive.
func NewEngine(criteria map[models.Mode][]projectconfig.Criterion, redFlagThreshold float64) (*Engine, error) {
	if len(criteria) == 0 {
		return nil, fmt.Errorf("scoring engine needs at least one criteria set")
	}
	sets := make(map[models.Mode][]projectconfig.Criterion, len(criteria))
	for mode, set := range criteria {
		if len(set) == 0 {
			return nil, fmt.Errorf("criteria set for mode %q is empty", mode)
		}
		for _, c := range set {
			if c.Weight <= 0 {
				return nil, fmt.Errorf("criterion %s/%s: weight must be positive, got %v", mode, c.Name, c.Weight)
			}
		}
		sets[mode] = append([]projectconfig.Criterion(nil), set...)
	}
	return &Engine{
		criteria:         sets,
		redFlagThreshold: redFlagThreshold,
		now:              time.Now,
	}, nil
}

// NewEngineFromConfig creates an engine from the scoring section of cfg.
func NewEngineFromConfig(cfg *projectconfig.Config) (*Engine, error) {
	return NewEngine(cfg.Scoring.Criteria, cfg.Scoring.RedFlagThreshold)
}

// Criteria returns the criteria set for mode.
func (e *Engine) Criteria(mode models.Mode) []projectconfig.Criterion {
	return e.criteria[mode]
}

// RedFlagThreshold returns the raw score below which a criterion is flagged.
func (e *Engine) RedFlagThreshold() float64 {
	return e.redFlagThreshold
}

// Score computes the composite score for mode. Missing criteria fall back to
// NeutralScore and out-of-range scores are clamped. The only error is an
// unknown mode.
func (e *Engine) Score(mode models.Mode, raw map[string]float64, notes Notes) (*models.CompositeScore, error) {
	set, ok := e.criteria[mode]
	if !ok {
		return nil, fmt.Errorf("no criteria configured for mode %q", mode)
	}

	result := &models.CompositeScore{
		Mode:      mode,
		Scores:    make([]models.IndividualScore, 0, len(set)),
		Timestamp: e.now().UTC(),
	}

	for _, c := range set {
		value, defaulted := rawValue(mode, c.Name, raw)

		s := models.IndividualScore{
			Criterion:     c.Name,
			RawScore:      value,
			Weight:        c.Weight,
			WeightedScore: value * c.Weight,
			MaxPossible:   MaxRawScore * c.Weight,
			Rationale:     notes.Rationale[c.Name],
			Evidence:      notes.Evidence[c.Name],
			Defaulted:     defaulted,
		}
		s.Percentage = s.WeightedScore / s.MaxPossible * 100
		result.Scores = append(result.Scores, s)

		result.TotalWeightedScore += s.WeightedScore
		result.TotalPossibleScore += s.MaxPossible

		if value < e.redFlagThreshold {
			result.RedFlags = append(result.RedFlags, newRedFlag(c.Name, value, e.redFlagThreshold))
		}
	}

	if result.TotalPossibleScore > 0 {
		result.FinalScore = result.TotalWeightedScore / result.TotalPossibleScore * 10
		result.Percentage = result.TotalWeightedScore / result.TotalPossibleScore * 100
	}
	result.Grade = GradeFor(result.FinalScore).String()

	slog.Debug("Composite score computed",
		"mode", mode,
		"final", result.FinalScore,
		"grade", result.Grade,
		"redFlags", len(result.RedFlags))

	return result, nil
}

func rawValue(mode models.Mode, criterion string, raw map[string]float64) (float64, bool) {
	v, ok := raw[criterion]
	if !ok || math.IsNaN(v) {
		slog.Warn("Missing score for criterion, using neutral default",
			"mode", mode, "criterion", criterion, "default", NeutralScore)
		return NeutralScore, true
	}
	if v < MinRawScore || v > MaxRawScore {
		clamped := math.Max(MinRawScore, math.Min(MaxRawScore, v))
		slog.Warn("Score out of range, clamping",
			"mode", mode, "criterion", criterion, "score", v, "clamped", clamped)
		return clamped, false
	}
	return v, false
}

// NeutralScores returns the neutral default for every criterion of mode.
func (e *Engine) NeutralScores(mode models.Mode) map[string]float64 {
	out := make(map[string]float64, len(e.criteria[mode]))
	for _, c := range e.criteria[mode] {
		out[c.Name] = NeutralScore
	}
	return out
}
