// Package recommend derives follow-up advice from a finished session.
package recommend

import (
	"fmt"
	"sort"

	"github.com/spboyer/crucible/internal/models"
)

// Defaults for the advice thresholds.
const (
	DefaultLowScore       = 7.0
	DefaultMaxCheckpoints = 2
	maxFlagsNamed         = 3
)

// Input is the slice of a session the advice is based on. Ideas is nil
// when the idea loop was skipped.
type Input struct {
	Analysis *models.PhaseResult
	Ideas    *models.PhaseResult

	MaxAnalysisIterations int
	MaxIdeaIterations     int

	Checkpoints   int
	DegradedSteps int

	Diversity          *models.DiversityReport
	DiversityThreshold float64
}

// Engine computes heuristic recommendations for a session.
type Engine struct {
	// LowScore is the phase score below which quality advice is given.
	LowScore float64
	// MaxCheckpoints is the checkpoint count above which threshold advice is given.
	MaxCheckpoints int
}

// NewEngine creates a recommendation engine with default thresholds.
func NewEngine() *Engine {
	return &Engine{
		LowScore:       DefaultLowScore,
		MaxCheckpoints: DefaultMaxCheckpoints,
	}
}

// Recommend returns advice in a fixed order: iteration budgets, checkpoints,
// phase quality, unresolved red flags, diversity and degraded steps. A
// session that triggers none of them gets a single success line.
func (e *Engine) Recommend(in Input) []string {
	var out []string

	if reachedBudget(in.Analysis, in.MaxAnalysisIterations) {
		out = append(out, "Analysis phase reached maximum iterations - consider increasing analysis depth in future runs")
	}
	if reachedBudget(in.Ideas, in.MaxIdeaIterations) {
		out = append(out, "Ideas phase reached maximum iterations - consider refining idea generation criteria")
	}
	if in.Checkpoints > e.MaxCheckpoints {
		out = append(out, "Multiple checkpoints triggered - consider adjusting quality thresholds")
	}
	if in.Analysis != nil && in.Analysis.FinalScore < e.LowScore {
		out = append(out, fmt.Sprintf("Analysis quality could be improved (%.1f/10) - consider more comprehensive data sources", in.Analysis.FinalScore))
	}
	if in.Ideas != nil && in.Ideas.FinalScore < e.LowScore {
		out = append(out, fmt.Sprintf("Ideas quality could be improved (%.1f/10) - consider more rigorous validation criteria", in.Ideas.FinalScore))
	}

	out = append(out, flagAdvice(in.Analysis)...)
	out = append(out, flagAdvice(in.Ideas)...)

	if d := in.Diversity; d != nil && d.CandidateCount > 1 {
		if d.DiversityScore < in.DiversityThreshold {
			out = append(out, fmt.Sprintf("Idea diversity is low (%.2f) - ask for ideas that differ in audience, business model or technology", d.DiversityScore))
		}
		if len(d.Duplicates) > 0 {
			out = append(out, fmt.Sprintf("%d near-duplicate idea pair(s) remain - merge or replace them", len(d.Duplicates)))
		}
	}

	if in.DegradedSteps > 0 {
		out = append(out, fmt.Sprintf("%d pipeline step(s) ran degraded - check model and source availability", in.DegradedSteps))
	}

	if len(out) == 0 {
		out = append(out, "Session completed successfully with good quality metrics")
	}
	return out
}

func reachedBudget(p *models.PhaseResult, max int) bool {
	return p != nil && max > 0 && p.Iterations >= max && p.StopReason == models.ReasonResourceExhausted
}

// flagAdvice names the most severe red flags left on a carried-forward result.
func flagAdvice(p *models.PhaseResult) []string {
	if p == nil || len(p.RedFlags) == 0 {
		return nil
	}
	flags := append([]models.RedFlag(nil), p.RedFlags...)
	sort.SliceStable(flags, func(a, b int) bool {
		return flags[a].Severity.Rank() > flags[b].Severity.Rank()
	})
	if len(flags) > maxFlagsNamed {
		flags = flags[:maxFlagsNamed]
	}
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, fmt.Sprintf("Unresolved %s red flag in %s: %s scored %.1f", f.Severity, p.Phase, f.Criterion, f.Score))
	}
	return out
}
