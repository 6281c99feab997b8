package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/spboyer/crucible/internal/models"
)

// InterpretScore returns a plain-language label for a final score (0–10).
func InterpretScore(score float64) string {
	switch {
	case score >= 9:
		return "Excellent (9-10)"
	case score >= 7:
		return "Good (7-9)"
	case score >= 5:
		return "Needs Work (5-7)"
	default:
		return "Poor (<5)"
	}
}

// InterpretStopReason explains why a loop phase ended.
func InterpretStopReason(reason models.DecisionReason) string {
	switch reason {
	case models.ReasonQualityAchieved:
		return "Stopped because the quality target was reached with no red flags."
	case models.ReasonResourceExhausted:
		return "Stopped at the iteration budget; the best iteration was carried forward."
	case models.ReasonUserStopped:
		return "Stopped at a checkpoint."
	case "":
		return "Did not run."
	default:
		return fmt.Sprintf("Stopped: %s.", reason)
	}
}

// InterpretImprovement explains a phase's score trajectory.
func InterpretImprovement(q models.QualityMetrics) string {
	if len(q.Scores) < 2 {
		return "Only one iteration ran, so there is no trajectory to judge."
	}
	switch {
	case q.Improvement > 0:
		return fmt.Sprintf("Improved by %.2f points over %d iterations (normalized gain %.2f).", q.Improvement, len(q.Scores), q.NormalizedGain)
	case q.Improvement < 0:
		return fmt.Sprintf("Declined by %.2f points over %d iterations; the best iteration was kept.", -q.Improvement, len(q.Scores))
	default:
		return fmt.Sprintf("Flat across %d iterations.", len(q.Scores))
	}
}

// FormatSessionReport produces a plain-language report of a finished session.
func FormatSessionReport(s *models.Session) string {
	var b strings.Builder
	d := s.Deliverables
	if d == nil {
		fmt.Fprintf(&b, "Session %s did not finish (phase %s).\n", s.ID, s.Phase)
		return b.String()
	}

	duration := d.Summary.EndedAt.Sub(d.Summary.StartedAt).Round(time.Millisecond)

	b.WriteString("=== Interpretation ===\n\n")
	fmt.Fprintf(&b, "Topic:       %s\n", s.Topic)
	fmt.Fprintf(&b, "Duration:    %v\n", duration)
	fmt.Fprintf(&b, "Checkpoints: %d\n", d.Summary.Checkpoints)
	fmt.Fprintf(&b, "Degraded:    %d step(s)\n", d.Summary.DegradedSteps)

	writePhase(&b, "Analysis", d.Analysis, d.AnalysisQuality)
	writePhase(&b, "Ideas", d.Ideas, d.IdeasQuality)

	if div := d.Diversity; div != nil && div.CandidateCount > 0 {
		fmt.Fprintf(&b, "\nDiversity: %.2f across %d ideas, %d near-duplicate pair(s)\n",
			div.DiversityScore, div.CandidateCount, len(div.Duplicates))
	}

	if len(d.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range d.Recommendations {
			fmt.Fprintf(&b, "  • %s\n", rec)
		}
	}
	return b.String()
}

func writePhase(b *strings.Builder, title string, res *models.PhaseResult, q models.QualityMetrics) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if res == nil {
		b.WriteString("  Skipped.\n")
		return
	}
	icon := "✓"
	if len(res.RedFlags) > 0 || res.StopReason != models.ReasonQualityAchieved {
		icon = "✗"
	}
	fmt.Fprintf(b, "  %s Score: %.2f (%s) — %s\n", icon, res.FinalScore, res.Grade, InterpretScore(res.FinalScore))
	fmt.Fprintf(b, "    Best iteration %d of %d\n", res.BestIteration, res.Iterations)
	fmt.Fprintf(b, "    %s\n", InterpretStopReason(res.StopReason))
	fmt.Fprintf(b, "    %s\n", InterpretImprovement(q))
	if len(q.Scores) > 1 {
		fmt.Fprintf(b, "    95%% CI of mean score: [%.2f, %.2f]\n", q.CILower, q.CIUpper)
	}
	for _, f := range res.RedFlags {
		fmt.Fprintf(b, "    [%s] %s scored %.1f\n", strings.ToUpper(string(f.Severity)), f.Criterion, f.Score)
	}
}
