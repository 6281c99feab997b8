package scoring

import (
	"fmt"
	"sort"

	"github.com/spboyer/crucible/internal/models"
)

// significantDelta is the smallest raw-score change counted as a real move.
const significantDelta = 0.5

// CriterionDelta is the raw-score change of one criterion between two scores.
type CriterionDelta struct {
	Criterion string  `json:"criterion"`
	Delta     float64 `json:"delta"`
}

// Comparison describes how a score moved between two iterations.
type Comparison struct {
	ScoreDelta       float64          `json:"score_delta"`
	PercentageDelta  float64          `json:"percentage_delta"`
	GradeChange      string           `json:"grade_change"`
	RedFlagDelta     int              `json:"red_flag_delta"`
	Improved         []CriterionDelta `json:"improved,omitempty"`
	Degraded         []CriterionDelta `json:"degraded,omitempty"`
	NewRedFlags      []string         `json:"new_red_flags,omitempty"`
	ResolvedRedFlags []string         `json:"resolved_red_flags,omitempty"`
}

// Compare reports the change from prev to cur.
func Compare(prev, cur *models.CompositeScore) Comparison {
	c := Comparison{
		ScoreDelta:      cur.FinalScore - prev.FinalScore,
		PercentageDelta: cur.Percentage - prev.Percentage,
		GradeChange:     fmt.Sprintf("%s -> %s", prev.Grade, cur.Grade),
		RedFlagDelta:    len(cur.RedFlags) - len(prev.RedFlags),
	}

	curRaw := cur.RawScores()
	for _, s := range prev.Scores {
		after, ok := curRaw[s.Criterion]
		if !ok {
			continue
		}
		diff := after - s.RawScore
		switch {
		case diff > significantDelta:
			c.Improved = append(c.Improved, CriterionDelta{s.Criterion, diff})
		case diff < -significantDelta:
			c.Degraded = append(c.Degraded, CriterionDelta{s.Criterion, diff})
		}
	}

	before := flagSet(prev)
	after := flagSet(cur)
	for name := range after {
		if !before[name] {
			c.NewRedFlags = append(c.NewRedFlags, name)
		}
	}
	for name := range before {
		if !after[name] {
			c.ResolvedRedFlags = append(c.ResolvedRedFlags, name)
		}
	}
	sort.Strings(c.NewRedFlags)
	sort.Strings(c.ResolvedRedFlags)
	return c
}

func flagSet(s *models.CompositeScore) map[string]bool {
	out := make(map[string]bool, len(s.RedFlags))
	for _, rf := range s.RedFlags {
		out[rf.Criterion] = true
	}
	return out
}

// Suggestions lists improvement hints: red flags first (most severe first,
// two mitigations each), then weak unflagged criteria, then strengths.
func Suggestions(score *models.CompositeScore) []string {
	var out []string

	if len(score.RedFlags) > 0 {
		flags := append([]models.RedFlag(nil), score.RedFlags...)
		sort.SliceStable(flags, func(i, j int) bool {
			return flags[i].Severity.Rank() > flags[j].Severity.Rank()
		})
		out = append(out, "PRIORITY: resolve red flags")
		for _, rf := range flags {
			out = append(out, fmt.Sprintf("  - %s (%s): %s", rf.Criterion, rf.Severity, rf.Description))
			for i, m := range rf.Mitigations {
				if i == 2 {
					break
				}
				out = append(out, "    * "+m)
			}
		}
	}

	var weak, strong []models.IndividualScore
	for _, s := range score.Scores {
		if s.RawScore < 6.0 && !score.HasRedFlag(s.Criterion) {
			weak = append(weak, s)
		}
		if s.RawScore >= 8.0 {
			strong = append(strong, s)
		}
	}

	if len(weak) > 0 {
		sort.SliceStable(weak, func(i, j int) bool { return weak[i].RawScore < weak[j].RawScore })
		out = append(out, "Needs improvement:")
		for _, s := range weak {
			out = append(out, fmt.Sprintf("  - %s: %.1f/10 (weight %.1f)", s.Criterion, s.RawScore, s.Weight))
		}
	}

	if len(strong) > 0 {
		sort.SliceStable(strong, func(i, j int) bool { return strong[i].RawScore > strong[j].RawScore })
		out = append(out, "Strengths to build on:")
		for _, s := range strong {
			out = append(out, fmt.Sprintf("  - %s: %.1f/10", s.Criterion, s.RawScore))
		}
	}

	return out
}
