package models

import "time"

// Severity grades how serious a red flag is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from least (0) to most (3) serious.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 1
	}
}

// IndividualScore is the score for a single criterion.
type IndividualScore struct {
	Criterion     string   `json:"criterion"`
	RawScore      float64  `json:"raw_score"`
	Weight        float64  `json:"weight"`
	WeightedScore float64  `json:"weighted_score"`
	MaxPossible   float64  `json:"max_possible"`
	Percentage    float64  `json:"percentage"`
	Rationale     string   `json:"rationale,omitempty"`
	Evidence      []string `json:"evidence,omitempty"`

	// Defaulted is set when the neutral default replaced a missing score.
	Defaulted bool `json:"defaulted,omitempty"`
}

// RedFlag marks a criterion whose raw score fell below the red-flag threshold.
type RedFlag struct {
	Criterion   string   `json:"criterion"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Impact      string   `json:"impact"`
	Mitigations []string `json:"mitigations,omitempty"`
	Score       float64  `json:"score"`
	Threshold   float64  `json:"threshold"`
}

// CompositeScore is the weighted aggregate over every criterion of a mode.
type CompositeScore struct {
	Mode               Mode              `json:"mode"`
	Scores             []IndividualScore `json:"scores"`
	TotalWeightedScore float64           `json:"total_weighted_score"`
	TotalPossibleScore float64           `json:"total_possible_score"`
	FinalScore         float64           `json:"final_score"`
	Percentage         float64           `json:"percentage"`
	Grade              string            `json:"grade"`
	RedFlags           []RedFlag         `json:"red_flags,omitempty"`
	Timestamp          time.Time         `json:"timestamp"`
}

// Score returns the individual score for criterion, if present.
func (c *CompositeScore) Score(criterion string) (IndividualScore, bool) {
	if c == nil {
		return IndividualScore{}, false
	}
	for _, s := range c.Scores {
		if s.Criterion == criterion {
			return s, true
		}
	}
	return IndividualScore{}, false
}

// RawScores flattens the composite into criterion → raw score.
func (c *CompositeScore) RawScores() map[string]float64 {
	out := make(map[string]float64, len(c.Scores))
	for _, s := range c.Scores {
		out[s.Criterion] = s.RawScore
	}
	return out
}

// HasRedFlag reports whether criterion is flagged.
func (c *CompositeScore) HasRedFlag(criterion string) bool {
	for _, rf := range c.RedFlags {
		if rf.Criterion == criterion {
			return true
		}
	}
	return false
}
