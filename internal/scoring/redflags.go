package scoring

import (
	"fmt"

	"github.com/spboyer/crucible/internal/models"
)

// severityLadder is checked in order; the first threshold the raw score does
// not exceed wins.
var severityLadder = []struct {
	severity models.Severity
	max      float64
}{
	{models.SeverityCritical, 2.0},
	{models.SeverityHigh, 2.5},
	{models.SeverityMedium, 3.0},
	{models.SeverityLow, 3.5},
}

// SeverityFor classifies a flagged raw score. Scores above every step are medium.
func SeverityFor(raw float64) models.Severity {
	for _, step := range severityLadder {
		if raw <= step.max {
			return step.severity
		}
	}
	return models.SeverityMedium
}

type flagText struct {
	description string
	impact      string
	mitigations []string
}

var flagCatalog = map[string]flagText{
	"logic": {
		"Reasoning lacks logic or contains serious fallacies",
		"May lead to wrong decisions",
		[]string{"Review and strengthen the logical reasoning", "Eliminate fallacies and inconsistencies", "Add more structured argumentation"},
	},
	"comprehensiveness": {
		"Analysis misses important perspectives or key factors",
		"Opportunities or major risks are overlooked",
		[]string{"Conduct a more comprehensive analysis", "Consider additional perspectives", "Expand the scope of investigation"},
	},
	"consistency": {
		"Sections contradict each other",
		"Causes confusion and reduces credibility",
		[]string{"Reconcile contradictions", "Ensure consistent messaging", "Align all parts of the analysis"},
	},
	"evidence": {
		"Concrete evidence is missing or data is unreliable",
		"Conclusions cannot be trusted",
		[]string{"Gather more reliable data sources", "Add quantitative evidence", "Verify information accuracy"},
	},
	"depth": {
		"Analysis is shallow and lacks detail and insight",
		"Not enough insight to make the right decision",
		[]string{"Conduct deeper research", "Add more detailed analysis", "Spell out insights and implications"},
	},
	"feasibility": {
		"Idea is hard to execute technically or financially",
		"The venture may fail in execution",
		[]string{"Reassess technical requirements", "Consider simpler implementation approaches", "Validate assumptions with experts"},
	},
	"market_potential": {
		"Market is too small or the timing is wrong",
		"Scale and profitability are hard to reach",
		[]string{"Research market size more thoroughly", "Consider alternative market segments", "Validate market timing assumptions"},
	},
	"creativity": {
		"Idea lacks originality or is too generic",
		"Competitors can easily overtake it",
		[]string{"Add unique differentiators", "Explore innovative approaches", "Combine existing solutions creatively"},
	},
	"business_model": {
		"Business model is unsustainable or unclear",
		"Hard to raise funding and reach sustainability",
		[]string{"Clarify revenue streams", "Validate unit economics", "Test business model assumptions"},
	},
	"competitive_advantage": {
		"No competitive advantage or easy to copy",
		"Competitors can copy and replace it",
		[]string{"Develop stronger moats", "Build network effects", "Create switching costs"},
	},
	"technical_risk": {
		"Technical risk is too high or too complex",
		"Technical failure or delay is likely",
		[]string{"Simplify the technical approach", "Build prototypes to validate", "Plan for technical contingencies"},
	},
	"initial_investment": {
		"Required capital is too large for the potential return",
		"Hard to raise funding or low ROI",
		[]string{"Reduce initial capital requirements", "Consider a phased approach", "Explore alternative funding sources"},
	},
}

func newRedFlag(criterion string, raw, threshold float64) models.RedFlag {
	text, ok := flagCatalog[criterion]
	if !ok {
		text = flagText{
			description: fmt.Sprintf("Score for %s is too low", criterion),
			impact:      "May affect overall quality",
			mitigations: []string{fmt.Sprintf("Improve %s", criterion)},
		}
	}
	return models.RedFlag{
		Criterion:   criterion,
		Severity:    SeverityFor(raw),
		Description: text.description,
		Impact:      text.impact,
		Mitigations: append([]string(nil), text.mitigations...),
		Score:       raw,
		Threshold:   threshold,
	}
}
