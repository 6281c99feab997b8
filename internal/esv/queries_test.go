package esv

import (
	"testing"

	"github.com/spboyer/crucible/internal/models"
	"github.com/stretchr/testify/require"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want []string
	}{
		{
			name: "frequency then first appearance",
			text: "Remote work tools. Remote teams need async tools and remote rituals.",
			n:    3,
			want: []string{"remote", "tools", "work"},
		},
		{
			name: "stop words and short words dropped",
			text: "They would have made the app with more data",
			n:    5,
			want: []string{"data"},
		},
		{
			name: "digits split words",
			text: "web3 platform platform",
			n:    5,
			want: []string{"platform"},
		},
		{
			name: "zero requested",
			text: "anything here",
			n:    0,
			want: nil,
		},
		{
			name: "empty text",
			text: "",
			n:    3,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractKeywords(tt.text, tt.n))
		})
	}
}

func TestBuildQueriesAnalysis(t *testing.T) {
	queries := BuildQueries(models.ModeAnalysis, "Solar energy storage. Solar adoption and energy policy.")

	require.Equal(t, []models.SearchQuery{
		{Text: "trend solar", Type: models.QueryTypeTrend, Priority: models.PriorityMedium},
		{Text: "trend energy", Type: models.QueryTypeTrend, Priority: models.PriorityMedium},
		{Text: "trend storage", Type: models.QueryTypeTrend, Priority: models.PriorityMedium},
	}, queries)
}

func TestBuildQueriesIdeasCapped(t *testing.T) {
	queries := BuildQueries(models.ModeIdeas, "fintech fintech fintech lending lending payroll")

	require.Len(t, queries, MaxQueriesPerIteration)
	require.Equal(t, models.SearchQuery{Text: "startup fintech competitors", Type: models.QueryTypeCompetitor, Priority: models.PriorityHigh}, queries[0])
	require.Equal(t, models.SearchQuery{Text: "market size fintech", Type: models.QueryTypeMarketSize, Priority: models.PriorityMedium}, queries[1])
	require.Equal(t, "startup payroll competitors", queries[4].Text)
}

func TestBuildQueriesNoKeywords(t *testing.T) {
	require.Empty(t, BuildQueries(models.ModeAnalysis, "the and for"))
}

func TestSummarize(t *testing.T) {
	results := []*models.ValidationResult{
		{Status: models.ValidationConfirmed, Confidence: 0.8, KeyFindings: []string{"a", "b", "c"}},
		{Status: models.ValidationPartial, Confidence: 0.6, KeyFindings: []string{"d", "e", "f"}},
		nil,
		{Status: models.ValidationInconclusive, Confidence: 0.3},
		{Status: models.ValidationInconclusive, Confidence: 0},
	}

	s := Summarize(results)
	require.Equal(t, 4, s.Total)
	require.Equal(t, 1, s.Confirmed)
	require.Equal(t, 1, s.Partial)
	require.Equal(t, 2, s.Inconclusive)
	require.InDelta(t, 0.425, s.MeanConfidence, 1e-9)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, s.KeyFindings)

	empty := Summarize(nil)
	require.Zero(t, empty.Total)
	require.Zero(t, empty.MeanConfidence)
}
