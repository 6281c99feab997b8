package agents

import (
	"context"
	"testing"

	"github.com/spboyer/crucible/internal/execution"
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/projectconfig"
	"github.com/stretchr/testify/require"
)

func TestParseSynthesis(t *testing.T) {
	text := "Here is my assessment:\n```json\n" + `{
		"summary": "Solid but thin on evidence",
		"scores": {
			"logic": {"score": 8, "rationale": "coherent", "evidence": ["section 2"]},
			"evidence": 4.5
		},
		"strengths": ["clear structure"],
		"weaknesses": ["few sources"]
	}` + "\n```"

	s, err := ParseSynthesis(text)
	require.NoError(t, err)
	require.Equal(t, "Solid but thin on evidence", s.Summary)
	require.Equal(t, map[string]float64{"logic": 8, "evidence": 4.5}, s.RawScores())
	require.Equal(t, []string{"clear structure"}, s.Strengths)
	require.Equal(t, []string{"few sources"}, s.Weaknesses)

	notes := s.Notes()
	require.Equal(t, "coherent", notes.Rationale["logic"])
	require.Equal(t, []string{"section 2"}, notes.Evidence["logic"])
	require.Empty(t, notes.Rationale["evidence"])
}

func TestParseSynthesisViolations(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		contains string
	}{
		{name: "prose only", text: "I think it is a 7 out of 10.", contains: "no JSON object"},
		{name: "broken json", text: `{"summary": "x", "scores": {`, contains: "no JSON object"},
		{name: "invalid json", text: `{"summary": "x", "scores": {"logic": }}`, contains: "invalid character"},
		{name: "missing scores", text: `{"summary": "x"}`, contains: "scores"},
		{name: "empty scores", text: `{"summary": "x", "scores": {}}`, contains: "/scores"},
		{name: "string score", text: `{"summary": "x", "scores": {"logic": "high"}}`, contains: "/scores/logic"},
		{name: "object without score", text: `{"summary": "x", "scores": {"logic": {"rationale": "r"}}}`, contains: "/scores/logic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSynthesis(tt.text)
			require.ErrorIs(t, err, ErrContractViolation)
			require.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestNeutralSynthesis(t *testing.T) {
	s := NeutralSynthesis("bad output")
	require.Equal(t, "Assessment unavailable: bad output", s.Summary)
	require.Empty(t, s.RawScores())
}

func TestScriptOffline(t *testing.T) {
	cfg := projectconfig.New()
	engine := ScriptOffline(execution.NewMockEngine("offline"), cfg.Scoring.Criteria)

	synth := New(Synthesizer{}, engine, Settings{})
	primary := New(Primary{}, engine, Settings{})

	for iteration, want := range map[int]float64{1: 6.0, 3: 9.0, 6: 9.5} {
		out, err := synth.Run(context.Background(), Task{Topic: "t", Iteration: iteration, Criteria: cfg.Scoring.Criteria[models.ModeIdeas]})
		require.NoError(t, err)

		s, err := ParseSynthesis(out.Text)
		require.NoError(t, err)
		require.Equal(t, want, s.Scores["feasibility"].Score)
		require.Equal(t, want, s.Scores["logic"].Score)
	}

	ideas, err := primary.Run(context.Background(), Task{Mode: models.ModeIdeas, Topic: "t", Iteration: 2})
	require.NoError(t, err)
	require.Contains(t, ideas.Text, "## 2. Farm equipment rental marketplace")

	analysis, err := primary.Run(context.Background(), Task{Mode: models.ModeAnalysis, Topic: "t", Iteration: 1})
	require.NoError(t, err)
	require.Contains(t, analysis.Text, "# Analysis (draft 1)")
}
