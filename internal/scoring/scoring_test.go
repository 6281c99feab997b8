package scoring

import (
	"math"
	"testing"

	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/projectconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equalWeights(names ...string) map[models.Mode][]projectconfig.Criterion {
	set := make([]projectconfig.Criterion, 0, len(names))
	for _, n := range names {
		set = append(set, projectconfig.Criterion{Name: n, Weight: 1})
	}
	return map[models.Mode][]projectconfig.Criterion{models.ModeAnalysis: set}
}

func newTestEngine(t *testing.T, criteria map[models.Mode][]projectconfig.Criterion) *Engine {
	t.Helper()
	e, err := NewEngine(criteria, 3.0)
	require.NoError(t, err)
	return e
}

func TestScore_EqualWeights(t *testing.T) {
	e := newTestEngine(t, equalWeights("logic", "consistency", "evidence"))

	got, err := e.Score(models.ModeAnalysis, map[string]float64{"logic": 8, "consistency": 7, "evidence": 9}, Notes{})
	require.NoError(t, err)

	assert.InDelta(t, 8.0, got.FinalScore, 1e-9)
	assert.InDelta(t, 80.0, got.Percentage, 1e-9)
	assert.Equal(t, "B+", got.Grade)
	assert.Empty(t, got.RedFlags)
	assert.InDelta(t, 24.0, got.TotalWeightedScore, 1e-9)
	assert.InDelta(t, 30.0, got.TotalPossibleScore, 1e-9)
	require.Len(t, got.Scores, 3)
	assert.Equal(t, "logic", got.Scores[0].Criterion)
	assert.InDelta(t, 80.0, got.Scores[0].Percentage, 1e-9)
}

func TestScore_DefaultWeights(t *testing.T) {
	e, err := NewEngineFromConfig(projectconfig.New())
	require.NoError(t, err)

	raw := map[string]float64{"logic": 9, "comprehensiveness": 8, "consistency": 7, "evidence": 6, "depth": 5}
	got, err := e.Score(models.ModeAnalysis, raw, Notes{Rationale: map[string]string{"logic": "tight"}})
	require.NoError(t, err)

	// (18 + 14.4 + 10.5 + 13.2 + 7.5) / 90 * 10
	assert.InDelta(t, 63.6/9.0, got.FinalScore, 1e-9)
	assert.Equal(t, "B", got.Grade)
	assert.Equal(t, "tight", got.Scores[0].Rationale)
}

func TestScore_MissingCriterionDefaultsToNeutral(t *testing.T) {
	e := newTestEngine(t, equalWeights("logic", "evidence"))

	got, err := e.Score(models.ModeAnalysis, map[string]float64{"logic": 9}, Notes{})
	require.NoError(t, err)

	s, ok := got.Score("evidence")
	require.True(t, ok)
	assert.Equal(t, NeutralScore, s.RawScore)
	assert.True(t, s.Defaulted)
	assert.InDelta(t, 7.0, got.FinalScore, 1e-9)
}

func TestScore_NaNAndOutOfRange(t *testing.T) {
	e := newTestEngine(t, equalWeights("logic", "evidence", "depth"))

	got, err := e.Score(models.ModeAnalysis, map[string]float64{"logic": math.NaN(), "evidence": 14, "depth": -2}, Notes{})
	require.NoError(t, err)

	logic, _ := got.Score("logic")
	evidence, _ := got.Score("evidence")
	depth, _ := got.Score("depth")
	assert.True(t, logic.Defaulted)
	assert.Equal(t, 10.0, evidence.RawScore)
	assert.Equal(t, 1.0, depth.RawScore)
	assert.GreaterOrEqual(t, got.FinalScore, 0.0)
	assert.LessOrEqual(t, got.FinalScore, 10.0)
}

func TestScore_UnknownMode(t *testing.T) {
	e := newTestEngine(t, equalWeights("logic"))
	_, err := e.Score(models.ModeIdeas, nil, Notes{})
	require.Error(t, err)
}

func TestScore_RedFlagBoundary(t *testing.T) {
	tests := []struct {
		raw      float64
		flagged  bool
		severity models.Severity
	}{
		{raw: 3.0, flagged: false},
		{raw: 2.99, flagged: true, severity: models.SeverityMedium},
		{raw: 2.5, flagged: true, severity: models.SeverityHigh},
		{raw: 2.2, flagged: true, severity: models.SeverityHigh},
		{raw: 2.0, flagged: true, severity: models.SeverityCritical},
		{raw: 1.0, flagged: true, severity: models.SeverityCritical},
	}

	e := newTestEngine(t, equalWeights("logic"))
	for _, tt := range tests {
		got, err := e.Score(models.ModeAnalysis, map[string]float64{"logic": tt.raw}, Notes{})
		require.NoError(t, err)
		if !tt.flagged {
			assert.Empty(t, got.RedFlags, "raw %v", tt.raw)
			continue
		}
		require.Len(t, got.RedFlags, 1, "raw %v", tt.raw)
		rf := got.RedFlags[0]
		assert.Equal(t, tt.severity, rf.Severity, "raw %v", tt.raw)
		assert.Equal(t, "logic", rf.Criterion)
		assert.Equal(t, 3.0, rf.Threshold)
		assert.NotEmpty(t, rf.Description)
		assert.Len(t, rf.Mitigations, 3)
	}
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, models.SeverityCritical, SeverityFor(1.5))
	assert.Equal(t, models.SeverityHigh, SeverityFor(2.4))
	assert.Equal(t, models.SeverityMedium, SeverityFor(2.8))
	assert.Equal(t, models.SeverityLow, SeverityFor(3.3))
	assert.Equal(t, models.SeverityMedium, SeverityFor(3.9))
}

func TestScore_HigherThresholdUsesLowSeverity(t *testing.T) {
	e, err := NewEngine(equalWeights("depth"), 4.0)
	require.NoError(t, err)

	got, err := e.Score(models.ModeAnalysis, map[string]float64{"depth": 3.2}, Notes{})
	require.NoError(t, err)
	require.Len(t, got.RedFlags, 1)
	assert.Equal(t, models.SeverityLow, got.RedFlags[0].Severity)
}

func TestScore_UnknownCriterionGetsGenericFlagText(t *testing.T) {
	e := newTestEngine(t, equalWeights("clarity"))
	got, err := e.Score(models.ModeAnalysis, map[string]float64{"clarity": 1}, Notes{})
	require.NoError(t, err)
	require.Len(t, got.RedFlags, 1)
	assert.Contains(t, got.RedFlags[0].Description, "clarity")
}

func TestScore_FinalScoreAlwaysInRange(t *testing.T) {
	e, err := NewEngineFromConfig(projectconfig.New())
	require.NoError(t, err)

	for _, v := range []float64{-100, 0, 1, 5.5, 10, 1000} {
		raw := map[string]float64{}
		for _, c := range e.Criteria(models.ModeIdeas) {
			raw[c.Name] = v
		}
		got, err := e.Score(models.ModeIdeas, raw, Notes{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.FinalScore, 0.0)
		assert.LessOrEqual(t, got.FinalScore, 10.0)
	}
}

func TestScore_MonotonicInEachCriterion(t *testing.T) {
	e, err := NewEngineFromConfig(projectconfig.New())
	require.NoError(t, err)

	final := func(t *testing.T, mode models.Mode, criterion string, v float64) float64 {
		t.Helper()
		raw := map[string]float64{}
		for _, c := range e.Criteria(mode) {
			raw[c.Name] = 7.0
		}
		raw[criterion] = v
		got, err := e.Score(mode, raw, Notes{})
		require.NoError(t, err)
		return got.FinalScore
	}

	for _, mode := range []models.Mode{models.ModeAnalysis, models.ModeIdeas} {
		for _, c := range e.Criteria(mode) {
			t.Run(string(mode)+"/"+c.Name, func(t *testing.T) {
				prev := math.Inf(-1)
				for v := 0.0; v <= 11.0; v += 0.25 {
					got := final(t, mode, c.Name, v)
					require.GreaterOrEqual(t, got, prev, "raw %.2f", v)
					prev = got
				}

				assert.Equal(t, final(t, mode, c.Name, MinRawScore), final(t, mode, c.Name, 0))
				assert.Equal(t, final(t, mode, c.Name, MaxRawScore), final(t, mode, c.Name, 11))
				assert.Less(t, final(t, mode, c.Name, 2), final(t, mode, c.Name, 9))
				assert.Equal(t, final(t, mode, c.Name, NeutralScore), final(t, mode, c.Name, math.NaN()))
			})
		}
	}
}

func TestNewEngine_Rejects(t *testing.T) {
	_, err := NewEngine(nil, 3)
	require.Error(t, err)

	_, err = NewEngine(map[models.Mode][]projectconfig.Criterion{models.ModeAnalysis: {}}, 3)
	require.Error(t, err)

	_, err = NewEngine(map[models.Mode][]projectconfig.Criterion{
		models.ModeAnalysis: {{Name: "logic", Weight: 0}},
	}, 3)
	require.Error(t, err)
}

func TestNeutralScores(t *testing.T) {
	e := newTestEngine(t, equalWeights("logic", "depth"))
	assert.Equal(t, map[string]float64{"logic": 5, "depth": 5}, e.NeutralScores(models.ModeAnalysis))

	got, err := e.Score(models.ModeAnalysis, e.NeutralScores(models.ModeAnalysis), Notes{})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got.FinalScore, 1e-9)
	assert.Equal(t, "C", got.Grade)
}
