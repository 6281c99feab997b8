package scoring

import (
	"testing"

	"github.com/spboyer/crucible/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	e := newTestEngine(t, equalWeights("logic", "consistency", "evidence", "depth"))

	prev, err := e.Score(models.ModeAnalysis, map[string]float64{"logic": 2, "consistency": 7, "evidence": 6, "depth": 8}, Notes{})
	require.NoError(t, err)
	cur, err := e.Score(models.ModeAnalysis, map[string]float64{"logic": 6, "consistency": 7.3, "evidence": 2.5, "depth": 7}, Notes{})
	require.NoError(t, err)

	c := Compare(prev, cur)
	assert.InDelta(t, cur.FinalScore-prev.FinalScore, c.ScoreDelta, 1e-9)
	assert.Equal(t, prev.Grade+" -> "+cur.Grade, c.GradeChange)
	assert.Equal(t, 0, c.RedFlagDelta)
	require.Len(t, c.Improved, 1)
	assert.Equal(t, "logic", c.Improved[0].Criterion)
	assert.InDelta(t, 4.0, c.Improved[0].Delta, 1e-9)
	require.Len(t, c.Degraded, 2)
	assert.Equal(t, "evidence", c.Degraded[0].Criterion)
	assert.Equal(t, "depth", c.Degraded[1].Criterion)
	assert.Equal(t, []string{"evidence"}, c.NewRedFlags)
	assert.Equal(t, []string{"logic"}, c.ResolvedRedFlags)
}

func TestSuggestions(t *testing.T) {
	e := newTestEngine(t, equalWeights("logic", "consistency", "evidence", "depth", "comprehensiveness"))

	score, err := e.Score(models.ModeAnalysis, map[string]float64{
		"logic":             1.5,
		"consistency":       2.8,
		"evidence":          5.5,
		"depth":             8.5,
		"comprehensiveness": 9,
	}, Notes{})
	require.NoError(t, err)

	got := Suggestions(score)
	require.NotEmpty(t, got)
	assert.Equal(t, "PRIORITY: resolve red flags", got[0])
	assert.Contains(t, got[1], "logic (critical)")
	assert.Contains(t, got[4], "consistency (medium)")
	assert.Contains(t, got, "Needs improvement:")
	assert.Contains(t, got, "  - evidence: 5.5/10 (weight 1.0)")
	assert.Contains(t, got, "Strengths to build on:")
	assert.Equal(t, "  - comprehensiveness: 9.0/10", got[len(got)-2])
	assert.Equal(t, "  - depth: 8.5/10", got[len(got)-1])
}

func TestSuggestions_CleanScore(t *testing.T) {
	e := newTestEngine(t, equalWeights("logic"))
	score, err := e.Score(models.ModeAnalysis, map[string]float64{"logic": 7}, Notes{})
	require.NoError(t, err)
	assert.Empty(t, Suggestions(score))
}
