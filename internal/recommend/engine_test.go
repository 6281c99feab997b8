package recommend

import (
	"testing"

	"github.com/spboyer/crucible/internal/models"
	"github.com/stretchr/testify/require"
)

func phase(p models.Phase, iterations int, score float64, reason models.DecisionReason) *models.PhaseResult {
	return &models.PhaseResult{
		Phase:      p,
		Iterations: iterations,
		FinalScore: score,
		StopReason: reason,
	}
}

func TestRecommend_CleanSession(t *testing.T) {
	engine := NewEngine()
	got := engine.Recommend(Input{
		Analysis:              phase(models.PhaseAnalysisLoop, 2, 9.1, models.ReasonQualityAchieved),
		Ideas:                 phase(models.PhaseIdeaLoop, 3, 9.3, models.ReasonQualityAchieved),
		MaxAnalysisIterations: 3,
		MaxIdeaIterations:     4,
		Diversity:             &models.DiversityReport{CandidateCount: 3, DiversityScore: 0.9},
		DiversityThreshold:    0.7,
	})
	require.Equal(t, []string{"Session completed successfully with good quality metrics"}, got)
}

func TestRecommend_BudgetExhausted(t *testing.T) {
	engine := NewEngine()
	got := engine.Recommend(Input{
		Analysis:              phase(models.PhaseAnalysisLoop, 3, 8.0, models.ReasonResourceExhausted),
		Ideas:                 phase(models.PhaseIdeaLoop, 4, 8.2, models.ReasonResourceExhausted),
		MaxAnalysisIterations: 3,
		MaxIdeaIterations:     4,
	})
	require.Len(t, got, 2)
	require.Contains(t, got[0], "Analysis phase reached maximum iterations")
	require.Contains(t, got[1], "Ideas phase reached maximum iterations")
}

func TestRecommend_QualityAchievedOnLastIterationIsNotExhausted(t *testing.T) {
	engine := NewEngine()
	got := engine.Recommend(Input{
		Analysis:              phase(models.PhaseAnalysisLoop, 3, 9.2, models.ReasonQualityAchieved),
		MaxAnalysisIterations: 3,
	})
	require.Equal(t, []string{"Session completed successfully with good quality metrics"}, got)
}

func TestRecommend_CheckpointsAndLowScores(t *testing.T) {
	engine := NewEngine()
	got := engine.Recommend(Input{
		Analysis:              phase(models.PhaseAnalysisLoop, 1, 6.4, models.ReasonUserStopped),
		Ideas:                 phase(models.PhaseIdeaLoop, 1, 5.0, models.ReasonUserStopped),
		MaxAnalysisIterations: 3,
		MaxIdeaIterations:     4,
		Checkpoints:           3,
	})
	require.Equal(t, []string{
		"Multiple checkpoints triggered - consider adjusting quality thresholds",
		"Analysis quality could be improved (6.4/10) - consider more comprehensive data sources",
		"Ideas quality could be improved (5.0/10) - consider more rigorous validation criteria",
	}, got)
}

func TestRecommend_TwoCheckpointsIsNotMultiple(t *testing.T) {
	engine := NewEngine()
	got := engine.Recommend(Input{
		Analysis:    phase(models.PhaseAnalysisLoop, 2, 9.0, models.ReasonQualityAchieved),
		Checkpoints: 2,
	})
	require.Equal(t, []string{"Session completed successfully with good quality metrics"}, got)
}

func TestRecommend_RedFlagsOrderedBySeverity(t *testing.T) {
	engine := NewEngine()
	analysis := phase(models.PhaseAnalysisLoop, 2, 7.5, models.ReasonUserStopped)
	analysis.RedFlags = []models.RedFlag{
		{Criterion: "depth", Severity: models.SeverityLow, Score: 2.9},
		{Criterion: "evidence", Severity: models.SeverityCritical, Score: 1.5},
		{Criterion: "logic", Severity: models.SeverityMedium, Score: 2.8},
		{Criterion: "consistency", Severity: models.SeverityHigh, Score: 2.2},
	}

	got := engine.Recommend(Input{Analysis: analysis, MaxAnalysisIterations: 3})
	require.Equal(t, []string{
		"Unresolved critical red flag in analysis_loop: evidence scored 1.5",
		"Unresolved high red flag in analysis_loop: consistency scored 2.2",
		"Unresolved medium red flag in analysis_loop: logic scored 2.8",
	}, got)
}

func TestRecommend_DiversityAndDegraded(t *testing.T) {
	engine := NewEngine()
	got := engine.Recommend(Input{
		Ideas:             phase(models.PhaseIdeaLoop, 2, 9.0, models.ReasonQualityAchieved),
		MaxIdeaIterations: 4,
		Diversity: &models.DiversityReport{
			CandidateCount: 3,
			DiversityScore: 0.4,
			Duplicates:     []models.SimilarityPair{{First: "a", Second: "b", Similarity: 0.8}},
		},
		DiversityThreshold: 0.7,
		DegradedSteps:      2,
	})
	require.Equal(t, []string{
		"Idea diversity is low (0.40) - ask for ideas that differ in audience, business model or technology",
		"1 near-duplicate idea pair(s) remain - merge or replace them",
		"2 pipeline step(s) ran degraded - check model and source availability",
	}, got)
}

func TestRecommend_SingleCandidateSkipsDiversity(t *testing.T) {
	engine := NewEngine()
	got := engine.Recommend(Input{
		Diversity:          &models.DiversityReport{CandidateCount: 1},
		DiversityThreshold: 0.7,
	})
	require.Equal(t, []string{"Session completed successfully with good quality metrics"}, got)
}
