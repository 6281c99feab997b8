package reporting

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spboyer/crucible/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *models.Session {
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s := models.NewSession("sess-1", "urban beekeeping", models.SessionSettings{Model: "gpt-4o", QualityThreshold: 8.0})
	s.StartedAt = base
	s.Iterations = []models.IterationRecord{
		{
			Phase: models.PhaseAnalysisLoop, Iteration: 1, Timestamp: base,
			Score: &models.CompositeScore{
				FinalScore: 5.5, Grade: "C",
				RedFlags: []models.RedFlag{{Criterion: "evidence_quality", Severity: models.SeverityHigh, Score: 2.5, Threshold: 3.0, Description: "No sources cited"}},
			},
			Degraded: []string{"critique"},
		},
		{
			Phase: models.PhaseAnalysisLoop, Iteration: 2, Timestamp: base.Add(2 * time.Second),
			Score: &models.CompositeScore{FinalScore: 8.5, Grade: "B+"},
		},
		{
			Phase: models.PhaseIdeaLoop, Iteration: 1, Timestamp: base.Add(4 * time.Second),
			Score: &models.CompositeScore{FinalScore: 7.0, Grade: "B-"},
		},
	}
	s.Phase = models.PhaseCompleted
	s.CompletedAt = base.Add(5 * time.Second)
	s.Deliverables = &models.Deliverables{
		Summary: models.SessionSummary{
			SessionID: s.ID, Topic: s.Topic, StartedAt: base, EndedAt: s.CompletedAt,
			AnalysisIterations: 2, IdeaIterations: 1, DegradedSteps: 1,
		},
		Analysis: &models.PhaseResult{
			Phase: models.PhaseAnalysisLoop, Iterations: 2, BestIteration: 2,
			FinalScore: 8.5, Grade: "B+", StopReason: models.ReasonQualityAchieved,
		},
		Ideas: &models.PhaseResult{
			Phase: models.PhaseIdeaLoop, Iterations: 1, BestIteration: 1,
			FinalScore: 7.0, Grade: "B-", StopReason: models.ReasonResourceExhausted,
		},
		AnalysisQuality: models.QualityMetrics{Scores: []float64{5.5, 8.5}, FinalScore: 8.5, Improvement: 3.0, AverageScore: 7.0, CILower: 5.5, CIUpper: 8.5, NormalizedGain: 0.67},
		IdeasQuality:    models.QualityMetrics{Scores: []float64{7.0}, FinalScore: 7.0},
		Recommendations: []string{"Ideas quality could be improved (7.0/10) - consider more rigorous validation criteria"},
	}
	return s
}

func TestConvertToJUnit_Structure(t *testing.T) {
	suites := ConvertToJUnit(newTestSession(), 8.0)

	assert.Equal(t, "urban beekeeping", suites.Name)
	assert.Equal(t, 5, suites.Tests, "two iterations plus gate, one iteration plus gate")
	assert.Equal(t, 2, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	require.Len(t, suites.TestSuites, 2)

	analysis := suites.TestSuites[0]
	assert.Equal(t, "analysis_loop", analysis.Name)
	assert.Equal(t, 3, analysis.Tests)
	assert.Equal(t, 1, analysis.Failures)
	assert.Equal(t, 1, analysis.Errors)
	assert.Equal(t, "2025-06-15T12:00:00Z", analysis.Timestamp)
	assert.InDelta(t, 2.0, analysis.Time, 0.001)

	props := make(map[string]string)
	for _, p := range analysis.Properties {
		props[p.Name] = p.Value
	}
	assert.Equal(t, "sess-1", props["session"])
	assert.Equal(t, "gpt-4o", props["model"])
	assert.Equal(t, "8.00", props["threshold"])
}

func TestConvertToJUnit_IterationCases(t *testing.T) {
	suites := ConvertToJUnit(newTestSession(), 8.0)
	cases := suites.TestSuites[0].TestCases
	require.Len(t, cases, 3)

	first := cases[0]
	assert.Equal(t, "iteration-1", first.Name)
	assert.Equal(t, "analysis_loop", first.Classname)
	require.NotNil(t, first.Failure)
	assert.Equal(t, "RedFlag", first.Failure.Type)
	assert.Contains(t, first.Failure.Message, "1 red flag(s)")
	assert.Contains(t, first.Failure.Body, "[HIGH] evidence_quality: score=2.5")
	assert.Contains(t, first.Failure.Body, "No sources cited")
	require.NotNil(t, first.Error)
	assert.Equal(t, "degraded: critique", first.Error.Message)

	second := cases[1]
	assert.Nil(t, second.Failure)
	assert.Nil(t, second.Error)

	gate := cases[2]
	assert.Equal(t, "quality-gate", gate.Name)
	assert.Nil(t, gate.Failure)
}

func TestConvertToJUnit_QualityGateFailure(t *testing.T) {
	suites := ConvertToJUnit(newTestSession(), 8.0)
	ideas := suites.TestSuites[1]
	gate := ideas.TestCases[len(ideas.TestCases)-1]

	require.NotNil(t, gate.Failure)
	assert.Equal(t, "QualityGate", gate.Failure.Type)
	assert.Equal(t, "final score 7.00 below threshold 8.00", gate.Failure.Message)
	assert.Contains(t, gate.Failure.Body, "iteration budget")
}

func TestConvertToJUnit_UnfinishedSession(t *testing.T) {
	s := newTestSession()
	s.Deliverables = nil
	s.Iterations = s.Iterations[:1]

	suites := ConvertToJUnit(s, 8.0)
	require.Len(t, suites.TestSuites, 1)
	gate := suites.TestSuites[0].TestCases[1]
	require.NotNil(t, gate.Skipped)
	assert.Nil(t, gate.Failure)
}

func TestWriteJUnitXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xml")
	require.NoError(t, WriteJUnitXML(newTestSession(), 8.0, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, xml.Header))
	assert.Contains(t, content, `<testsuites name="urban beekeeping"`)
	assert.Contains(t, content, `<testcase name="quality-gate" classname="idea_loop"`)

	var parsed JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &parsed))
	assert.Equal(t, 5, parsed.Tests)
	require.Len(t, parsed.TestSuites, 2)
	assert.Equal(t, "idea_loop", parsed.TestSuites[1].Name)
}

func TestWriteJUnitXML_BadPath(t *testing.T) {
	err := WriteJUnitXML(newTestSession(), 8.0, filepath.Join(t.TempDir(), "missing", "results.xml"))
	assert.Error(t, err)
}
