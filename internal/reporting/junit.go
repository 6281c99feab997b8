package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spboyer/crucible/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one loop phase.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one iteration, or to the quality gate of a phase.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure reports red flags or a missed quality target.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError reports pipeline steps that ran degraded.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a test as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a session to JUnit XML: one suite per loop phase,
// one case per iteration plus a quality gate case comparing the carried
// forward score with threshold.
func ConvertToJUnit(s *models.Session, threshold float64) *JUnitTestSuites {
	out := &JUnitTestSuites{Name: s.Topic}

	for _, phase := range []models.Phase{models.PhaseAnalysisLoop, models.PhaseIdeaLoop} {
		iterations := s.IterationsFor(phase)
		if len(iterations) == 0 {
			continue
		}
		suite := convertPhase(s, phase, iterations, threshold)
		out.Tests += suite.Tests
		out.Failures += suite.Failures
		out.Errors += suite.Errors
		out.Time += suite.Time
		out.TestSuites = append(out.TestSuites, suite)
	}
	return out
}

func convertPhase(s *models.Session, phase models.Phase, iterations []models.IterationRecord, threshold float64) JUnitTestSuite {
	suite := JUnitTestSuite{
		Name:      string(phase),
		Timestamp: iterations[0].Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "session", Value: s.ID},
			{Name: "model", Value: s.Settings.Model},
			{Name: "threshold", Value: fmt.Sprintf("%.2f", threshold)},
		},
	}

	for i, it := range iterations {
		// Iteration time is the gap to the next record's start.
		var durationSec float64
		if i+1 < len(iterations) {
			durationSec = iterations[i+1].Timestamp.Sub(it.Timestamp).Seconds()
		}
		tc := convertIteration(phase, &it)
		tc.Time = durationSec
		suite.Time += durationSec
		if tc.Failure != nil {
			suite.Failures++
		}
		if tc.Error != nil {
			suite.Errors++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	gate := qualityGate(s, phase, threshold)
	if gate.Failure != nil {
		suite.Failures++
	}
	suite.TestCases = append(suite.TestCases, gate)
	suite.Tests = len(suite.TestCases)
	return suite
}

func convertIteration(phase models.Phase, it *models.IterationRecord) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      fmt.Sprintf("iteration-%d", it.Iteration),
		Classname: string(phase),
	}

	if it.Score != nil && len(it.Score.RedFlags) > 0 {
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("iteration %d: score=%.2f, %d red flag(s)", it.Iteration, it.FinalScore(), len(it.Score.RedFlags)),
			Type:    "RedFlag",
			Body:    formatRedFlags(it.Score.RedFlags),
		}
	}
	if len(it.Degraded) > 0 {
		tc.Error = &JUnitError{
			Message: "degraded: " + strings.Join(it.Degraded, ", "),
			Type:    "DegradedStep",
		}
	}
	return tc
}

func qualityGate(s *models.Session, phase models.Phase, threshold float64) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      "quality-gate",
		Classname: string(phase),
	}

	var res *models.PhaseResult
	if d := s.Deliverables; d != nil {
		if phase == models.PhaseAnalysisLoop {
			res = d.Analysis
		} else {
			res = d.Ideas
		}
	}
	if res == nil {
		tc.Skipped = &JUnitSkipped{Message: "phase did not finish"}
		return tc
	}
	if res.FinalScore < threshold {
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("final score %.2f below threshold %.2f", res.FinalScore, threshold),
			Type:    "QualityGate",
			Body:    InterpretStopReason(res.StopReason),
		}
	}
	return tc
}

func formatRedFlags(flags []models.RedFlag) string {
	var b strings.Builder
	for _, f := range flags {
		fmt.Fprintf(&b, "[%s] %s: score=%.1f (threshold %.1f)", strings.ToUpper(string(f.Severity)), f.Criterion, f.Score, f.Threshold)
		if f.Description != "" {
			fmt.Fprintf(&b, " — %s", f.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteJUnitXML writes the JUnit XML report of s to path.
func WriteJUnitXML(s *models.Session, threshold float64, path string) error {
	suites := ConvertToJUnit(s, threshold)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
