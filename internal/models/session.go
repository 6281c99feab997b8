package models

import (
	"fmt"
	"time"
)

// StepOutputs holds the text produced by each pipeline step of an iteration.
type StepOutputs struct {
	Generation string             `json:"generation"`
	Critique   string             `json:"critique,omitempty"`
	Attack     string             `json:"attack,omitempty"`
	Validation *ValidationSummary `json:"validation,omitempty"`
	Synthesis  string             `json:"synthesis"`
}

// IterationRecord is the full trace of one loop iteration.
type IterationRecord struct {
	Phase     Phase            `json:"phase"`
	Iteration int              `json:"iteration"`
	Timestamp time.Time        `json:"timestamp"`
	Outputs   StepOutputs      `json:"outputs"`
	Score     *CompositeScore  `json:"score"`
	Decision  LoopDecision     `json:"decision"`
	Diversity *DiversityReport `json:"diversity,omitempty"`
	Degraded  []string         `json:"degraded,omitempty"`
}

// FinalScore returns the composite final score, or 0 when unscored.
func (r *IterationRecord) FinalScore() float64 {
	if r.Score == nil {
		return 0
	}
	return r.Score.FinalScore
}

// DegradedStep records a non-fatal step failure.
type DegradedStep struct {
	Phase     Phase  `json:"phase"`
	Iteration int    `json:"iteration"`
	Step      string `json:"step"`
	Error     string `json:"error"`
}

// CheckpointRecord is an entry in the session's checkpoint log.
type CheckpointRecord struct {
	Phase      Phase          `json:"phase"`
	Iteration  int            `json:"iteration"`
	Reason     DecisionReason `json:"reason"`
	Info       CheckpointInfo `json:"info"`
	Resolution Action         `json:"resolution"`
	Automatic  bool           `json:"automatic"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// SessionSettings is the subset of configuration a session was run with.
type SessionSettings struct {
	MaxAnalysisIterations int     `json:"max_analysis_iterations"`
	MaxIdeaIterations     int     `json:"max_idea_iterations"`
	QualityThreshold      float64 `json:"quality_threshold"`
	ImprovementThreshold  float64 `json:"improvement_threshold"`
	RedFlagThreshold      float64 `json:"red_flag_threshold"`
	ValidationEnabled     bool    `json:"validation_enabled"`
	Model                 string  `json:"model,omitempty"`
}

// Session is the explicit state of one refinement run. Only the orchestrator
// mutates it, and it must not change once Phase is PhaseCompleted.
type Session struct {
	ID          string             `json:"session_id"`
	Topic       string             `json:"topic"`
	Settings    SessionSettings    `json:"settings"`
	Phase       Phase              `json:"phase"`
	Iterations  []IterationRecord  `json:"iterations"`
	Checkpoints []CheckpointRecord `json:"checkpoints,omitempty"`
	Degraded    []DegradedStep     `json:"degraded,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at,omitempty"`

	// AnalysisResult and IdeasResult are the artifacts carried forward by each loop.
	AnalysisResult string        `json:"analysis_result,omitempty"`
	IdeasResult    string        `json:"ideas_result,omitempty"`
	Deliverables   *Deliverables `json:"deliverables,omitempty"`
}

// NewSession creates a session in the initialization phase.
func NewSession(id, topic string, settings SessionSettings) *Session {
	return &Session{
		ID:        id,
		Topic:     topic,
		Settings:  settings,
		Phase:     PhaseInitialization,
		StartedAt: time.Now().UTC(),
	}
}

// Advance moves the session to phase to. Transitions must move forward.
func (s *Session) Advance(to Phase) error {
	if to.Index() < 0 {
		return fmt.Errorf("advancing session %s: unknown phase %q", s.ID, to)
	}
	if to.Index() <= s.Phase.Index() {
		return fmt.Errorf("advancing session %s from %s to %s: %w", s.ID, s.Phase, to, ErrPhaseRegression)
	}
	s.Phase = to
	if to == PhaseCompleted {
		s.CompletedAt = time.Now().UTC()
	}
	return nil
}

// IsCompleted reports whether the session reached its terminal phase.
func (s *Session) IsCompleted() bool {
	return s.Phase == PhaseCompleted
}

// IterationsFor returns the records of phase in execution order.
func (s *Session) IterationsFor(phase Phase) []IterationRecord {
	var out []IterationRecord
	for _, it := range s.Iterations {
		if it.Phase == phase {
			out = append(out, it)
		}
	}
	return out
}

// IterationCount returns the number of iterations run in phase.
func (s *Session) IterationCount(phase Phase) int {
	n := 0
	for _, it := range s.Iterations {
		if it.Phase == phase {
			n++
		}
	}
	return n
}

// ScoresFor returns the final scores of phase in execution order.
func (s *Session) ScoresFor(phase Phase) []float64 {
	var out []float64
	for _, it := range s.Iterations {
		if it.Phase == phase {
			out = append(out, it.FinalScore())
		}
	}
	return out
}

// Progress returns the completion percentage in [0, 100]. Loop phases count
// partial progress by iterations run against their budget.
func (s *Session) Progress() float64 {
	var done float64
	switch s.Phase {
	case PhaseInitialization:
		done = 0
	case PhaseAnalysisLoop:
		done = PhaseWeights[PhaseInitialization] +
			PhaseWeights[PhaseAnalysisLoop]*ratio(s.IterationCount(PhaseAnalysisLoop), s.Settings.MaxAnalysisIterations)
	case PhaseIdeaLoop:
		done = PhaseWeights[PhaseInitialization] + PhaseWeights[PhaseAnalysisLoop] +
			PhaseWeights[PhaseIdeaLoop]*ratio(s.IterationCount(PhaseIdeaLoop), s.Settings.MaxIdeaIterations)
	case PhaseFinalization:
		done = 1 - PhaseWeights[PhaseCompleted]
	default:
		done = 1
	}
	pct := done * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

func ratio(n, budget int) float64 {
	if budget <= 0 {
		return 0
	}
	r := float64(n) / float64(budget)
	if r > 1 {
		return 1
	}
	return r
}

// PhaseResult is the artifact a loop phase produced.
type PhaseResult struct {
	Phase         Phase          `json:"phase"`
	Artifact      string         `json:"artifact"`
	Iterations    int            `json:"iterations"`
	BestIteration int            `json:"best_iteration"`
	FinalScore    float64        `json:"final_score"`
	Grade         string         `json:"grade"`
	StopReason    DecisionReason `json:"stop_reason"`
	RedFlags      []RedFlag      `json:"red_flags,omitempty"`
}

// QualityMetrics summarises the score trajectory of a phase.
type QualityMetrics struct {
	Scores         []float64 `json:"scores"`
	FinalScore     float64   `json:"final_score"`
	Improvement    float64   `json:"improvement"`
	AverageScore   float64   `json:"average_score"`
	CILower        float64   `json:"ci_lower"`
	CIUpper        float64   `json:"ci_upper"`
	NormalizedGain float64   `json:"normalized_gain"`
}

// RolePerformance counts calls made on behalf of one agent role.
type RolePerformance struct {
	Calls      int   `json:"calls"`
	Failures   int   `json:"failures"`
	DurationMs int64 `json:"duration_ms"`
}

// SessionSummary is the headline view of a finished session.
type SessionSummary struct {
	SessionID          string    `json:"session_id"`
	Topic              string    `json:"topic"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at"`
	AnalysisIterations int       `json:"analysis_iterations"`
	IdeaIterations     int       `json:"idea_iterations"`
	Checkpoints        int       `json:"checkpoints"`
	DegradedSteps      int       `json:"degraded_steps"`
}

// Deliverables is what finalization hands back to the caller.
type Deliverables struct {
	Summary          SessionSummary             `json:"session_summary"`
	Analysis         *PhaseResult               `json:"analysis_results,omitempty"`
	Ideas            *PhaseResult               `json:"ideas_results,omitempty"`
	Diversity        *DiversityReport           `json:"diversity_analysis,omitempty"`
	AnalysisQuality  QualityMetrics             `json:"analysis_quality"`
	IdeasQuality     QualityMetrics             `json:"ideas_quality"`
	AgentPerformance map[string]RolePerformance `json:"agent_performance,omitempty"`
	Recommendations  []string                   `json:"recommendations"`
}
