package models

import (
	"errors"
	"fmt"
)

// Phase is a stage of a refinement session.
type Phase string

const (
	PhaseInitialization Phase = "initialization"
	PhaseAnalysisLoop   Phase = "analysis_loop"
	PhaseIdeaLoop       Phase = "idea_loop"
	PhaseFinalization   Phase = "finalization"
	PhaseCompleted      Phase = "completed"
)

// phaseOrder is the only legal progression of a session.
var phaseOrder = []Phase{
	PhaseInitialization,
	PhaseAnalysisLoop,
	PhaseIdeaLoop,
	PhaseFinalization,
	PhaseCompleted,
}

// ErrPhaseRegression is returned when a transition would move a session backwards.
var ErrPhaseRegression = errors.New("phase transition must move forward")

// Index returns the position of p in the phase order, or -1 for unknown phases.
func (p Phase) Index() int {
	for i, candidate := range phaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Next returns the phase that follows p. Completed is terminal.
func (p Phase) Next() Phase {
	i := p.Index()
	if i < 0 || i == len(phaseOrder)-1 {
		return p
	}
	return phaseOrder[i+1]
}

func (p Phase) String() string {
	return string(p)
}

// ParsePhase converts a string into a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if p.Index() < 0 {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}

// Mode selects the criteria set a score is computed against.
type Mode string

const (
	ModeAnalysis Mode = "analysis"
	ModeIdeas    Mode = "ideas"
)

// PhaseWeights is the share of overall progress each phase represents.
var PhaseWeights = map[Phase]float64{
	PhaseInitialization: 0.05,
	PhaseAnalysisLoop:   0.40,
	PhaseIdeaLoop:       0.40,
	PhaseFinalization:   0.10,
	PhaseCompleted:      0.05,
}
