package orchestration

import (
	"errors"
	"fmt"

	"github.com/spboyer/crucible/internal/models"
)

// ErrBusy is returned when Run is called while another run is in progress
// on the same Orchestrator.
var ErrBusy = errors.New("orchestrator is already running a session")

// Pipeline step names used in errors, degraded entries and metrics.
const (
	StepGenerate   = "generate"
	StepCritique   = "critique"
	StepAttack     = "attack"
	StepDiversity  = "diversity"
	StepValidate   = "validate"
	StepSynthesize = "synthesize"
	StepContract   = "synthesis_contract"
	StepCheckpoint = "checkpoint"
)

// PhaseError is the terminal error of a run. It names the phase, iteration
// and step at which the session failed.
type PhaseError struct {
	Phase     models.Phase
	Iteration int
	Step      string
	Err       error
}

func (e *PhaseError) Error() string {
	if e.Iteration > 0 {
		return fmt.Sprintf("%s iteration %d: %s failed: %v", e.Phase, e.Iteration, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Phase, e.Step, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
