// Package session writes and reads the NDJSON event log of a refinement
// session.
package session

import "time"

// EventType identifies the kind of session event.
type EventType string

const (
	EventSessionStart      EventType = "session_start"
	EventSessionComplete   EventType = "session_complete"
	EventIterationComplete EventType = "iteration_complete"
	EventStepDegraded      EventType = "step_degraded"
	EventCheckpoint        EventType = "checkpoint"
	EventPhaseComplete     EventType = "phase_complete"
	EventError             EventType = "error"
)

// Event is a single timestamped entry in a session log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// SessionStartData returns event data for a session start.
func SessionStartData(sessionID, topic, provider, model string) map[string]any {
	return map[string]any{
		"session_id": sessionID,
		"topic":      topic,
		"provider":   provider,
		"model":      model,
	}
}

// SessionCompleteData returns event data for a session end.
func SessionCompleteData(sessionID string, analysisScore, ideasScore float64, degraded int, durationMs int64) map[string]any {
	return map[string]any{
		"session_id":     sessionID,
		"analysis_score": analysisScore,
		"ideas_score":    ideasScore,
		"degraded_steps": degraded,
		"duration_ms":    durationMs,
	}
}

// IterationCompleteData returns event data for a scored and decided iteration.
func IterationCompleteData(phase string, iteration int, score float64, grade, action, reason string, degraded []string) map[string]any {
	d := map[string]any{
		"phase":       phase,
		"iteration":   iteration,
		"final_score": score,
		"grade":       grade,
		"action":      action,
		"reason":      reason,
	}
	if len(degraded) > 0 {
		d["degraded"] = degraded
	}
	return d
}

// StepDegradedData returns event data for a step that failed without
// aborting the iteration.
func StepDegradedData(phase string, iteration int, step, message string) map[string]any {
	return map[string]any{
		"phase":     phase,
		"iteration": iteration,
		"step":      step,
		"message":   message,
	}
}

// CheckpointData returns event data for a resolved checkpoint.
func CheckpointData(phase string, iteration int, reason, resolution string, automatic bool) map[string]any {
	return map[string]any{
		"phase":      phase,
		"iteration":  iteration,
		"reason":     reason,
		"resolution": resolution,
		"automatic":  automatic,
	}
}

// PhaseCompleteData returns event data for a finished loop phase.
func PhaseCompleteData(phase string, iterations, bestIteration int, score float64, stopReason string) map[string]any {
	return map[string]any{
		"phase":          phase,
		"iterations":     iterations,
		"best_iteration": bestIteration,
		"final_score":    score,
		"stop_reason":    stopReason,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
