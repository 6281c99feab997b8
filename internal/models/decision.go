package models

// Action is what the loop should do after an iteration.
type Action string

const (
	ActionContinue   Action = "continue"
	ActionStop       Action = "stop"
	ActionCheckpoint Action = "checkpoint"
)

// DecisionReason tags why an action was chosen.
type DecisionReason string

const (
	ReasonQualityAchieved    DecisionReason = "quality_achieved"
	ReasonResourceExhausted  DecisionReason = "resource_exhausted"
	ReasonDiminishingReturns DecisionReason = "diminishing_returns"
	ReasonTooManyRedFlags    DecisionReason = "too_many_red_flags"
	ReasonImproving          DecisionReason = "improving"
	ReasonUserStopped        DecisionReason = "user_stopped"
)

// Guidance carries next-round instructions keyed by consumer.
type Guidance struct {
	Primary   PrimaryGuidance   `json:"primary"`
	Critic    CriticGuidance    `json:"critic"`
	Adversary AdversaryGuidance `json:"adversary"`
	Diversity []string          `json:"diversity_actions,omitempty"`
}

// PrimaryGuidance is consumed by the generating agent.
type PrimaryGuidance struct {
	SpecificImprovements []string `json:"specific_improvements,omitempty"`
	PriorityActions      []string `json:"priority_actions,omitempty"`
}

// CriticGuidance is consumed by the critique agent.
type CriticGuidance struct {
	FocusAreas []string `json:"focus_areas,omitempty"`
}

// AdversaryGuidance is consumed by the adversarial agent.
type AdversaryGuidance struct {
	AttackVectors []string `json:"attack_vectors,omitempty"`
	RolePriority  []string `json:"role_priority,omitempty"`
}

// IsEmpty reports whether no consumer received any instruction.
func (g *Guidance) IsEmpty() bool {
	return g == nil || (len(g.Primary.SpecificImprovements) == 0 &&
		len(g.Primary.PriorityActions) == 0 &&
		len(g.Critic.FocusAreas) == 0 &&
		len(g.Adversary.AttackVectors) == 0 &&
		len(g.Adversary.RolePriority) == 0 &&
		len(g.Diversity) == 0)
}

// CheckpointInfo describes a situation that needs an external verdict.
type CheckpointInfo struct {
	Situation      string   `json:"situation"`
	Options        []string `json:"options"`
	Recommendation string   `json:"recommendation"`
}

// ScoreSnapshot is the score state a decision was taken on.
type ScoreSnapshot struct {
	FinalScore      float64  `json:"final_score"`
	RedFlagCount    int      `json:"red_flag_count"`
	ImprovementRate *float64 `json:"improvement_rate,omitempty"`
}

// LoopDecision is the outcome of the decision policy for one iteration.
type LoopDecision struct {
	Action     Action          `json:"action"`
	Reason     DecisionReason  `json:"reason"`
	Reasoning  string          `json:"reasoning"`
	Guidance   *Guidance       `json:"guidance,omitempty"`
	Checkpoint *CheckpointInfo `json:"checkpoint,omitempty"`
	Snapshot   ScoreSnapshot   `json:"snapshot"`
}
