package agents

import (
	"fmt"
	"strings"

	"github.com/spboyer/crucible/internal/models"
)

// Role names, also used as execution request roles.
const (
	RolePrimary     = "primary"
	RoleCritic      = "critic"
	RoleAdversary   = "adversary"
	RoleSynthesizer = "synthesizer"
)

// Role is the prompt strategy an Agent runs.
type Role interface {
	Name() string
	SystemPrompt(task Task) string
	Prompt(task Task) string
	// Temperature overrides the configured temperature when ok is true.
	Temperature() (t float64, ok bool)
	WantsJSON() bool
}

const (
	ideasInstruction    = "Propose the improved set of ideas now."
	analysisInstruction = "Write the improved analysis now."
)

var intensityTemperature = map[string]float64{
	"mild":       0.3,
	"moderate":   0.6,
	"aggressive": 0.9,
}

// Primary generates the artifact: an analysis of the topic or a set of ideas.
type Primary struct{}

func (Primary) Name() string                 { return RolePrimary }
func (Primary) Temperature() (float64, bool) { return 0, false }
func (Primary) WantsJSON() bool              { return false }

func (Primary) SystemPrompt(task Task) string {
	if task.Mode == models.ModeIdeas {
		return "You are a product strategist. Propose distinct, concrete business ideas grounded in the analysis you are given. " +
			"Write each idea under its own level-2 markdown heading with the labelled fields " +
			"**Target Market:**, **Business Model:** and **Technology:**."
	}
	return "You are a senior analyst. Produce a rigorous, well-evidenced analysis in markdown. " +
		"State assumptions, cite evidence, and keep the reasoning consistent."
}

func (Primary) Prompt(task Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nIteration: %d\n", task.Topic, task.Iteration)

	if task.Mode == models.ModeIdeas && task.Context != "" {
		fmt.Fprintf(&b, "\n## Analysis to build on\n%s\n", task.Context)
	}
	if task.PreviousArtifact != "" {
		fmt.Fprintf(&b, "\n## Your previous version\n%s\n", task.PreviousArtifact)
	}
	if task.PreviousCritique != "" {
		fmt.Fprintf(&b, "\n## Critical review of the previous version\n%s\n", task.PreviousCritique)
	}
	if task.PreviousAttack != "" {
		fmt.Fprintf(&b, "\n## Adversarial review of the previous version\n%s\n", task.PreviousAttack)
	}
	if len(task.ScoreFeedback) > 0 {
		b.WriteString("\n## Scoring of the previous version\n")
		for _, line := range task.ScoreFeedback {
			b.WriteString(line + "\n")
		}
	}
	if g := task.Guidance; !g.IsEmpty() {
		writeList(&b, "Priority actions", g.Primary.PriorityActions)
		writeList(&b, "Specific improvements", g.Primary.SpecificImprovements)
		writeList(&b, "Diversity actions", g.Diversity)
	}

	if task.Mode == models.ModeIdeas {
		b.WriteString("\n" + ideasInstruction)
	} else {
		b.WriteString("\n" + analysisInstruction)
	}
	return b.String()
}

// Critic reviews the artifact for logic, consistency, evidence and depth.
type Critic struct {
	FocusAreas []string
}

// DefaultCriticFocus is used when no guidance names focus areas.
var DefaultCriticFocus = []string{"logic", "consistency", "evidence", "depth"}

func (Critic) Name() string                 { return RoleCritic }
func (Critic) Temperature() (float64, bool) { return 0.4, true }
func (Critic) WantsJSON() bool              { return false }

func (Critic) SystemPrompt(Task) string {
	return "You are a critical thinker. Find logical gaps, contradictions, unsupported claims and shallow reasoning. " +
		"Be specific and suggest how each issue could be fixed."
}

func (c Critic) Prompt(task Task) string {
	focus := c.FocusAreas
	if task.Guidance != nil && len(task.Guidance.Critic.FocusAreas) > 0 {
		focus = task.Guidance.Critic.FocusAreas
	}
	if len(focus) == 0 {
		focus = DefaultCriticFocus
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review this %s about %q.\nFocus areas: %s\n\n%s\n", contentKind(task.Mode), task.Topic, strings.Join(focus, ", "), task.Artifact)
	return b.String()
}

// Adversary attacks the artifact from several stakeholder perspectives.
type Adversary struct {
	Roles     []string
	Intensity string
}

func (Adversary) Name() string    { return RoleAdversary }
func (Adversary) WantsJSON() bool { return false }

func (a Adversary) Temperature() (float64, bool) {
	t, ok := intensityTemperature[a.Intensity]
	if !ok {
		return intensityTemperature["moderate"], true
	}
	return t, true
}

func (a Adversary) SystemPrompt(Task) string {
	return fmt.Sprintf("You are a panel of hostile experts. Attack the work with %s intensity, "+
		"exposing the weaknesses each stakeholder would exploit. Stay professional.", a.intensity())
}

func (a Adversary) Prompt(task Task) string {
	roles := a.Roles
	var vectors []string
	if task.Guidance != nil {
		roles = prioritize(roles, task.Guidance.Adversary.RolePriority)
		vectors = task.Guidance.Adversary.AttackVectors
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Attack this %s about %q.\nPerspectives: %s\n", contentKind(task.Mode), task.Topic, strings.Join(roles, ", "))
	writeList(&b, "Attack vectors", vectors)
	fmt.Fprintf(&b, "\n%s\n", task.Artifact)
	return b.String()
}

func (a Adversary) intensity() string {
	if _, ok := intensityTemperature[a.Intensity]; ok {
		return a.Intensity
	}
	return "moderate"
}

// Synthesizer weighs every review and scores the artifact. It must answer
// with the JSON contract described by SynthesisSchema.
type Synthesizer struct{}

func (Synthesizer) Name() string                 { return RoleSynthesizer }
func (Synthesizer) Temperature() (float64, bool) { return 0.2, true }
func (Synthesizer) WantsJSON() bool              { return true }

func (Synthesizer) SystemPrompt(task Task) string {
	names := make([]string, 0, len(task.Criteria))
	for _, c := range task.Criteria {
		names = append(names, c.Name)
	}
	return "You are an impartial assessor. Weigh the work and its reviews, then answer with a single JSON object: " +
		`{"summary": string, "scores": {<criterion>: {"score": number 1-10, "rationale": string, "evidence": [string]}}, ` +
		`"strengths": [string], "weaknesses": [string]}. ` +
		"Score every criterion: " + strings.Join(names, ", ") + "."
}

func (Synthesizer) Prompt(task Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nIteration: %d\n\n## Work under review\n%s\n", task.Topic, task.Iteration, task.Artifact)

	if task.Critique != "" {
		fmt.Fprintf(&b, "\n## Critical review\n%s\n", task.Critique)
	}
	if task.Attack != "" {
		fmt.Fprintf(&b, "\n## Adversarial review\n%s\n", task.Attack)
	}
	if v := task.Validation; v != nil && v.Total > 0 {
		fmt.Fprintf(&b, "\n## External validation\n%d queries: %d confirmed, %d partial, %d inconclusive (mean confidence %.2f)\n",
			v.Total, v.Confirmed, v.Partial, v.Inconclusive, v.MeanConfidence)
		writeList(&b, "Key findings", v.KeyFindings)
	}
	if d := task.Diversity; d != nil && d.CandidateCount > 0 {
		fmt.Fprintf(&b, "\n## Idea diversity\n%d candidates, diversity %.2f, %d duplicate pair(s)\n", d.CandidateCount, d.DiversityScore, len(d.Duplicates))
	}

	weights := make([]string, 0, len(task.Criteria))
	for _, c := range task.Criteria {
		weights = append(weights, fmt.Sprintf("%s (weight %.1f)", c.Name, c.Weight))
	}
	fmt.Fprintf(&b, "\nCriteria: %s\n", strings.Join(weights, ", "))
	return b.String()
}

func contentKind(mode models.Mode) string {
	if mode == models.ModeIdeas {
		return "set of business ideas"
	}
	return "analysis"
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

// prioritize moves the named roles to the front, keeping the rest in order.
func prioritize(roles, first []string) []string {
	if len(first) == 0 {
		return roles
	}
	out := make([]string, 0, len(roles)+len(first))
	seen := make(map[string]bool)
	for _, f := range first {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, r := range roles {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
