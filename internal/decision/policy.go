// Package decision turns an iteration's composite score into the next loop
// action: stop, continue with guidance, or pause at a checkpoint.
package decision

import (
	"fmt"

	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/projectconfig"
)

const (
	// WeakScore is the raw score below which a criterion gets guidance.
	WeakScore = 6.0
	// MaxRedFlags is the red-flag count above which the loop pauses.
	MaxRedFlags = 3
	// minStallIteration is the iteration after which a stall may pause the loop.
	minStallIteration  = 2
	maxDuplicatesNamed = 3
)

// Policy holds the thresholds the decision rules compare against.
type Policy struct {
	QualityThreshold float64
	// ImprovementThreshold is in percent.
	ImprovementThreshold float64
	DiversityThreshold   float64
}

// NewPolicy reads thresholds from the loop configuration.
func NewPolicy(cfg projectconfig.LoopConfig) *Policy {
	return &Policy{
		QualityThreshold:     cfg.QualityThreshold,
		ImprovementThreshold: cfg.ImprovementThreshold,
		DiversityThreshold:   cfg.DiversityThreshold,
	}
}

// Input is everything a decision depends on.
type Input struct {
	Mode          models.Mode
	Score         *models.CompositeScore
	Iteration     int
	MaxIterations int
	// History holds the final scores of earlier iterations in this phase,
	// oldest first.
	History   []float64
	Diversity *models.DiversityReport
}

// ImprovementRate returns the percent change from the last entry of history
// to current. ok is false when there is no previous score or it is zero.
func ImprovementRate(history []float64, current float64) (rate float64, ok bool) {
	if len(history) == 0 {
		return 0, false
	}
	prev := history[len(history)-1]
	if prev == 0 {
		return 0, false
	}
	return (current - prev) / prev * 100, true
}

// Decide applies the rules in priority order; the first match wins.
func (p *Policy) Decide(in Input) models.LoopDecision {
	score := in.Score
	flags := len(score.RedFlags)

	snapshot := models.ScoreSnapshot{FinalScore: score.FinalScore, RedFlagCount: flags}
	rate, hasRate := ImprovementRate(in.History, score.FinalScore)
	if hasRate {
		snapshot.ImprovementRate = &rate
	}

	switch {
	case score.FinalScore >= p.QualityThreshold && flags == 0:
		return models.LoopDecision{
			Action:    models.ActionStop,
			Reason:    models.ReasonQualityAchieved,
			Reasoning: fmt.Sprintf("Quality threshold achieved: %.2f >= %.2f with no red flags", score.FinalScore, p.QualityThreshold),
			Snapshot:  snapshot,
		}

	case in.Iteration >= in.MaxIterations:
		return models.LoopDecision{
			Action:    models.ActionStop,
			Reason:    models.ReasonResourceExhausted,
			Reasoning: fmt.Sprintf("Iteration budget exhausted: %d >= %d", in.Iteration, in.MaxIterations),
			Snapshot:  snapshot,
		}

	case hasRate && rate < p.ImprovementThreshold && in.Iteration > minStallIteration:
		return models.LoopDecision{
			Action:    models.ActionCheckpoint,
			Reason:    models.ReasonDiminishingReturns,
			Reasoning: fmt.Sprintf("Diminishing returns: improvement rate %.1f%% < %.1f%%", rate, p.ImprovementThreshold),
			Checkpoint: &models.CheckpointInfo{
				Situation: "Low improvement rate",
				Options: []string{
					"Continue with current approach",
					"Change strategy or focus",
					"Stop and proceed to next phase",
				},
				Recommendation: "Consider changing approach",
			},
			Snapshot: snapshot,
		}

	case flags > MaxRedFlags:
		return models.LoopDecision{
			Action:    models.ActionCheckpoint,
			Reason:    models.ReasonTooManyRedFlags,
			Reasoning: fmt.Sprintf("Too many red flags: %d critical issues", flags),
			Checkpoint: &models.CheckpointInfo{
				Situation: "Multiple critical issues",
				Options: []string{
					"Address red flags and continue",
					"Lower quality standards",
					"Stop and accept current quality",
				},
				Recommendation: "Address critical issues first",
			},
			Snapshot: snapshot,
		}
	}

	return models.LoopDecision{
		Action:    models.ActionContinue,
		Reason:    models.ReasonImproving,
		Reasoning: fmt.Sprintf("Continue improving: score %.2f < %.2f", score.FinalScore, p.QualityThreshold),
		Guidance:  p.guidance(in),
		Snapshot:  snapshot,
	}
}

func (p *Policy) guidance(in Input) *models.Guidance {
	g := &models.Guidance{}

	for _, s := range in.Score.Scores {
		if s.RawScore >= WeakScore {
			continue
		}
		switch s.Criterion {
		case "logic", "consistency":
			g.Primary.SpecificImprovements = append(g.Primary.SpecificImprovements,
				fmt.Sprintf("Improve %s: ensure logical consistency", s.Criterion))
			g.Critic.FocusAreas = append(g.Critic.FocusAreas, s.Criterion)
		case "feasibility", "business_model":
			g.Adversary.AttackVectors = append(g.Adversary.AttackVectors,
				fmt.Sprintf("Challenge %s assumptions", s.Criterion))
			g.Adversary.RolePriority = appendUnique(g.Adversary.RolePriority, "VC")
		default:
			g.Primary.SpecificImprovements = append(g.Primary.SpecificImprovements,
				fmt.Sprintf("Strengthen %s (currently %.1f/10)", s.Criterion, s.RawScore))
		}
	}

	for _, f := range in.Score.RedFlags {
		g.Primary.PriorityActions = append(g.Primary.PriorityActions,
			fmt.Sprintf("URGENT: Address %s (score: %.1f)", f.Criterion, f.Score))
	}

	if in.Mode == models.ModeIdeas && in.Diversity != nil {
		if in.Diversity.DiversityScore < p.DiversityThreshold {
			g.Diversity = append(g.Diversity,
				"Generate at least two more candidates that clearly differ in target customer or business model")
		}
		if n := len(in.Diversity.Duplicates); n > 0 {
			pairs := in.Diversity.Duplicates[:min(n, maxDuplicatesNamed)]
			names := make([]string, 0, len(pairs))
			for _, d := range pairs {
				names = append(names, fmt.Sprintf("%q / %q", d.First, d.Second))
			}
			g.Diversity = append(g.Diversity, fmt.Sprintf("Split, merge or rework duplicate pairs: %v", names))
		}
	}

	if g.IsEmpty() {
		return nil
	}
	return g
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
