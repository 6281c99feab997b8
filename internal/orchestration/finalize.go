package orchestration

import (
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/recommend"
	"github.com/spboyer/crucible/internal/scoring"
	"github.com/spboyer/crucible/internal/statistics"
)

// confidenceLevel is used for the score trajectory intervals.
const confidenceLevel = 0.95

// finalize assembles the deliverables of a finished session.
func (o *Orchestrator) finalize(r *run) *models.Deliverables {
	s := r.session
	d := &models.Deliverables{
		Summary: models.SessionSummary{
			SessionID:          s.ID,
			Topic:              s.Topic,
			StartedAt:          s.StartedAt,
			EndedAt:            o.now().UTC(),
			AnalysisIterations: s.IterationCount(models.PhaseAnalysisLoop),
			IdeaIterations:     s.IterationCount(models.PhaseIdeaLoop),
			Checkpoints:        len(s.Checkpoints),
			DegradedSteps:      len(s.Degraded),
		},
		Analysis:         r.analysis,
		Ideas:            r.ideas,
		AnalysisQuality:  o.quality(s.ScoresFor(models.PhaseAnalysisLoop)),
		IdeasQuality:     o.quality(s.ScoresFor(models.PhaseIdeaLoop)),
		AgentPerformance: make(map[string]models.RolePerformance, len(r.perf)),
	}

	ideas := s.IterationsFor(models.PhaseIdeaLoop)
	for i := len(ideas) - 1; i >= 0; i-- {
		if ideas[i].Diversity != nil {
			d.Diversity = ideas[i].Diversity
			break
		}
	}

	r.perfMu.Lock()
	for role, p := range r.perf {
		d.AgentPerformance[role] = *p
	}
	r.perfMu.Unlock()

	d.Recommendations = o.advisor.Recommend(recommend.Input{
		Analysis:              r.analysis,
		Ideas:                 r.ideas,
		MaxAnalysisIterations: o.cfg.Loop.MaxAnalysisIterations,
		MaxIdeaIterations:     o.cfg.Loop.MaxIdeaIterations,
		Checkpoints:           len(s.Checkpoints),
		DegradedSteps:         len(s.Degraded),
		Diversity:             d.Diversity,
		DiversityThreshold:    o.cfg.Loop.DiversityThreshold,
	})
	return d
}

// quality summarises a phase's score trajectory.
func (o *Orchestrator) quality(scores []float64) models.QualityMetrics {
	q := models.QualityMetrics{Scores: scores}
	if len(scores) == 0 {
		return q
	}
	first, last := scores[0], scores[len(scores)-1]
	ci := statistics.BootstrapCIWithSeed(scores, confidenceLevel, o.bootstrapSeed)

	q.FinalScore = last
	q.Improvement = last - first
	q.AverageScore = ci.Mean
	q.CILower = ci.Lower
	q.CIUpper = ci.Upper
	q.NormalizedGain = statistics.NormalizedGain(first, last, scoring.MaxRawScore)
	return q
}
