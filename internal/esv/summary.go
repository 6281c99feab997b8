package esv

import "github.com/spboyer/crucible/internal/models"

const maxSummaryFindings = 5

// Summarize condenses validation results into per-status counts, the mean
// confidence and the leading key findings. Nil entries are skipped.
func Summarize(results []*models.ValidationResult) *models.ValidationSummary {
	s := &models.ValidationSummary{}
	var total float64
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Total++
		total += r.Confidence
		switch r.Status {
		case models.ValidationConfirmed:
			s.Confirmed++
		case models.ValidationPartial:
			s.Partial++
		default:
			s.Inconclusive++
		}
		for _, f := range r.KeyFindings {
			if len(s.KeyFindings) < maxSummaryFindings {
				s.KeyFindings = append(s.KeyFindings, f)
			}
		}
	}
	if s.Total > 0 {
		s.MeanConfidence = total / float64(s.Total)
	}
	return s
}
