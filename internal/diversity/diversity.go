// Package diversity measures how distinct a set of candidate ideas is and
// flags near-duplicates.
package diversity

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spboyer/crucible/internal/models"
)

const (
	// DuplicateThreshold is the similarity at or above which a pair is a duplicate.
	DuplicateThreshold = 0.55
	// LowDiversityThreshold is the score below which an insight is raised.
	LowDiversityThreshold = 0.65
	// reportThreshold keeps the similarity list sparse.
	reportThreshold = 0.25

	nameWeight          = 0.4
	businessModelWeight = 0.2
	audienceWeight      = 0.2
	technologyWeight    = 0.2
)

// Candidate is one idea reduced to the fields similarity is computed on.
type Candidate struct {
	Name          string `json:"name"`
	Audience      string `json:"audience,omitempty"`
	BusinessModel string `json:"business_model,omitempty"`
	Technology    string `json:"technology,omitempty"`
}

// Analyzer computes diversity reports.
type Analyzer struct{}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AnalyzeMarkdown segments markdown into candidates and analyzes them.
func (a *Analyzer) AnalyzeMarkdown(markdown string) *models.DiversityReport {
	return a.Analyze(Segment(markdown))
}

// Analyze computes pairwise similarity, the diversity score, duplicate
// pairs and unique-field counts. With fewer than two candidates the score
// is 0 and no duplicates are reported.
func (a *Analyzer) Analyze(candidates []Candidate) *models.DiversityReport {
	n := len(candidates)
	report := &models.DiversityReport{CandidateCount: n}

	audiences := make([]string, n)
	bizModels := make([]string, n)
	techs := make([]string, n)
	for i, c := range candidates {
		report.Candidates = append(report.Candidates, c.Name)
		audiences[i] = c.Audience
		bizModels[i] = c.BusinessModel
		techs[i] = c.Technology
	}
	report.UniqueAudiences = uniqueNonEmpty(audiences)
	report.UniqueBusinessModels = uniqueNonEmpty(bizModels)
	report.UniqueTechnologies = uniqueNonEmpty(techs)

	if n <= 1 {
		return report
	}

	tokens := make([]candidateTokens, n)
	for i, c := range candidates {
		tokens[i] = candidateTokens{
			name:          Tokenize(c.Name),
			audience:      Tokenize(c.Audience),
			businessModel: Tokenize(c.BusinessModel),
			technology:    Tokenize(c.Technology),
		}
	}

	var total float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := similarity(tokens[i], tokens[j])
			total += sim
			pairs++

			pair := models.SimilarityPair{First: candidates[i].Name, Second: candidates[j].Name, Similarity: sim}
			if sim >= reportThreshold {
				report.Similarities = append(report.Similarities, pair)
			}
			if sim >= DuplicateThreshold {
				report.Duplicates = append(report.Duplicates, pair)
			}
		}
	}

	report.DiversityScore = clamp01(1 - total/float64(pairs))

	if report.DiversityScore < LowDiversityThreshold {
		report.Insights = append(report.Insights,
			"Idea diversity is low; vary the target audience, business model or technology of some ideas.")
	}
	if len(report.Duplicates) > 0 {
		report.Insights = append(report.Insights,
			fmt.Sprintf("%d pair(s) of ideas are similar; merge them or make the differences explicit.", len(report.Duplicates)))
	}
	return report
}

type candidateTokens struct {
	name, audience, businessModel, technology map[string]struct{}
}

func similarity(a, b candidateTokens) float64 {
	return nameWeight*Jaccard(a.name, b.name) +
		businessModelWeight*Jaccard(a.businessModel, b.businessModel) +
		audienceWeight*Jaccard(a.audience, b.audience) +
		technologyWeight*Jaccard(a.technology, b.technology)
}

// Tokenize lowercases s and returns its alphanumeric runs longer than two
// characters as a set.
func Tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if utf8.RuneCountInString(w) > 2 {
			out[w] = struct{}{}
		}
	}
	return out
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func uniqueNonEmpty(values []string) int {
	seen := make(map[string]struct{})
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
