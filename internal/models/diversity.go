package models

// SimilarityPair is the weighted similarity between two candidates.
type SimilarityPair struct {
	First      string  `json:"first"`
	Second     string  `json:"second"`
	Similarity float64 `json:"similarity"`
}

// DiversityReport summarises how distinct a set of candidate ideas is.
type DiversityReport struct {
	CandidateCount       int              `json:"candidate_count"`
	Candidates           []string         `json:"candidates,omitempty"`
	Similarities         []SimilarityPair `json:"similarities,omitempty"`
	DiversityScore       float64          `json:"diversity_score"`
	Duplicates           []SimilarityPair `json:"duplicates,omitempty"`
	UniqueAudiences      int              `json:"unique_audiences"`
	UniqueBusinessModels int              `json:"unique_business_models"`
	UniqueTechnologies   int              `json:"unique_technologies"`
	Insights             []string         `json:"insights,omitempty"`
}
