package models

import "time"

// QueryType classifies a search query.
type QueryType string

const (
	QueryTypeTrend      QueryType = "trend"
	QueryTypeCompetitor QueryType = "competitor"
	QueryTypeMarketSize QueryType = "market_size"
	QueryTypeFact       QueryType = "fact"
)

// Priority orders queries for dispatch.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns 0 for high, 1 for medium and 2 for low or unknown priorities.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// SearchQuery is one external fact-check request.
type SearchQuery struct {
	Text       string    `json:"query"`
	Type       QueryType `json:"query_type"`
	Priority   Priority  `json:"priority"`
	MaxResults int       `json:"max_results,omitempty"`
}

// SearchResult is a single hit returned by a source.
type SearchResult struct {
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Snippet    string    `json:"snippet"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	Relevance  float64   `json:"relevance"`
	Timestamp  time.Time `json:"timestamp"`
}

// ValidationStatus is the verdict of a validation result.
type ValidationStatus string

const (
	ValidationConfirmed    ValidationStatus = "confirmed"
	ValidationPartial      ValidationStatus = "partial"
	ValidationInconclusive ValidationStatus = "inconclusive"
)

// ValidationResult is the merged outcome of one query across every source.
type ValidationResult struct {
	Query       SearchQuery      `json:"query"`
	Results     []SearchResult   `json:"results"`
	Summary     string           `json:"summary"`
	Confidence  float64          `json:"confidence"`
	Status      ValidationStatus `json:"status"`
	KeyFindings []string         `json:"key_findings,omitempty"`
	Sources     []string         `json:"sources,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// ValidationSummary condenses a batch of results for an iteration record.
type ValidationSummary struct {
	Total          int      `json:"total"`
	Confirmed      int      `json:"confirmed"`
	Partial        int      `json:"partial"`
	Inconclusive   int      `json:"inconclusive"`
	MeanConfidence float64  `json:"mean_confidence"`
	KeyFindings    []string `json:"key_findings,omitempty"`
}
