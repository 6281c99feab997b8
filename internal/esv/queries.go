package esv

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spboyer/crucible/internal/models"
)

const (
	// DefaultKeywordCount is how many keywords seed validation queries.
	DefaultKeywordCount = 3
	// MaxQueriesPerIteration caps the queries built for one iteration.
	MaxQueriesPerIteration = 5
)

var wordPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "can": true, "her": true, "was": true, "one": true,
	"our": true, "had": true, "have": true, "what": true, "there": true, "said": true,
	"each": true, "which": true, "their": true, "time": true, "will": true, "about": true,
	"would": true, "has": true, "its": true, "who": true, "oil": true, "sit": true,
	"now": true, "find": true, "down": true, "way": true, "been": true, "may": true,
	"new": true, "use": true, "she": true, "see": true, "him": true, "two": true,
	"how": true, "more": true, "get": true, "very": true, "man": true, "day": true,
	"made": true, "they": true, "these": true, "could": true, "well": true, "were": true,
	"that": true, "this": true, "with": true, "from": true,
}

// ExtractKeywords returns up to n distinct keywords from text, most frequent
// first. Ties keep the order of first appearance. Words must be alphabetic,
// longer than three letters and not a stop word.
func ExtractKeywords(text string, n int) []string {
	if n <= 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) <= 3 || stopWords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// BuildQueries derives validation queries from an iteration's primary output.
// Analysis checks trends for each keyword; ideas check competitors first and
// then market size. At most MaxQueriesPerIteration queries are returned.
func BuildQueries(mode models.Mode, text string) []models.SearchQuery {
	var queries []models.SearchQuery
	for _, kw := range ExtractKeywords(text, DefaultKeywordCount) {
		switch mode {
		case models.ModeIdeas:
			queries = append(queries,
				models.SearchQuery{
					Text:     fmt.Sprintf("startup %s competitors", kw),
					Type:     models.QueryTypeCompetitor,
					Priority: models.PriorityHigh,
				},
				models.SearchQuery{
					Text:     fmt.Sprintf("market size %s", kw),
					Type:     models.QueryTypeMarketSize,
					Priority: models.PriorityMedium,
				},
			)
		default:
			queries = append(queries, models.SearchQuery{
				Text:     fmt.Sprintf("trend %s", kw),
				Type:     models.QueryTypeTrend,
				Priority: models.PriorityMedium,
			})
		}
	}
	if len(queries) > MaxQueriesPerIteration {
		queries = queries[:MaxQueriesPerIteration]
	}
	return queries
}
