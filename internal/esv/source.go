// Package esv validates claims against external search sources. It batches
// and prioritises queries, shares one rate gate across every request, retries
// sources that are still preparing an answer and caches merged results.
package esv

import (
	"context"
	"errors"

	"github.com/spboyer/crucible/internal/models"
)

//go:generate mockgen -destination=../mocks/mock_source.go -package=mocks github.com/spboyer/crucible/internal/esv Source

// ErrStillPreparing is returned by a source that accepted the request but has
// no answer yet (HTTP 202). The validator retries it with backoff.
var ErrStillPreparing = errors.New("source is still preparing results")

// Source is one external search backend.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Search returns up to maxResults hits for query.
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
}

// SourceCredibility is the relevance bonus granted to results by origin.
// Origins not listed get no bonus.
var SourceCredibility = map[string]float64{
	"google":              0.2,
	"bing":                0.2,
	"github":              0.1,
	"duckduckgo_abstract": 0.15,
	"duckduckgo_related":  0.05,
	"feed":                0.05,
}
