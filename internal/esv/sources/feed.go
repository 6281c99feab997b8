package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/spboyer/crucible/internal/models"
)

const feedSnippetChars = 300

// Feed searches the latest entries of a fixed set of RSS or Atom feeds.
// An entry matches when its title or description contains any query word
// longer than three letters.
type Feed struct {
	urls   []string
	client *http.Client
	now    func() time.Time
}

// NewFeed creates a source over the given feed URLs.
func NewFeed(urls []string, timeout time.Duration) *Feed {
	return &Feed{urls: urls, client: newHTTPClient(timeout), now: time.Now}
}

func (f *Feed) Name() string {
	return "feed"
}

// Search fails only when every feed fails; a single broken feed is logged
// and skipped.
func (f *Feed) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	terms := feedTerms(query)
	if len(terms) == 0 || len(f.urls) == 0 {
		return nil, nil
	}

	var results []models.SearchResult
	var lastErr error
	failures := 0

	for _, u := range f.urls {
		feed, err := f.fetch(ctx, u)
		if err != nil {
			failures++
			lastErr = err
			slog.Debug("Feed fetch failed", "url", u, "error", err)
			continue
		}

		for _, item := range feed.Items {
			text := strings.ToLower(item.Title + " " + item.Description)
			if !containsAny(text, terms) {
				continue
			}

			ts := f.now().UTC()
			if item.PublishedParsed != nil {
				ts = *item.PublishedParsed
			} else if item.UpdatedParsed != nil {
				ts = *item.UpdatedParsed
			}

			snippet := item.Description
			if snippet == "" {
				snippet = item.Content
			}

			results = append(results, models.SearchResult{
				Title:      item.Title,
				URL:        item.Link,
				Snippet:    truncate(strings.TrimSpace(snippet), feedSnippetChars),
				Source:     "feed",
				Confidence: 0.6,
				Relevance:  0.6,
				Timestamp:  ts,
			})
			if maxResults > 0 && len(results) >= maxResults {
				return results, nil
			}
		}
	}

	if failures == len(f.urls) {
		return nil, lastErr
	}
	return results, nil
}

func (f *Feed) fetch(ctx context.Context, u string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Source: f.Name(), StatusCode: resp.StatusCode}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

func feedTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
