package sources

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/spboyer/crucible/internal/esv"
	"github.com/spboyer/crucible/internal/models"
)

const (
	duckDuckGoEndpoint   = "https://api.duckduckgo.com/"
	maxRelatedTopics     = 5
	duckDuckGoTitleChars = 100
)

// DuckDuckGo queries the Instant Answer API. It returns the abstract and a
// handful of related topics rather than full web results.
type DuckDuckGo struct {
	endpoint string
	client   *http.Client
	now      func() time.Time
}

// NewDuckDuckGo creates the source. An empty endpoint uses the public API.
func NewDuckDuckGo(endpoint string, timeout time.Duration) *DuckDuckGo {
	if endpoint == "" {
		endpoint = duckDuckGoEndpoint
	}
	return &DuckDuckGo{endpoint: endpoint, client: newHTTPClient(timeout), now: time.Now}
}

func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

type duckDuckGoResponse struct {
	Abstract      string         `json:"Abstract"`
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

// relatedTopic is either a topic or a named group of topics; groups
// carry no Text and are skipped.
type relatedTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

// Search returns esv.ErrStillPreparing on HTTP 202 so the validator backs off.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}

	var body duckDuckGoResponse
	status, err := getJSON(ctx, d.client, d.endpoint, params, nil, &body)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusAccepted:
		return nil, esv.ErrStillPreparing
	default:
		return nil, &StatusError{Source: d.Name(), StatusCode: status}
	}

	now := d.now().UTC()
	var results []models.SearchResult
	if body.Abstract != "" {
		results = append(results, models.SearchResult{
			Title:      truncate(body.AbstractText, duckDuckGoTitleChars),
			URL:        body.AbstractURL,
			Snippet:    body.AbstractText,
			Source:     "duckduckgo_abstract",
			Confidence: 0.8,
			Relevance:  0.9,
			Timestamp:  now,
		})
	}

	topics := body.RelatedTopics
	if len(topics) > maxRelatedTopics {
		topics = topics[:maxRelatedTopics]
	}
	for _, topic := range topics {
		if topic.Text == "" {
			continue
		}
		results = append(results, models.SearchResult{
			Title:      truncate(topic.Text, duckDuckGoTitleChars),
			URL:        topic.FirstURL,
			Snippet:    topic.Text,
			Source:     "duckduckgo_related",
			Confidence: 0.6,
			Relevance:  0.7,
			Timestamp:  now,
		})
	}

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}
