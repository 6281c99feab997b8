package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spboyer/crucible/internal/models"
)

const (
	gitHubEndpoint   = "https://api.github.com/search/repositories"
	gitHubMaxPerPage = 10
	gitHubStarScale  = 1000.0
)

// GitHub searches public repositories, most starred first. Star count
// stands in for confidence.
type GitHub struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewGitHub creates the source. token is optional and only raises the rate
// limit.
func NewGitHub(endpoint, token string, timeout time.Duration) *GitHub {
	if endpoint == "" {
		endpoint = gitHubEndpoint
	}
	return &GitHub{endpoint: endpoint, token: token, client: newHTTPClient(timeout)}
}

func (g *GitHub) Name() string {
	return "github"
}

type gitHubSearchResponse struct {
	Items []struct {
		FullName    string    `json:"full_name"`
		HTMLURL     string    `json:"html_url"`
		Description string    `json:"description"`
		Stars       int       `json:"stargazers_count"`
		UpdatedAt   time.Time `json:"updated_at"`
	} `json:"items"`
}

func (g *GitHub) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	perPage := gitHubMaxPerPage
	if maxResults > 0 && maxResults < perPage {
		perPage = maxResults
	}

	params := url.Values{
		"q":        {query},
		"sort":     {"stars"},
		"order":    {"desc"},
		"per_page": {strconv.Itoa(perPage)},
	}
	header := http.Header{"Accept": {"application/vnd.github.v3+json"}}
	if g.token != "" {
		header.Set("Authorization", "Bearer "+g.token)
	}

	var body gitHubSearchResponse
	status, err := getJSON(ctx, g.client, g.endpoint, params, header, &body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{Source: g.Name(), StatusCode: status}
	}

	results := make([]models.SearchResult, 0, len(body.Items))
	for _, item := range body.Items {
		results = append(results, models.SearchResult{
			Title:      item.FullName,
			URL:        item.HTMLURL,
			Snippet:    item.Description,
			Source:     "github",
			Confidence: min(float64(item.Stars)/gitHubStarScale, 1),
			Relevance:  0.8,
			Timestamp:  item.UpdatedAt,
		})
	}
	return results, nil
}
