package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spboyer/crucible/internal/esv"
	"github.com/stretchr/testify/require"
)

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "remote work", r.URL.Query().Get("q"))
		require.Equal(t, "json", r.URL.Query().Get("format"))
		require.Equal(t, "1", r.URL.Query().Get("no_html"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))

		fmt.Fprint(w, `{
			"Abstract": "Remote work is work done outside an office.",
			"AbstractText": "Remote work is work done outside an office.",
			"AbstractURL": "https://en.wikipedia.org/wiki/Remote_work",
			"RelatedTopics": [
				{"Text": "Telecommuting history", "FirstURL": "https://duckduckgo.com/Telecommuting"},
				{"Name": "Group", "Topics": []},
				{"Text": "Hybrid work", "FirstURL": "https://duckduckgo.com/Hybrid"},
				{"Text": "t3", "FirstURL": "https://duckduckgo.com/3"},
				{"Text": "t4", "FirstURL": "https://duckduckgo.com/4"},
				{"Text": "t5", "FirstURL": "https://duckduckgo.com/5"},
				{"Text": "t6", "FirstURL": "https://duckduckgo.com/6"}
			]
		}`)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(srv.URL, time.Second)
	require.Equal(t, "duckduckgo", d.Name())

	results, err := d.Search(context.Background(), "remote work", 10)
	require.NoError(t, err)
	require.Len(t, results, 5, "abstract plus the text-bearing topics among the first five")

	require.Equal(t, "duckduckgo_abstract", results[0].Source)
	require.Equal(t, 0.8, results[0].Confidence)
	require.Equal(t, 0.9, results[0].Relevance)
	require.Equal(t, "https://en.wikipedia.org/wiki/Remote_work", results[0].URL)

	require.Equal(t, "duckduckgo_related", results[1].Source)
	require.Equal(t, "Telecommuting history", results[1].Title)
	require.Equal(t, 0.6, results[1].Confidence)
	require.Equal(t, 0.7, results[1].Relevance)
}

func TestDuckDuckGoStillPreparing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	_, err := NewDuckDuckGo(srv.URL, time.Second).Search(context.Background(), "q", 10)
	require.ErrorIs(t, err, esv.ErrStillPreparing)
}

func TestDuckDuckGoHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewDuckDuckGo(srv.URL, time.Second).Search(context.Background(), "q", 10)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestGitHubSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "startup crm competitors", r.URL.Query().Get("q"))
		require.Equal(t, "stars", r.URL.Query().Get("sort"))
		require.Equal(t, "3", r.URL.Query().Get("per_page"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		fmt.Fprint(w, `{"items": [
			{"full_name": "acme/crm", "html_url": "https://github.com/acme/crm", "description": "Open source CRM", "stargazers_count": 2500, "updated_at": "2026-01-02T03:04:05Z"},
			{"full_name": "tiny/crm", "html_url": "https://github.com/tiny/crm", "description": "", "stargazers_count": 250, "updated_at": "2025-06-01T00:00:00Z"}
		]}`)
	}))
	defer srv.Close()

	g := NewGitHub(srv.URL, "tok", time.Second)
	results, err := g.Search(context.Background(), "startup crm competitors", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, "acme/crm", results[0].Title)
	require.Equal(t, 1.0, results[0].Confidence)
	require.Equal(t, 0.8, results[0].Relevance)
	require.Equal(t, "github", results[0].Source)
	require.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), results[0].Timestamp)
	require.InDelta(t, 0.25, results[1].Confidence, 1e-9)
}

func TestGitHubRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewGitHub(srv.URL, "", time.Second).Search(context.Background(), "q", 10)
	require.EqualError(t, err, "github returned HTTP 403")
}

const rssDoc = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>News</title>
<item><title>Fintech lending rebounds</title><link>https://news.example/1</link><description>Lending startups raise again.</description><pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate></item>
<item><title>Weather report</title><link>https://news.example/2</link><description>Sunny.</description></item>
<item><title>Payroll fintech</title><link>https://news.example/3</link><description>Another one.</description></item>
</channel></rss>`

func TestFeedSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssDoc)
	}))
	defer srv.Close()

	f := NewFeed([]string{srv.URL + "/mirror", srv.URL}, time.Second)
	results, err := f.Search(context.Background(), "market size fintech", 10)
	require.NoError(t, err)

	// both URLs serve the same document
	require.Len(t, results, 4)
	require.Equal(t, "Fintech lending rebounds", results[0].Title)
	require.Equal(t, "feed", results[0].Source)
	require.Equal(t, 0.6, results[0].Confidence)
	require.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), results[0].Timestamp.UTC())

	limited, err := f.Search(context.Background(), "fintech", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestFeedSearchAllFeedsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFeed([]string{srv.URL}, time.Second).Search(context.Background(), "fintech news", 10)
	require.Error(t, err)
}

func TestFeedSearchShortQuery(t *testing.T) {
	results, err := NewFeed([]string{"http://unused.invalid"}, time.Second).Search(context.Background(), "ai ml", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}
