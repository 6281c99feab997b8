package esv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spboyer/crucible/internal/cache"
	"github.com/spboyer/crucible/internal/metrics"
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/projectconfig"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	keywordBonus       = 0.3
	highQualityCutoff  = 0.7
	confirmedMinimum   = 3
	maxKeyFindings     = 3
	maxKeyFindingChars = 200
)

// RetryHook observes each backoff delay before a retry against source.
type RetryHook func(source string, retry int, delay time.Duration)

// Validator runs search queries against every configured source.
type Validator struct {
	sources       []Source
	cache         *cache.Cache
	limiter       *rate.Limiter
	batchSize     int
	sourceTimeout time.Duration
	maxAttempts   int
	baseDelay     time.Duration
	maxResults    int
	metrics       *metrics.Collector
	onRetry       RetryHook
	flight        singleflight.Group
	now           func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithCache replaces the default in-memory cache.
func WithCache(c *cache.Cache) Option {
	return func(v *Validator) { v.cache = c }
}

// WithBatchSize sets how many queries run concurrently.
func WithBatchSize(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.batchSize = n
		}
	}
}

// WithMinInterval sets the minimum spacing between any two source requests.
// Zero disables the gate.
func WithMinInterval(d time.Duration) Option {
	return func(v *Validator) {
		if d <= 0 {
			v.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		v.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithSourceTimeout bounds each individual source call.
func WithSourceTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.sourceTimeout = d
		}
	}
}

// WithRetry sets the attempt budget and the first backoff delay for sources
// that report ErrStillPreparing. Delays double on each retry.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(v *Validator) {
		if maxAttempts > 0 {
			v.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			v.baseDelay = baseDelay
		}
	}
}

// WithMaxResults sets the result cap for queries that do not set their own.
func WithMaxResults(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxResults = n
		}
	}
}

// WithMetrics records validator metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(v *Validator) { v.metrics = c }
}

// WithRetryHook registers a hook called before every retry sleep.
func WithRetryHook(h RetryHook) Option {
	return func(v *Validator) { v.onRetry = h }
}

// New creates a Validator over sources.
func New(sources []Source, opts ...Option) *Validator {
	v := &Validator{
		sources:       sources,
		cache:         cache.New(""),
		limiter:       rate.NewLimiter(rate.Every(projectconfig.DefaultMinInterval), 1),
		batchSize:     projectconfig.DefaultBatchSize,
		sourceTimeout: projectconfig.DefaultSourceTimeout,
		maxAttempts:   projectconfig.DefaultMaxAttempts,
		baseDelay:     projectconfig.DefaultRetryBaseDelay,
		maxResults:    projectconfig.DefaultMaxResults,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewFromConfig creates a Validator using the validation section of a config.
// Extra options are applied after the config values.
func NewFromConfig(cfg projectconfig.ValidationConfig, sources []Source, opts ...Option) *Validator {
	base := []Option{
		WithBatchSize(cfg.BatchSize),
		WithMinInterval(cfg.MinInterval),
		WithSourceTimeout(cfg.SourceTimeout),
		WithRetry(cfg.MaxAttempts, cfg.RetryBaseDelay),
		WithMaxResults(cfg.MaxResults),
	}
	return New(sources, append(base, opts...)...)
}

// Sources returns the names of the configured sources.
func (v *Validator) Sources() []string {
	names := make([]string, 0, len(v.sources))
	for _, s := range v.sources {
		names = append(names, s.Name())
	}
	return names
}

// ValidateAll validates every query and returns one result per query in
// input order. Cached results are returned as-is. Uncached queries run
// highest priority first, batchSize at a time; identical queries are
// dispatched once. A failing query yields an inconclusive result and never
// affects its siblings. Each returned result is counted once in the
// validations metric, cache hits included.
func (v *Validator) ValidateAll(ctx context.Context, queries []models.SearchQuery) []*models.ValidationResult {
	results := make([]*models.ValidationResult, len(queries))

	var pending []int
	firstByKey := make(map[string]int)
	var repeats []int
	for i, q := range queries {
		key := cache.Key(q)
		if _, dup := firstByKey[key]; dup {
			repeats = append(repeats, i)
			continue
		}
		if r, ok := v.cache.Get(key); ok {
			v.metrics.CacheLookup(true)
			slog.Debug("Validation cache hit", "query", q.Text, "type", q.Type)
			results[i] = r
			firstByKey[key] = i
			continue
		}
		v.metrics.CacheLookup(false)
		firstByKey[key] = i
		pending = append(pending, i)
	}

	sort.SliceStable(pending, func(a, b int) bool {
		return queries[pending[a]].Priority.Rank() < queries[pending[b]].Priority.Rank()
	})

	for start := 0; start < len(pending); start += v.batchSize {
		end := start + v.batchSize
		if end > len(pending) {
			end = len(pending)
		}

		var g errgroup.Group
		for _, idx := range pending[start:end] {
			g.Go(func() error {
				results[idx] = v.validateShared(ctx, queries[idx])
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, i := range repeats {
		results[i] = results[firstByKey[cache.Key(queries[i])]]
	}
	for _, r := range results {
		if r != nil {
			v.metrics.ObserveValidation(string(r.Status))
		}
	}
	return results
}

// validateShared collapses concurrent validations of the same query, across
// ValidateAll calls, into one dispatch.
func (v *Validator) validateShared(ctx context.Context, q models.SearchQuery) *models.ValidationResult {
	key := cache.Key(q)
	val, _, _ := v.flight.Do(key, func() (any, error) {
		r, cacheable := v.validateOne(ctx, q)
		if !cacheable {
			return r, nil
		}
		stored, err := v.cache.Put(key, r)
		if err != nil {
			slog.Warn("Failed to persist validation result", "query", q.Text, "error", err)
		}
		if !stored {
			if existing, ok := v.cache.Get(key); ok {
				return existing, nil
			}
		}
		return r, nil
	})
	return val.(*models.ValidationResult)
}

// validateOne queries every source and merges the hits. The boolean reports
// whether the result may be cached; results cut short by cancellation or a
// panic are not.
func (v *Validator) validateOne(ctx context.Context, q models.SearchQuery) (res *models.ValidationResult, cacheable bool) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Validation panicked", "query", q.Text, "panic", p)
			res, cacheable = errorResult(q, fmt.Errorf("panic: %v", p), v.now()), false
		}
	}()

	if err := ctx.Err(); err != nil {
		return errorResult(q, err, v.now()), false
	}

	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = v.maxResults
	}

	var all []models.SearchResult
	for _, s := range v.sources {
		all = append(all, v.search(ctx, s, q.Text, maxResults)...)
	}

	if err := ctx.Err(); err != nil {
		return errorResult(q, err, v.now()), false
	}
	return mergeResults(q, all, maxResults, v.now()), true
}

// search calls one source through the rate gate with a per-call timeout.
// ErrStillPreparing is retried with exponential backoff; any other failure
// contributes no results.
func (v *Validator) search(ctx context.Context, s Source, query string, maxResults int) []models.SearchResult {
	name := s.Name()
	backoff := retry.WithMaxRetries(uint64(v.maxAttempts-1), retry.NewExponential(v.baseDelay))
	retries := 0
	observed := retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := backoff.Next()
		if !stop {
			retries++
			v.metrics.SourceRetry(name)
			if v.onRetry != nil {
				v.onRetry(name, retries, delay)
			}
		}
		return delay, stop
	})

	results, err := retry.DoValue(ctx, observed, func(ctx context.Context) ([]models.SearchResult, error) {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, v.sourceTimeout)
		defer cancel()

		rs, err := s.Search(callCtx, query, maxResults)
		if errors.Is(err, ErrStillPreparing) {
			v.metrics.SourceRequest(name, "still_preparing")
			slog.Debug("Source still preparing, will retry", "source", name, "query", query)
			return nil, retry.RetryableError(err)
		}
		return rs, err
	})

	switch {
	case err == nil:
		v.metrics.SourceRequest(name, "ok")
		return results
	case errors.Is(err, context.DeadlineExceeded):
		v.metrics.SourceRequest(name, "timeout")
	case !errors.Is(err, ErrStillPreparing):
		v.metrics.SourceRequest(name, "error")
	}
	slog.Warn("Source search failed", "source", name, "query", query, "error", err)
	return nil
}

func errorResult(q models.SearchQuery, err error, now time.Time) *models.ValidationResult {
	return &models.ValidationResult{
		Query:      q,
		Summary:    fmt.Sprintf("Error during validation: %v", err),
		Confidence: 0,
		Status:     models.ValidationInconclusive,
		Timestamp:  now.UTC(),
	}
}

// mergeResults dedupes, scores and ranks raw hits and derives the verdict.
func mergeResults(q models.SearchQuery, all []models.SearchResult, maxResults int, now time.Time) *models.ValidationResult {
	result := &models.ValidationResult{
		Query:     q,
		Timestamp: now.UTC(),
	}

	unique := dedupeByURL(all)
	if len(unique) == 0 {
		result.Summary = "No relevant information found for this query."
		result.Status = models.ValidationInconclusive
		return result
	}

	scoreRelevance(unique, q.Text)

	highQuality := 0
	for _, r := range unique {
		if r.Confidence > highQualityCutoff && r.Relevance > highQualityCutoff {
			highQuality++
		}
	}
	switch {
	case highQuality >= confirmedMinimum:
		result.Status, result.Confidence = models.ValidationConfirmed, 0.8
	case highQuality >= 1:
		result.Status, result.Confidence = models.ValidationPartial, 0.6
	default:
		result.Status, result.Confidence = models.ValidationInconclusive, 0.3
	}

	for _, r := range unique {
		if len(result.KeyFindings) == maxKeyFindings {
			break
		}
		if r.Snippet == "" {
			continue
		}
		result.KeyFindings = append(result.KeyFindings, fmt.Sprintf("[%s] %s", r.Source, truncateRunes(r.Snippet, maxKeyFindingChars)))
	}

	seen := make(map[string]bool)
	for _, r := range unique {
		if !seen[r.Source] {
			seen[r.Source] = true
			result.Sources = append(result.Sources, r.Source)
		}
	}

	result.Summary = summaryText(q.Type, len(unique), len(result.Sources), result.Status, result.Confidence)

	if len(unique) > maxResults {
		unique = unique[:maxResults]
	}
	result.Results = unique
	return result
}

// dedupeByURL keeps the first hit per URL. Hits without a URL are all kept.
func dedupeByURL(all []models.SearchResult) []models.SearchResult {
	seen := make(map[string]bool, len(all))
	out := make([]models.SearchResult, 0, len(all))
	for _, r := range all {
		if r.URL != "" {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
		}
		out = append(out, r)
	}
	return out
}

// scoreRelevance rescores results in place and sorts them by relevance,
// highest first.
func scoreRelevance(results []models.SearchResult, query string) {
	keywords := uniqueWords(query)
	for i := range results {
		r := &results[i]
		var bonus float64
		if len(keywords) > 0 {
			text := strings.ToLower(r.Title + " " + r.Snippet)
			matches := 0
			for _, k := range keywords {
				if strings.Contains(text, k) {
					matches++
				}
			}
			bonus = float64(matches) / float64(len(keywords)) * keywordBonus
		}
		r.Relevance = minFloat(r.Relevance+bonus+SourceCredibility[r.Source], 1)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
}

func uniqueWords(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func summaryText(t models.QueryType, results, sources int, status models.ValidationStatus, confidence float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results from %d sources. Validation status: %s. Confidence level: %.2f.", results, sources, status, confidence)
	switch t {
	case models.QueryTypeCompetitor:
		b.WriteString(" Checked for existing competitors in the market.")
	case models.QueryTypeTrend:
		b.WriteString(" Checked the trend and how widespread it is.")
	case models.QueryTypeMarketSize:
		b.WriteString(" Searched for market size data.")
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Clear empties the result cache.
func (v *Validator) Clear() error {
	return v.cache.Clear()
}

// CacheStats reports cache usage.
func (v *Validator) CacheStats() cache.Stats {
	return v.cache.Stats()
}
