package fulltext

import (
	"context"
	crand "crypto/rand"
	"math/big"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/neoluxis/gua4destiny/internal/gua"
	"github.com/neoluxis/gua4destiny/internal/metrics"
)

// Provenance values reported for cache-served results.
const (
	CacheSourceKey = "cache"
	CacheSourceURL = "cache://local"
)

// DefaultUserAgents is the rotation pool used when none is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0 Safari/537.36",
}

// Fetcher executes a single HTTP GET. Implementations must be safe for
// concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers http.Header) (FetchResponse, error)
}

// FetchResponse is the raw outcome of one fetch attempt.
type FetchResponse struct {
	StatusCode int
	Body       []byte
}

// Result is the outcome of one successful resolution. SourceURL is
// CacheSourceURL and SourceKey is CacheSourceKey when served from cache.
type Result struct {
	Text      string `json:"text"`
	SourceURL string `json:"source_url"`
	SourceKey string `json:"source_key"`
	CacheHit  bool   `json:"cache_hit"`
}

// Options is the configuration surface of the Service. Zero values fall
// back to the documented defaults.
type Options struct {
	CacheDir   string
	MinDelay   time.Duration // politeness delay lower bound, default 800ms
	MaxDelay   time.Duration // politeness delay upper bound, default 1.6s
	MaxRetries int           // attempts per candidate, default 4
	Timeout    time.Duration // per-request timeout, default 15s
	UserAgents []string
	// Sources restricts the active source keys; empty means all.
	Sources []string

	// HeaderProvider overrides the rotating User-Agent defaults.
	HeaderProvider func() http.Header
	// Backoff overrides the retry delay schedule, keyed by 1-based attempt.
	Backoff func(attempt int) time.Duration
	// CacheKeyBuilder overrides the cache key derivation.
	CacheKeyBuilder func(q Query) string
}

const (
	defaultMinDelay   = 800 * time.Millisecond
	defaultMaxDelay   = 1600 * time.Millisecond
	defaultMaxRetries = 4
	defaultTimeout    = 15 * time.Second
)

// Service is the fetch orchestrator: it consults the cache, resolves
// ordered candidates, fetches with retry/backoff and validates extracted
// text. A Service is safe for concurrent use; independent resolutions
// share the fetcher and the cache.
type Service struct {
	sources    []Source
	tables     *gua.Category
	cache      *Cache
	fetcher    Fetcher
	logger     *zap.Logger
	minDelay   time.Duration
	maxDelay   time.Duration
	maxRetries int
	timeout    time.Duration
	headersFor func() http.Header
	backoff    func(attempt int) time.Duration
	cacheKey   func(q Query) string
}

// NewService wires the orchestrator from a registry and options.
func NewService(reg *Registry, tables *gua.Category, fetcher Fetcher, opts Options, logger *zap.Logger) (*Service, error) {
	if tables == nil {
		tables = gua.DefaultCategory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = ".cache/fulltext"
	}
	cache, err := NewCache(cacheDir)
	if err != nil {
		return nil, err
	}

	s := &Service{
		sources:    reg.Active(opts.Sources),
		tables:     tables,
		cache:      cache,
		fetcher:    fetcher,
		logger:     logger,
		minDelay:   opts.MinDelay,
		maxDelay:   opts.MaxDelay,
		maxRetries: opts.MaxRetries,
		timeout:    opts.Timeout,
		headersFor: opts.HeaderProvider,
		backoff:    opts.Backoff,
		cacheKey:   opts.CacheKeyBuilder,
	}
	if s.minDelay <= 0 {
		s.minDelay = defaultMinDelay
	}
	if s.maxDelay <= 0 {
		s.maxDelay = defaultMaxDelay
	}
	if s.maxDelay < s.minDelay {
		s.maxDelay = s.minDelay
	}
	if s.maxRetries <= 0 {
		s.maxRetries = defaultMaxRetries
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.headersFor == nil {
		pool := opts.UserAgents
		if len(pool) == 0 {
			pool = DefaultUserAgents
		}
		s.headersFor = rotatingHeaders(pool)
	}
	if s.backoff == nil {
		s.backoff = DefaultBackoff(randomUnit)
	}
	if s.cacheKey == nil {
		s.cacheKey = CacheKey
	}
	return s, nil
}

// FetchFullText resolves a full text for the query. When useCache is
// true a cached entry short-circuits all network access.
func (s *Service) FetchFullText(ctx context.Context, q Query, useCache bool) (Result, error) {
	q = Normalize(q, s.tables)
	key := s.cacheKey(q)

	if useCache {
		if text, ok := s.cache.Get(key); ok {
			metrics.ObserveCacheLookup(true)
			return Result{
				Text:      text,
				SourceURL: CacheSourceURL,
				SourceKey: CacheSourceKey,
				CacheHit:  true,
			}, nil
		}
		metrics.ObserveCacheLookup(false)
	}

	jobs, err := resolveJobs(q, s.sources)
	if err != nil {
		return Result{}, err
	}

	var lastErr error
	for _, j := range jobs {
		for attempt := 1; attempt <= s.maxRetries; attempt++ {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			text, err := s.attempt(ctx, j, q)
			if err == nil {
				if werr := s.cache.Put(key, text); werr != nil {
					s.logger.Debug("cache write failed", zap.String("key", key), zap.Error(werr))
				}
				s.politePause(ctx)
				return Result{
					Text:      text,
					SourceURL: j.URL,
					SourceKey: j.SourceKey,
					CacheHit:  false,
				}, nil
			}
			lastErr = err
			metrics.ObserveFetch(j.SourceKey, "error")
			s.logger.Debug("fetch attempt failed",
				zap.String("source", j.SourceKey),
				zap.String("url", j.URL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if err := pause(ctx, s.backoff(attempt)); err != nil {
				return Result{}, err
			}
		}
	}

	attempted := make([]string, len(jobs))
	for i, j := range jobs {
		attempted[i] = j.URL
	}
	return Result{}, &ExhaustedError{Attempted: attempted, Last: lastErr}
}

// attempt performs one fetch+extract+validate cycle for a candidate.
func (s *Service) attempt(ctx context.Context, j job, q Query) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.fetcher.Fetch(reqCtx, j.URL, s.headersFor())
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: j.URL, StatusCode: resp.StatusCode}
	}

	text := j.source.Extract(string(resp.Body), q, j.URL)
	if isBlank(text) {
		return "", ErrEmptyExtraction
	}
	metrics.ObserveFetch(j.SourceKey, "ok")
	return text, nil
}

// politePause sleeps a uniform random duration in [minDelay, maxDelay]
// after a successful network fetch to limit request rate.
func (s *Service) politePause(ctx context.Context) {
	delay := s.minDelay
	if span := s.maxDelay - s.minDelay; span > 0 {
		delay += randomDuration(span)
	}
	_ = pause(ctx, delay)
}

// pause blocks for delay or until the context finishes.
func pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DefaultBackoff builds the default schedule: 2^(attempt-1) seconds plus
// a jitter fraction of one second drawn from unit, which must return
// values in [0, 1).
func DefaultBackoff(unit func() float64) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		base := time.Duration(1<<(attempt-1)) * time.Second
		jitter := time.Duration(unit() * float64(time.Second))
		return base + jitter
	}
}

// rotatingHeaders picks a random User-Agent from pool per request.
func rotatingHeaders(pool []string) func() http.Header {
	return func() http.Header {
		h := http.Header{}
		h.Set("User-Agent", pool[randomIndex(len(pool))])
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		h.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
		return h
	}
}

func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// randomUnit returns a value in [0, 1).
func randomUnit() float64 {
	const scale = 1 << 30
	v, err := crand.Int(crand.Reader, big.NewInt(scale))
	if err != nil {
		return 0.5
	}
	return float64(v.Int64()) / scale
}

func randomDuration(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	v, err := crand.Int(crand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(v.Int64())
}

func isBlank(text string) bool {
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
