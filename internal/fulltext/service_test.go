package fulltext

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fetchFunc func(ctx context.Context, url string, headers http.Header) (FetchResponse, error)

func (f fetchFunc) Fetch(ctx context.Context, url string, headers http.Header) (FetchResponse, error) {
	return f(ctx, url, headers)
}

// countingFetcher records every request and replies from a per-URL script,
// repeating the last entry once the script runs out.
type countingFetcher struct {
	mu      sync.Mutex
	calls   []string
	scripts map[string][]func() (FetchResponse, error)
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{scripts: make(map[string][]func() (FetchResponse, error))}
}

func (f *countingFetcher) on(url string, steps ...func() (FetchResponse, error)) {
	f.scripts[url] = steps
}

func (f *countingFetcher) Fetch(_ context.Context, url string, _ http.Header) (FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)

	steps := f.scripts[url]
	if len(steps) == 0 {
		return FetchResponse{}, errors.New("no script for " + url)
	}
	step := steps[0]
	if len(steps) > 1 {
		f.scripts[url] = steps[1:]
	}
	return step()
}

func (f *countingFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

func ok(body string) func() (FetchResponse, error) {
	return func() (FetchResponse, error) {
		return FetchResponse{StatusCode: http.StatusOK, Body: []byte(body)}, nil
	}
}

func status(code int) func() (FetchResponse, error) {
	return func() (FetchResponse, error) {
		return FetchResponse{StatusCode: code}, nil
	}
}

func fail(err error) func() (FetchResponse, error) {
	return func() (FetchResponse, error) {
		return FetchResponse{}, err
	}
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		CacheDir: t.TempDir(),
		MinDelay: time.Nanosecond,
		MaxDelay: time.Nanosecond,
		Backoff:  func(int) time.Duration { return 0 },
	}
}

func newTestService(t *testing.T, fetcher Fetcher, opts Options, sources ...Source) *Service {
	t.Helper()
	r := NewRegistry()
	for _, s := range sources {
		require.NoError(t, r.Register(s))
	}
	svc, err := NewService(r, nil, fetcher, opts, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestServiceFetchesAndCaches(t *testing.T) {
	t.Parallel()
	const pageURL = "https://example.test/qian"
	fetcher := newCountingFetcher()
	fetcher.on(pageURL, ok("<html>whatever</html>"))

	src := &fakeSource{
		key:        "alpha",
		priority:   10,
		candidates: []Candidate{{SourceKey: "alpha", URL: pageURL}},
		extracted:  "乾：元亨利贞。",
	}
	svc := newTestService(t, fetcher, testOptions(t), src)

	got, err := svc.FetchFullText(context.Background(), Query{Index: 1}, true)
	require.NoError(t, err)
	require.Equal(t, Result{
		Text:      "乾：元亨利贞。",
		SourceURL: pageURL,
		SourceKey: "alpha",
	}, got)
	require.Equal(t, 1, fetcher.callCount(pageURL))

	// Second lookup is served from cache without touching the network.
	got, err = svc.FetchFullText(context.Background(), Query{Index: 1}, true)
	require.NoError(t, err)
	require.Equal(t, Result{
		Text:      "乾：元亨利贞。",
		SourceURL: CacheSourceURL,
		SourceKey: CacheSourceKey,
		CacheHit:  true,
	}, got)
	require.Equal(t, 1, fetcher.callCount(pageURL))
}

func TestServiceBypassesCacheWhenDisabled(t *testing.T) {
	t.Parallel()
	const pageURL = "https://example.test/kun"
	fetcher := newCountingFetcher()
	fetcher.on(pageURL, ok("page"))

	src := &fakeSource{
		key:        "alpha",
		priority:   10,
		candidates: []Candidate{{SourceKey: "alpha", URL: pageURL}},
		extracted:  "坤：元亨。",
	}
	svc := newTestService(t, fetcher, testOptions(t), src)

	_, err := svc.FetchFullText(context.Background(), Query{Index: 2}, true)
	require.NoError(t, err)

	got, err := svc.FetchFullText(context.Background(), Query{Index: 2}, false)
	require.NoError(t, err)
	require.False(t, got.CacheHit)
	require.Equal(t, 2, fetcher.callCount(pageURL))
}

func TestServiceRetriesTransportErrors(t *testing.T) {
	t.Parallel()
	const pageURL = "https://example.test/zhun"
	fetcher := newCountingFetcher()
	fetcher.on(pageURL,
		fail(errors.New("connection reset")),
		fail(errors.New("connection reset")),
		ok("page"),
	)

	src := &fakeSource{
		key:        "alpha",
		priority:   10,
		candidates: []Candidate{{SourceKey: "alpha", URL: pageURL}},
		extracted:  "屯：元亨利贞。",
	}
	svc := newTestService(t, fetcher, testOptions(t), src)

	got, err := svc.FetchFullText(context.Background(), Query{Index: 3}, false)
	require.NoError(t, err)
	require.Equal(t, "屯：元亨利贞。", got.Text)
	require.Equal(t, 3, fetcher.callCount(pageURL))
}

func TestServiceAdvancesToNextCandidateAfterExhaustion(t *testing.T) {
	t.Parallel()
	const (
		brokenURL = "https://example.test/broken"
		goodURL   = "https://example.test/good"
	)
	fetcher := newCountingFetcher()
	fetcher.on(brokenURL, status(http.StatusServiceUnavailable))
	fetcher.on(goodURL, ok("page"))

	first := &fakeSource{
		key:        "alpha",
		priority:   10,
		candidates: []Candidate{{SourceKey: "alpha", URL: brokenURL}},
		extracted:  "unused",
	}
	second := &fakeSource{
		key:        "beta",
		priority:   20,
		candidates: []Candidate{{SourceKey: "beta", URL: goodURL}},
		extracted:  "蒙：亨。",
	}
	opts := testOptions(t)
	opts.MaxRetries = 2
	svc := newTestService(t, fetcher, opts, first, second)

	got, err := svc.FetchFullText(context.Background(), Query{Index: 4}, false)
	require.NoError(t, err)
	require.Equal(t, "beta", got.SourceKey)
	require.Equal(t, 2, fetcher.callCount(brokenURL))
	require.Equal(t, 1, fetcher.callCount(goodURL))
}

func TestServiceReportsAllAttemptedURLsWhenExhausted(t *testing.T) {
	t.Parallel()
	const (
		urlOne = "https://example.test/one"
		urlTwo = "https://example.test/two"
	)
	fetcher := newCountingFetcher()
	fetcher.on(urlOne, status(http.StatusInternalServerError))
	fetcher.on(urlTwo, status(http.StatusInternalServerError))

	first := &fakeSource{key: "alpha", priority: 10,
		candidates: []Candidate{{SourceKey: "alpha", URL: urlOne}}}
	second := &fakeSource{key: "beta", priority: 20,
		candidates: []Candidate{{SourceKey: "beta", URL: urlTwo}}}

	opts := testOptions(t)
	opts.MaxRetries = 2
	svc := newTestService(t, fetcher, opts, first, second)

	_, err := svc.FetchFullText(context.Background(), Query{Index: 5}, false)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, []string{urlOne, urlTwo}, exhausted.Attempted)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestServiceTreatsEmptyExtractionAsFailure(t *testing.T) {
	t.Parallel()
	const pageURL = "https://example.test/empty"
	fetcher := newCountingFetcher()
	fetcher.on(pageURL, ok("page full of chrome"))

	src := &fakeSource{
		key:        "alpha",
		priority:   10,
		candidates: []Candidate{{SourceKey: "alpha", URL: pageURL}},
		extracted:  " \n\t ",
	}
	opts := testOptions(t)
	opts.MaxRetries = 2
	svc := newTestService(t, fetcher, opts, src)

	_, err := svc.FetchFullText(context.Background(), Query{Index: 6}, false)
	require.ErrorIs(t, err, ErrEmptyExtraction)
	require.Equal(t, 2, fetcher.callCount(pageURL))
}

func TestServiceFailsWhenNoCandidateResolves(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, newCountingFetcher(), testOptions(t),
		&fakeSource{key: "alpha", priority: 10})

	_, err := svc.FetchFullText(context.Background(), Query{Name: "乾"}, false)
	require.ErrorIs(t, err, ErrNoSourceResolved)
}

func TestServiceStopsOnCanceledContext(t *testing.T) {
	t.Parallel()
	const pageURL = "https://example.test/slow"
	fetcher := newCountingFetcher()
	fetcher.on(pageURL, status(http.StatusInternalServerError))

	src := &fakeSource{
		key:        "alpha",
		priority:   10,
		candidates: []Candidate{{SourceKey: "alpha", URL: pageURL}},
	}
	svc := newTestService(t, fetcher, testOptions(t), src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.FetchFullText(ctx, Query{Index: 7}, false)
	require.ErrorIs(t, err, context.Canceled)
}

func TestServiceSendsRotatingBrowserHeaders(t *testing.T) {
	t.Parallel()
	const pageURL = "https://example.test/headers"

	var seen http.Header
	fetcher := fetchFunc(func(_ context.Context, _ string, headers http.Header) (FetchResponse, error) {
		seen = headers
		return FetchResponse{StatusCode: http.StatusOK, Body: []byte("page")}, nil
	})

	src := &fakeSource{
		key:        "alpha",
		priority:   10,
		candidates: []Candidate{{SourceKey: "alpha", URL: pageURL}},
		extracted:  "text",
	}
	svc := newTestService(t, fetcher, testOptions(t), src)

	_, err := svc.FetchFullText(context.Background(), Query{Index: 8}, false)
	require.NoError(t, err)
	require.Contains(t, DefaultUserAgents, seen.Get("User-Agent"))
	require.Contains(t, seen.Get("Accept-Language"), "zh-CN")
}

func TestDefaultBackoffDoublesWithJitter(t *testing.T) {
	t.Parallel()
	backoff := DefaultBackoff(func() float64 { return 0.25 })

	require.Equal(t, 1250*time.Millisecond, backoff(1))
	require.Equal(t, 2250*time.Millisecond, backoff(2))
	require.Equal(t, 4250*time.Millisecond, backoff(3))
	require.Equal(t, 8250*time.Millisecond, backoff(4))
}
