package api

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neoluxis/gua4destiny/internal/divination"
	"github.com/neoluxis/gua4destiny/internal/fulltext"
)

type stubTexts struct {
	result  fulltext.Result
	err     error
	lastQ   fulltext.Query
	lastUse bool
}

func (s *stubTexts) FetchFullText(_ context.Context, q fulltext.Query, useCache bool) (fulltext.Result, error) {
	s.lastQ = q
	s.lastUse = useCache
	return s.result, s.err
}

func newTestServer(texts TextFetcher) *Server {
	engine := divination.NewEngine(
		divination.WithRand(rand.New(rand.NewPCG(5, 5))),
		divination.WithMethod(divination.MethodUniform),
	)
	return NewServer(engine, texts, nil, zap.NewNop())
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(&stubTexts{})

	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(&stubTexts{})
	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCastHexagramWithExplicitLines(t *testing.T) {
	t.Parallel()
	s := newTestServer(&stubTexts{})

	rec := do(t, s, http.MethodPost, "/v1/hexagrams", `{"lines":[9,7,9,7,7,9]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Index  int    `json:"index"`
		Name   string `json:"name"`
		Binary string `json:"binary"`
		Lines  []struct {
			Value  int  `json:"value"`
			Moving bool `json:"moving"`
		} `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, 1, view.Index)
	require.Equal(t, "乾", view.Name)
	require.Equal(t, "111111", view.Binary)
	require.Len(t, view.Lines, 6)
	require.True(t, view.Lines[0].Moving)
	require.False(t, view.Lines[1].Moving)
}

func TestCastHexagramRandomWhenBodyEmpty(t *testing.T) {
	t.Parallel()
	s := newTestServer(&stubTexts{})

	rec := do(t, s, http.MethodPost, "/v1/hexagrams", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Index int `json:"index"`
		Lines []struct {
			Value int `json:"value"`
		} `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.GreaterOrEqual(t, view.Index, 1)
	require.LessOrEqual(t, view.Index, 64)
	require.Len(t, view.Lines, 6)
}

func TestCastHexagramRejectsBadLines(t *testing.T) {
	t.Parallel()
	s := newTestServer(&stubTexts{})

	rec := do(t, s, http.MethodPost, "/v1/hexagrams", `{"lines":[1,2,3,4,5,6]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/hexagrams", `{"lines":[7,7]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/hexagrams", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetFullTextByIndex(t *testing.T) {
	t.Parallel()
	texts := &stubTexts{result: fulltext.Result{
		Text:      "乾：元亨利贞。",
		SourceURL: "https://zh.wikisource.org/wiki/周易/乾",
		SourceKey: "wikisource",
	}}
	s := newTestServer(texts)

	rec := do(t, s, http.MethodGet, "/v1/hexagrams/1/text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, fulltext.Query{Index: 1}, texts.lastQ)
	require.True(t, texts.lastUse)

	var result fulltext.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, "乾：元亨利贞。", result.Text)
	require.Equal(t, "wikisource", result.SourceKey)
}

func TestGetFullTextByName(t *testing.T) {
	t.Parallel()
	texts := &stubTexts{result: fulltext.Result{Text: "text"}}
	s := newTestServer(texts)

	rec := do(t, s, http.MethodGet, "/v1/hexagrams/困/text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, fulltext.Query{Name: "困"}, texts.lastQ)
}

func TestGetFullTextRefreshBypassesCache(t *testing.T) {
	t.Parallel()
	texts := &stubTexts{result: fulltext.Result{Text: "text"}}
	s := newTestServer(texts)

	rec := do(t, s, http.MethodGet, "/v1/hexagrams/1/text?refresh=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, texts.lastUse)
}

func TestGetFullTextErrorMapping(t *testing.T) {
	t.Parallel()
	s := newTestServer(&stubTexts{err: fulltext.ErrNoSourceResolved})
	rec := do(t, s, http.MethodGet, "/v1/hexagrams/wrong/text", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	s = newTestServer(&stubTexts{err: &fulltext.ExhaustedError{Attempted: []string{"u"}}})
	rec = do(t, s, http.MethodGet, "/v1/hexagrams/1/text", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetFullTextUnknownIndex(t *testing.T) {
	t.Parallel()
	s := newTestServer(&stubTexts{})
	rec := do(t, s, http.MethodGet, "/v1/hexagrams/65/text", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetImage(t *testing.T) {
	t.Parallel()
	s := newTestServer(&stubTexts{})

	rec := do(t, s, http.MethodGet, "/v1/hexagrams/2/image", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "</svg>")
	require.Contains(t, rec.Body.String(), "坤")
}

func TestGetImageUnknownName(t *testing.T) {
	t.Parallel()
	s := newTestServer(&stubTexts{})
	rec := do(t, s, http.MethodGet, "/v1/hexagrams/nonexistent/image", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResponsesCarryRequestID(t *testing.T) {
	t.Parallel()
	s := newTestServer(&stubTexts{})
	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
