package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, fulltextFetchesTotal)
	require.NotNil(t, fulltextCacheLookupsTotal)
	require.NotNil(t, castsTotal)
	require.NotNil(t, httpRequestsTotal)
	require.NotNil(t, httpRequestDurationSeconds)
}

func TestObserversIncrementCounters(t *testing.T) {
	Init()

	before := testutil.ToFloat64(fulltextFetchesTotal.WithLabelValues("wikisource", "ok"))
	ObserveFetch("wikisource", "ok")
	after := testutil.ToFloat64(fulltextFetchesTotal.WithLabelValues("wikisource", "ok"))
	require.Equal(t, before+1, after)

	before = testutil.ToFloat64(fulltextCacheLookupsTotal.WithLabelValues("hit"))
	ObserveCacheLookup(true)
	after = testutil.ToFloat64(fulltextCacheLookupsTotal.WithLabelValues("hit"))
	require.Equal(t, before+1, after)

	before = testutil.ToFloat64(castsTotal)
	ObserveCast()
	after = testutil.ToFloat64(castsTotal)
	require.Equal(t, before+1, after)

	ObserveHTTPRequest("GET", "/v1/hexagrams/{ref}/text", 200, 15*time.Millisecond)
	require.GreaterOrEqual(t,
		testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")), 1.0)
}

func TestHandlerServesExposition(t *testing.T) {
	Init()
	ObserveCast()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "gua_casts_total")
}
