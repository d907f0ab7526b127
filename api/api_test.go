package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/competitor"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/linkaudit"
	"github.com/seo-optimizer/auditor/metrics"
	"github.com/seo-optimizer/auditor/middleware"
	"github.com/seo-optimizer/auditor/monitor"
	"github.com/seo-optimizer/auditor/rankhistory"
	"github.com/seo-optimizer/auditor/stats"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuditor struct {
	err  error
	opts analyzer.Options
}

func (f *fakeAuditor) Analyze(_ context.Context, rawURL string, opts analyzer.Options) (*analyzer.Report, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &analyzer.Report{URL: rawURL, Score: 90}, nil
}

type fakeComparator struct{ err error }

func (f fakeComparator) Compare(_ context.Context, self, urls []string) (*competitor.Comparison, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &competitor.Comparison{Gap: competitor.KeywordGap{SelfOnly: self}}, nil
}

type fakeLinks struct{}

func (fakeLinks) Audit(_ context.Context, pageURL string, _ int) ([]linkaudit.LinkCheckResult, error) {
	ok := 200
	return []linkaudit.LinkCheckResult{
		{URL: pageURL + "a", HTTPStatus: &ok, IsWorking: true},
		{URL: pageURL + "b"},
	}, nil
}

type fakeStats struct{}

func (fakeStats) Current() stats.MonthlyStats { return stats.MonthlyStats{Audits: 3} }
func (fakeStats) Month(m string) (stats.MonthlyStats, bool) {
	return stats.MonthlyStats{Audits: 1}, m == "2024-01"
}
func (fakeStats) Months() []string { return []string{"2024-02", "2024-01"} }

type fakeMonitor struct{}

func (fakeMonitor) Latest() []monitor.Status {
	return []monitor.Status{{URL: "https://a.test", Error: "down"}}
}

func newTestRouter(d Deps) *gin.Engine {
	if d.Ranks == nil {
		d.Ranks = rankhistory.NewTracker(nil, rankhistory.WithClock(func() time.Time {
			return time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
		}))
	}
	return NewRouter(d)
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(Deps{}), http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAudit(t *testing.T) {
	a := &fakeAuditor{}
	r := newTestRouter(Deps{Auditor: a})

	w := do(r, http.MethodPost, "/api/audit", gin.H{"url": "https://acme.test", "includeKeywords": true, "keywordLimit": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 90, decode(t, w)["score"])
	assert.True(t, a.opts.IncludeKeywords)
	assert.Equal(t, 5, a.opts.KeywordLimit)

	legacy := do(r, http.MethodPost, "/api/analyze", gin.H{"url": "https://acme.test"})
	assert.Equal(t, http.StatusOK, legacy.Code)
}

func TestAudit_ConfiguredKeywordLimit(t *testing.T) {
	a := &fakeAuditor{}
	r := newTestRouter(Deps{Auditor: a, KeywordLimit: 25})

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/audit", gin.H{"url": "https://acme.test"}).Code)
	assert.Equal(t, 25, a.opts.KeywordLimit)

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/audit", gin.H{"url": "https://acme.test", "keywordLimit": 3}).Code)
	assert.Equal(t, 3, a.opts.KeywordLimit)
}

func TestAudit_BadRequest(t *testing.T) {
	r := newTestRouter(Deps{Auditor: &fakeAuditor{}})
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/audit", gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/audit", "{not json").Code)
}

func TestAudit_FetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"timeout", &fetcher.FetchError{Kind: fetcher.KindTimeout, URL: "https://slow.test"}, http.StatusBadGateway},
		{"http status", &fetcher.FetchError{Kind: fetcher.KindHTTPStatus, URL: "https://x.test", StatusCode: 404}, http.StatusBadGateway},
		{"invalid url", &fetcher.FetchError{Kind: fetcher.KindInvalidURL, URL: "ftp://x"}, http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(Deps{Auditor: &fakeAuditor{err: tc.err}})
			w := do(r, http.MethodPost, "/api/audit", gin.H{"url": "https://x.test"})
			assert.Equal(t, tc.status, w.Code)
		})
	}

	r := newTestRouter(Deps{Auditor: &fakeAuditor{err: &fetcher.FetchError{Kind: fetcher.KindHTTPStatus, URL: "https://x.test", StatusCode: 404}}})
	body := decode(t, do(r, http.MethodPost, "/api/audit", gin.H{"url": "https://x.test"}))
	assert.Equal(t, "could not analyze this URL: the server answered with HTTP 404", body["error"])
	assert.EqualValues(t, 404, body["httpStatus"])
	assert.Equal(t, "http_status", body["kind"])
}

func TestCompare(t *testing.T) {
	r := newTestRouter(Deps{Comparator: fakeComparator{}})
	w := do(r, http.MethodPost, "/api/compare", gin.H{"keywords": []string{"latte"}, "urls": []string{"https://a.test"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "latte")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/compare", gin.H{"urls": []string{}}).Code)
}

func TestCompare_Errors(t *testing.T) {
	tooMany := fmt.Errorf("%w: 6 requested", competitor.ErrTooManyCompetitors)
	r := newTestRouter(Deps{Comparator: fakeComparator{err: tooMany}})
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/compare", gin.H{"urls": []string{"https://a.test"}}).Code)

	allFailed := fmt.Errorf("%w: %w", competitor.ErrNoCompetitors, &fetcher.FetchError{Kind: fetcher.KindDNS})
	r = newTestRouter(Deps{Comparator: fakeComparator{err: allFailed}})
	w := do(r, http.MethodPost, "/api/compare", gin.H{"urls": []string{"https://a.test"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, competitor.ErrNoCompetitors.Error(), decode(t, w)["error"])
}

func TestLinks(t *testing.T) {
	r := newTestRouter(Deps{Links: fakeLinks{}})
	w := do(r, http.MethodPost, "/api/links", gin.H{"url": "https://acme.test/"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["broken"])
	assert.Len(t, body["links"], 2)
}

func TestUnconfiguredServices(t *testing.T) {
	r := NewRouter(Deps{})
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodPost, "/api/compare", gin.H{"urls": []string{"x"}}).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodPost, "/api/links", gin.H{"url": "x"}).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/rank-history/a.test", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/statistics", nil).Code)
}

func TestRankHistoryFlow(t *testing.T) {
	r := newTestRouter(Deps{})

	w := do(r, http.MethodPost, "/api/rank-history/Example.com", gin.H{"date": "2024-01-01", "ranks": map[string]int{"foo": 10}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "example.com", decode(t, w)["domain"])
	w = do(r, http.MethodPost, "/api/rank-history/example.com", gin.H{"date": "2024-01-30", "ranks": map[string]int{"foo": 4}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodGet, "/api/rank-history/example.com?window=31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["entries"], 2)

	w = do(r, http.MethodGet, "/api/rank-history/example.com/trend?keyword=foo&window=31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trend := decode(t, w)
	assert.Equal(t, "improved", trend["direction"])
	assert.EqualValues(t, 6, trend["changeMagnitude"])

	w = do(r, http.MethodGet, "/api/rank-history/example.com/trend?window=31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["trends"], "foo")
}

func TestRankHistory_Validation(t *testing.T) {
	r := newTestRouter(Deps{})
	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodPost, "/api/rank-history/example.com", gin.H{"date": "01/01/2024", "ranks": map[string]int{"foo": 1}}).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodPost, "/api/rank-history/example.com", gin.H{"date": "2024-01-01", "ranks": map[string]int{"foo": 0}}).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodPost, "/api/rank-history/example.com", gin.H{"ranks": map[string]int{"foo": 1}}).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/rank-history/example.com?window=-2", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/rank-history/example.com/trend?window=abc", nil).Code)
}

func TestStatistics(t *testing.T) {
	r := newTestRouter(Deps{Stats: fakeStats{}})

	w := do(r, http.MethodGet, "/api/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 3, body["current"].(map[string]any)["audits"])

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/statistics?month=2024-01", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/statistics?month=1999-01", nil).Code)
}

func TestMonitor(t *testing.T) {
	w := do(newTestRouter(Deps{}), http.MethodGet, "/api/monitor", nil)
	assert.JSONEq(t, `{"enabled":false,"urls":[]}`, w.Body.String())

	w = do(newTestRouter(Deps{Monitor: fakeMonitor{}}), http.MethodGet, "/api/monitor", nil)
	body := decode(t, w)
	assert.Equal(t, true, body["enabled"])
	assert.Len(t, body["urls"], 1)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := newTestRouter(Deps{Metrics: m})
	do(r, http.MethodGet, "/api/health", nil)

	w := do(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRateLimitedRoutes(t *testing.T) {
	r := newTestRouter(Deps{Auditor: &fakeAuditor{}, RateLimiter: middleware.NewRateLimiter(0.001, 1)})
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/audit", gin.H{"url": "https://a.test"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/api/audit", gin.H{"url": "https://a.test"}).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/health", nil).Code, "reads are not limited")
}
