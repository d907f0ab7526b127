// Package metrics exposes Prometheus instrumentation for audits, fetches,
// link probes and oracle calls. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seo_auditor"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeCached  = "cached"
	OutcomeSkipped = "skipped"
)

// Metrics holds all auditor collectors
type Metrics struct {
	AuditsTotal       *prometheus.CounterVec
	AuditScore        prometheus.Histogram
	FetchDuration     *prometheus.HistogramVec
	LinkProbesTotal   *prometheus.CounterVec
	OracleCallsTotal  *prometheus.CounterVec
	CompetitorFetches *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated from the global registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,

		AuditsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Page audits by outcome (success, failure, cached)",
		}, []string{"outcome"}),

		AuditScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_score",
			Help:      "Distribution of audit quality scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time to fetch a page, by error kind (ok on success)",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),

		LinkProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_probes_total",
			Help:      "Link probes by result (working, broken, cached)",
		}, []string{"result"}),

		OracleCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Suggestion oracle calls by outcome",
		}, []string{"outcome"}),

		CompetitorFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "competitor_fetches_total",
			Help:      "Competitor page fetches by outcome",
		}, []string{"outcome"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status class",
		}, []string{"route", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordAudit counts one audit and, unless it failed, observes its score
func (m *Metrics) RecordAudit(outcome string, score int) {
	if m == nil {
		return
	}
	m.AuditsTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeFailure {
		m.AuditScore.Observe(float64(score))
	}
}

// ObserveFetch records a fetch duration under kind ("ok" on success)
func (m *Metrics) ObserveFetch(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordLinkProbe counts a link probe result
func (m *Metrics) RecordLinkProbe(result string) {
	if m == nil {
		return
	}
	m.LinkProbesTotal.WithLabelValues(result).Inc()
}

// RecordOracleCall counts a suggestion oracle call
func (m *Metrics) RecordOracleCall(outcome string) {
	if m == nil {
		return
	}
	m.OracleCallsTotal.WithLabelValues(outcome).Inc()
}

// RecordCompetitorFetch counts a competitor fetch
func (m *Metrics) RecordCompetitorFetch(outcome string) {
	if m == nil {
		return
	}
	m.CompetitorFetches.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest counts an API request
func (m *Metrics) RecordHTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
