// Package api exposes the auditor over HTTP with gin.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/competitor"
	"github.com/seo-optimizer/auditor/linkaudit"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/metrics"
	"github.com/seo-optimizer/auditor/middleware"
	"github.com/seo-optimizer/auditor/monitor"
	"github.com/seo-optimizer/auditor/rankhistory"
	"github.com/seo-optimizer/auditor/stats"
)

type Auditor interface {
	Analyze(ctx context.Context, rawURL string, opts analyzer.Options) (*analyzer.Report, error)
}

type Comparator interface {
	Compare(ctx context.Context, selfKeywords, urls []string) (*competitor.Comparison, error)
}

type LinkAuditor interface {
	Audit(ctx context.Context, pageURL string, maxLinks int) ([]linkaudit.LinkCheckResult, error)
}

type StatsSource interface {
	Current() stats.MonthlyStats
	Month(yearMonth string) (stats.MonthlyStats, bool)
	Months() []string
}

type MonitorSource interface {
	Latest() []monitor.Status
}

// Deps are the services behind the routes. Nil optional services make
// their routes answer 503.
type Deps struct {
	Auditor     Auditor
	Comparator  Comparator
	Links       LinkAuditor
	Ranks       *rankhistory.Tracker
	Stats       StatsSource
	Monitor     MonitorSource
	Metrics     *metrics.Metrics
	Logger      logging.Logger
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string

	// KeywordLimit applies to audit requests that do not set one
	KeywordLimit int
}

type handler struct {
	Deps
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(middleware.ErrorHandler(d.Logger))
	r.Use(middleware.RequestStats(d.Logger, d.Metrics))
	r.Use(middleware.CORS(d.CORSOrigins))

	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/statistics", h.statistics)
		api.GET("/monitor", h.monitorStatus)
		api.GET("/rank-history/:domain", h.rankQuery)
		api.GET("/rank-history/:domain/trend", h.rankTrend)
	}

	// Routes that trigger outbound requests are rate limited
	limited := r.Group("/api")
	if d.RateLimiter != nil {
		limited.Use(d.RateLimiter.RateLimit())
	}
	{
		limited.POST("/audit", h.audit)
		limited.POST("/analyze", h.audit)
		limited.POST("/compare", h.compare)
		limited.POST("/links", h.links)
		limited.POST("/rank-history/:domain", h.rankAppend)
	}
	return r
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " is not configured"})
}
