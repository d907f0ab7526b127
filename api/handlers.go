package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/competitor"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/monitor"
	"github.com/seo-optimizer/auditor/rankhistory"
)

const defaultWindowDays = 30

type auditRequest struct {
	URL                string `json:"url" binding:"required"`
	IncludeKeywords    bool   `json:"includeKeywords"`
	KeywordLimit       int    `json:"keywordLimit" binding:"min=0,max=100"`
	IncludeSuggestions bool   `json:"includeSuggestions"`
	SkipCache          bool   `json:"skipCache"`
}

func (h *handler) audit(c *gin.Context) {
	if h.Auditor == nil {
		unavailable(c, "auditing")
		return
	}
	var req auditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid URL provided")
		return
	}
	h.Logger.Info("Audit request received", logging.String("url", req.URL), logging.String("client_ip", c.ClientIP()))
	if req.KeywordLimit == 0 {
		req.KeywordLimit = h.KeywordLimit
	}

	report, err := h.Auditor.Analyze(c.Request.Context(), req.URL, analyzer.Options{
		IncludeKeywords:    req.IncludeKeywords,
		KeywordLimit:       req.KeywordLimit,
		IncludeSuggestions: req.IncludeSuggestions,
		SkipCache:          req.SkipCache,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type compareRequest struct {
	Keywords []string `json:"keywords"`
	URLs     []string `json:"urls" binding:"required,min=1"`
}

func (h *handler) compare(c *gin.Context) {
	if h.Comparator == nil {
		unavailable(c, "competitor comparison")
		return
	}
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "urls must list between 1 and "+strconv.Itoa(competitor.MaxCompetitors)+" competitor URLs")
		return
	}
	result, err := h.Comparator.Compare(c.Request.Context(), req.Keywords, req.URLs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type linksRequest struct {
	URL      string `json:"url" binding:"required"`
	MaxLinks int    `json:"maxLinks" binding:"min=0,max=500"`
}

func (h *handler) links(c *gin.Context) {
	if h.Links == nil {
		unavailable(c, "link auditing")
		return
	}
	var req linksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid URL provided")
		return
	}
	results, err := h.Links.Audit(c.Request.Context(), req.URL, req.MaxLinks)
	if err != nil {
		writeError(c, err)
		return
	}
	broken := 0
	for _, r := range results {
		if !r.IsWorking {
			broken++
		}
	}
	c.JSON(http.StatusOK, gin.H{"url": req.URL, "links": results, "broken": broken})
}

type rankAppendRequest struct {
	Date  string         `json:"date" binding:"required"`
	Ranks map[string]int `json:"ranks" binding:"required"`
}

func (h *handler) rankAppend(c *gin.Context) {
	if h.Ranks == nil {
		unavailable(c, "rank history")
		return
	}
	var req rankAppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "date and ranks are required")
		return
	}
	date, err := rankhistory.ParseDate(req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	domain := c.Param("domain")
	if err := h.Ranks.Append(c.Request.Context(), domain, date, req.Ranks); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"domain": rankhistory.NormalizeDomain(domain), "date": date.Format(rankhistory.DateLayout)})
}

func windowParam(c *gin.Context) (int, bool) {
	raw := c.Query("window")
	if raw == "" {
		return defaultWindowDays, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "window must be a non-negative number of days")
		return 0, false
	}
	return n, true
}

func (h *handler) rankQuery(c *gin.Context) {
	if h.Ranks == nil {
		unavailable(c, "rank history")
		return
	}
	window, ok := windowParam(c)
	if !ok {
		return
	}
	domain := rankhistory.NormalizeDomain(c.Param("domain"))
	entries, err := h.Ranks.Query(c.Request.Context(), domain, window)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domain": domain, "windowDays": window, "entries": entries})
}

func (h *handler) rankTrend(c *gin.Context) {
	if h.Ranks == nil {
		unavailable(c, "rank history")
		return
	}
	window, ok := windowParam(c)
	if !ok {
		return
	}
	domain := rankhistory.NormalizeDomain(c.Param("domain"))

	if kw := strings.TrimSpace(c.Query("keyword")); kw != "" {
		trend, err := h.Ranks.Trend(c.Request.Context(), domain, kw, window)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, trend)
		return
	}

	trends, err := h.Ranks.TrendAll(c.Request.Context(), domain, window)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domain": domain, "windowDays": window, "trends": trends})
}

func (h *handler) statistics(c *gin.Context) {
	if h.Stats == nil {
		unavailable(c, "statistics")
		return
	}
	if month := c.Query("month"); month != "" {
		s, ok := h.Stats.Month(month)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no statistics for " + month})
			return
		}
		c.JSON(http.StatusOK, gin.H{"month": month, "stats": s})
		return
	}
	c.JSON(http.StatusOK, gin.H{"current": h.Stats.Current(), "months": h.Stats.Months()})
}

func (h *handler) monitorStatus(c *gin.Context) {
	if h.Monitor == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "urls": []monitor.Status{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "urls": h.Monitor.Latest()})
}
