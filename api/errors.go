package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/auditor/competitor"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/rankhistory"
)

// writeError maps a service error onto a status code and JSON body
func writeError(c *gin.Context, err error) {
	var fe *fetcher.FetchError
	switch {
	case errors.Is(err, competitor.ErrTooManyCompetitors),
		errors.Is(err, rankhistory.ErrInvalidEntry),
		errors.Is(err, rankhistory.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// checked before FetchError: a failed comparison wraps every fetch error
	case errors.Is(err, competitor.ErrNoCompetitors):
		c.JSON(http.StatusBadGateway, gin.H{"error": competitor.ErrNoCompetitors.Error()})

	case errors.As(err, &fe):
		status := http.StatusBadGateway
		if fe.Kind == fetcher.KindInvalidURL {
			status = http.StatusBadRequest
		}
		body := gin.H{
			"error": "could not analyze this URL: " + fe.Reason(),
			"kind":  fe.Kind,
			"url":   fe.URL,
		}
		if fe.StatusCode != 0 {
			body["httpStatus"] = fe.StatusCode
		}
		c.JSON(status, body)

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
