package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Feed endpoints page newest-first on a timestamp column: the client passes
// the oldest timestamp it has seen as `before` and receives the next page.
// Timestamps are opaque cursors; offsets would drift while the ingestor keeps
// appending rows.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// feedQuery is the sanitized paging input. Bad values degrade to defaults
// instead of erroring: a dashboard polling with a garbled cursor gets the
// first page, not a 400.
type feedQuery struct {
	PageSize int
	Before   *time.Time
}

// feedPage is one slice of a time-ordered feed.
type feedPage struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

func parseFeedQuery(c *gin.Context) feedQuery {
	q := feedQuery{PageSize: defaultPageSize}

	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			q.PageSize = min(n, maxPageSize)
		}
	}

	if raw := c.Query("before"); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			q.Before = &ts
		}
	}

	return q
}

// cursorOf formats a row timestamp back into the wire cursor form.
func cursorOf(ts time.Time) string {
	return ts.Format(time.RFC3339Nano)
}
