package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Shop-floor listings stay small; the cap keeps board queries cheap.
const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Params is a validated page window parsed from the request query.
type Params struct {
	Page  int
	Limit int
}

// Offset converts the window into a row offset for the storage layer.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads page and limit from the query string, falling back to defaults
// on missing or malformed values and clamping oversized limits.
func Parse(c *gin.Context) Params {
	p := Params{Page: defaultPage, Limit: defaultLimit}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}
