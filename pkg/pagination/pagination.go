package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Params carries the list-query parameters every collection endpoint shares.
// Values are already clamped to valid ranges when Parse returns.
type Params struct {
	Page   int
	Limit  int
	Search string
}

// Offset translates page/limit into the row offset repositories feed to SQL.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads page, limit and search from the request query. Garbage or
// out-of-range values fall back to the defaults instead of erroring, so a
// hand-typed URL still returns a sensible first page.
func Parse(c *gin.Context) Params {
	p := Params{
		Page:   defaultPage,
		Limit:  defaultLimit,
		Search: strings.TrimSpace(c.Query("search")),
	}

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page >= 1 {
		p.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit >= 1 {
		p.Limit = limit
		if p.Limit > maxLimit {
			p.Limit = maxLimit
		}
	}
	return p
}
