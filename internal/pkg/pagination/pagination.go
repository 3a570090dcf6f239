package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/pkg/response"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page  int
	Limit int
}

// New clamps page and limit: page >= 1, 1 <= limit <= MaxLimit. Zero or
// negative values fall back to the defaults.
func New(page, limit int) Query {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Query{Page: page, Limit: limit}
}

// FromContext extracts pagination params from the request. "size" is
// accepted as an alias of "limit".
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.Query("page"), DefaultPage)
	raw := c.Query("limit")
	if raw == "" {
		raw = c.Query("size")
	}
	return New(page, parseIntOr(raw, DefaultLimit))
}

// Skip is the number of rows before the page.
func (q Query) Skip() int {
	return (q.Page - 1) * q.Limit
}

// Meta builds the response metadata for the page.
func (q Query) Meta(total int64) response.Pagination {
	return response.NewPagination(total, q.Page, q.Limit)
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
