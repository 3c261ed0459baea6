package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Pagination defaults.  One policy applies to every listing endpoint:
// pages below 1 clamp to the first page and per_page is capped at
// MaxPerPage regardless of which collection is being read.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Pagination holds normalized page parameters for a collection read.
type Pagination struct {
	Page    int
	PerPage int
}

// NormalizePagination clamps raw page parameters into the uniform policy:
// page < 1 becomes DefaultPage, per_page < 1 becomes DefaultPerPage, and
// per_page above MaxPerPage is capped.
func NormalizePagination(page, perPage int) Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Pagination{Page: page, PerPage: perPage}
}

// ParsePagination reads `page` and `per_page` from the query string and
// normalizes them.  Unparseable values fall back to the defaults.
func ParsePagination(c echo.Context) Pagination {
	return NormalizePagination(
		queryInt(c, "page", DefaultPage),
		queryInt(c, "per_page", DefaultPerPage),
	)
}

// Offset returns the LIMIT offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// TotalPages computes the page count for a collection of the given size.
// An empty collection still has one (empty) page.
func TotalPages(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func queryInt(c echo.Context, key string, def int) int {
	if v := c.QueryParam(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
