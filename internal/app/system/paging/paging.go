// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows returned by paged lists.
const PageSize = 50

// MaxPageSize caps a caller-supplied limit.
const MaxPageSize = 200

// LimitPlusOne returns limit+1 for look-ahead pagination (fetch one extra
// document to detect whether another page exists).
func LimitPlusOne(limit int64) int64 { return limit + 1 }

// ParseLimit reads the "limit" query parameter. Missing or invalid values
// give PageSize; larger values are capped at MaxPageSize.
func ParseLimit(r *http.Request) int64 {
	s := query.Get(r, "limit")
	if s == "" {
		return PageSize
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// TrimPage trims rows fetched with LimitPlusOne back to limit and reports
// whether more rows remain.
func TrimPage[T any](rows []T, limit int64) ([]T, bool) {
	if limit <= 0 || int64(len(rows)) <= limit {
		return rows, false
	}
	return rows[:limit], true
}
