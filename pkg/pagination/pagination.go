// Package pagination implements one-based page arithmetic shared by the
// repositories and the HTTP layer.
package pagination

import (
	"math"
	"net/http"
	"strconv"
)

// MaxPerPage bounds any caller-supplied page size.
const MaxPerPage = 100

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// NewParams normalizes page and perPage: page < 1 becomes 1, perPage < 1
// becomes defaultPerPage and anything above MaxPerPage is capped. Page is
// clamped so the offset never overflows int.
func NewParams(page, perPage, defaultPerPage int) Params {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}
	return Params{
		Page:    page,
		PerPage: perPage,
		Offset:  (page - 1) * perPage,
	}
}

// DefaultParams returns the first page with 20 items.
func DefaultParams() Params {
	return NewParams(1, 20, 20)
}

// FromRequest reads page and per_page from the query string. Malformed values
// fall back to the defaults instead of failing the request.
func FromRequest(r *http.Request, defaultPerPage int) Params {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	return NewParams(page, perPage, defaultPerPage)
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// TotalPages returns how many pages totalCount items span.
func TotalPages(totalCount, perPage int) int {
	if perPage <= 0 || totalCount <= 0 {
		return 0
	}
	pages := totalCount / perPage
	if totalCount%perPage > 0 {
		pages++
	}
	return pages
}

// NewResult creates a paginated result. A nil data slice is replaced by an
// empty one so an out-of-range page still encodes as [].
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := TotalPages(totalCount, params.PerPage)

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Window returns the [start, end) slice bounds of the requested page over n
// items. Both bounds equal n when the page lies past the end.
func Window(n int, params Params) (int, int) {
	start := params.Offset
	if start > n {
		start = n
	}
	end := start + params.PerPage
	if end > n {
		end = n
	}
	return start, end
}
