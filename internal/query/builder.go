// Package query translates untrusted listing parameters into a safe,
// paginated, sorted query against the book collection.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Pagination defaults and bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// genreAll is the sentinel meaning "no genre filter".
const genreAll = "all"

// sortFields is the allow-list of sortable fields mapped to their storage
// column names. Anything outside this set falls back to the default; raw
// parameter values never reach the storage layer.
var sortFields = map[string]string{
	"createdAt":       "created_at",
	"title":           "title",
	"author":          "author",
	"publicationDate": "publication_date",
	"rating":          "rating",
	"pages":           "pages",
}

// DefaultSortColumn orders by creation time, newest first.
const DefaultSortColumn = "created_at"

// BookQuery is the validated filter/sort/page specification consumed by the
// book repositories.
type BookQuery struct {
	// Search applies a case-insensitive partial match across title, author
	// and synopsis (logical OR). Empty means no free-text filter.
	Search string

	// Genre narrows to an exact genre match. Empty means no filter.
	Genre string

	// Author applies a case-insensitive partial match on the author field.
	Author string

	// SortColumn is an allow-listed storage column name.
	SortColumn string

	// SortDesc orders descending when true.
	SortDesc bool

	// Page and Limit are always positive.
	Page  int
	Limit int
}

// Offset returns the number of records to skip.
func (q BookQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Build parses raw query parameters into a BookQuery. Invalid or hostile
// input is clamped or dropped, never propagated: non-numeric paging falls
// back to the defaults and unknown sort fields fall back to creation time.
func Build(params url.Values) BookQuery {
	q := BookQuery{
		Search:     strings.TrimSpace(params.Get("search")),
		Author:     strings.TrimSpace(params.Get("author")),
		SortColumn: DefaultSortColumn,
		SortDesc:   true,
		Page:       DefaultPage,
		Limit:      DefaultLimit,
	}

	if genre := strings.TrimSpace(params.Get("genre")); genre != "" && !strings.EqualFold(genre, genreAll) {
		q.Genre = genre
	}

	if col, ok := sortFields[params.Get("sortBy")]; ok {
		q.SortColumn = col
	}
	if params.Get("sortOrder") == "asc" {
		q.SortDesc = false
	}

	if page, err := strconv.Atoi(params.Get("page")); err == nil && page >= 1 {
		q.Page = page
	}
	if limit, err := strconv.Atoi(params.Get("limit")); err == nil && limit >= 1 {
		if limit > MaxLimit {
			limit = MaxLimit
		}
		q.Limit = limit
	}

	return q
}

// Pagination is the derived page metadata returned alongside listings.
// All fields are computed, never stored.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalBooks  int64 `json:"totalBooks"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

// NewPagination derives page metadata for a result set of total records.
func NewPagination(q BookQuery, total int64) Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(q.Limit)))
	return Pagination{
		CurrentPage: q.Page,
		TotalPages:  totalPages,
		TotalBooks:  total,
		HasNext:     q.Page < totalPages,
		HasPrev:     q.Page > 1,
	}
}
