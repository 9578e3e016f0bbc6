package query

import (
	"net/url"
	"testing"
)

func TestBuild_Defaults(t *testing.T) {
	q := Build(url.Values{})

	if q.Page != DefaultPage {
		t.Errorf("expected page %d, got %d", DefaultPage, q.Page)
	}
	if q.Limit != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, q.Limit)
	}
	if q.SortColumn != DefaultSortColumn {
		t.Errorf("expected sort column %s, got %s", DefaultSortColumn, q.SortColumn)
	}
	if !q.SortDesc {
		t.Error("expected descending sort by default")
	}
	if q.Search != "" || q.Genre != "" || q.Author != "" {
		t.Error("expected no filters by default")
	}
}

func TestBuild_Paging(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		limit     string
		wantPage  int
		wantLimit int
	}{
		{"valid", "3", "24", 3, 24},
		{"non-numeric page", "abc", "24", DefaultPage, 24},
		{"zero page", "0", "24", DefaultPage, 24},
		{"negative page", "-2", "24", DefaultPage, 24},
		{"non-numeric limit", "3", "xyz", 3, DefaultLimit},
		{"zero limit", "3", "0", 3, DefaultLimit},
		{"limit above cap", "1", "5000", 1, MaxLimit},
		{"empty", "", "", DefaultPage, DefaultLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := url.Values{}
			if tt.page != "" {
				params.Set("page", tt.page)
			}
			if tt.limit != "" {
				params.Set("limit", tt.limit)
			}

			q := Build(params)
			if q.Page != tt.wantPage {
				t.Errorf("expected page %d, got %d", tt.wantPage, q.Page)
			}
			if q.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, q.Limit)
			}
		})
	}
}

func TestBuild_Sort(t *testing.T) {
	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		wantCol   string
		wantDesc  bool
	}{
		{"default newest first", "", "", "created_at", true},
		{"title asc", "title", "asc", "title", false},
		{"camelCase mapping", "publicationDate", "", "publication_date", true},
		{"rating desc explicit", "rating", "desc", "rating", true},
		{"unknown field falls back", "price", "asc", "created_at", false},
		{"hostile input never reaches storage", "created_at; DROP TABLE books--", "", "created_at", true},
		{"unknown order stays desc", "title", "sideways", "title", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := url.Values{}
			if tt.sortBy != "" {
				params.Set("sortBy", tt.sortBy)
			}
			if tt.sortOrder != "" {
				params.Set("sortOrder", tt.sortOrder)
			}

			q := Build(params)
			if q.SortColumn != tt.wantCol {
				t.Errorf("expected sort column %s, got %s", tt.wantCol, q.SortColumn)
			}
			if q.SortDesc != tt.wantDesc {
				t.Errorf("expected SortDesc %v, got %v", tt.wantDesc, q.SortDesc)
			}
		})
	}
}

func TestBuild_GenreSentinel(t *testing.T) {
	tests := []struct {
		name  string
		genre string
		want  string
	}{
		{"empty means no filter", "", ""},
		{"all means no filter", "all", ""},
		{"All case-insensitive", "All", ""},
		{"real genre kept", "Fantasy", "Fantasy"},
		{"whitespace trimmed", "  Fantasy  ", "Fantasy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := url.Values{}
			params.Set("genre", tt.genre)

			q := Build(params)
			if q.Genre != tt.want {
				t.Errorf("expected genre %q, got %q", tt.want, q.Genre)
			}
		})
	}
}

func TestBookQuery_Offset(t *testing.T) {
	q := BookQuery{Page: 3, Limit: 12}
	if got := q.Offset(); got != 24 {
		t.Errorf("expected offset 24, got %d", got)
	}
	q = BookQuery{Page: 1, Limit: 12}
	if got := q.Offset(); got != 0 {
		t.Errorf("expected offset 0, got %d", got)
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		total      int64
		wantPages  int
		wantHasNxt bool
		wantHasPrv bool
	}{
		{"first of many", 1, 12, 100, 9, true, false},
		{"middle page", 5, 12, 100, 9, true, true},
		{"last page", 9, 12, 100, 9, false, true},
		{"exact multiple", 2, 10, 20, 2, false, true},
		{"empty result", 1, 12, 0, 0, false, false},
		{"page beyond range", 50, 12, 100, 9, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(BookQuery{Page: tt.page, Limit: tt.limit}, tt.total)

			if p.CurrentPage != tt.page {
				t.Errorf("expected current page %d, got %d", tt.page, p.CurrentPage)
			}
			if p.TotalPages != tt.wantPages {
				t.Errorf("expected total pages %d, got %d", tt.wantPages, p.TotalPages)
			}
			if p.TotalBooks != tt.total {
				t.Errorf("expected total books %d, got %d", tt.total, p.TotalBooks)
			}
			if p.HasNext != tt.wantHasNxt {
				t.Errorf("expected HasNext %v, got %v", tt.wantHasNxt, p.HasNext)
			}
			if p.HasPrev != tt.wantHasPrv {
				t.Errorf("expected HasPrev %v, got %v", tt.wantHasPrv, p.HasPrev)
			}
		})
	}
}
