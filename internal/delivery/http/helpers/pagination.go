package helpers

import (
	"net/http"
	"strconv"

	"eventmanager/internal/domain"
)

// ParsePagination reads page and per_page from the request query string and returns
// normalized domain.PaginationParams. Invalid or missing values fall back to defaults.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	var p domain.PaginationParams
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil {
		p.PageSize = v
	}
	return p.Normalize()
}
