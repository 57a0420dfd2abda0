package request

import (
	"fmt"
	"net/http"
	"strconv"
)

// Match history page size bounds
const (
	DefaultMatchLimit = 20
	MaxMatchLimit     = 100
)

// ListLobbiesQuery is the query string of GET /api/v1/lobbies
type ListLobbiesQuery struct {
	Search string
	Page   int
}

// ParseListLobbies reads search and page. A missing page means the first.
func ParseListLobbies(r *http.Request) (ListLobbiesQuery, error) {
	q := ListLobbiesQuery{Search: r.URL.Query().Get("search"), Page: 1}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return ListLobbiesQuery{}, fmt.Errorf("page must be a positive integer, got %q", raw)
		}
		q.Page = page
	}
	return q, nil
}

// ParseMatchLimit reads limit for GET /api/v1/matches
func ParseMatchLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultMatchLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > MaxMatchLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d, got %q", MaxMatchLimit, raw)
	}
	return limit, nil
}
