package common

import (
	"net/http"
	"strconv"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Limit      int  `json:"limit"`
	TotalItems int  `json:"total_items"`
	HasMore    bool `json:"has_more"`
}

// ParseLimit extracts the limit query parameter falling back to def.
func ParseLimit(r *http.Request, def int) int {
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		return l
	}
	return def
}
