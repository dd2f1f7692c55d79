// Package pagination extracts limit/offset paging parameters from HTTP
// requests with shared defaults and bounds.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is used when the request does not specify a limit.
	DefaultLimit = 20
	// MaxLimit caps the page size a client may request.
	MaxLimit = 100
)

// Params holds paging parameters extracted from query strings.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FromRequest extracts limit and offset from an HTTP request, clamping
// them to sane bounds.
func FromRequest(r *http.Request) Params {
	p := Params{Limit: DefaultLimit}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 {
			p.Limit = v
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		if v, err := strconv.Atoi(offset); err == nil && v > 0 {
			p.Offset = v
		}
	}

	return p
}
