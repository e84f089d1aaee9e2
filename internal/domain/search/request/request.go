package request

import (
	"fmt"

	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 100
)

// Request is a validated search query.
type Request struct {
	query   string
	filters filter.Filters
	limit   int
	offset  int
}

// New validates and normalizes search parameters.
// An empty query is valid and yields an empty result. Limit defaults to 20 and is clamped to 100.
func New(query string, filters filter.Filters, limit, offset int) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if offset < 0 {
		return Request{}, fmt.Errorf("offset must be non-negative")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Request{query: query, filters: filters, limit: limit, offset: offset}, nil
}

// Query returns the raw search text.
func (r *Request) Query() string { return r.query }

// Filters returns the exact-match filters.
func (r *Request) Filters() filter.Filters { return r.filters }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Offset returns the number of ranked results to skip.
func (r *Request) Offset() int { return r.offset }
