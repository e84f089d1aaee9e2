package result

import "github.com/kailas-cloud/kbsearch/internal/domain/vector"

// Candidate is a document returned by the document store for a query.
// RawScore is the store's native relevance and is kept for diagnostics only.
type Candidate struct {
	ID           string
	RawScore     float64
	TitleMatched bool
	Vector       vector.Sparse
}

// Scored is a candidate after vector similarity scoring.
type Scored struct {
	ID           string
	Relevance    float64
	TitleMatched bool
}

// Ranked is a single entry of the final ordering.
type Ranked struct {
	ID        string
	Score     float64
	ViewCount int64
}

// Page is the ordered output of one query.
type Page struct {
	// Results is the requested window of the ranked list.
	Results []Ranked
	// Total is the ranked list length before pagination.
	Total int
	// Degraded is set when view counts were unavailable and only the primary ordering applied.
	Degraded bool
}

// IDs returns the ids of the page results in order.
func (p Page) IDs() []string {
	ids := make([]string, len(p.Results))
	for i, r := range p.Results {
		ids[i] = r.ID
	}
	return ids
}
