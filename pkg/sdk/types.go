package kbsearch

// Document is a searchable article. An empty ID on create gets a generated one.
type Document struct {
	ID     string
	Title  string
	Body   string
	Locale string
}

// SearchHit is one ranked result.
type SearchHit struct {
	ID        string
	Score     float64
	ViewCount int64
}

// SearchResults is one page of ranked results.
type SearchResults struct {
	Hits []SearchHit
	// Total is the number of ranked documents before pagination.
	Total int
	// Degraded is set when view counts were unavailable and ranking used relevance only.
	Degraded bool
}

// ViewCount is the popularity of a document.
type ViewCount struct {
	Count    int64
	Degraded bool
}
