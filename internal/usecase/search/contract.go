package search

import (
	"context"

	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
)

// Analyzer turns query text into a vector. It must be the analyzer used at index time.
type Analyzer interface {
	Analyze(text string) (vector.Sparse, error)
}

// Repository retrieves every candidate sharing at least one token with the query vector.
// Order is unspecified and the set must not be truncated: ranking is done by the caller.
type Repository interface {
	Search(ctx context.Context, q vector.Sparse, f filter.Filters) ([]result.Candidate, error)
}

// ViewCounter reads view counts in one batch. Missing ids count as 0.
type ViewCounter interface {
	GetMany(ctx context.Context, ids []string) (map[string]int64, error)
}

// ViewTracker records views without blocking the caller.
type ViewTracker interface {
	Track(ids ...string)
}
