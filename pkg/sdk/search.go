package kbsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/request"
)

// SearchOption narrows or pages a query.
type SearchOption func(*searchParams)

type searchParams struct {
	locale string
	limit  int
	offset int
}

// WithLocale keeps only documents tagged with locale.
func WithLocale(locale string) SearchOption {
	return func(p *searchParams) { p.locale = locale }
}

// WithLimit sets the page size (default 20, max 100).
func WithLimit(n int) SearchOption {
	return func(p *searchParams) { p.limit = n }
}

// WithOffset skips the first n ranked results.
func WithOffset(n int) SearchOption {
	return func(p *searchParams) { p.offset = n }
}

// Search ranks documents for a free-text query. No match is an empty result, not an error.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (_ SearchResults, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	var p searchParams
	for _, o := range opts {
		o(&p)
	}

	f, err := filter.New(p.locale)
	if err != nil {
		return SearchResults{}, fmt.Errorf("search: %w: %w", domain.ErrInvalidQuery, err)
	}
	req, err := request.New(query, f, p.limit, p.offset)
	if err != nil {
		return SearchResults{}, fmt.Errorf("search: %w: %w", domain.ErrInvalidQuery, err)
	}

	page, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return SearchResults{}, fmt.Errorf("search: %w", err)
	}

	hits := make([]SearchHit, len(page.Results))
	for i, r := range page.Results {
		hits[i] = SearchHit{ID: r.ID, Score: r.Score, ViewCount: r.ViewCount}
	}
	return SearchResults{Hits: hits, Total: page.Total, Degraded: page.Degraded}, nil
}
