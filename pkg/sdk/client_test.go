package kbsearch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	domdoc "github.com/kailas-cloud/kbsearch/internal/domain/document"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
)

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func seed(t *testing.T, c *Client) {
	t.Helper()
	ctx := context.Background()
	for _, d := range []Document{
		{ID: "A", Title: "alpha", Body: "beta", Locale: "en"},
		{ID: "B", Title: "beta", Body: "alpha", Locale: "fr"},
	} {
		if _, err := c.Documents().Create(ctx, d); err != nil {
			t.Fatalf("Create %s: %v", d.ID, err)
		}
	}
}

func hitIDs(r SearchResults) []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

func TestClient_Backends(t *testing.T) {
	backends := map[string]Option{
		"memory": WithMemory(),
		"bleve":  WithBleve(""),
	}
	for name, opt := range backends {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, opt)
			seed(t, c)
			ctx := context.Background()

			res, err := c.Search(ctx, "beta")
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if ids := hitIDs(res); len(ids) != 2 || ids[0] != "B" || ids[1] != "A" {
				t.Errorf("ids = %v, want [B A]", ids)
			}
			if res.Total != 2 || res.Degraded {
				t.Errorf("total = %d, degraded = %v", res.Total, res.Degraded)
			}

			res, err = c.Search(ctx, "alpha", WithLocale("en"))
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if ids := hitIDs(res); len(ids) != 1 || ids[0] != "A" {
				t.Errorf("locale ids = %v, want [A]", ids)
			}

			if h := c.Health(ctx); h.Status != "ok" || !h.Searchable() || !h.Counters {
				t.Errorf("health = %+v", h)
			}
		})
	}
}

func TestClient_DocumentLifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	docs := c.Documents()

	created, err := docs.Create(ctx, Document{Title: "alpha"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	if _, err := docs.Create(ctx, Document{ID: created.ID, Title: "x"}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate create: %v", err)
	}

	if _, err := docs.Update(ctx, created.ID, Document{Title: "gamma"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := docs.Get(ctx, created.ID)
	if err != nil || got.Title != "gamma" {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	if err := docs.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := docs.Get(ctx, created.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
}

func TestClient_ViewsAffectRanking(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	docs := c.Documents()

	// Same relevance for "alpha"; popularity decides.
	for _, id := range []string{"first", "second"} {
		if _, err := docs.Create(ctx, Document{ID: id, Body: "alpha"}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := docs.Get(ctx, "second"); err != nil {
			t.Fatal(err)
		}
	}
	// Drain background writes.
	if err := c.tracker.Close(ctx); err != nil {
		t.Fatalf("tracker.Close: %v", err)
	}

	if v := docs.Views(ctx, "second"); v.Count != 3 || v.Degraded {
		t.Errorf("Views = %+v", v)
	}
	res, err := c.Search(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if ids := hitIDs(res); len(ids) != 2 || ids[0] != "second" {
		t.Errorf("ids = %v, want second first", ids)
	}
}

func TestClient_InvalidQuery(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.Search(context.Background(), "alpha", WithOffset(-1)); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("negative offset: %v", err)
	}
	if _, err := c.Search(context.Background(), "alpha", WithLocale("en US")); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("bad locale: %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, WithAnalyzer("klingon")); err == nil {
		t.Error("expected error for unknown analyzer")
	}
	if _, err := New(ctx, WithTitleBoost(2, "max")); err == nil {
		t.Error("expected error for unknown boost mode")
	}
	if _, err := New(ctx, WithScoring("bm25")); err == nil {
		t.Error("expected error for unknown scoring")
	}
}

// --- mocked use cases ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req *request.Request) (result.Page, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) (result.Page, error) {
	return m.searchFn(ctx, req)
}

type mockDocumentUC struct {
	getFn func(ctx context.Context, id string) (domdoc.Document, error)
}

func (m *mockDocumentUC) Create(context.Context, string, string, string, string) (domdoc.Document, error) {
	return domdoc.Document{}, errors.New("not implemented")
}

func (m *mockDocumentUC) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return m.getFn(ctx, id)
}

func (m *mockDocumentUC) Update(context.Context, string, string, string, string) (domdoc.Document, error) {
	return domdoc.Document{}, errors.New("not implemented")
}

func (m *mockDocumentUC) Delete(context.Context, string) error { return nil }

func (m *mockDocumentUC) ViewCount(context.Context, string) (int64, bool) { return 0, true }

func TestSearch_PassesParamsAndWrapsErrors(t *testing.T) {
	mock := &mockSearchUC{
		searchFn: func(_ context.Context, req *request.Request) (result.Page, error) {
			if req.Query() != "alpha" || req.Limit() != 5 || req.Offset() != 10 || req.Filters().Locale() != "de" {
				t.Errorf("request = %q limit=%d offset=%d locale=%q",
					req.Query(), req.Limit(), req.Offset(), req.Filters().Locale())
			}
			return result.Page{}, ErrUnavailable
		},
	}
	c := &Client{searchSvc: mock}

	_, err := c.Search(context.Background(), "alpha", WithLimit(5), WithOffset(10), WithLocale("de"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSearch_EmptyPageHasNoHits(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{
		searchFn: func(context.Context, *request.Request) (result.Page, error) {
			return result.Page{}, nil
		},
	}}

	res, err := c.Search(context.Background(), "zzz")
	if err != nil {
		t.Fatal(err)
	}
	if res.Hits == nil || len(res.Hits) != 0 {
		t.Errorf("hits = %#v, want empty non-nil slice", res.Hits)
	}
}

func TestDocumentService_Observed(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	svc := &DocumentService{
		obs: obs,
		svc: &mockDocumentUC{getFn: func(context.Context, string) (domdoc.Document, error) {
			return domdoc.Document{}, ErrDocumentNotFound
		}},
	}

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("get", statusRejected)); got != 1 {
		t.Errorf("operations{get,rejected} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("get", statusError)); got != 0 {
		t.Errorf("operations{get,error} = %v, want 0", got)
	}
	if v := svc.Views(context.Background(), "missing"); !v.Degraded {
		t.Errorf("Views = %+v", v)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, statusOK},
		{ErrDocumentNotFound, statusRejected},
		{fmt.Errorf("create: %w", ErrAlreadyExists), statusRejected},
		{ErrInvalidQuery, statusRejected},
		{ErrUnavailable, statusError},
		{errors.New("boom"), statusError},
	}
	for _, tc := range tests {
		if got := outcome(tc.err); got != tc.want {
			t.Errorf("outcome(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestClient_SearchCountsViewsUnlessDisabled(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
		want int64
	}{
		{"default", nil, 1},
		{"disabled", []Option{WithTrackSearchHits(false)}, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, tc.opts...)
			ctx := context.Background()
			seed(t, c)

			if _, err := c.Search(ctx, "beta", WithLimit(1)); err != nil {
				t.Fatal(err)
			}
			if err := c.tracker.Close(ctx); err != nil {
				t.Fatalf("tracker.Close: %v", err)
			}
			if v := c.Documents().Views(ctx, "B"); v.Count != tc.want {
				t.Errorf("views of B = %d, want %d", v.Count, tc.want)
			}
			if v := c.Documents().Views(ctx, "A"); v.Count != 0 {
				t.Errorf("views of A = %d, want 0 (not on the page)", v.Count)
			}
		})
	}
}

func TestClient_ZeroAdditiveBoostIsKept(t *testing.T) {
	c := newTestClient(t, WithTitleBoost(0, "additive"))
	ctx := context.Background()
	seed(t, c)

	// Without a title boost A (body "beta") and B (title "beta") tie on score.
	res, err := c.Search(ctx, "beta")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 2 || res.Hits[0].Score != res.Hits[1].Score {
		t.Errorf("hits = %+v, want equal scores", res.Hits)
	}
}
