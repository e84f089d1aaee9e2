package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/analysis"
	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/db/memory"
	counterrepo "github.com/kailas-cloud/kbsearch/internal/repository/counter"
	documentrepo "github.com/kailas-cloud/kbsearch/internal/repository/document"
	documentuc "github.com/kailas-cloud/kbsearch/internal/usecase/document"
	healthuc "github.com/kailas-cloud/kbsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/kbsearch/internal/usecase/search"
	"github.com/kailas-cloud/kbsearch/internal/usecase/views"
)

var errDown = errors.New("connection refused")

// downDocs fails retrieval and pings, as a document store that went away after startup.
type downDocs struct {
	*memory.Store
	down bool
}

func (d *downDocs) ZUnionWithScores(ctx context.Context, keys []string, weights []float64) ([]db.ZMember, error) {
	if d.down {
		return nil, errDown
	}
	return d.Store.ZUnionWithScores(ctx, keys, weights)
}

func (d *downDocs) Ping(ctx context.Context) error {
	if d.down {
		return errDown
	}
	return d.Store.Ping(ctx)
}

// downCounters fails every counter command when down is set.
type downCounters struct {
	*memory.Store
	down bool
}

func (d *downCounters) Get(ctx context.Context, key string) ([]byte, error) {
	if d.down {
		return nil, errDown
	}
	return d.Store.Get(ctx, key)
}

func (d *downCounters) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if d.down {
		return nil, errDown
	}
	return d.Store.MGet(ctx, keys)
}

func (d *downCounters) IncrBy(ctx context.Context, key string, val int64) error {
	if d.down {
		return errDown
	}
	return d.Store.IncrBy(ctx, key, val)
}

func (d *downCounters) Ping(ctx context.Context) error {
	if d.down {
		return errDown
	}
	return d.Store.Ping(ctx)
}

type testEnv struct {
	handler  http.Handler
	docs     *downDocs
	counters *downCounters
	tracker  *views.Tracker
}

func newTestEnv(t *testing.T, apiKeys ...string) *testEnv {
	t.Helper()

	a, err := analysis.New(analysis.Standard)
	if err != nil {
		t.Fatalf("analysis.New: %v", err)
	}

	docs := &downDocs{Store: memory.NewStore()}
	counterStore := &downCounters{Store: memory.NewStore()}

	docRepo := documentrepo.New(docs, "")
	counters := counterrepo.New(counterStore, "")
	tracker := views.New(counters, views.Config{InitialBackoff: time.Millisecond}, zap.NewNop())
	t.Cleanup(func() { _ = tracker.Close(context.Background()) })

	docSvc := documentuc.New(docRepo, a, tracker, counters)
	searchSvc, err := searchuc.New(a, docRepo, counters, tracker, searchuc.DefaultConfig())
	if err != nil {
		t.Fatalf("search.New: %v", err)
	}
	healthSvc := healthuc.New(docs, counters)

	srv := NewServer(docSvc, searchSvc, healthSvc, zap.NewNop())
	return &testEnv{
		handler:  NewRouter(srv, apiKeys, zap.NewNop()),
		docs:     docs,
		counters: counterStore,
		tracker:  tracker,
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) setViews(t *testing.T, id string, n int64) {
	t.Helper()
	if err := e.counters.Store.IncrBy(context.Background(), counterrepo.DefaultKeyPrefix+"views:"+id, n); err != nil {
		t.Fatalf("IncrBy: %v", err)
	}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func searchIDs(items []SearchResultItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// seedAB indexes A(title alpha, body beta, 5 views) and B(title beta, body alpha, 50 views).
func seedAB(t *testing.T, e *testEnv) {
	t.Helper()
	for _, body := range []string{
		`{"id":"A","title":"alpha","body":"beta","locale":"en"}`,
		`{"id":"B","title":"beta","body":"alpha","locale":"fr"}`,
	} {
		if rr := e.do(t, http.MethodPost, "/documents", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed: got %d: %s", rr.Code, rr.Body.String())
		}
	}
	e.setViews(t, "A", 5)
	e.setViews(t, "B", 50)
}

func TestCreateDocument(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/documents", `{"id":"doc-1","title":"Alpha","body":"beta gamma"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/documents/doc-1" {
		t.Errorf("Location = %q", loc)
	}
	doc := decode[DocumentResponse](t, rr)
	if doc.ID != "doc-1" || doc.Title != "Alpha" {
		t.Errorf("response = %+v", doc)
	}
}

func TestCreateDocument_GeneratedID(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/documents", `{"title":"alpha"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	doc := decode[DocumentResponse](t, rr)
	if doc.ID == "" {
		t.Fatal("expected generated id")
	}
	if rr.Header().Get("Location") != "/documents/"+doc.ID {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}
}

func TestCreateDocument_Conflict(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, http.MethodPost, "/documents", `{"id":"doc-1","title":"alpha"}`)
	rr := e.do(t, http.MethodPost, "/documents", `{"id":"doc-1","title":"beta"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("got %d, want 409", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeAlreadyExists {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestCreateDocument_BadRequest(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code ErrorCode
	}{
		{"malformed json", `{"title":`, ErrorCodeBadRequest},
		{"no content", `{"id":"doc-1"}`, ErrorCodeValidationFailed},
		{"bad id", `{"id":"doc 1","title":"alpha"}`, ErrorCodeValidationFailed},
		{"bad locale", `{"id":"doc-1","title":"alpha","locale":"en US"}`, ErrorCodeValidationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := e.do(t, http.MethodPost, "/documents", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", rr.Code)
			}
			if resp := decode[ErrorResponse](t, rr); resp.Code != tc.code {
				t.Errorf("code = %q, want %q", resp.Code, tc.code)
			}
		})
	}
}

func TestGetDocument(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/documents", `{"id":"doc-1","title":"alpha","body":"beta","locale":"en"}`)

	rr := e.do(t, http.MethodGet, "/documents/doc-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	doc := decode[DocumentResponse](t, rr)
	if doc.Body != "beta" || doc.Locale != "en" {
		t.Errorf("response = %+v", doc)
	}

	if rr := e.do(t, http.MethodGet, "/documents/missing", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing: got %d, want 404", rr.Code)
	}
}

func TestReplaceDocument(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/documents", `{"id":"doc-1","title":"alpha"}`)

	rr := e.do(t, http.MethodPut, "/documents/doc-1", `{"title":"gamma"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}

	// Old tokens no longer match after a full replace.
	rr = e.do(t, http.MethodGet, "/search?q=alpha", "")
	if items := decode[[]SearchResultItem](t, rr); len(items) != 0 {
		t.Errorf("stale match: %v", searchIDs(items))
	}
	rr = e.do(t, http.MethodGet, "/search?q=gamma", "")
	if items := decode[[]SearchResultItem](t, rr); len(items) != 1 {
		t.Errorf("new match: %v", searchIDs(items))
	}
}

func TestReplaceDocument_Errors(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/documents", `{"id":"doc-1","title":"alpha"}`)

	if rr := e.do(t, http.MethodPut, "/documents/missing", `{"title":"x"}`); rr.Code != http.StatusNotFound {
		t.Errorf("missing: got %d, want 404", rr.Code)
	}
	if rr := e.do(t, http.MethodPut, "/documents/doc-1", `{"id":"other","title":"x"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("id mismatch: got %d, want 400", rr.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/documents", `{"id":"doc-1","title":"alpha"}`)

	if rr := e.do(t, http.MethodDelete, "/documents/doc-1", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("got %d, want 204", rr.Code)
	}
	if rr := e.do(t, http.MethodDelete, "/documents/doc-1", ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want 404", rr.Code)
	}
	rr := e.do(t, http.MethodGet, "/search?q=alpha", "")
	if items := decode[[]SearchResultItem](t, rr); len(items) != 0 {
		t.Errorf("deleted document still searchable: %v", searchIDs(items))
	}
}

func TestSearch_RanksByBoostedRelevance(t *testing.T) {
	e := newTestEnv(t)
	seedAB(t, e)

	rr := e.do(t, http.MethodGet, "/search?q=beta", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get(HeaderTotalCount); got != "2" {
		t.Errorf("%s = %q", HeaderTotalCount, got)
	}
	if got := rr.Header().Get(HeaderRankingDegraded); got != "false" {
		t.Errorf("%s = %q", HeaderRankingDegraded, got)
	}

	items := decode[[]SearchResultItem](t, rr)
	if ids := searchIDs(items); len(ids) != 2 || ids[0] != "B" || ids[1] != "A" {
		t.Fatalf("order = %v, want [B A]", ids)
	}
	if items[0].ViewCount != 50 || items[1].ViewCount != 5 {
		t.Errorf("view counts = %d, %d", items[0].ViewCount, items[1].ViewCount)
	}
	if items[0].Score <= items[1].Score {
		t.Errorf("scores = %v, %v", items[0].Score, items[1].Score)
	}
}

func TestSearch_CountsAViewPerReturnedHit(t *testing.T) {
	e := newTestEnv(t)
	seedAB(t, e)

	rr := e.do(t, http.MethodGet, "/search?q=beta&limit=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if ids := searchIDs(decode[[]SearchResultItem](t, rr)); len(ids) != 1 || ids[0] != "B" {
		t.Fatalf("page = %v, want [B]", ids)
	}
	if err := e.tracker.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for id, want := range map[string]int64{"B": 51, "A": 5} {
		rr := e.do(t, http.MethodGet, "/documents/"+id+"/views", "")
		if got := decode[ViewCountResponse](t, rr).ViewCount; got != want {
			t.Errorf("%s views = %d, want %d", id, got, want)
		}
	}
}

func TestSearch_NoMatchIsEmptyArray(t *testing.T) {
	e := newTestEnv(t)
	seedAB(t, e)

	for _, target := range []string{"/search?q=gamma", "/search?q=", "/search"} {
		rr := e.do(t, http.MethodGet, target, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: got %d", target, rr.Code)
		}
		if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
			t.Errorf("%s: body = %q, want []", target, body)
		}
	}
}

func TestSearch_LocaleFilter(t *testing.T) {
	e := newTestEnv(t)
	seedAB(t, e)

	rr := e.do(t, http.MethodGet, "/search?q=alpha&locale=fr", "")
	items := decode[[]SearchResultItem](t, rr)
	if ids := searchIDs(items); len(ids) != 1 || ids[0] != "B" {
		t.Errorf("ids = %v, want [B]", ids)
	}
}

func TestSearch_Pagination(t *testing.T) {
	e := newTestEnv(t)
	seedAB(t, e)

	rr := e.do(t, http.MethodGet, "/search?q=beta&limit=1&offset=1", "")
	if got := rr.Header().Get(HeaderTotalCount); got != "2" {
		t.Errorf("%s = %q", HeaderTotalCount, got)
	}
	items := decode[[]SearchResultItem](t, rr)
	if ids := searchIDs(items); len(ids) != 1 || ids[0] != "A" {
		t.Errorf("ids = %v, want [A]", ids)
	}
}

func TestSearch_CounterStoreDownDegrades(t *testing.T) {
	e := newTestEnv(t)
	seedAB(t, e)
	e.counters.down = true

	rr := e.do(t, http.MethodGet, "/search?q=beta", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
	if got := rr.Header().Get(HeaderRankingDegraded); got != "true" {
		t.Errorf("%s = %q", HeaderRankingDegraded, got)
	}
	items := decode[[]SearchResultItem](t, rr)
	if ids := searchIDs(items); len(ids) != 2 || ids[0] != "B" {
		t.Errorf("ids = %v", ids)
	}
	for _, it := range items {
		if it.ViewCount != 0 {
			t.Errorf("%s view count = %d, want 0", it.ID, it.ViewCount)
		}
	}
}

func TestSearch_DocumentStoreDown(t *testing.T) {
	e := newTestEnv(t)
	seedAB(t, e)
	e.docs.down = true

	rr := e.do(t, http.MethodGet, "/search?q=beta", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeUnavailable {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestSearch_InvalidParams(t *testing.T) {
	e := newTestEnv(t)

	for _, target := range []string{
		"/search?q=a&limit=abc",
		"/search?q=a&limit=0",
		"/search?q=a&limit=101",
		"/search?q=a&offset=-1",
		"/search?q=a&locale=en%20US",
		"/search?q=" + strings.Repeat("x", 4097),
	} {
		if rr := e.do(t, http.MethodGet, target, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%.40s: got %d, want 400", target, rr.Code)
		}
	}
}

func TestViewCount(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/documents", `{"id":"doc-1","title":"alpha"}`)
	e.do(t, http.MethodGet, "/documents/doc-1", "")
	e.do(t, http.MethodGet, "/documents/doc-1", "")

	// Drain background increments.
	if err := e.tracker.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rr := e.do(t, http.MethodGet, "/documents/doc-1/views", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[ViewCountResponse](t, rr)
	if resp.ViewCount != 2 || resp.Degraded {
		t.Errorf("response = %+v", resp)
	}

	rr = e.do(t, http.MethodGet, "/documents/never-indexed/views", "")
	if resp := decode[ViewCountResponse](t, rr); resp.ViewCount != 0 || resp.Degraded {
		t.Errorf("unknown id = %+v", resp)
	}
}

func TestViewCount_CounterStoreDown(t *testing.T) {
	e := newTestEnv(t)
	e.counters.down = true

	rr := e.do(t, http.MethodGet, "/documents/doc-1/views", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
	if resp := decode[ViewCountResponse](t, rr); !resp.Degraded || resp.ViewCount != 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		docsDown   bool
		countsDown bool
		wantCode   int
		wantStatus string
	}{
		{"healthy", false, false, http.StatusOK, "ok"},
		{"counters down", false, true, http.StatusOK, "degraded"},
		{"documents down", true, false, http.StatusServiceUnavailable, "error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.docs.down = tc.docsDown
			e.counters.down = tc.countsDown

			rr := e.do(t, http.MethodGet, "/health", "")
			if rr.Code != tc.wantCode {
				t.Fatalf("got %d, want %d", rr.Code, tc.wantCode)
			}
			if resp := decode[HealthResponse](t, rr); resp.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tc.wantStatus)
			}
		})
	}
}

func TestRouter_AuthAndRequestID(t *testing.T) {
	e := newTestEnv(t, "secret")

	if rr := e.do(t, http.MethodGet, "/search?q=alpha", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", rr.Code)
	}
	rr := e.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("health: got %d, want 200", rr.Code)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header")
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodGet, "/no-such-route", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeNotFound {
		t.Errorf("code = %q", resp.Code)
	}
}
