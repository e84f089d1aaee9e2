package document

import (
	"context"
	"testing"

	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/db/memory"
	domdoc "github.com/kailas-cloud/kbsearch/internal/domain/document"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
)

// faultyStore wraps the in-memory store and fails selected commands.
type faultyStore struct {
	*memory.Store
	zunionErr error
	txErr     error
	hgetAllFn func(ctx context.Context, key string) (map[string]string, error)
	// interleave, when set, runs once between the read and the commit of the next
	// transaction. The commit is then aborted the way WATCH aborts it in Redis.
	interleave func()
	// stalled and release pause the next transaction after fn built its batch.
	stalled chan struct{}
	release chan struct{}
}

func (f *faultyStore) ZUnionWithScores(ctx context.Context, keys []string, weights []float64) ([]db.ZMember, error) {
	if f.zunionErr != nil {
		return nil, f.zunionErr
	}
	return f.Store.ZUnionWithScores(ctx, keys, weights)
}

func (f *faultyStore) UpdateHash(ctx context.Context, key string, fn func(map[string]string) (*db.Batch, error)) error {
	if f.txErr != nil {
		return f.txErr
	}
	if f.interleave == nil && f.stalled == nil {
		return f.Store.UpdateHash(ctx, key, fn)
	}

	current, err := f.Store.HGetAll(ctx, key)
	if err != nil {
		return err
	}
	batch, err := fn(current)
	if err != nil {
		return err
	}

	if run := f.interleave; run != nil {
		f.interleave = nil
		run()
		return db.ErrTxConflict
	}

	stalled, release := f.stalled, f.release
	f.stalled, f.release = nil, nil
	close(stalled)
	<-release
	return f.Store.UpdateHash(ctx, key, func(map[string]string) (*db.Batch, error) {
		return batch, nil
	})
}

func (f *faultyStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if f.hgetAllFn != nil {
		return f.hgetAllFn(ctx, key)
	}
	return f.Store.HGetAll(ctx, key)
}

func newTestRepo(t *testing.T) (*Repo, *faultyStore) {
	t.Helper()
	fs := &faultyStore{Store: memory.NewStore()}
	return New(fs, ""), fs
}

// testDoc builds a document whose field vectors count each word once.
func testDoc(t *testing.T, id, title, body, locale string, titleVec, bodyVec map[string]float64) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, title, body, locale)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	tv, err := vector.New(titleVec)
	if err != nil {
		t.Fatalf("vector.New: %v", err)
	}
	bv, err := vector.New(bodyVec)
	if err != nil {
		t.Fatalf("vector.New: %v", err)
	}
	return doc.WithVectors(tv, bv)
}

func mustCreate(t *testing.T, r *Repo, doc domdoc.Document) {
	t.Helper()
	if err := r.Create(context.Background(), &doc); err != nil {
		t.Fatalf("Create(%s): %v", doc.ID(), err)
	}
}
