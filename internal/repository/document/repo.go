// Package document stores documents as an inverted index in a Redis-style keyspace.
//
// Layout under the configured prefix:
//
//	doc:<id>       hash with the document fields and its analyzed field vectors
//	post:<token>   sorted set, member = document id, score = token weight in the document vector
//	locale:<tag>   set of document ids carrying the tag
//
// Search runs ZUNION over the query's posting lists with the query weights, which
// yields the raw dot product for every document sharing at least one token.
package document

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/domain"
	domdoc "github.com/kailas-cloud/kbsearch/internal/domain/document"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
)

// DefaultKeyPrefix namespaces all keys written by the repository.
const DefaultKeyPrefix = "kb:"

// maxTxAttempts bounds re-reads after a concurrent write to the same document.
const maxTxAttempts = 3

// store is the consumer interface for documents (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	SMIsMember(ctx context.Context, key string, members []string) ([]bool, error)
	ZUnionWithScores(ctx context.Context, keys []string, weights []float64) ([]db.ZMember, error)
	UpdateHash(ctx context.Context, key string, fn func(map[string]string) (*db.Batch, error)) error
}

// Repo implements the document store adapter over a keyspace.
// Every mutation is one optimistic transaction on doc:<id>, so the hash, its
// postings and its locale entry change together or not at all.
type Repo struct {
	store  store
	prefix string
}

// New creates a document repository. Empty prefix defaults to DefaultKeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// Create stores a new document and indexes its postings.
// Returns domain.ErrAlreadyExists if the id is taken.
func (r *Repo) Create(ctx context.Context, doc *domdoc.Document) error {
	fields, err := buildHashFields(doc)
	if err != nil {
		return err
	}
	return r.update(ctx, doc.ID(), func(current map[string]string) (*db.Batch, error) {
		if len(current) > 0 {
			return nil, fmt.Errorf("document %s: %w", doc.ID(), domain.ErrAlreadyExists)
		}
		return r.writeBatch(nil, doc, fields), nil
	})
}

// Replace overwrites an existing document and fully re-indexes it.
// Returns domain.ErrDocumentNotFound if the id is absent.
func (r *Repo) Replace(ctx context.Context, doc *domdoc.Document) error {
	fields, err := buildHashFields(doc)
	if err != nil {
		return err
	}
	return r.update(ctx, doc.ID(), func(current map[string]string) (*db.Batch, error) {
		old, err := r.stored(doc.ID(), current)
		if err != nil {
			return nil, err
		}
		return r.writeBatch(&old, doc, fields), nil
	})
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := r.docKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return r.stored(id, m)
}

// Delete removes a document and its postings.
func (r *Repo) Delete(ctx context.Context, id string) error {
	return r.update(ctx, id, func(current map[string]string) (*db.Batch, error) {
		doc, err := r.stored(id, current)
		if err != nil {
			return nil, err
		}
		b := &db.Batch{ZRem: r.postings(&doc), Del: []string{r.docKey(id)}}
		if doc.Locale() != "" {
			b.SRem = []db.SetItem{{Key: r.localeKey(doc.Locale()), Member: id}}
		}
		return b, nil
	})
}

// Search returns every document sharing at least one token with q, ordered by
// raw dot product desc, then id asc. Nothing is cut here: the caller ranks with
// its own boost and scorer, which the raw order does not bound.
func (r *Repo) Search(ctx context.Context, q vector.Sparse, f filter.Filters) ([]result.Candidate, error) {
	tokens := q.Tokens()
	if len(tokens) == 0 {
		return nil, nil
	}

	keys := make([]string, len(tokens))
	weights := make([]float64, len(tokens))
	for i, t := range tokens {
		keys[i] = r.postingKey(t)
		weights[i] = q[t]
	}

	members, err := r.store.ZUnionWithScores(ctx, keys, weights)
	if err != nil {
		return nil, fmt.Errorf("zunion %d postings: %w", len(keys), err)
	}
	hits := members[:0]
	for _, m := range members {
		if m.Score > 0 {
			hits = append(hits, m)
		}
	}

	if f.HasLocale() && len(hits) > 0 {
		hits, err = r.filterLocale(ctx, f.Locale(), hits)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Member < hits[j].Member
	})

	return r.hydrate(ctx, q, hits)
}

// update runs fn as a transaction on the document hash, re-reading after a
// concurrent write. Errors returned by fn end the attempt unchanged.
func (r *Repo) update(ctx context.Context, id string, fn func(map[string]string) (*db.Batch, error)) error {
	key := r.docKey(id)
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = r.store.UpdateHash(ctx, key, fn)
		if !errors.Is(err, db.ErrTxConflict) {
			break
		}
	}
	if err == nil || errors.Is(err, domain.ErrAlreadyExists) || errors.Is(err, domain.ErrDocumentNotFound) {
		return err
	}
	return fmt.Errorf("update %s: %w", key, err)
}

// stored decodes a document hash. A hash without its vectors is not a committed
// document and reads as absent.
func (r *Repo) stored(id string, m map[string]string) (domdoc.Document, error) {
	if !isComplete(m) {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return parseHashFields(id, m)
}

func (r *Repo) filterLocale(ctx context.Context, locale string, hits []db.ZMember) ([]db.ZMember, error) {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Member
	}
	key := r.localeKey(locale)
	flags, err := r.store.SMIsMember(ctx, key, ids)
	if err != nil {
		return nil, fmt.Errorf("smismember %s: %w", key, err)
	}
	kept := hits[:0]
	for i, h := range hits {
		if i < len(flags) && flags[i] {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// hydrate loads field vectors for the hits in one pipeline.
// Documents deleted between the union and the fetch are skipped.
func (r *Repo) hydrate(ctx context.Context, q vector.Sparse, hits []db.ZMember) ([]result.Candidate, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	keys := make([]string, len(hits))
	for i, h := range hits {
		keys[i] = r.docKey(h.Member)
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hydrate %d candidates: %w", len(keys), err)
	}

	out := make([]result.Candidate, 0, len(hits))
	for i, h := range hits {
		if i >= len(hashes) || !isComplete(hashes[i]) {
			continue
		}
		doc, err := parseHashFields(h.Member, hashes[i])
		if err != nil {
			return nil, err
		}
		out = append(out, result.Candidate{
			ID:           h.Member,
			RawScore:     h.Score,
			TitleMatched: vector.Overlaps(q, doc.TitleVector()),
			Vector:       doc.Vector(),
		})
	}
	return out, nil
}

// writeBatch stores next and its postings. When old is set, postings and the locale
// entry that next no longer carries are removed; shared tokens are overwritten by ZADD.
func (r *Repo) writeBatch(old, next *domdoc.Document, fields map[string]string) *db.Batch {
	b := &db.Batch{
		HSet: []db.HashWrite{{Key: r.docKey(next.ID()), Fields: fields}},
		ZAdd: r.postings(next),
	}
	if next.Locale() != "" {
		b.SAdd = []db.SetItem{{Key: r.localeKey(next.Locale()), Member: next.ID()}}
	}
	if old == nil {
		return b
	}
	nextVec := next.Vector()
	for _, t := range old.Vector().Tokens() {
		if _, ok := nextVec[t]; !ok {
			b.ZRem = append(b.ZRem, db.ZItem{Key: r.postingKey(t), Member: old.ID()})
		}
	}
	if old.Locale() != "" && old.Locale() != next.Locale() {
		b.SRem = []db.SetItem{{Key: r.localeKey(old.Locale()), Member: old.ID()}}
	}
	return b
}

// postings returns one sorted set entry per token of the document vector.
func (r *Repo) postings(doc *domdoc.Document) []db.ZItem {
	vec := doc.Vector()
	items := make([]db.ZItem, 0, len(vec))
	for _, t := range vec.Tokens() {
		items = append(items, db.ZItem{Key: r.postingKey(t), Member: doc.ID(), Score: vec[t]})
	}
	return items
}

func (r *Repo) docKey(id string) string        { return r.prefix + "doc:" + id }
func (r *Repo) postingKey(token string) string { return r.prefix + "post:" + token }
func (r *Repo) localeKey(tag string) string    { return r.prefix + "locale:" + tag }
