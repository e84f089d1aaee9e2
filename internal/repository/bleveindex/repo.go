// Package bleveindex implements the document store adapter on an embedded bleve index.
package bleveindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	domdoc "github.com/kailas-cloud/kbsearch/internal/domain/document"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
)

const (
	fieldTitle    = "title"
	fieldBody     = "body"
	fieldLocale   = "locale"
	fieldTitleVec = "title_vec"
	fieldBodyVec  = "body_vec"
)

// candidatePageSize is the number of hits fetched per search request.
var candidatePageSize = 500

var storedFields = []string{fieldTitle, fieldBody, fieldLocale, fieldTitleVec, fieldBodyVec}

// Repo stores documents in a bleve index.
// Title and body are indexed with the same analyzer the query side uses,
// so index terms and query vector tokens are directly comparable.
type Repo struct {
	index bleve.Index
	// mu serializes existence checks with writes so Create/Replace see a consistent view.
	mu sync.Mutex
}

// Open creates or opens a bleve index at path. Empty path keeps the index in memory.
// An existing index keeps the mapping it was created with; remove the directory after
// changing the analyzer.
func Open(path, analyzer string) (*Repo, error) {
	im := buildMapping(analyzer)

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		return &Repo{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open index: %w", openErr)
		}
		return &Repo{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Repo{index: index}, nil
}

func buildMapping(analyzer string) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	text := bleve.NewTextFieldMapping()
	text.Analyzer = analyzer
	text.Store = true
	text.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(fieldTitle, text)
	docMapping.AddFieldMappingsAt(fieldBody, text)

	keyword := bleve.NewKeywordFieldMapping()
	keyword.Store = true
	docMapping.AddFieldMappingsAt(fieldLocale, keyword)

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.Store = true
	stored.IncludeInAll = false
	stored.IncludeTermVectors = false
	docMapping.AddFieldMappingsAt(fieldTitleVec, stored)
	docMapping.AddFieldMappingsAt(fieldBodyVec, stored)

	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = analyzer
	return im
}

// Create indexes a new document. Returns domain.ErrAlreadyExists if the id is taken.
func (r *Repo) Create(ctx context.Context, doc *domdoc.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.exists(ctx, doc.ID())
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("document %s: %w", doc.ID(), domain.ErrAlreadyExists)
	}
	return r.put(doc)
}

// Replace re-indexes an existing document from its full content.
func (r *Repo) Replace(ctx context.Context, doc *domdoc.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.exists(ctx, doc.ID())
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}
	return r.put(doc)
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	hit, err := r.lookup(ctx, id, storedFields)
	if err != nil {
		return domdoc.Document{}, err
	}
	if hit == nil {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}

	titleVec, bodyVec, err := parseVectors(id, hit.Fields)
	if err != nil {
		return domdoc.Document{}, err
	}
	return domdoc.Reconstruct(id,
		stringField(hit.Fields, fieldTitle),
		stringField(hit.Fields, fieldBody),
		stringField(hit.Fields, fieldLocale),
		titleVec, bodyVec,
	), nil
}

// Delete removes a document from the index.
func (r *Repo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}
	if err := r.index.Delete(id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Search returns every document with a title or body term from q, in id order.
// Hits are read in pages of candidatePageSize so the collector stays bounded
// while the caller still ranks the complete set.
func (r *Repo) Search(ctx context.Context, q vector.Sparse, f filter.Filters) ([]result.Candidate, error) {
	tokens := q.Tokens()
	if len(tokens) == 0 {
		return nil, nil
	}

	terms := make([]blevequery.Query, 0, 2*len(tokens))
	for _, t := range tokens {
		terms = append(terms, termQuery(t, fieldTitle), termQuery(t, fieldBody))
	}
	var query blevequery.Query = bleve.NewDisjunctionQuery(terms...)
	if f.HasLocale() {
		query = bleve.NewConjunctionQuery(query, termQuery(f.Locale(), fieldLocale))
	}

	var out []result.Candidate
	for from := 0; ; from += candidatePageSize {
		req := bleve.NewSearchRequestOptions(query, candidatePageSize, from, false)
		req.Fields = []string{fieldTitleVec, fieldBodyVec}
		req.SortBy([]string{"_id"})

		res, err := r.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("bleve search: %w", err)
		}
		for _, hit := range res.Hits {
			titleVec, bodyVec, err := parseVectors(hit.ID, hit.Fields)
			if err != nil {
				return nil, err
			}
			out = append(out, result.Candidate{
				ID:           hit.ID,
				RawScore:     hit.Score,
				TitleMatched: vector.Overlaps(q, titleVec),
				Vector:       vector.Merge(titleVec, bodyVec),
			})
		}
		if len(res.Hits) < candidatePageSize {
			return out, nil
		}
	}
}

// Close closes the bleve index.
func (r *Repo) Close() error {
	return r.index.Close()
}

// Ping checks that the index answers a count query.
func (r *Repo) Ping(context.Context) error {
	if _, err := r.index.DocCount(); err != nil {
		return fmt.Errorf("bleve doc count: %w", err)
	}
	return nil
}

func (r *Repo) put(doc *domdoc.Document) error {
	titleVec, err := json.Marshal(doc.TitleVector())
	if err != nil {
		return fmt.Errorf("marshal title vector: %w", err)
	}
	bodyVec, err := json.Marshal(doc.BodyVector())
	if err != nil {
		return fmt.Errorf("marshal body vector: %w", err)
	}
	data := map[string]any{
		fieldTitle:    doc.Title(),
		fieldBody:     doc.Body(),
		fieldLocale:   doc.Locale(),
		fieldTitleVec: string(titleVec),
		fieldBodyVec:  string(bodyVec),
	}
	if err := r.index.Index(doc.ID(), data); err != nil {
		return fmt.Errorf("index %s: %w", doc.ID(), err)
	}
	return nil
}

func (r *Repo) exists(ctx context.Context, id string) (bool, error) {
	hit, err := r.lookup(ctx, id, nil)
	if err != nil {
		return false, err
	}
	return hit != nil, nil
}

// lookup fetches a single document by id, or nil when absent.
func (r *Repo) lookup(ctx context.Context, id string, fields []string) (*searchHit, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Size = 1
	req.Fields = fields
	res, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}
	return &searchHit{Fields: res.Hits[0].Fields}, nil
}

type searchHit struct {
	Fields map[string]any
}

func termQuery(term, field string) blevequery.Query {
	q := bleve.NewTermQuery(term)
	q.SetField(field)
	return q
}

func parseVectors(id string, fields map[string]any) (vector.Sparse, vector.Sparse, error) {
	titleVec, err := vector.Parse(stringField(fields, fieldTitleVec))
	if err != nil {
		return nil, nil, fmt.Errorf("document %s title vector: %w", id, err)
	}
	bodyVec, err := vector.Parse(stringField(fields, fieldBodyVec))
	if err != nil {
		return nil, nil, fmt.Errorf("document %s body vector: %w", id, err)
	}
	return titleVec, bodyVec, nil
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}
