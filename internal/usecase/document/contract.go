package document

import (
	"context"

	domdoc "github.com/kailas-cloud/kbsearch/internal/domain/document"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
)

// Repository defines the storage contract for documents.
type Repository interface {
	// Create fails with domain.ErrAlreadyExists when the id is taken.
	Create(ctx context.Context, doc *domdoc.Document) error
	// Replace fails with domain.ErrDocumentNotFound when the id is absent.
	Replace(ctx context.Context, doc *domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Delete(ctx context.Context, id string) error
}

// Analyzer turns field text into vectors. It must be the analyzer used at query time.
type Analyzer interface {
	Analyze(text string) (vector.Sparse, error)
}

// ViewTracker records and forgets views in the background.
type ViewTracker interface {
	Track(ids ...string)
	Forget(id string)
}

// ViewReader reads a single view count.
type ViewReader interface {
	Get(ctx context.Context, id string) (int64, error)
}
