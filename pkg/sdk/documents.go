package kbsearch

import (
	"context"
	"fmt"
	"time"

	domdoc "github.com/kailas-cloud/kbsearch/internal/domain/document"
)

// DocumentService manages documents.
type DocumentService struct {
	svc documentUseCase
	obs *observer
}

// Create indexes a new document and returns it with its assigned ID.
// Returns ErrAlreadyExists if the ID is taken.
func (s *DocumentService) Create(ctx context.Context, doc Document) (_ Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("create", start, err) }()

	d, err := s.svc.Create(ctx, doc.ID, doc.Title, doc.Body, doc.Locale)
	if err != nil {
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	return fromInternalDocument(&d), nil
}

// Get retrieves a document by ID and counts a view.
func (s *DocumentService) Get(ctx context.Context, id string) (_ Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("get", start, err) }()

	d, err := s.svc.Get(ctx, id)
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return fromInternalDocument(&d), nil
}

// Update replaces a document. doc.ID is ignored in favour of id.
func (s *DocumentService) Update(ctx context.Context, id string, doc Document) (_ Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("update", start, err) }()

	d, err := s.svc.Update(ctx, id, doc.Title, doc.Body, doc.Locale)
	if err != nil {
		return Document{}, fmt.Errorf("update document: %w", err)
	}
	return fromInternalDocument(&d), nil
}

// Delete removes a document by ID.
func (s *DocumentService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("delete", start, err) }()

	if err := s.svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Views returns the view count of any ID. It never fails; see ViewCount.Degraded.
func (s *DocumentService) Views(ctx context.Context, id string) ViewCount {
	n, degraded := s.svc.ViewCount(ctx, id)
	return ViewCount{Count: n, Degraded: degraded}
}

func fromInternalDocument(d *domdoc.Document) Document {
	return Document{
		ID:     d.ID(),
		Title:  d.Title(),
		Body:   d.Body(),
		Locale: d.Locale(),
	}
}
