package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	domdoc "github.com/kailas-cloud/kbsearch/internal/domain/document"
	"github.com/kailas-cloud/kbsearch/internal/logger"
)

// Service handles the document lifecycle with analysis on every write.
// Mutations are never retried here; ids are stable so callers can retry safely.
type Service struct {
	repo           Repository
	analyzer       Analyzer
	tracker        ViewTracker
	views          ViewReader
	storeTimeout   time.Duration
	counterTimeout time.Duration
}

// New creates a document service. tracker and views can be nil.
func New(repo Repository, a Analyzer, tracker ViewTracker, views ViewReader) *Service {
	return &Service{
		repo:           repo,
		analyzer:       a,
		tracker:        tracker,
		views:          views,
		storeTimeout:   2 * time.Second,
		counterTimeout: 100 * time.Millisecond,
	}
}

// WithTimeouts configures the document store and counter store budgets.
func (s *Service) WithTimeouts(store, counter time.Duration) *Service {
	if store > 0 {
		s.storeTimeout = store
	}
	if counter > 0 {
		s.counterTimeout = counter
	}
	return s
}

// Create validates, analyzes and stores a new document. An empty id gets a random UUID.
func (s *Service) Create(ctx context.Context, id, title, body, locale string) (domdoc.Document, error) {
	if id == "" {
		id = uuid.NewString()
	}
	doc, err := s.build(id, title, body, locale)
	if err != nil {
		return domdoc.Document{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, &doc); err != nil {
		return domdoc.Document{}, storeErr("create document", err)
	}
	return doc, nil
}

// Get returns a document and counts the view.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	doc, err := s.repo.Get(sctx, id)
	if err != nil {
		return domdoc.Document{}, storeErr("get document", err)
	}
	if s.tracker != nil {
		s.tracker.Track(id)
	}
	return doc, nil
}

// Update fully replaces a document, recomputing both field vectors.
func (s *Service) Update(ctx context.Context, id, title, body, locale string) (domdoc.Document, error) {
	doc, err := s.build(id, title, body, locale)
	if err != nil {
		return domdoc.Document{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.Replace(ctx, &doc); err != nil {
		return domdoc.Document{}, storeErr("replace document", err)
	}
	return doc, nil
}

// Delete removes a document. Its view counter is dropped in the background.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		return storeErr("delete document", err)
	}
	if s.tracker != nil {
		s.tracker.Forget(id)
	}
	return nil
}

// ViewCount returns the view count for any id, including deleted ones.
// Counter store failures yield 0 with degraded=true and never an error.
func (s *Service) ViewCount(ctx context.Context, id string) (count int64, degraded bool) {
	if s.views == nil {
		return 0, true
	}
	cctx, cancel := context.WithTimeout(ctx, s.counterTimeout)
	defer cancel()

	n, err := s.views.Get(cctx, id)
	if err != nil {
		logger.ForDocument(ctx, id).Warn("view count unavailable", zap.Error(err))
		return 0, true
	}
	return n, false
}

func (s *Service) build(id, title, body, locale string) (domdoc.Document, error) {
	doc, err := domdoc.New(id, title, body, locale)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	titleVec, err := s.analyzer.Analyze(title)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: title: %w", domain.ErrInvalidDocument, err)
	}
	bodyVec, err := s.analyzer.Analyze(body)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: body: %w", domain.ErrInvalidDocument, err)
	}
	return doc.WithVectors(titleVec, bodyVec), nil
}

// storeErr keeps NotFound and Conflict as they are and maps everything else to Unavailable.
func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrDocumentNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
}
