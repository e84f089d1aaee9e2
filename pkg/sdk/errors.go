package kbsearch

import "github.com/kailas-cloud/kbsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDocumentNotFound = domain.ErrDocumentNotFound
	ErrAlreadyExists    = domain.ErrAlreadyExists
	ErrUnavailable      = domain.ErrUnavailable
	ErrInvalidDocument  = domain.ErrInvalidDocument
	ErrInvalidQuery     = domain.ErrInvalidQuery
)
