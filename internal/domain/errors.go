package domain

import "errors"

var (
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrAlreadyExists signals a duplicate document id on create.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnavailable signals that the document store could not be reached in time.
	ErrUnavailable = errors.New("document store unavailable")
	// ErrAnalysisFailure signals that the analyzer could not process the input.
	ErrAnalysisFailure = errors.New("analysis failure")
	// ErrInvalidDocument signals a document that fails validation.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidQuery signals malformed search parameters.
	ErrInvalidQuery = errors.New("invalid query")
)
