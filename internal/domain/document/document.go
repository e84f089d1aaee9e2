package document

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
)

var (
	idRegex     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	localeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]*$`)
	reservedIDs = map[string]bool{"search": true}
)

// Size limits.
const (
	MaxIDLength     = 256
	MaxTitleSize    = 1024
	MaxBodySize     = 163840 // 160KB
	MaxLocaleLength = 35
)

// Document is the document aggregate (immutable value object).
// The field vectors are derived from the analyzed title and body and are never patched:
// any content change produces a new Document with fully recomputed vectors.
type Document struct {
	id          string
	title       string
	body        string
	locale      string
	titleVector vector.Sparse
	bodyVector  vector.Sparse
}

// New validates and creates a Document without vectors.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars, not reserved. Title or body must be non-empty.
func New(id, title, body, locale string) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}
	if title == "" && body == "" {
		return Document{}, fmt.Errorf("title or body is required")
	}
	if len(title) > MaxTitleSize {
		return Document{}, fmt.Errorf("title too large (max %d bytes)", MaxTitleSize)
	}
	if len(body) > MaxBodySize {
		return Document{}, fmt.Errorf("body too large (max %d bytes)", MaxBodySize)
	}
	if err := ValidateLocale(locale); err != nil {
		return Document{}, err
	}

	return Document{id: id, title: title, body: body, locale: locale}, nil
}

// ValidateID checks a document identifier.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("document ID is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("document ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if reservedIDs[id] {
		return fmt.Errorf("document ID %q is reserved", id)
	}
	return nil
}

// ValidateLocale checks an exact-match locale tag. Empty is allowed.
func ValidateLocale(locale string) error {
	if len(locale) > MaxLocaleLength {
		return fmt.Errorf("locale too long (max %d)", MaxLocaleLength)
	}
	if !localeRegex.MatchString(locale) {
		return fmt.Errorf("locale must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, title, body, locale string, titleVector, bodyVector vector.Sparse) Document {
	return Document{
		id: id, title: title, body: body, locale: locale,
		titleVector: titleVector, bodyVector: bodyVector,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Body returns the document body.
func (d *Document) Body() string { return d.body }

// Locale returns the exact-match locale tag.
func (d *Document) Locale() string { return d.locale }

// TitleVector returns the analyzed title vector.
func (d *Document) TitleVector() vector.Sparse { return d.titleVector }

// BodyVector returns the analyzed body vector.
func (d *Document) BodyVector() vector.Sparse { return d.bodyVector }

// Vector returns the document vector: the sum of the title and body vectors.
func (d *Document) Vector() vector.Sparse { return vector.Merge(d.titleVector, d.bodyVector) }

// WithVectors returns a copy with the given field vectors set.
func (d *Document) WithVectors(title, body vector.Sparse) Document {
	return Document{
		id: d.id, title: d.title, body: d.body, locale: d.locale,
		titleVector: title, bodyVector: body,
	}
}
