package document

import (
	"encoding/json"
	"fmt"

	domdoc "github.com/kailas-cloud/kbsearch/internal/domain/document"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
)

// Hash field names of a stored document.
const (
	fieldID       = "id"
	fieldTitle    = "title"
	fieldBody     = "body"
	fieldLocale   = "locale"
	fieldTitleVec = "title_vec"
	fieldBodyVec  = "body_vec"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
func buildHashFields(doc *domdoc.Document) (map[string]string, error) {
	titleVec, err := json.Marshal(doc.TitleVector())
	if err != nil {
		return nil, fmt.Errorf("marshal title vector: %w", err)
	}
	bodyVec, err := json.Marshal(doc.BodyVector())
	if err != nil {
		return nil, fmt.Errorf("marshal body vector: %w", err)
	}
	return map[string]string{
		fieldID:       doc.ID(),
		fieldTitle:    doc.Title(),
		fieldBody:     doc.Body(),
		fieldLocale:   doc.Locale(),
		fieldTitleVec: string(titleVec),
		fieldBodyVec:  string(bodyVec),
	}, nil
}

// isComplete reports whether a stored hash carries both field vectors.
func isComplete(m map[string]string) bool {
	_, title := m[fieldTitleVec]
	_, body := m[fieldBodyVec]
	return title && body
}

// parseHashFields converts a stored hash back into a domain Document.
func parseHashFields(id string, m map[string]string) (domdoc.Document, error) {
	titleVec, err := vector.Parse(m[fieldTitleVec])
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("document %s title vector: %w", id, err)
	}
	bodyVec, err := vector.Parse(m[fieldBodyVec])
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("document %s body vector: %w", id, err)
	}
	return domdoc.Reconstruct(id, m[fieldTitle], m[fieldBody], m[fieldLocale], titleVec, bodyVec), nil
}
