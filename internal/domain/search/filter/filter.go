package filter

import (
	"fmt"

	"github.com/kailas-cloud/kbsearch/internal/domain/document"
)

// Filters are exact-match constraints on categorical document fields.
// They are never analyzed: a document passes only when the tag is byte-identical.
type Filters struct {
	locale string
}

// New validates and creates Filters. An empty locale disables the locale constraint.
func New(locale string) (Filters, error) {
	if err := document.ValidateLocale(locale); err != nil {
		return Filters{}, fmt.Errorf("locale filter: %w", err)
	}
	return Filters{locale: locale}, nil
}

// Locale returns the required locale tag ("" = any).
func (f Filters) Locale() string { return f.locale }

// HasLocale reports whether a locale constraint is set.
func (f Filters) HasLocale() bool { return f.locale != "" }

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool { return f.locale == "" }

// Matches reports whether a document locale satisfies the filters.
func (f Filters) Matches(locale string) bool {
	return f.locale == "" || f.locale == locale
}
