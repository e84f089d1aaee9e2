// Package analysis turns text into sparse term-frequency vectors using a bleve analyzer.
// One Analyzer instance must serve both indexing and querying so that
// index-time and query-time tokens are produced by identical normalization.
package analysis

import (
	"fmt"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
)

// Analyzer names accepted by New.
const (
	Standard = standard.Name
	English  = en.AnalyzerName
	Simple   = simple.Name
)

// Analyzer wraps a named bleve analyzer.
type Analyzer struct {
	name     string
	analyzer analysis.Analyzer
}

// New resolves a bleve analyzer by name. Empty defaults to the standard analyzer
// (unicode tokenization, lowercase, English stop words, no stemming).
func New(name string) (*Analyzer, error) {
	if name == "" {
		name = Standard
	}
	a, err := registry.NewCache().AnalyzerNamed(name)
	if err != nil {
		return nil, fmt.Errorf("resolve analyzer %q: %w", name, err)
	}
	return &Analyzer{name: name, analyzer: a}, nil
}

// Name returns the bleve analyzer name, used to configure index mappings consistently.
func (a *Analyzer) Name() string { return a.name }

// Analyze tokenizes text and returns term-frequency weights.
// Empty or all-stopword text yields an empty vector, not an error.
func (a *Analyzer) Analyze(text string) (vector.Sparse, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", domain.ErrAnalysisFailure)
	}
	v := make(vector.Sparse)
	if text == "" {
		return v, nil
	}
	for _, tok := range a.analyzer.Analyze([]byte(text)) {
		if len(tok.Term) == 0 {
			continue
		}
		v[string(tok.Term)]++
	}
	return v, nil
}
