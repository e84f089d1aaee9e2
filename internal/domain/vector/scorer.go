package vector

import "fmt"

// Scoring names a similarity function.
type Scoring string

// Supported scorings.
const (
	// ScoringDot is the raw dot product (the store's native semantics).
	ScoringDot    Scoring = "dot"
	ScoringCosine Scoring = "cosine"
)

// IsValid checks if the scoring is one of the supported values.
func (s Scoring) IsValid() bool {
	return s == ScoringDot || s == ScoringCosine
}

// Scorer computes a non-negative relevance score between a query and a document vector.
// Implementations are pure and deterministic.
type Scorer interface {
	Score(query, doc Sparse) float64
	Name() Scoring
}

// DotProduct scores with the raw dot product.
type DotProduct struct{}

// Score implements Scorer.
func (DotProduct) Score(query, doc Sparse) float64 { return Dot(query, doc) }

// Name implements Scorer.
func (DotProduct) Name() Scoring { return ScoringDot }

// CosineSimilarity scores with the normalized dot product.
type CosineSimilarity struct{}

// Score implements Scorer.
func (CosineSimilarity) Score(query, doc Sparse) float64 { return Cosine(query, doc) }

// Name implements Scorer.
func (CosineSimilarity) Name() Scoring { return ScoringCosine }

// NewScorer returns the scorer for s. Empty defaults to dot.
func NewScorer(s Scoring) (Scorer, error) {
	switch s {
	case "", ScoringDot:
		return DotProduct{}, nil
	case ScoringCosine:
		return CosineSimilarity{}, nil
	default:
		return nil, fmt.Errorf("unknown scoring %q", s)
	}
}
