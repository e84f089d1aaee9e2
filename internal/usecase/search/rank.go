package search

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
)

// BoostMode selects how the title boost is applied to relevance.
type BoostMode string

// Supported boost modes.
const (
	BoostMultiplicative BoostMode = "multiplicative"
	BoostAdditive       BoostMode = "additive"
)

// maxPrecision keeps 10^precision well inside float64 integer range.
const maxPrecision = 12

// Policy is the declared ranking policy. It is configuration, never learned.
type Policy struct {
	// TitleBoost is the factor (multiplicative) or bonus (additive) for title matches.
	TitleBoost float64
	BoostMode  BoostMode
	// Precision is the number of decimals the primary key is rounded to before comparison,
	// so float noise does not hide equal relevance from the popularity tie-break.
	Precision int
}

// DefaultPolicy returns a 2x multiplicative title boost compared at 4 decimals.
func DefaultPolicy() Policy {
	return Policy{TitleBoost: 2.0, BoostMode: BoostMultiplicative, Precision: 4}
}

// Validate checks the policy.
func (p Policy) Validate() error {
	switch p.BoostMode {
	case BoostMultiplicative:
		if p.TitleBoost < 1 {
			return fmt.Errorf("multiplicative title boost must be >= 1, got %v", p.TitleBoost)
		}
	case BoostAdditive:
		if p.TitleBoost < 0 {
			return fmt.Errorf("additive title boost must be >= 0, got %v", p.TitleBoost)
		}
	default:
		return fmt.Errorf("unknown boost mode %q", p.BoostMode)
	}
	if math.IsNaN(p.TitleBoost) || math.IsInf(p.TitleBoost, 0) {
		return fmt.Errorf("title boost must be finite")
	}
	if p.Precision < 0 || p.Precision > maxPrecision {
		return fmt.Errorf("precision must be in [0, %d], got %d", maxPrecision, p.Precision)
	}
	return nil
}

// Boost applies the title boost to a scored candidate.
func (p Policy) Boost(s result.Scored) float64 {
	if !s.TitleMatched {
		return s.Relevance
	}
	if p.BoostMode == BoostAdditive {
		return s.Relevance + p.TitleBoost
	}
	return s.Relevance * p.TitleBoost
}

func (p Policy) primaryKey(score float64) float64 {
	scale := math.Pow(10, float64(p.Precision))
	return math.Round(score*scale) / scale
}

// Score computes relevance for every candidate and drops zero-score ones.
func Score(scorer vector.Scorer, q vector.Sparse, candidates []result.Candidate) []result.Scored {
	out := make([]result.Scored, 0, len(candidates))
	for _, c := range candidates {
		rel := scorer.Score(q, c.Vector)
		if rel <= 0 {
			continue
		}
		out = append(out, result.Scored{ID: c.ID, Relevance: rel, TitleMatched: c.TitleMatched})
	}
	return out
}

// Rank orders candidates by boosted relevance desc, then view count desc, then id asc.
// Views are a tie-break only and are never blended into the score. Ids absent from
// views count as 0, which is also the degraded-mode behaviour.
func Rank(scored []result.Scored, views map[string]int64, p Policy) []result.Ranked {
	type entry struct {
		ranked  result.Ranked
		primary float64
	}

	entries := make([]entry, len(scored))
	for i, s := range scored {
		score := p.Boost(s)
		entries[i] = entry{
			ranked:  result.Ranked{ID: s.ID, Score: score, ViewCount: views[s.ID]},
			primary: p.primaryKey(score),
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.primary != b.primary {
			return a.primary > b.primary
		}
		if a.ranked.ViewCount != b.ranked.ViewCount {
			return a.ranked.ViewCount > b.ranked.ViewCount
		}
		return a.ranked.ID < b.ranked.ID
	})

	out := make([]result.Ranked, len(entries))
	for i, e := range entries {
		out[i] = e.ranked
	}
	return out
}
