// Package vector holds sparse term vectors and the similarity scorers over them.
package vector

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Sparse maps a token to a strictly positive weight. Absent tokens weigh 0.
type Sparse map[string]float64

// New validates weights and drops zero entries.
func New(weights map[string]float64) (Sparse, error) {
	v := make(Sparse, len(weights))
	for t, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("invalid weight %v for token %q", w, t)
		}
		if t == "" || w == 0 {
			continue
		}
		v[t] = w
	}
	return v, nil
}

// Merge returns the element-wise sum of a and b.
func Merge(a, b Sparse) Sparse {
	out := make(Sparse, len(a)+len(b))
	for t, w := range a {
		out[t] += w
	}
	for t, w := range b {
		out[t] += w
	}
	return out
}

// IsEmpty reports whether the vector has no dimensions.
func (v Sparse) IsEmpty() bool { return len(v) == 0 }

// Tokens returns the vector's support in lexical order.
func (v Sparse) Tokens() []string {
	tokens := make([]string, 0, len(v))
	for t := range v {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// Norm returns the euclidean length.
func (v Sparse) Norm() float64 {
	var sum float64
	for _, t := range v.Tokens() {
		sum += v[t] * v[t]
	}
	return math.Sqrt(sum)
}

// Overlaps reports whether a and b share at least one dimension.
func Overlaps(a, b Sparse) bool {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	for t := range small {
		if _, ok := large[t]; ok {
			return true
		}
	}
	return false
}

// Dot returns the dot product over the shared support.
// Tokens are visited in lexical order so that float accumulation is reproducible.
func Dot(a, b Sparse) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	var sum float64
	for _, t := range small.Tokens() {
		if w, ok := large[t]; ok {
			sum += small[t] * w
		}
	}
	return sum
}

// Cosine returns Dot(a, b) / (|a|·|b|), or 0 when either vector is empty.
func Cosine(a, b Sparse) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}

// Parse decodes a JSON-encoded vector and re-validates it.
func Parse(data string) (Sparse, error) {
	if data == "" {
		return Sparse{}, nil
	}
	var raw map[string]float64
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	return New(raw)
}
