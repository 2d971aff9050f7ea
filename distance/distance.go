// Package distance provides the vector math used across the index and
// routing builders: dot products on unit vectors (cosine similarity) and
// L2 normalization with rejection of degenerate vectors.
package distance

import (
	"fmt"
	"math"
	"slices"

	"github.com/shelfann/shelfann/internal/math32"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
// For unit-normalized vectors this equals cosine similarity.
func Dot(a, b []float32) float32 {
	return math32.Dot(a, b)
}

// Norm calculates the Euclidean (L2) norm of v.
func Norm(v []float32) float32 {
	return math32.Norm(v)
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v is empty, has zero or non-finite norm, or contains
// NaN/Inf components; v is left unmodified in that case. The norm is
// checked itself, not just the components: finite components can still
// overflow the squared sum to +Inf, and scaling by 1/Inf would produce
// the zero vector that mean pooling must never see.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	if !math32.IsFinite(v) {
		return false
	}
	norm2 := math32.Dot(v, v)
	if norm2 == 0 || math.IsInf(float64(norm2), 1) {
		return false
	}
	inv := 1 / math32.Sqrt(norm2)
	math32.ScaleInPlace(v, inv)
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src cannot be normalized (zero norm or non-finite
// components). Callers must treat a false result as "drop this vector",
// never as a zero vector: a zero vector would bias mean pooling.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Metric represents the similarity metric used for vector comparison.
type Metric int

const (
	MetricCosine Metric = iota
	MetricDot
)

func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricDot:
		return "dot"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for similarity calculation.
type Func func(a, b []float32) float32

// Provider returns the similarity function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricCosine, MetricDot:
		return Dot, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
