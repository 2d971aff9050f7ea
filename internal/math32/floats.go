// Package math32 provides float32 vector kernels shared by the public
// packages. This is an internal package - external users should use the
// distance package.
package math32

import "math"

// Dot calculates the dot product of two vectors.
// Assumes both vectors have the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}

	return ret
}

// Norm calculates the Euclidean (L2) norm of v.
func Norm(v []float32) float32 {
	return Sqrt(Dot(v, v))
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// Sqrt returns the square root of x as float32.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// MaxAbs returns the largest absolute component value in v.
func MaxAbs(v []float32) float32 {
	var ret float32
	for _, x := range v {
		if x < 0 {
			x = -x
		}
		if x > ret {
			ret = x
		}
	}

	return ret
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}

	return true
}
