// Package distance implements the cosine distance kernels that the HNSW
// core and its construction-time cache are built on.
package distance

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Func computes the cosine distance between two equal-length vectors.
// Implementations must agree to within 1e-5 absolute error and must treat
// a zero-norm vector as orthogonal (distance 1.0) rather than producing NaN.
type Func func(u, v []float32) float32

// NonOptimized is the scalar reference implementation of cosine distance:
// 1 - (u.v) / (|u| * |v|).
func NonOptimized(u, v []float32) float32 {
	var dot, normU, normV float64
	for i := range u {
		uf, vf := float64(u[i]), float64(v[i])
		dot += uf * vf
		normU += uf * uf
		normV += vf * vf
	}
	if normU == 0 || normV == 0 {
		return 1.0
	}
	cosine := dot / (math.Sqrt(normU) * math.Sqrt(normV))
	return float32(1.0 - cosine)
}

// ForUnits computes cosine distance assuming both inputs are already unit
// vectors: 1 - u.v. Callers are responsible for the unit-norm invariant;
// it is not re-checked here.
func ForUnits(u, v []float32) float32 {
	var dot float64
	for i := range u {
		dot += float64(u[i]) * float64(v[i])
	}
	return float32(1.0 - dot)
}

// SIMD is the vectorised form of NonOptimized, backed by vek32's
// hardware-accelerated dot-product and norm kernels.
func SIMD(u, v []float32) float32 {
	normU := vek32.Norm(u)
	normV := vek32.Norm(v)
	if normU == 0 || normV == 0 {
		return 1.0
	}
	dot := vek32.Dot(u, v)
	cosine := dot / (normU * normV)
	return 1.0 - cosine
}

// SIMDForUnits is the vectorised form of ForUnits.
func SIMDForUnits(u, v []float32) float32 {
	return 1.0 - vek32.Dot(u, v)
}
