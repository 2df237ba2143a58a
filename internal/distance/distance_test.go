package distance

import (
	"math"
	"testing"
)

func approxEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestNonOptimizedIdenticalVectorsAreZero(t *testing.T) {
	u := []float32{1, 2, 3, 4}
	if d := NonOptimized(u, u); !approxEqual(d, 0, 1e-5) {
		t.Errorf("expected distance 0 for identical vectors, got %f", d)
	}
}

func TestNonOptimizedOrthogonalVectorsAreOne(t *testing.T) {
	u := []float32{1, 0}
	v := []float32{0, 1}
	if d := NonOptimized(u, v); !approxEqual(d, 1, 1e-5) {
		t.Errorf("expected distance 1 for orthogonal vectors, got %f", d)
	}
}

func TestNonOptimizedZeroNormIsOrthogonal(t *testing.T) {
	u := []float32{0, 0, 0}
	v := []float32{1, 2, 3}
	d := NonOptimized(u, v)
	if math.IsNaN(float64(d)) {
		t.Fatal("expected a defined distance for a zero-norm vector, got NaN")
	}
	if !approxEqual(d, 1, 1e-5) {
		t.Errorf("expected distance 1 for a zero-norm vector, got %f", d)
	}
}

func TestForUnitsMatchesNonOptimizedOnUnitVectors(t *testing.T) {
	u := normalize([]float32{3, 4, 0})
	v := normalize([]float32{0, 4, 3})
	if d1, d2 := NonOptimized(u, v), ForUnits(u, v); !approxEqual(d1, d2, 1e-5) {
		t.Errorf("ForUnits diverged from NonOptimized: %f vs %f", d2, d1)
	}
}

func TestSIMDMatchesNonOptimized(t *testing.T) {
	u := []float32{1, 2, 3, 4, 5}
	v := []float32{5, 4, 3, 2, 1}
	if d1, d2 := NonOptimized(u, v), SIMD(u, v); !approxEqual(d1, d2, 1e-4) {
		t.Errorf("SIMD diverged from NonOptimized: %f vs %f", d2, d1)
	}
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func TestMinHeapPopsAscending(t *testing.T) {
	h := NewMinHeap(4)
	for _, c := range []Candidate{{ID: 3, Distance: 0.5}, {ID: 1, Distance: 0.1}, {ID: 2, Distance: 0.3}} {
		h.PushCandidate(c)
	}
	var got []float32
	for h.Len() > 0 {
		got = append(got, h.PopCandidate().Distance)
	}
	want := []float32{0.1, 0.3, 0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("at %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestMinHeapTieBreaksBySmallerID(t *testing.T) {
	h := NewMinHeap(2)
	h.PushCandidate(Candidate{ID: 5, Distance: 1.0})
	h.PushCandidate(Candidate{ID: 2, Distance: 1.0})
	first := h.PopCandidate()
	if first.ID != 2 {
		t.Errorf("expected tie-break to prefer smaller ID, got %d", first.ID)
	}
}

func TestMaxHeapPopsDescending(t *testing.T) {
	h := NewMaxHeap(4)
	for _, c := range []Candidate{{ID: 1, Distance: 0.1}, {ID: 2, Distance: 0.9}, {ID: 3, Distance: 0.5}} {
		h.PushCandidate(c)
	}
	if h.Peek().Distance != 0.9 {
		t.Errorf("expected peek to report the worst (largest) distance, got %f", h.Peek().Distance)
	}
}

func TestMaxHeapSortedReturnsAscending(t *testing.T) {
	h := NewMaxHeap(4)
	for _, c := range []Candidate{{ID: 1, Distance: 0.5}, {ID: 2, Distance: 0.1}, {ID: 3, Distance: 0.9}} {
		h.PushCandidate(c)
	}
	sorted := h.Sorted()
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Distance > sorted[i].Distance {
			t.Errorf("Sorted() not ascending at index %d: %v", i, sorted)
		}
	}
	if h.Len() != 0 {
		t.Error("expected Sorted() to drain the heap")
	}
}

func TestCacheReturnsCachedValueOnSecondLookup(t *testing.T) {
	c := NewCache(8)
	calls := 0
	compute := func(i, j uint32) float32 {
		calls++
		return 42
	}
	c.GetValue(1, 2, compute)
	c.GetValue(1, 2, compute)
	if calls != 1 {
		t.Errorf("expected compute to run once, ran %d times", calls)
	}
}

func TestCacheIsOrderInsensitive(t *testing.T) {
	c := NewCache(8)
	calls := 0
	compute := func(i, j uint32) float32 {
		calls++
		return 7
	}
	c.GetValue(1, 2, compute)
	c.GetValue(2, 1, compute)
	if calls != 1 {
		t.Errorf("expected pair (1,2) and (2,1) to share a cache entry, compute ran %d times", calls)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 cached entry, got %d", c.Len())
	}
}

func TestCacheHitRate(t *testing.T) {
	c := NewCache(8)
	compute := func(i, j uint32) float32 { return 1 }
	if rate := c.HitRate(); rate != 0 {
		t.Errorf("expected 0 hit rate before any lookups, got %f", rate)
	}
	c.GetValue(1, 2, compute)
	c.GetValue(1, 2, compute)
	if rate := c.HitRate(); !approxEqual(float32(rate), 0.5, 1e-6) {
		t.Errorf("expected hit rate 0.5 after one miss and one hit, got %f", rate)
	}
}

func TestCacheResizeWithoutPreserveClears(t *testing.T) {
	c := NewCache(8)
	c.GetValue(1, 2, func(i, j uint32) float32 { return 1 })
	c.Resize(16, false)
	if c.Len() != 0 {
		t.Errorf("expected Resize(preserve=false) to clear entries, got %d", c.Len())
	}
}

func TestCacheResizePreservesEntries(t *testing.T) {
	c := NewCache(8)
	c.GetValue(1, 2, func(i, j uint32) float32 { return 1 })
	c.Resize(16, true)
	if c.Len() != 1 {
		t.Errorf("expected Resize(preserve=true) to keep entries, got %d", c.Len())
	}
}
