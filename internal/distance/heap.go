package distance

import "container/heap"

// Candidate is a node considered during search or construction, paired
// with its distance to the query/insertion point.
type Candidate struct {
	ID       uint32
	Distance float32
}

// less orders candidates by ascending distance, breaking ties by the
// smaller ID as required by the searcher's tie-break rule.
func less(a, b Candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// MinHeap pops the closest candidate first.
type MinHeap struct{ items []Candidate }

// NewMinHeap creates a min-heap pre-sized for capacity entries.
func NewMinHeap(capacity int) *MinHeap {
	return &MinHeap{items: make([]Candidate, 0, capacity)}
}

func (h *MinHeap) Len() int            { return len(h.items) }
func (h *MinHeap) Less(i, j int) bool  { return less(h.items[i], h.items[j]) }
func (h *MinHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *MinHeap) Push(x interface{})  { h.items = append(h.items, x.(Candidate)) }
func (h *MinHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// PushCandidate adds a candidate to the heap.
func (h *MinHeap) PushCandidate(c Candidate) { heap.Push(h, c) }

// PopCandidate removes and returns the closest candidate.
func (h *MinHeap) PopCandidate() Candidate { return heap.Pop(h).(Candidate) }

// Peek returns the closest candidate without removing it.
func (h *MinHeap) Peek() Candidate { return h.items[0] }

// MaxHeap pops the furthest candidate first; used to hold the current best
// k results so the worst one can be evicted in O(log k).
type MaxHeap struct{ items []Candidate }

// NewMaxHeap creates a max-heap pre-sized for capacity entries.
func NewMaxHeap(capacity int) *MaxHeap {
	return &MaxHeap{items: make([]Candidate, 0, capacity)}
}

func (h *MaxHeap) Len() int           { return len(h.items) }
func (h *MaxHeap) Less(i, j int) bool { return less(h.items[j], h.items[i]) }
func (h *MaxHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *MaxHeap) Push(x interface{}) { h.items = append(h.items, x.(Candidate)) }
func (h *MaxHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// PushCandidate adds a candidate to the heap.
func (h *MaxHeap) PushCandidate(c Candidate) { heap.Push(h, c) }

// PopCandidate removes and returns the furthest candidate.
func (h *MaxHeap) PopCandidate() Candidate { return heap.Pop(h).(Candidate) }

// Peek returns the furthest (worst) candidate without removing it.
func (h *MaxHeap) Peek() Candidate { return h.items[0] }

// Sorted drains the heap and returns its contents in ascending distance
// order, consuming the heap.
func (h *MaxHeap) Sorted() []Candidate {
	out := make([]Candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = h.PopCandidate()
	}
	return out
}
