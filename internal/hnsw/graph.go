package hnsw

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/xDarkicex/unichrome/internal/distance"
)

// maxGraphChangedRetries bounds how many times KNearest retries a
// traversal that observed a concurrent mutation before surfacing
// ErrGraphChanged to the caller.
const maxGraphChangedRetries = 1024

// noEntryPoint is the sentinel meaning the graph has no entry point yet.
const noEntryPoint = ^uint32(0)

// Result is a single k-NN hit: the node ID, its stored item, and its
// distance to the query.
type Result[T Item] struct {
	ID       uint32
	Item     T
	Distance float32
}

// Graph owns a Core (nodes + items), the current entry point, the
// immutable construction Parameters, and a monotonically increasing
// version counter bumped around every edge mutation. It implements the
// INSERT and K-NN-SEARCH algorithms.
type Graph[T Item] struct {
	core       *Core[T]
	params     Parameters
	distFn     distance.Func
	entryPoint uint32
	version    uint64
}

// NewGraph creates an empty graph with the given parameters and distance
// kernel.
func NewGraph[T Item](params Parameters, distFn distance.Func) *Graph[T] {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Graph[T]{
		core:       NewCore[T](params, distFn, rng),
		params:     params,
		distFn:     distFn,
		entryPoint: noEntryPoint,
	}
}

// Parameters returns the graph's construction parameters.
func (g *Graph[T]) Parameters() Parameters { return g.params }

// Size returns the number of items stored.
func (g *Graph[T]) Size() int { return g.core.Len() }

// HasEntryPoint reports whether the graph has at least one node.
func (g *Graph[T]) HasEntryPoint() bool { return g.entryPoint != noEntryPoint }

// CacheHitRate reports the construction-time distance cache's hit rate.
func (g *Graph[T]) CacheHitRate() float64 { return g.core.CacheHitRate() }

// Item returns the stored item for id.
func (g *Graph[T]) Item(id uint32) T { return g.core.Items[id] }

func (g *Graph[T]) bumpVersion() { atomic.AddUint64(&g.version, 1) }

// AddItems appends items to the graph, connecting each one into the
// structure in turn. It is a no-op for an empty slice and returns the
// newly assigned IDs in insertion order.
func (g *Graph[T]) AddItems(items []T) []uint32 {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uint32, 0, len(items))
	for _, item := range items {
		id := g.core.AddItem(item, g.params)
		g.insertNode(id)
		ids = append(ids, id)
	}
	return ids
}

// insertNode wires a freshly-allocated node (already present in
// core.Items/core.Nodes) into the graph, per the spec's INSERT algorithm.
func (g *Graph[T]) insertNode(id uint32) {
	node := g.core.Nodes[id]
	lq := node.MaxLayer()

	if !g.HasEntryPoint() {
		g.entryPoint = id
		return
	}

	ep := g.entryPoint
	epMaxLayer := g.core.Nodes[ep].MaxLayer()

	costs := func(x uint32) float32 { return g.core.Distance(id, x) }

	for layer := epMaxLayer; layer > lq; layer-- {
		results, _, _ := RunKnnAtLayer(g.core.Nodes, ep, costs, layer, 1, &g.version, atomic.LoadUint64(&g.version))
		if len(results) > 0 {
			ep = results[0].ID
		}
	}

	top := lq
	if epMaxLayer < top {
		top = epMaxLayer
	}

	for layer := top; layer >= 0; layer-- {
		candidates, _, _ := RunKnnAtLayer(g.core.Nodes, ep, costs, layer, g.params.ConstructionPruning, &g.version, atomic.LoadUint64(&g.version))

		mPrime := g.params.M
		if layer == 0 {
			mPrime = g.params.Mmax(0)
		}
		neighbours := selectNeighbours(g.core, id, candidates, mPrime, layer, g.params)

		for _, n := range neighbours {
			g.bumpVersion()
			g.addEdge(id, n, layer)
			g.bumpVersion()
			g.addEdge(n, id, layer)

			if len(g.core.Nodes[n].Connections[layer]) > g.params.Mmax(layer) {
				g.shrink(n, layer)
			}

			if g.core.Distance(id, n) < g.core.Distance(id, ep) {
				ep = n
			}
		}
	}

	if lq > epMaxLayer {
		g.entryPoint = id
	}
}

// addEdge adds a directed edge from -> to at layer, skipping self-loops
// and duplicate edges.
func (g *Graph[T]) addEdge(from, to uint32, layer int) {
	if from == to {
		return
	}
	node := g.core.Nodes[from]
	for _, existing := range node.Connections[layer] {
		if existing == to {
			return
		}
	}
	node.Connections[layer] = append(node.Connections[layer], to)
}

// shrink reselects n's neighbours at layer down to Mmax(layer) using the
// active heuristic.
func (g *Graph[T]) shrink(n uint32, layer int) {
	node := g.core.Nodes[n]
	conns := node.Connections[layer]
	candidates := make([]distance.Candidate, len(conns))
	for i, c := range conns {
		candidates[i] = distance.Candidate{ID: c, Distance: g.core.Distance(n, c)}
	}
	mmax := g.params.Mmax(layer)
	node.Connections[layer] = selectNeighbours(g.core, n, candidates, mmax, layer, g.params)
}

// KNearest runs K-NN-SEARCH for a query vector not necessarily present in
// the graph. It returns the top k results in ascending distance order, or
// an empty result (no error) if the graph is empty. A traversal that
// observes a concurrent mutation is retried up to maxGraphChangedRetries
// times before ErrGraphChanged is surfaced.
func (g *Graph[T]) KNearest(query []float32, k int) ([]Result[T], error) {
	if !g.HasEntryPoint() || k <= 0 {
		return []Result[T]{}, nil
	}

	costs := func(id uint32) float32 { return g.core.DistanceToVector(query, id) }

	var lastErr error
	for attempt := 0; attempt <= maxGraphChangedRetries; attempt++ {
		versionSeen := atomic.LoadUint64(&g.version)
		ep := g.entryPoint
		epMaxLayer := g.core.Nodes[ep].MaxLayer()

		changed := false
		for layer := epMaxLayer; layer > 0; layer-- {
			results, _, err := RunKnnAtLayer(g.core.Nodes, ep, costs, layer, 1, &g.version, versionSeen)
			if err != nil {
				lastErr = err
				changed = true
				break
			}
			if len(results) > 0 {
				ep = results[0].ID
			}
		}
		if changed {
			continue
		}

		candidates, _, err := RunKnnAtLayer(g.core.Nodes, ep, costs, 0, k, &g.version, versionSeen)
		if err != nil {
			lastErr = err
			continue
		}

		if len(candidates) > k {
			candidates = candidates[:k]
		}
		out := make([]Result[T], len(candidates))
		for i, c := range candidates {
			out[i] = Result[T]{ID: c.ID, Item: g.core.Items[c.ID], Distance: c.Distance}
		}
		return out, nil
	}

	if lastErr == nil {
		lastErr = ErrGraphChanged
	}
	return nil, lastErr
}
