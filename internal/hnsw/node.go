package hnsw

import (
	"math"
	"math/rand"

	"github.com/xDarkicex/unichrome/internal/distance"
)

// Item is anything a graph can store as a node's payload: something with a
// fixed-length embedding vector to measure distance against.
type Item interface {
	EmbeddingVector() []float32
}

// Node is a per-document record holding one adjacency list per layer the
// node exists on. Layer 0 is the bottom, densest layer; MaxLayer is the
// number of lists minus one. The layer stack is always contiguous from 0
// to MaxLayer.
type Node struct {
	ID          uint32
	Connections [][]uint32
}

// MaxLayer returns the highest layer this node participates in.
func (n *Node) MaxLayer() int {
	return len(n.Connections) - 1
}

// RandomLayer samples a node's top layer via the standard HNSW exponential
// decay: floor(-ln(u) * lambda) for u drawn uniformly from (0, 1).
func RandomLayer(rng *rand.Rand, lambda float64) int {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * lambda))
}

// Core owns the two parallel dense arrays every graph is built on: Items
// (the payload, append-only) and Nodes (the adjacency structure, also
// append-only). Node IDs are dense indices into both arrays.
type Core[T Item] struct {
	Items []T
	Nodes []*Node

	rng    *rand.Rand
	distFn distance.Func
	cache  *distance.Cache

	// DistanceCalculationsCount counts every Distance call made during
	// construction, including cache hits.
	DistanceCalculationsCount uint64
}

// NewCore creates an empty core pre-sized per params.
func NewCore[T Item](params Parameters, distFn distance.Func, rng *rand.Rand) *Core[T] {
	c := &Core[T]{
		Items:  make([]T, 0, params.InitialItemsSize),
		Nodes:  make([]*Node, 0, params.InitialItemsSize),
		rng:    rng,
		distFn: distFn,
	}
	if params.EnableDistanceCacheForConstruction {
		c.cache = distance.NewCache(params.InitialDistanceCacheSize)
	}
	return c
}

// Len returns the number of items/nodes currently stored.
func (c *Core[T]) Len() int { return len(c.Items) }

// AddItem appends a new item, samples its top layer, and allocates its
// (empty) adjacency lists. It does not connect the node into the graph;
// that is the Graph's job. Layer-0 lists are pre-sized to 2*M, upper
// layers to M.
func (c *Core[T]) AddItem(item T, params Parameters) uint32 {
	level := RandomLayer(c.rng, params.LevelLambda)

	node := &Node{
		ID:          uint32(len(c.Items)),
		Connections: make([][]uint32, level+1),
	}
	for l := 0; l <= level; l++ {
		cap := params.M
		if l == 0 {
			cap = params.Mmax(0)
		}
		node.Connections[l] = make([]uint32, 0, cap)
	}

	id := node.ID
	c.Items = append(c.Items, item)
	c.Nodes = append(c.Nodes, node)
	return id
}

// Distance returns the distance between two stored items by ID, routed
// through the construction-time cache when enabled.
func (c *Core[T]) Distance(i, j uint32) float32 {
	c.DistanceCalculationsCount++
	if c.cache != nil {
		return c.cache.GetValue(i, j, func(a, b uint32) float32 {
			return c.distFn(c.Items[a].EmbeddingVector(), c.Items[b].EmbeddingVector())
		})
	}
	return c.distFn(c.Items[i].EmbeddingVector(), c.Items[j].EmbeddingVector())
}

// DistanceToVector returns the distance between an arbitrary query vector
// (not necessarily in the graph) and a stored item. It never consults the
// cache: the cache only holds pairs of existing node IDs.
func (c *Core[T]) DistanceToVector(query []float32, id uint32) float32 {
	return c.distFn(query, c.Items[id].EmbeddingVector())
}

// CacheHitRate reports the construction-time distance cache's hit rate, or
// 0 if the cache is disabled.
func (c *Core[T]) CacheHitRate() float64 {
	if c.cache == nil {
		return 0
	}
	return c.cache.HitRate()
}

// ResizeCache grows/shrinks the construction-time distance cache. A no-op
// if the cache is disabled.
func (c *Core[T]) ResizeCache(newSize int, preserve bool) {
	if c.cache == nil {
		return
	}
	c.cache.Resize(newSize, preserve)
}
