package hnsw

import (
	"errors"
	"sync/atomic"

	"github.com/xDarkicex/unichrome/internal/distance"
)

// ErrGraphChanged is raised when a traversal observes that the graph's
// version counter advanced mid-search. KNearest retries internally and
// returns it only once its retries are exhausted; the collection engine
// maps it to CodeGraphChanged.
var ErrGraphChanged = errors.New("hnsw: graph changed during traversal")

// RunKnnAtLayer performs best-first k-NN search on a single layer,
// starting from startID. costs computes the distance from the (possibly
// out-of-graph) query point to any node ID. version is sampled after
// every neighbour expansion; if it has advanced past versionSeen the
// search aborts with ErrGraphChanged.
//
// Results are returned in ascending distance order, ties broken by
// smaller ID. The second return value is the number of nodes visited.
func RunKnnAtLayer(
	nodes []*Node,
	startID uint32,
	costs func(id uint32) float32,
	layer int,
	k int,
	version *uint64,
	versionSeen uint64,
) ([]distance.Candidate, int, error) {
	visited := make([]bool, len(nodes))

	candidates := distance.NewMinHeap(k * 2)
	results := distance.NewMaxHeap(k)

	startDist := costs(startID)
	start := distance.Candidate{ID: startID, Distance: startDist}
	candidates.PushCandidate(start)
	results.PushCandidate(start)
	visited[startID] = true
	visitedCount := 1

	for candidates.Len() > 0 {
		c := candidates.PopCandidate()

		if results.Len() >= k && c.Distance > results.Peek().Distance {
			break
		}

		node := nodes[c.ID]
		if layer > node.MaxLayer() {
			continue
		}

		for _, neighborID := range node.Connections[layer] {
			if visited[neighborID] {
				continue
			}
			visited[neighborID] = true
			visitedCount++

			d := costs(neighborID)
			if results.Len() < k || d < results.Peek().Distance {
				cand := distance.Candidate{ID: neighborID, Distance: d}
				candidates.PushCandidate(cand)
				results.PushCandidate(cand)
				if results.Len() > k {
					results.PopCandidate()
				}
			}

			if atomic.LoadUint64(version) != versionSeen {
				return nil, visitedCount, ErrGraphChanged
			}
		}
	}

	return results.Sorted(), visitedCount, nil
}
