package hnsw

import (
	"sort"

	"github.com/xDarkicex/unichrome/internal/distance"
)

// selectNeighbours dispatches to the active heuristic. qID is the node the
// selection is being made for (the node being inserted, or a node whose
// connections are being shrunk after a new edge pushed it over Mmax).
func selectNeighbours[T Item](core *Core[T], qID uint32, candidates []distance.Candidate, mPrime int, layer int, params Parameters) []uint32 {
	switch params.NeighbourHeuristic {
	case SelectHeuristic:
		return selectHeuristic(core, qID, candidates, mPrime, layer, params)
	default:
		return selectSimple(candidates, mPrime)
	}
}

func byDistanceThenID(c []distance.Candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Distance != c[j].Distance {
			return c[i].Distance < c[j].Distance
		}
		return c[i].ID < c[j].ID
	})
}

// selectSimple keeps the M' closest candidates, ties broken by smaller ID.
func selectSimple(candidates []distance.Candidate, mPrime int) []uint32 {
	sorted := append([]distance.Candidate(nil), candidates...)
	byDistanceThenID(sorted)
	if len(sorted) > mPrime {
		sorted = sorted[:mPrime]
	}
	ids := make([]uint32, len(sorted))
	for i, c := range sorted {
		ids[i] = c.ID
	}
	return ids
}

// selectHeuristic implements Malkov et al., Algorithm 4: a result set R is
// grown from the candidate set W, accepting a candidate e only when q is
// closer to e than every r already accepted is to e (the "bridge" test
// that prevents clustering). Rejects go to a discard pile Wd, which can
// optionally top up R if it falls short of M'.
func selectHeuristic[T Item](core *Core[T], qID uint32, candidates []distance.Candidate, mPrime int, layer int, params Parameters) []uint32 {
	w := append([]distance.Candidate(nil), candidates...)

	if params.ExpandBestSelection {
		seen := make(map[uint32]bool, len(w)+1)
		for _, c := range w {
			seen[c.ID] = true
		}
		seen[qID] = true

		var extra []distance.Candidate
		for _, c := range candidates {
			node := core.Nodes[c.ID]
			if layer > node.MaxLayer() {
				continue
			}
			for _, nb := range node.Connections[layer] {
				if seen[nb] {
					continue
				}
				seen[nb] = true
				extra = append(extra, distance.Candidate{ID: nb, Distance: core.Distance(qID, nb)})
			}
		}
		w = append(w, extra...)
	}

	byDistanceThenID(w)

	var r []distance.Candidate
	var wd []distance.Candidate

	for len(w) > 0 && len(r) < mPrime {
		e := w[0]
		w = w[1:]

		accept := true
		for _, kept := range r {
			if e.Distance >= core.Distance(kept.ID, e.ID) {
				accept = false
				break
			}
		}

		if accept {
			r = append(r, e)
		} else {
			wd = append(wd, e)
		}
	}

	if params.KeepPrunedConnections {
		byDistanceThenID(wd)
		for _, e := range wd {
			if len(r) >= mPrime {
				break
			}
			r = append(r, e)
		}
	}

	ids := make([]uint32, len(r))
	for i, c := range r {
		ids[i] = c.ID
	}
	return ids
}
