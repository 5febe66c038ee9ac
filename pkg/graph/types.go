// Package graph defines the layout-facing graph structures shared by the
// optimizer, the community detector and the secondary physics layers: typed
// nodes, canonicalized weighted edges, symmetric adjacency maps and the
// fuzzy k-nearest-neighbor graph builder.
package graph

import "sort"

// Kind discriminates the node variants coming from the data-access boundary.
// Rows are converted into these tagged records exactly once; nothing in the
// engine operates on loosely-typed maps.
type Kind string

const (
	KindKeyword Kind = "keyword"
	KindArticle Kind = "article"
	KindChunk   Kind = "chunk"
	KindProject Kind = "project"
)

// Node is the layout-facing record for one graph node. Index is the dense
// 0..N-1 position used by every array-based structure; ID is the external
// identifier (e.g. "kw:gradient descent", "art:<uuid>").
//
// X, Y, VX, VY are mutated every simulation tick by whichever force layer
// currently owns the node set. Only one layer writes a node set at a time.
type Node struct {
	Index int
	ID    string
	Kind  Kind
	X, Y  float64
	VX    float64
	VY    float64
}

// Edge is an undirected weighted edge between two node indices,
// canonicalized so that Source < Target. RestLength is zero until an
// optimizer pass measures the learned inter-node distance; downstream
// layers treat it as the advisory spring length.
type Edge struct {
	Source     int
	Target     int
	Weight     float64
	RestLength float64
}

// Neighbor is one entry of an adjacency list.
type Neighbor struct {
	Index  int
	Weight float64
}

// Adjacency maps a node index to its neighbors. It is built once per edge
// set and shared read-only between hover highlighting, focus BFS, tethering
// and pull-state computation.
type Adjacency map[int][]Neighbor

// Canonicalize merges an edge list into undirected canonical form:
// Source < Target, duplicates merged keeping the max weight, self-loops and
// edges with out-of-range endpoints dropped. n is the node count; pass a
// negative n to skip the range check.
func Canonicalize(edges []Edge, n int) []Edge {
	type key struct{ s, t int }
	merged := make(map[key]Edge, len(edges))
	for _, e := range edges {
		s, t := e.Source, e.Target
		if s == t {
			continue
		}
		if n >= 0 && (s < 0 || t < 0 || s >= n || t >= n) {
			// Derived from possibly-stale intermediate state; skip, never fail.
			continue
		}
		if s > t {
			s, t = t, s
		}
		k := key{s, t}
		if prev, ok := merged[k]; !ok || e.Weight > prev.Weight {
			merged[k] = Edge{Source: s, Target: t, Weight: e.Weight, RestLength: e.RestLength}
		}
	}

	out := make([]Edge, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// BuildAdjacency derives a symmetric adjacency map from a canonical edge
// list. If a lists b with weight w, b lists a with the same w.
func BuildAdjacency(edges []Edge) Adjacency {
	adj := make(Adjacency)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], Neighbor{Index: e.Target, Weight: e.Weight})
		adj[e.Target] = append(adj[e.Target], Neighbor{Index: e.Source, Weight: e.Weight})
	}
	return adj
}

// Neighborhood performs a breadth-first expansion from start up to maxHops
// hops and returns the reached set together with each node's hop distance.
// start itself is included at distance 0. An unknown start index yields a
// set containing only start.
func Neighborhood(adj Adjacency, start, maxHops int) (map[int]struct{}, map[int]int) {
	set := map[int]struct{}{start: {}}
	depth := map[int]int{start: 0}

	frontier := []int{start}
	for hop := 1; hop <= maxHops; hop++ {
		var next []int
		for _, idx := range frontier {
			for _, nb := range adj[idx] {
				if _, seen := set[nb.Index]; seen {
					continue
				}
				set[nb.Index] = struct{}{}
				depth[nb.Index] = hop
				next = append(next, nb.Index)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}
	return set, depth
}
