// Package cluster partitions a weighted undirected similarity graph into
// communities by modularity optimization (Louvain), at one resolution or at
// a fixed sequence of resolutions for semantic zoom. It also designates a
// hub node per community under a deterministic tie-break rule.
package cluster

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	lgraph "github.com/fronx/semantic-navigator/pkg/graph"
)

// MaxLevels caps the semantic-zoom hierarchy depth.
const MaxLevels = 8

// minResolution is the clamp floor for slider-driven resolution values.
const minResolution = 0.01

// Options configures one detection pass.
type Options struct {
	// Resolution controls community granularity: higher means more, smaller
	// communities. Values <= 0 are clamped to a small positive minimum.
	Resolution float64

	// Threshold excludes similarity edges with weight below it. Nodes left
	// without any edge are excluded from the graph entirely and receive no
	// community assignment.
	Threshold float64

	// Seed feeds the Louvain move order. Runs with the same seed and input
	// are reproducible; across seeds only statistical properties hold.
	Seed uint64
}

// Community is one detected group.
type Community struct {
	// Members lists node IDs in ascending node-index order.
	Members []string

	// Hub is the representative member: highest degree, ties broken by
	// shortest label, then by first-encountered order.
	Hub string
}

// Result maps nodes to communities. Nodes absent from Assignments were
// isolated (no edges above the threshold) and belong to no community.
// Community IDs are arbitrary small integers with no meaning across
// independent runs.
type Result struct {
	Assignments map[string]int
	Communities map[int]Community
}

// Detect runs one modularity-optimization pass over the given edge set.
// labels[i] is the external ID of node index i; edges referencing an index
// without a label are skipped. An empty edge set yields an empty Result,
// not an error.
func Detect(edges []lgraph.Edge, labels []string, opts Options) Result {
	res := Result{
		Assignments: make(map[string]int),
		Communities: make(map[int]Community),
	}

	resolution := opts.Resolution
	if resolution <= 0 {
		resolution = minResolution
	}

	kept := make([]lgraph.Edge, 0, len(edges))
	for _, e := range lgraph.Canonicalize(edges, len(labels)) {
		if e.Weight >= opts.Threshold {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return res
	}

	// Degree over the thresholded graph, used for hub selection.
	degree := make(map[int]int)
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for _, e := range kept {
		degree[e.Source]++
		degree[e.Target]++
		g.SetWeightedEdge(g.NewWeightedEdge(
			simple.Node(e.Source), simple.Node(e.Target), e.Weight))
	}

	src := rand.NewPCG(opts.Seed, opts.Seed)
	reduced := community.Modularize(g, resolution, src)

	groups := reduced.Communities()
	// Deterministic community numbering: order groups by their smallest
	// member index.
	indexGroups := make([][]int, 0, len(groups))
	for _, grp := range groups {
		idxs := make([]int, 0, len(grp))
		for _, n := range grp {
			idxs = append(idxs, int(n.ID()))
		}
		sort.Ints(idxs)
		indexGroups = append(indexGroups, idxs)
	}
	sort.Slice(indexGroups, func(i, j int) bool {
		return indexGroups[i][0] < indexGroups[j][0]
	})

	for id, idxs := range indexGroups {
		members := make([]string, 0, len(idxs))
		valid := make([]int, 0, len(idxs))
		for _, idx := range idxs {
			if idx < 0 || idx >= len(labels) {
				continue
			}
			members = append(members, labels[idx])
			res.Assignments[labels[idx]] = id
			valid = append(valid, idx)
		}
		if len(members) == 0 {
			continue
		}
		res.Communities[id] = Community{Members: members, Hub: labels[hubOf(valid, degree, labels)]}
	}
	return res
}

// hubOf picks the representative member of a community: highest degree,
// ties broken by shortest label, remaining ties by first-encountered order
// (the incumbent is kept unless strictly beaten).
func hubOf(idxs []int, degree map[int]int, labels []string) int {
	hub := idxs[0]
	for _, idx := range idxs[1:] {
		switch {
		case degree[idx] > degree[hub]:
			hub = idx
		case degree[idx] == degree[hub] && len(labels[idx]) < len(labels[hub]):
			hub = idx
		}
	}
	return hub
}

// DetectLevels runs up to MaxLevels independent detection passes at a
// geometric resolution sequence, level 0 coarsest. Each level is a separate
// run: community IDs carry no cross-level meaning.
func DetectLevels(edges []lgraph.Edge, labels []string, opts Options, nLevels int) []Result {
	if nLevels < 1 {
		nLevels = 1
	}
	if nLevels > MaxLevels {
		nLevels = MaxLevels
	}

	base := opts.Resolution
	if base <= 0 {
		base = minResolution
	}

	out := make([]Result, nLevels)
	for level := 0; level < nLevels; level++ {
		levelOpts := opts
		// Finest level runs at the configured resolution; each coarser level
		// halves it.
		levelOpts.Resolution = base * math.Pow(2, float64(level-(nLevels-1)))
		out[level] = Detect(edges, labels, levelOpts)
	}
	return out
}
