package graph

import (
	"math"
	"sort"

	"github.com/fronx/semantic-navigator/pkg/distance"
)

// Fuzzy k-NN graph construction.
//
// Each point gets approximately k neighbor edges whose weights come from a
// smoothed membership function calibrated so that every node's total
// outgoing weight is roughly constant (log2(k)) regardless of local
// density. This is what lets the optimizer treat sparse and dense regions
// comparably. The procedure follows the standard fuzzy simplicial set
// construction: per-point bandwidth search, membership strengths,
// direction-symmetric fuzzy set union.

const (
	smoothIterations  = 64
	localConnectivity = 1.0
	smoothTolerance   = 1e-5
	minBandwidthScale = 1e-3
)

// BuildFuzzyGraph computes the fuzzy neighbor graph for a set of embedding
// vectors using squared Euclidean distance. Fewer than 2 points yields an
// empty graph: nothing to lay out, not an error. k is clamped to n-1 and to
// a minimum of 2.
func BuildFuzzyGraph(vectors [][]float32, k int) []Edge {
	n := len(vectors)
	if n < 2 {
		return nil
	}
	if k >= n {
		k = n - 1
	}
	if k < 2 {
		k = 2
	}

	indices, dists := kNearest(vectors, k)
	sigmas, rhos := smoothDistances(dists, float64(k))
	return fuzzyUnion(indices, dists, sigmas, rhos)
}

// kNearest is the brute-force deterministic k-NN pass. O(n^2), which is fine
// for interactive graph sizes (hundreds to low thousands of nodes); ties are
// broken by index order so the neighbor sets are stable across runs.
func kNearest(vectors [][]float32, k int) (indices [][]int, dists [][]float64) {
	n := len(vectors)
	indices = make([][]int, n)
	dists = make([][]float64, n)

	type cand struct {
		dist float64
		idx  int
	}

	for i := 0; i < n; i++ {
		cands := make([]cand, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			d, err := distance.SquaredEuclidean(vectors[i], vectors[j])
			if err != nil {
				// Dimension mismatch in the input set: skip the pair.
				continue
			}
			cands = append(cands, cand{dist: math.Sqrt(d), idx: j})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].dist != cands[b].dist {
				return cands[a].dist < cands[b].dist
			}
			return cands[a].idx < cands[b].idx
		})

		kk := k
		if kk > len(cands) {
			kk = len(cands)
		}
		indices[i] = make([]int, kk)
		dists[i] = make([]float64, kk)
		for j := 0; j < kk; j++ {
			indices[i][j] = cands[j].idx
			dists[i][j] = cands[j].dist
		}
	}
	return indices, dists
}

// smoothDistances computes per-point (sigma, rho): rho is the distance to
// the nearest non-identical neighbor, sigma is found by binary search so
// that the summed membership equals log2(k).
func smoothDistances(dists [][]float64, k float64) (sigmas, rhos []float64) {
	n := len(dists)
	sigmas = make([]float64, n)
	rhos = make([]float64, n)
	target := math.Log2(k)

	for i := 0; i < n; i++ {
		row := dists[i]

		nonZero := make([]float64, 0, len(row))
		for _, d := range row {
			if d > 0 {
				nonZero = append(nonZero, d)
			}
		}
		if len(nonZero) >= int(localConnectivity) {
			rhos[i] = nonZero[int(localConnectivity)-1]
		} else if len(nonZero) > 0 {
			rhos[i] = nonZero[len(nonZero)-1]
		}

		lo, hi, mid := 0.0, math.Inf(1), 1.0
		for iter := 0; iter < smoothIterations; iter++ {
			psum := 0.0
			for _, d := range row {
				adj := d - rhos[i]
				if adj > 0 {
					psum += math.Exp(-adj / mid)
				} else {
					psum += 1.0
				}
			}
			if math.Abs(psum-target) < smoothTolerance {
				break
			}
			if psum > target {
				hi = mid
			} else {
				lo = mid
			}
			if math.IsInf(hi, 1) {
				mid *= 2
			} else {
				mid = (lo + hi) / 2
			}
		}
		sigmas[i] = mid

		// Floor the bandwidth at a fraction of the mean neighbor distance so
		// degenerate rows (all-equal points) keep a usable sigma.
		var meanDist float64
		for _, d := range row {
			meanDist += d
		}
		if len(row) > 0 {
			meanDist /= float64(len(row))
		}
		if minSigma := minBandwidthScale * meanDist; sigmas[i] < minSigma {
			sigmas[i] = minSigma
		}
	}
	return sigmas, rhos
}

// fuzzyUnion converts directed membership strengths into the undirected
// edge list via the fuzzy set union w = a + b - a*b, merging the two
// directions of every pair.
func fuzzyUnion(indices [][]int, dists [][]float64, sigmas, rhos []float64) []Edge {
	type key struct{ s, t int }
	directed := make(map[key]float64, len(indices)*len(indices[0]))

	for i := range indices {
		for j, nb := range indices[i] {
			d := dists[i][j]
			var w float64
			if d-rhos[i] <= 0 || sigmas[i] == 0 {
				w = 1.0
			} else {
				w = math.Exp(-(d - rhos[i]) / sigmas[i])
			}
			directed[key{i, nb}] = w
		}
	}

	edges := make([]Edge, 0, len(directed))
	seen := make(map[key]struct{}, len(directed))
	for k1, a := range directed {
		s, t := k1.s, k1.t
		if s > t {
			s, t = t, s
		}
		ck := key{s, t}
		if _, done := seen[ck]; done {
			continue
		}
		seen[ck] = struct{}{}
		b := directed[key{k1.t, k1.s}]
		w := a + b - a*b
		if w > 0 {
			edges = append(edges, Edge{Source: s, Target: t, Weight: w})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}
