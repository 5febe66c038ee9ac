package forces

import (
	"github.com/tidwall/btree"

	"github.com/fronx/semantic-navigator/pkg/distance"
	"github.com/fronx/semantic-navigator/pkg/graph"
)

// Viewport is the visible world-space rectangle plus the width of the cliff
// zone: the screen-edge band where off-screen-but-relevant nodes are
// clamped instead of hidden.
type Viewport struct {
	MinX, MinY, MaxX, MaxY float64
	CliffInset             float64
}

// Contains reports whether a world position is on screen.
func (v Viewport) Contains(x, y float64) bool {
	return x >= v.MinX && x <= v.MaxX && y >= v.MinY && y <= v.MaxY
}

// clampToCliff projects a real off-screen position onto the cliff band.
func (v Viewport) clampToCliff(x, y float64) (float64, float64) {
	if x < v.MinX+v.CliffInset {
		x = v.MinX + v.CliffInset
	} else if x > v.MaxX-v.CliffInset {
		x = v.MaxX - v.CliffInset
	}
	if y < v.MinY+v.CliffInset {
		y = v.MinY + v.CliffInset
	} else if y > v.MaxY-v.CliffInset {
		y = v.MaxY - v.CliffInset
	}
	return x, y
}

// PulledNode is one off-screen node clamped onto the viewport edge. X, Y is
// the on-screen cliff position; RealX, RealY the true layout position.
type PulledNode struct {
	ID                  string
	X, Y                float64
	RealX, RealY        float64
	ConnectedPrimaryIDs []string
	ContentDriven       bool
}

// PullState is recomputed from scratch every time the camera moves.
type PullState struct {
	Primary map[string]struct{}
	Pulled  map[string]PulledNode
}

// PullConfig caps and filters the pulled set.
type PullConfig struct {
	// MaxPulled is the pulled-node budget; highest-similarity candidates
	// are selected first.
	MaxPulled int

	// MinSimilarity excludes weakly related candidates entirely.
	MinSimilarity float64
}

// DefaultPullConfig returns the interactive defaults.
func DefaultPullConfig() PullConfig {
	return PullConfig{MaxPulled: 24, MinSimilarity: 0.05}
}

// pullCandidate is the btree ordering unit: similarity descending, ID
// ascending as the deterministic tie-break.
type pullCandidate struct {
	id  string
	sim float64
}

func pullLess(a, b pullCandidate) bool {
	if a.sim != b.sim {
		return a.sim > b.sim
	}
	return a.id < b.id
}

// ComputePullState derives the pulled-node set for the current viewport.
//
// Candidates are off-screen nodes within one hop of an on-screen node, plus
// any previously pulled nodes (prev may be nil). A second pass drops pulled
// nodes whose connecting primaries have all scrolled off screen — dead
// pulls — unless the node is marked content-driven, i.e. anchored by
// visible content rather than a visible neighbor.
//
// Similarity prefers embedding cosine when vectors are available and falls
// back to the strongest connecting edge weight.
func ComputePullState(
	nodes []graph.Node,
	adj graph.Adjacency,
	vectors [][]float32,
	vp Viewport,
	cfg PullConfig,
	prev *PullState,
	contentDriven map[string]bool,
) PullState {
	state := PullState{
		Primary: make(map[string]struct{}),
		Pulled:  make(map[string]PulledNode),
	}
	if cfg.MaxPulled <= 0 {
		return state
	}

	byIndex := make(map[int]graph.Node, len(nodes))
	primaryIdx := make(map[int]bool)
	for _, n := range nodes {
		byIndex[n.Index] = n
		if vp.Contains(n.X, n.Y) {
			state.Primary[n.ID] = struct{}{}
			primaryIdx[n.Index] = true
		}
	}

	// Candidate set: one hop out from every primary, plus the previous
	// pulled set so dead pulls are re-evaluated rather than silently kept.
	candidateIdx := make(map[int]bool)
	for idx := range primaryIdx {
		for _, nb := range adj[idx] {
			if !primaryIdx[nb.Index] {
				candidateIdx[nb.Index] = true
			}
		}
	}
	if prev != nil {
		for _, n := range nodes {
			if _, was := prev.Pulled[n.ID]; was && !primaryIdx[n.Index] {
				candidateIdx[n.Index] = true
			}
		}
	}

	tree := btree.NewBTreeG[pullCandidate](pullLess)
	meta := make(map[string]PulledNode)

	for idx := range candidateIdx {
		node, ok := byIndex[idx]
		if !ok {
			continue
		}

		var anchors []string
		best := 0.0
		for _, nb := range adj[idx] {
			if !primaryIdx[nb.Index] {
				continue
			}
			pn, ok := byIndex[nb.Index]
			if !ok {
				continue
			}
			anchors = append(anchors, pn.ID)

			sim := nb.Weight
			if va, vb := vectorAt(vectors, idx), vectorAt(vectors, nb.Index); va != nil && vb != nil {
				if cos, err := distance.CosineSimilarity(va, vb); err == nil {
					sim = cos
				}
			}
			if sim > best {
				best = sim
			}
		}

		isContent := contentDriven[node.ID]
		if len(anchors) == 0 && !isContent {
			// Dead pull: every connecting primary scrolled off screen.
			continue
		}
		if best < cfg.MinSimilarity && !isContent {
			continue
		}

		x, y := vp.clampToCliff(node.X, node.Y)
		meta[node.ID] = PulledNode{
			ID:                  node.ID,
			X:                   x,
			Y:                   y,
			RealX:               node.X,
			RealY:               node.Y,
			ConnectedPrimaryIDs: anchors,
			ContentDriven:       isContent,
		}
		tree.Set(pullCandidate{id: node.ID, sim: best})
	}

	// Highest similarity first, capped.
	count := 0
	tree.Scan(func(c pullCandidate) bool {
		if count >= cfg.MaxPulled {
			return false
		}
		state.Pulled[c.id] = meta[c.id]
		count++
		return true
	})
	return state
}
