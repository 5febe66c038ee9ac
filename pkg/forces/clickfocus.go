package forces

import (
	"sort"

	"github.com/fronx/semantic-navigator/pkg/distance"
)

// Click-focus is the simpler focus variant: instead of hop distance it is
// driven purely by cosine similarity between the embedding vectors of the
// active node set.

const (
	// clickFocusMinSimilarity: pairs below this get no link at all.
	clickFocusMinSimilarity = 0.02

	clickFocusBaseDist  = 60.0
	clickFocusDistSpan  = 180.0
	clickFocusBaseStr   = 0.25
	clickFocusStrSpan   = 0.6
	clickFocusAnchorStr = 0.05
)

// ClickFocusLinkParams maps a pairwise cosine similarity to link rest
// length and strength. ok is false when the pair is below the similarity
// floor and must be omitted entirely.
func ClickFocusLinkParams(sim float64) (rest, strength float64, ok bool) {
	if sim < clickFocusMinSimilarity {
		return 0, 0, false
	}
	return clickFocusBaseDist + (1-sim)*clickFocusDistSpan,
		clickFocusBaseStr + sim*clickFocusStrSpan,
		true
}

// NewClickFocusSim builds a similarity-driven layout over the active node
// set. active lists base node indices; vectors is the full embedding table
// indexed by base node index. Nodes without an embedding keep only the weak
// anchor to their current position.
func NewClickFocusSim(positions []float64, active []int, vectors [][]float32) *Sim {
	slots := append([]int(nil), active...)
	sort.Ints(slots)

	sub := make([]float64, 2*len(slots))
	tx := make([]float64, len(slots))
	ty := make([]float64, len(slots))
	for s, idx := range slots {
		sub[2*s] = positions[2*idx]
		sub[2*s+1] = positions[2*idx+1]
		tx[s] = positions[2*idx]
		ty[s] = positions[2*idx+1]
	}

	var links []Link
	for a := 0; a < len(slots); a++ {
		va := vectorAt(vectors, slots[a])
		if va == nil {
			continue
		}
		for b := a + 1; b < len(slots); b++ {
			vb := vectorAt(vectors, slots[b])
			if vb == nil {
				continue
			}
			sim, err := distance.CosineSimilarity(va, vb)
			if err != nil {
				continue
			}
			rest, strength, ok := ClickFocusLinkParams(sim)
			if !ok {
				continue
			}
			links = append(links, Link{A: a, B: b, Rest: rest, Strength: strength})
		}
	}

	return NewSim(sub, slots).
		AddForce(&Links{Links: links}).
		AddForce(&Anchors{TX: tx, TY: ty, Strength: func(int) float64 { return clickFocusAnchorStr }})
}

func vectorAt(vectors [][]float32, idx int) []float32 {
	if idx < 0 || idx >= len(vectors) {
		return nil
	}
	return vectors[idx]
}
