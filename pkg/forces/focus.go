package forces

import (
	"math"
	"sort"

	"github.com/fronx/semantic-navigator/pkg/graph"
)

// FocusHops is the BFS expansion limit for focus mode.
const FocusHops = 2

// Link is a spring between two arena slots with its own rest length and
// strength.
type Link struct {
	A, B     int
	Rest     float64
	Strength float64
}

// Links applies spring forces over a fixed link list.
type Links struct {
	Links []Link
}

func (l *Links) Apply(alpha float64, particles []Particle) {
	for _, lk := range l.Links {
		if lk.A < 0 || lk.B < 0 || lk.A >= len(particles) || lk.B >= len(particles) {
			continue
		}
		a := &particles[lk.A]
		b := &particles[lk.B]

		dx := b.X + b.VX - a.X - a.VX
		dy := b.Y + b.VY - a.Y - a.VY
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			dx, dist = 1e-6, 1e-6
		}

		k := (dist - lk.Rest) / dist * lk.Strength * alpha
		a.VX += dx * k / 2
		a.VY += dy * k / 2
		b.VX -= dx * k / 2
		b.VY -= dy * k / 2
	}
}

// Anchors pulls particles toward fixed target coordinates with per-slot
// strength. Focus mode anchors every active node to its pre-focus position
// so the neighborhood compresses in place instead of drifting.
type Anchors struct {
	TX, TY   []float64
	Strength func(slot int) float64
}

func (a *Anchors) Apply(alpha float64, particles []Particle) {
	for i := range particles {
		if i >= len(a.TX) {
			break
		}
		s := a.Strength(i)
		p := &particles[i]
		p.VX += (a.TX[i] - p.X) * s * alpha
		p.VY += (a.TY[i] - p.Y) * s * alpha
	}
}

// Rect is an axis-aligned clamp rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// BoundsClamp hard-clips every particle into a rectangle each tick, used to
// keep focus-mode layouts inside the visible viewport.
type BoundsClamp struct {
	Bounds Rect
}

func (b *BoundsClamp) Apply(alpha float64, particles []Particle) {
	for i := range particles {
		p := &particles[i]
		if p.X < b.Bounds.MinX {
			p.X, p.VX = b.Bounds.MinX, 0
		} else if p.X > b.Bounds.MaxX {
			p.X, p.VX = b.Bounds.MaxX, 0
		}
		if p.Y < b.Bounds.MinY {
			p.Y, p.VY = b.Bounds.MinY, 0
		} else if p.Y > b.Bounds.MaxY {
			p.Y, p.VY = b.Bounds.MaxY, 0
		}
	}
}

// FocusConfig tunes the manifold-compression layer.
type FocusConfig struct {
	// SeedAnchor is the anchor strength for the focused node and its direct
	// neighbors; ExtendedAnchor applies to the 2-hop fringe. Seeds hold
	// position harder so the fringe folds in around them.
	SeedAnchor     float64
	ExtendedAnchor float64

	// PriorityRestScale shortens the rest length of links between two
	// priority (seed-adjacent) nodes; PriorityStrength raises their spring
	// strength relative to LinkStrength.
	PriorityRestScale float64
	LinkStrength      float64
	PriorityStrength  float64
}

// DefaultFocusConfig returns the tuning used by the interactive explorer.
func DefaultFocusConfig() FocusConfig {
	return FocusConfig{
		SeedAnchor:        0.3,
		ExtendedAnchor:    0.08,
		PriorityRestScale: 0.6,
		LinkStrength:      0.3,
		PriorityStrength:  0.7,
	}
}

// FocusState is the derived state of one focus selection: the BFS node set
// and each member's hop distance. Created on click, discarded on
// deselection, never persisted.
type FocusState struct {
	FocusIndex int
	NodeSet    map[int]struct{}
	Depth      map[int]int
}

// NewFocusState expands the clicked node's neighborhood up to FocusHops.
func NewFocusState(adj graph.Adjacency, focus int) FocusState {
	set, depth := graph.Neighborhood(adj, focus, FocusHops)
	return FocusState{FocusIndex: focus, NodeSet: set, Depth: depth}
}

// NewFocusSim builds the auxiliary compression simulation for a focus
// selection. positions is the full base layout (flat 2N); the sim runs over
// the focus subset only. bounds may be nil.
func NewFocusSim(positions []float64, fs FocusState, edges []graph.Edge, bounds *Rect, cfg FocusConfig) *Sim {
	slots := make([]int, 0, len(fs.NodeSet))
	for idx := range fs.NodeSet {
		slots = append(slots, idx)
	}
	// Deterministic arena order.
	sort.Ints(slots)

	slotOf := make(map[int]int, len(slots))
	sub := make([]float64, 2*len(slots))
	tx := make([]float64, len(slots))
	ty := make([]float64, len(slots))
	for s, idx := range slots {
		slotOf[idx] = s
		sub[2*s] = positions[2*idx]
		sub[2*s+1] = positions[2*idx+1]
		tx[s] = positions[2*idx]
		ty[s] = positions[2*idx+1]
	}

	// Priority nodes: the BFS seed and its direct neighbors.
	priority := make(map[int]bool, len(slots))
	for idx, d := range fs.Depth {
		priority[idx] = d <= 1
	}

	var links []Link
	for _, e := range edges {
		sa, oka := slotOf[e.Source]
		sb, okb := slotOf[e.Target]
		if !oka || !okb {
			continue
		}
		rest := e.RestLength
		if rest == 0 {
			rest = 30
		}
		strength := cfg.LinkStrength
		if priority[e.Source] && priority[e.Target] {
			rest *= cfg.PriorityRestScale
			strength = cfg.PriorityStrength
		}
		links = append(links, Link{A: sa, B: sb, Rest: rest, Strength: strength})
	}

	anchorStrength := func(slot int) float64 {
		if priority[slots[slot]] {
			return cfg.SeedAnchor
		}
		return cfg.ExtendedAnchor
	}

	sim := NewSim(sub, slots).
		AddForce(&Links{Links: links}).
		AddForce(&Anchors{TX: tx, TY: ty, Strength: anchorStrength})
	if bounds != nil {
		sim.AddForce(&BoundsClamp{Bounds: *bounds})
	}
	return sim
}
