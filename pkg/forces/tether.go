package forces

import "math"

// Tether binds child particles (chunks) to a parent particle (their
// keyword) with a spring plus a hard maximum-distance constraint.
//
// The allowed spread grows with the square root of the sibling count, not
// linearly: a keyword with many chunks gets proportionally more room
// without sprawling.
type Tether struct {
	// Parent maps each arena slot to the arena slot of its parent, or -1.
	Parent []int

	// Siblings is the child count of each slot's parent (including the
	// slot itself). Only consulted for slots with a parent.
	Siblings []int

	ParentRadius float64
	Multiplier   float64
	ChildRadius  float64
	SpreadFactor float64

	// Strength scales the spring pull toward the base distance.
	Strength float64
}

// BaseDistance is the spring rest length between child and parent.
func (t *Tether) BaseDistance() float64 {
	return t.ParentRadius * t.Multiplier
}

// MaxDistance is the hard cap for a child with the given sibling count.
func (t *Tether) MaxDistance(siblings int) float64 {
	if siblings < 1 {
		siblings = 1
	}
	return t.BaseDistance() + math.Sqrt(float64(siblings))*t.ChildRadius*t.SpreadFactor
}

// Apply pulls each child toward its parent's rest distance, then hard-clips
// any child beyond its max distance back onto the boundary circle.
func (t *Tether) Apply(alpha float64, particles []Particle) {
	base := t.BaseDistance()

	for i := range particles {
		pIdx := -1
		if i < len(t.Parent) {
			pIdx = t.Parent[i]
		}
		if pIdx < 0 || pIdx >= len(particles) {
			continue
		}
		child := &particles[i]
		parent := particles[pIdx]

		dx := child.X - parent.X
		dy := child.Y - parent.Y
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			continue
		}

		// Spring toward the rest distance.
		stretch := (dist - base) / dist
		child.VX -= dx * stretch * t.Strength * alpha
		child.VY -= dy * stretch * t.Strength * alpha

		// Hard constraint: position, not velocity, so no single tick can
		// leave a child outside the cap.
		siblings := 1
		if i < len(t.Siblings) {
			siblings = t.Siblings[i]
		}
		if maxDist := t.MaxDistance(siblings); dist > maxDist {
			scale := maxDist / dist
			child.X = parent.X + dx*scale
			child.Y = parent.Y + dy*scale
			child.VX = 0
			child.VY = 0
		}
	}
}
