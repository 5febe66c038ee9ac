package forces

import "math"

// Collision enforces a minimum separation radius between every particle
// pair.
//
// Radius is a function, not a cached slice: hover state grows a node's
// radius at runtime, and caching resolved radii at construction time would
// freeze the pre-hover values. The function is re-queried on every
// application.
type Collision struct {
	// Radius returns the collision radius for a base node index.
	Radius func(index int) float64

	// Strength scales the separation push, typically in (0, 1].
	Strength float64
}

// Apply resolves pairwise overlaps. O(n^2) over the layer's arena, which
// holds at most the interactive node set.
func (c *Collision) Apply(alpha float64, particles []Particle) {
	strength := c.Strength
	if strength <= 0 {
		strength = 1
	}

	for i := range particles {
		pi := &particles[i]
		ri := c.Radius(pi.Index)
		for j := i + 1; j < len(particles); j++ {
			pj := &particles[j]
			rj := c.Radius(pj.Index)

			dx := pi.X + pi.VX - pj.X - pj.VX
			dy := pi.Y + pi.VY - pj.Y - pj.VY
			minDist := ri + rj
			distSq := dx*dx + dy*dy
			if distSq >= minDist*minDist {
				continue
			}

			dist := math.Sqrt(distSq)
			if dist == 0 {
				// Coincident points: deterministic nudge along x.
				dx, dist = 1e-6, 1e-6
			}

			overlap := (minDist - dist) / dist * strength * alpha
			// Split the correction by the opposing radius so the larger
			// node moves less.
			share := rj * rj / (ri*ri + rj*rj)
			pi.VX += dx * overlap * share
			pi.VY += dy * overlap * share
			pj.VX -= dx * overlap * (1 - share)
			pj.VY -= dy * overlap * (1 - share)
		}
	}
}
