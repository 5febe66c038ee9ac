// Package forces contains the secondary physics layers that run on top of
// the base optimizer output: collision avoidance, parent-child tethering,
// focus compression, click-focus similarity layout, viewport-edge pulling
// and position/opacity interpolation.
//
// Each layer is a self-contained simulation over its own particle arena.
// Positions are copied in when a layer starts and copied out per tick; no
// layer ever writes another layer's node objects.
package forces

import "math"

// Particle is one simulated point. Index is the node index in the base
// layout arena, so a layer running over a subset keeps the mapping back.
type Particle struct {
	Index int
	X, Y  float64
	VX    float64
	VY    float64
}

// Force applies one tick of influence to the particle arena. alpha is the
// simulation temperature in [0, 1].
type Force interface {
	Apply(alpha float64, particles []Particle)
}

// Sim is the shared cooperative simulation core. One Step call per host
// frame: decay alpha toward its target, apply every force, integrate
// velocities with damping.
type Sim struct {
	particles []Particle
	forces    []Force

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64

	running          bool
	lastDisplacement float64
}

// NewSim creates a running simulation over a copy of the given flat
// position array (x at 2i, y at 2i+1). indices maps arena slots back to
// base node indices; pass nil for the identity mapping.
func NewSim(positions []float64, indices []int) *Sim {
	n := len(positions) / 2
	particles := make([]Particle, n)
	for i := 0; i < n; i++ {
		idx := i
		if indices != nil {
			idx = indices[i]
		}
		particles[i] = Particle{Index: idx, X: positions[2*i], Y: positions[2*i+1]}
	}
	return &Sim{
		particles:     particles,
		alpha:         1,
		alphaMin:      0.001,
		alphaDecay:    0.0228, // settles in ~300 ticks, like a frame loop at 60fps for ~5s
		velocityDecay: 0.4,
		running:       true,
	}
}

// AddForce appends a force. Forces run in registration order within a tick.
func (s *Sim) AddForce(f Force) *Sim {
	s.forces = append(s.forces, f)
	return s
}

// Step advances one tick and reports whether the simulation is still
// running. A stopped or settled simulation is a no-op.
func (s *Sim) Step() bool {
	if !s.running {
		return false
	}

	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay
	if s.alpha < s.alphaMin && s.alphaTarget < s.alphaMin {
		s.running = false
		return false
	}

	for _, f := range s.forces {
		f.Apply(s.alpha, s.particles)
	}

	var total float64
	for i := range s.particles {
		p := &s.particles[i]
		p.VX *= 1 - s.velocityDecay
		p.VY *= 1 - s.velocityDecay
		p.X += p.VX
		p.Y += p.VY
		total += math.Hypot(p.VX, p.VY)
	}
	if len(s.particles) > 0 {
		s.lastDisplacement = total / float64(len(s.particles))
	}
	return true
}

// Stop cancels the simulation: no further ticks are scheduled and all
// velocity state is discarded. There is no graceful drain.
func (s *Sim) Stop() {
	s.running = false
	for i := range s.particles {
		s.particles[i].VX = 0
		s.particles[i].VY = 0
	}
}

// Restart reheats a stopped or cooled simulation.
func (s *Sim) Restart(alpha float64) {
	if alpha <= 0 {
		alpha = 1
	}
	s.alpha = alpha
	s.running = true
}

// SetAlphaTarget drives the simulated-annealing endpoint. The convergence
// coordinator sets this near zero once motion settles.
func (s *Sim) SetAlphaTarget(target float64) {
	if target < 0 {
		target = 0
	}
	s.alphaTarget = target
}

// Running reports whether further ticks will do work.
func (s *Sim) Running() bool { return s.running }

// Alpha returns the current simulation temperature.
func (s *Sim) Alpha() float64 { return s.alpha }

// LastDisplacement returns the mean per-particle movement of the last tick.
func (s *Sim) LastDisplacement() float64 { return s.lastDisplacement }

// Particles exposes the arena for forces and tests. Callers outside the
// package must treat it as read-only; Positions returns a mutable copy.
func (s *Sim) Particles() []Particle { return s.particles }

// Positions copies the current coordinates out as a flat array.
func (s *Sim) Positions() []float64 {
	out := make([]float64, 2*len(s.particles))
	for i, p := range s.particles {
		out[2*i] = p.X
		out[2*i+1] = p.Y
	}
	return out
}
