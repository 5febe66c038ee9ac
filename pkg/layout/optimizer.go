package layout

import (
	"errors"
	"log/slog"
	"math"
	"math/rand"

	"github.com/fronx/semantic-navigator/pkg/graph"
	"github.com/fronx/semantic-navigator/pkg/metrics"
)

// State is the optimizer lifecycle phase.
type State int

const (
	// Uninitialized means Init has not run since construction or the last Reset.
	Uninitialized State = iota
	// Stepping means epochs are being consumed in batches.
	Stepping
	// Converged means the epoch counter reached the configured budget.
	Converged
)

// ErrNotInitialized is returned when Step is called before Init.
var ErrNotInitialized = errors.New("layout: optimizer not initialized")

// gradClip bounds a single gradient component to keep updates from exploding
// on near-coincident points.
const gradClip = 4.0

// Optimizer is the resumable force-directed embedding optimizer. It never
// runs to completion synchronously: the host calls Step with a small batch
// size once per frame and renders the intermediate positions.
//
// Any configuration or input change requires Reset + Init; partial progress
// is always discarded.
type Optimizer struct {
	cfg   Config
	state State

	n     int
	pos   []float64 // flat 2N, x at 2i, y at 2i+1
	edges []graph.Edge
	curve curveParams
	rng   *rand.Rand
	epoch int

	// Edge sampling schedule: stronger edges are visited more often.
	epochsPerSample []float64
	epochOfNext     []float64

	cache     *ParamCache
	observers []Observer
}

// NewOptimizer creates an optimizer in the Uninitialized state. cache may be
// nil, in which case curve parameters are refitted on every Init.
func NewOptimizer(cfg Config, cache *ParamCache) *Optimizer {
	cfg.Clamp()
	return &Optimizer{cfg: cfg, cache: cache}
}

// Subscribe registers an observer for optimizer events.
func (o *Optimizer) Subscribe(obs Observer) {
	o.observers = append(o.observers, obs)
}

// State returns the current lifecycle phase.
func (o *Optimizer) State() State { return o.state }

// Epoch returns the number of completed epochs.
func (o *Optimizer) Epoch() int { return o.epoch }

// Init builds the fuzzy neighbor graph and seeds random initial positions.
// Fewer than 2 vectors is not an error: the optimizer transitions straight
// to Converged with an empty embedding so callers can render a "no data"
// state without special-casing.
func (o *Optimizer) Init(vectors [][]float32) {
	o.reset()
	o.n = len(vectors)
	o.rng = rand.New(rand.NewSource(o.cfg.Seed))

	if o.n < 2 {
		o.state = Converged
		return
	}

	o.edges = graph.BuildFuzzyGraph(vectors, o.cfg.NNeighbors)
	o.initPositions()
	o.initSchedule()
	o.fitOrLookupCurve()
	o.state = Stepping

	slog.Debug("layout optimizer initialized",
		"nodes", o.n, "edges", len(o.edges), "epochs", o.cfg.Epochs)
}

// InitSeeded starts from a previously persisted embedding instead of random
// positions, e.g. when a cached snapshot is fed back in. The caller decides
// whether to grant it any remaining epoch budget; passing positions with
// remaining == 0 yields an immediately Converged optimizer.
func (o *Optimizer) InitSeeded(positions []float64, edges []graph.Edge, remaining int) {
	o.reset()
	o.n = len(positions) / 2
	o.rng = rand.New(rand.NewSource(o.cfg.Seed))

	if o.n < 2 {
		o.state = Converged
		return
	}

	o.pos = make([]float64, 2*o.n)
	copy(o.pos, positions[:2*o.n])
	o.edges = graph.Canonicalize(edges, o.n)
	o.initSchedule()
	o.fitOrLookupCurve()

	if remaining <= 0 {
		o.epoch = o.cfg.Epochs
		o.state = Converged
		o.measureRestLengths()
		return
	}
	if remaining < o.cfg.Epochs {
		o.epoch = o.cfg.Epochs - remaining
	}
	o.state = Stepping
}

// Reset discards all progress and returns to Uninitialized.
func (o *Optimizer) Reset() {
	o.reset()
}

func (o *Optimizer) reset() {
	o.state = Uninitialized
	o.n = 0
	o.pos = nil
	o.edges = nil
	o.epoch = 0
	o.epochsPerSample = nil
	o.epochOfNext = nil
}

// Step advances the optimization by at most batchEpochs epochs and yields
// control back to the frame loop. It reports whether the optimizer is now
// Converged. Termination is purely epoch-count based.
func (o *Optimizer) Step(batchEpochs int) (bool, error) {
	switch o.state {
	case Uninitialized:
		return false, ErrNotInitialized
	case Converged:
		return true, nil
	}
	if batchEpochs < 1 {
		batchEpochs = 1
	}

	for b := 0; b < batchEpochs && o.epoch < o.cfg.Epochs; b++ {
		o.runEpoch()
		o.normalize()
		o.epoch++
		metrics.OptimizerEpochsTotal.Inc()
	}

	if o.epoch >= o.cfg.Epochs {
		o.state = Converged
		o.measureRestLengths()
		o.notify(Event{Kind: EventComplete, Epoch: o.epoch, TotalEpochs: o.cfg.Epochs})
		return true, nil
	}

	o.notify(Event{Kind: EventProgress, Epoch: o.epoch, TotalEpochs: o.cfg.Epochs})
	return false, nil
}

// Positions returns a copy of the flat 2D coordinates.
func (o *Optimizer) Positions() []float64 {
	out := make([]float64, len(o.pos))
	copy(out, o.pos)
	return out
}

// Edges returns a copy of the edge list. RestLength is populated only after
// the optimizer has converged; consumers treat it as advisory.
func (o *Optimizer) Edges() []graph.Edge {
	out := make([]graph.Edge, len(o.edges))
	copy(out, o.edges)
	return out
}

func (o *Optimizer) initPositions() {
	o.pos = make([]float64, 2*o.n)
	for i := range o.pos {
		o.pos[i] = (o.rng.Float64() - 0.5) * 2 * o.cfg.TargetRadius
	}
}

func (o *Optimizer) initSchedule() {
	maxWeight := 0.0
	for _, e := range o.edges {
		if e.Weight > maxWeight {
			maxWeight = e.Weight
		}
	}
	if maxWeight == 0 {
		maxWeight = 1
	}

	o.epochsPerSample = make([]float64, len(o.edges))
	o.epochOfNext = make([]float64, len(o.edges))
	for i, e := range o.edges {
		if e.Weight > 0 {
			per := maxWeight / e.Weight
			if per < 1 {
				per = 1
			}
			o.epochsPerSample[i] = per
		} else {
			o.epochsPerSample[i] = float64(o.cfg.Epochs) + 1 // never sampled
		}
		o.epochOfNext[i] = o.epochsPerSample[i]
	}
}

func (o *Optimizer) fitOrLookupCurve() {
	sig := o.cfg.signature()
	if p, ok := o.cache.get(sig); ok {
		o.curve = p
		return
	}
	o.curve = fitCurve(o.cfg.Spread, o.cfg.MinDist)
	o.cache.put(sig, o.curve)
}

// learningRate implements the front-loaded schedule: held at the initial
// value for the first fifth of the budget, then quadratic decay to a small
// floor. The flat head produces visible early motion in an interactively
// rendered layout; standard linear decay starts slowing immediately.
func (o *Optimizer) learningRate() float64 {
	total := o.cfg.Epochs
	warm := total / 5
	if o.epoch < warm {
		return o.cfg.LearningRate
	}
	t := float64(o.epoch-warm) / float64(total-warm)
	alpha := o.cfg.LearningRate * (1 - t) * (1 - t)
	if alpha < 1e-4 {
		alpha = 1e-4
	}
	return alpha
}

func (o *Optimizer) runEpoch() {
	alpha := o.learningRate()
	a, b := o.curve.A, o.curve.B
	exclusion := o.cfg.MinDist * o.cfg.MinAttractiveScale

	for i, e := range o.edges {
		if o.epochOfNext[i] > float64(o.epoch) {
			continue
		}
		o.epochOfNext[i] += o.epochsPerSample[i]

		si, ti := 2*e.Source, 2*e.Target
		dx := o.pos[si] - o.pos[ti]
		dy := o.pos[si+1] - o.pos[ti+1]
		distSq := dx*dx + dy*dy

		// Attraction along the edge, applied to both endpoints.
		if distSq > 0 {
			coeff := -2.0 * a * b * math.Pow(distSq, b-1.0)
			coeff /= a*math.Pow(distSq, b) + 1.0
			coeff *= o.cfg.AttractionStrength * e.Weight

			// Exclusion zone: attenuate attraction linearly below the
			// minimum attractive distance so points never stack exactly.
			if exclusion > 0 {
				if d := math.Sqrt(distSq); d < exclusion {
					coeff *= d / exclusion
				}
			}

			gx := clip(coeff*dx) * alpha
			gy := clip(coeff*dy) * alpha
			o.pos[si] += gx
			o.pos[si+1] += gy
			o.pos[ti] -= gx
			o.pos[ti+1] -= gy
		}

		// Negative sampling: repel a few random non-anchored points.
		for s := 0; s < o.cfg.NegativeSamples; s++ {
			neg := o.rng.Intn(o.n)
			if neg == e.Source {
				continue
			}
			ni := 2 * neg
			ndx := o.pos[si] - o.pos[ni]
			ndy := o.pos[si+1] - o.pos[ni+1]
			nDistSq := ndx*ndx + ndy*ndy

			var coeff float64
			if nDistSq > 0.001 {
				coeff = 2.0 * b
				coeff /= (0.001 + nDistSq) * (a*math.Pow(nDistSq, b) + 1)
				coeff *= o.cfg.RepulsionStrength
			}
			if coeff > 0 {
				o.pos[si] += clip(coeff*ndx) * alpha
				o.pos[si+1] += clip(coeff*ndy) * alpha
			}
		}
	}
}

// normalize recenters the embedding on its centroid and scales it so the
// max distance from the centroid equals TargetRadius. Running it after every
// step keeps the on-screen scale stable regardless of absolute force
// magnitudes.
func (o *Optimizer) normalize() {
	var cx, cy float64
	for i := 0; i < o.n; i++ {
		cx += o.pos[2*i]
		cy += o.pos[2*i+1]
	}
	cx /= float64(o.n)
	cy /= float64(o.n)

	maxDistSq := 0.0
	for i := 0; i < o.n; i++ {
		dx := o.pos[2*i] - cx
		dy := o.pos[2*i+1] - cy
		if d := dx*dx + dy*dy; d > maxDistSq {
			maxDistSq = d
		}
	}
	if maxDistSq == 0 {
		return
	}

	scale := o.cfg.TargetRadius / math.Sqrt(maxDistSq)
	for i := 0; i < o.n; i++ {
		o.pos[2*i] = (o.pos[2*i] - cx) * scale
		o.pos[2*i+1] = (o.pos[2*i+1] - cy) * scale
	}
}

// measureRestLengths records the learned inter-node distance of every edge
// from the final positions. Downstream physics layers use it as the spring
// length to preserve.
func (o *Optimizer) measureRestLengths() {
	for i, e := range o.edges {
		dx := o.pos[2*e.Source] - o.pos[2*e.Target]
		dy := o.pos[2*e.Source+1] - o.pos[2*e.Target+1]
		o.edges[i].RestLength = math.Sqrt(dx*dx + dy*dy)
	}
}

func (o *Optimizer) notify(ev Event) {
	for _, obs := range o.observers {
		obs.HandleLayoutEvent(ev)
	}
}

func clip(v float64) float64 {
	if v > gradClip {
		return gradClip
	}
	if v < -gradClip {
		return -gradClip
	}
	return v
}
