// Package engine provides the high-level interface to the semantic layout
// core. It orchestrates the force-directed embedding optimizer, the
// community detector and the secondary physics layers behind a single
// frame-driven facade.
//
// The engine is single-threaded and cooperative: the host calls Tick once
// per animation frame and reads positions back for rendering. Within one
// frame the order is fixed: optimizer batch, then secondary layers over a
// consistent position snapshot, then the convergence check.
//
// Basic usage:
//
//	eng := engine.Open(engine.DefaultOptions())
//	eng.Load(nodes, nil)
//	for !eng.Converged() {
//	    eng.Tick(time.Now())
//	    render(eng.Positions())
//	}
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fronx/semantic-navigator/pkg/cluster"
	"github.com/fronx/semantic-navigator/pkg/forces"
	"github.com/fronx/semantic-navigator/pkg/graph"
	"github.com/fronx/semantic-navigator/pkg/layout"
	"github.com/fronx/semantic-navigator/pkg/metrics"
	"github.com/fronx/semantic-navigator/pkg/snapshot"
)

// Options configures the engine.
type Options struct {
	Layout      layout.Config
	Cluster     cluster.Options
	Coordinator CoordinatorConfig
	Focus       forces.FocusConfig
	Pull        forces.PullConfig

	// ClusterLevels is the semantic-zoom depth (1..8).
	ClusterLevels int

	// BatchEpochs is how many optimizer epochs run per frame tick.
	BatchEpochs int

	// ParamCacheSize bounds the fitted-curve parameter cache.
	ParamCacheSize int

	// CollisionRadius is the base node radius; HoverRadiusScale grows the
	// hovered node.
	CollisionRadius  float64
	HoverRadiusScale float64
}

// DefaultOptions returns a standard configuration.
func DefaultOptions() Options {
	return Options{
		Layout:           layout.DefaultConfig(),
		Cluster:          cluster.Options{Resolution: 1.0, Threshold: 0.3, Seed: 1},
		Coordinator:      DefaultCoordinatorConfig(),
		Focus:            forces.DefaultFocusConfig(),
		Pull:             forces.DefaultPullConfig(),
		ClusterLevels:    4,
		BatchEpochs:      5,
		ParamCacheSize:   64,
		CollisionRadius:  6,
		HoverRadiusScale: 2.5,
	}
}

// NodeInput is one node handed in by the data-access layer, already
// converted from its row shape into a tagged record.
type NodeInput struct {
	ID        string
	Kind      graph.Kind
	Embedding []float32
}

// EdgeInput is a precomputed similarity edge between two node indices.
type EdgeInput struct {
	Source, Target int
	Weight         float64
}

// Engine coordinates the layout core. Not safe for concurrent use: all
// methods run on the host's frame loop.
type Engine struct {
	opts  Options
	cache *layout.ParamCache

	nodes      []graph.Node
	vectors    [][]float32
	simEdges   []graph.Edge // similarity edges for clustering and pulling
	adjacency  graph.Adjacency
	optimizer  *layout.Optimizer
	coord      *Coordinator
	prevPos    []float64
	hoverIndex int

	focusState *forces.FocusState
	focusSim   *forces.Sim
	collision  *forces.Sim
	tether     *forces.Sim

	viewport  *forces.Viewport
	pullState forces.PullState
	levels    []cluster.Result

	closed bool
}

// Open initializes an engine. Configuration values are clamped into their
// safe ranges rather than rejected.
func Open(opts Options) *Engine {
	opts.Layout.Clamp()
	if opts.BatchEpochs < 1 {
		opts.BatchEpochs = 1
	}
	if opts.ClusterLevels < 1 {
		opts.ClusterLevels = 1
	}
	if opts.ClusterLevels > cluster.MaxLevels {
		opts.ClusterLevels = cluster.MaxLevels
	}
	if opts.CollisionRadius <= 0 {
		opts.CollisionRadius = 1
	}
	if opts.HoverRadiusScale < 1 {
		opts.HoverRadiusScale = 1
	}

	cache := layout.NewParamCache(opts.ParamCacheSize)
	return &Engine{
		opts:       opts,
		cache:      cache,
		optimizer:  layout.NewOptimizer(opts.Layout, cache),
		coord:      NewCoordinator(opts.Coordinator),
		hoverIndex: -1,
	}
}

// Load starts a fresh layout run from node embeddings. edges may carry
// precomputed similarity edges; when absent, the optimizer's fuzzy graph
// doubles as the similarity graph. Any previous run is cancelled outright:
// ticks stop, velocity state is discarded, nothing is drained.
func (e *Engine) Load(nodes []NodeInput, edges []EdgeInput) {
	e.cancelLayers()
	e.coord.Reset()
	e.levels = nil
	e.pullState = forces.PullState{}
	e.hoverIndex = -1

	e.nodes = make([]graph.Node, len(nodes))
	e.vectors = make([][]float32, len(nodes))
	for i, in := range nodes {
		e.nodes[i] = graph.Node{Index: i, ID: in.ID, Kind: in.Kind}
		e.vectors[i] = in.Embedding
	}
	metrics.ActiveNodes.Set(float64(len(nodes)))

	e.optimizer = layout.NewOptimizer(e.opts.Layout, e.cache)
	e.optimizer.Init(e.vectors)
	e.syncBasePositions()
	e.prevPos = e.optimizer.Positions()

	if len(edges) > 0 {
		raw := make([]graph.Edge, len(edges))
		for i, in := range edges {
			raw[i] = graph.Edge{Source: in.Source, Target: in.Target, Weight: in.Weight}
		}
		e.simEdges = graph.Canonicalize(raw, len(nodes))
	} else {
		e.simEdges = e.optimizer.Edges()
	}
	e.adjacency = graph.BuildAdjacency(e.simEdges)

	slog.Info("layout run started", "nodes", len(nodes), "edges", len(e.simEdges))
}

// LoadSnapshot seeds the engine from a persisted snapshot, skipping
// re-optimization entirely.
func (e *Engine) LoadSnapshot(s *snapshot.Snapshot) {
	e.cancelLayers()
	e.coord.Reset()
	e.pullState = forces.PullState{}
	e.hoverIndex = -1

	e.nodes = make([]graph.Node, len(s.NodeIDs))
	for i, id := range s.NodeIDs {
		e.nodes[i] = graph.Node{Index: i, ID: id}
	}
	e.vectors = s.EmbeddingVectors()
	metrics.ActiveNodes.Set(float64(len(e.nodes)))

	e.optimizer = layout.NewOptimizer(e.opts.Layout, e.cache)
	e.optimizer.InitSeeded(s.Positions, s.Edges, 0)
	e.syncBasePositions()
	e.prevPos = e.optimizer.Positions()

	e.simEdges = graph.Canonicalize(s.Edges, len(e.nodes))
	e.adjacency = graph.BuildAdjacency(e.simEdges)

	slog.Info("layout seeded from snapshot", "snapshot", s.ID, "nodes", len(e.nodes))
}

// Tick runs one frame: optimizer batch, secondary layers over the latest
// consistent snapshot, convergence bookkeeping. It returns true when the
// camera should auto-fit this frame.
func (e *Engine) Tick(now time.Time) bool {
	start := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()
	if e.closed || len(e.nodes) == 0 {
		return false
	}

	// 1. Base optimizer batch.
	if e.optimizer.State() == layout.Stepping {
		if _, err := e.optimizer.Step(e.opts.BatchEpochs); err != nil {
			slog.Error("optimizer step failed", "err", err)
		}
		e.syncBasePositions()
	}

	// 2. Secondary layers read this frame's positions, never each other's
	// in-flight state.
	if e.focusSim != nil && e.focusSim.Step() {
		for _, p := range e.focusSim.Particles() {
			e.setRendered(p.Index, p.X, p.Y)
		}
	}
	if e.collision != nil && e.collision.Step() {
		for _, p := range e.collision.Particles() {
			e.setRendered(p.Index, p.X, p.Y)
		}
	}
	if e.tether != nil && e.tether.Step() {
		for _, p := range e.tether.Particles() {
			e.setRendered(p.Index, p.X, p.Y)
		}
	}

	// 3. Convergence check.
	e.coord.Observe(e.displacement())
	if e.coord.Cooling() {
		if e.focusSim != nil {
			e.focusSim.SetAlphaTarget(0)
		}
		if e.collision != nil {
			e.collision.SetAlphaTarget(0)
		}
		if e.tether != nil {
			e.tether.SetAlphaTarget(0)
		}
	}

	// 4. Pull state follows the camera, not the clock, but positions moved
	// this frame so a set viewport is refreshed here.
	if e.viewport != nil {
		e.recomputePull()
	}

	return e.coord.AutoFit()
}

// Converged reports whether the base optimizer has exhausted its budget.
func (e *Engine) Converged() bool {
	return e.optimizer.State() == layout.Converged
}

// Positions returns the rendered position of every node, keyed by ID.
func (e *Engine) Positions() map[string][2]float64 {
	out := make(map[string][2]float64, len(e.nodes))
	for _, n := range e.nodes {
		out[n.ID] = [2]float64{n.X, n.Y}
	}
	return out
}

// Edges returns the current similarity edges, with rest lengths once the
// optimizer has converged.
func (e *Engine) Edges() []graph.Edge {
	out := make([]graph.Edge, len(e.simEdges))
	copy(out, e.simEdges)
	return out
}

// DetectCommunities runs multi-resolution community detection over the
// similarity graph snapshot. Any edge-set change requires calling it again;
// results are never incrementally updated.
func (e *Engine) DetectCommunities() []cluster.Result {
	labels := make([]string, len(e.nodes))
	for i, n := range e.nodes {
		labels[i] = n.ID
	}
	e.levels = cluster.DetectLevels(e.simEdges, labels, e.opts.Cluster, e.opts.ClusterLevels)
	for level, res := range e.levels {
		metrics.Communities.WithLabelValues(fmt.Sprint(level)).Set(float64(len(res.Communities)))
	}
	return e.levels
}

// Communities returns the last detection result, one entry per level,
// level 0 coarsest.
func (e *Engine) Communities() []cluster.Result { return e.levels }

// Focus starts manifold compression around the node with the given ID.
// An unknown ID is ignored: focus state derives from possibly-stale
// interactive input.
func (e *Engine) Focus(id string, bounds *forces.Rect) {
	idx := e.indexOf(id)
	if idx < 0 {
		return
	}
	e.ClearFocus()

	fs := forces.NewFocusState(e.adjacency, idx)
	e.focusState = &fs
	e.focusSim = forces.NewFocusSim(e.renderedPositions(), fs, e.optimizer.Edges(), bounds, e.opts.Focus)
}

// ClearFocus discards the focus layer and its derived state.
func (e *Engine) ClearFocus() {
	if e.focusSim != nil {
		e.focusSim.Stop()
		e.focusSim = nil
	}
	e.focusState = nil
}

// FocusState exposes the active focus selection, or nil.
func (e *Engine) FocusState() *forces.FocusState { return e.focusState }

// ClickFocus starts the similarity-driven focus variant over an explicit
// node set.
func (e *Engine) ClickFocus(ids []string) {
	var active []int
	for _, id := range ids {
		if idx := e.indexOf(id); idx >= 0 {
			active = append(active, idx)
		}
	}
	if len(active) == 0 {
		return
	}
	e.ClearFocus()
	e.focusSim = forces.NewClickFocusSim(e.renderedPositions(), active, e.vectors)
}

// StartCollision runs the collision layer over all nodes. The radius
// function consults hover state on every query, so a hover change takes
// effect without rebuilding the layer.
func (e *Engine) StartCollision() {
	if e.collision != nil {
		e.collision.Stop()
	}
	e.collision = forces.NewSim(e.renderedPositions(), nil)
	e.collision.AddForce(&forces.Collision{Radius: e.collisionRadius, Strength: 0.7})
}

// StartTether runs the parent-tether layer binding child nodes (chunks) to
// their parent node (keyword). parents maps child ID to parent ID; unknown
// or self-referential entries are skipped. proto carries the geometry
// (ParentRadius, Multiplier, ChildRadius, SpreadFactor, Strength); the
// parent and sibling tables are derived here.
func (e *Engine) StartTether(parents map[string]string, proto forces.Tether) {
	if e.tether != nil {
		e.tether.Stop()
	}

	parent := make([]int, len(e.nodes))
	for i := range parent {
		parent[i] = -1
	}
	counts := make(map[int]int)
	for childID, parentID := range parents {
		ci, pi := e.indexOf(childID), e.indexOf(parentID)
		if ci < 0 || pi < 0 || ci == pi {
			continue
		}
		parent[ci] = pi
		counts[pi]++
	}
	siblings := make([]int, len(e.nodes))
	for i, p := range parent {
		if p >= 0 {
			siblings[i] = counts[p]
		}
	}

	proto.Parent = parent
	proto.Siblings = siblings
	if proto.Strength <= 0 {
		proto.Strength = 0.5
	}
	e.tether = forces.NewSim(e.renderedPositions(), nil)
	e.tether.AddForce(&proto)
}

// StopTether cancels the tether layer.
func (e *Engine) StopTether() {
	if e.tether != nil {
		e.tether.Stop()
		e.tether = nil
	}
}

// SetHover marks one node as hovered (empty ID clears it), growing its
// collision radius and reheating the collision layer.
func (e *Engine) SetHover(id string) {
	e.hoverIndex = e.indexOf(id)
	if e.collision != nil {
		e.collision.Restart(0.3)
	}
}

// SetViewport updates the camera rectangle and recomputes pull state.
func (e *Engine) SetViewport(vp forces.Viewport) {
	e.viewport = &vp
	e.recomputePull()
}

// PullState returns the current viewport-edge pull set.
func (e *Engine) PullState() forces.PullState { return e.pullState }

// MarkUserInteraction records a manual pan/zoom/drag, suppressing the
// post-cooling auto-fit.
func (e *Engine) MarkUserInteraction() { e.coord.MarkUserInteraction() }

// ExportSnapshot captures the serializable state of the current layout.
func (e *Engine) ExportSnapshot() *snapshot.Snapshot {
	s := snapshot.New()
	s.NodeIDs = make([]string, len(e.nodes))
	for i, n := range e.nodes {
		s.NodeIDs[i] = n.ID
	}
	s.Positions = e.renderedPositions()
	s.Edges = e.Edges()
	s.SetEmbeddings(e.vectors)

	for level, res := range e.levels {
		s.Resolutions = append(s.Resolutions, levelResolution(e.opts.Cluster.Resolution, level, len(e.levels)))
		assign := make(map[string]int, len(res.Assignments))
		for id, c := range res.Assignments {
			assign[id] = c
		}
		s.Assignments = append(s.Assignments, assign)
		hubs := make(map[int]string, len(res.Communities))
		for cid, c := range res.Communities {
			hubs[cid] = c.Hub
		}
		s.Hubs = append(s.Hubs, hubs)
	}
	return s
}

// Close cancels all simulations. The engine is unusable afterwards.
func (e *Engine) Close() {
	e.cancelLayers()
	e.optimizer.Reset()
	e.closed = true
}

// --- internals ---

func (e *Engine) cancelLayers() {
	e.ClearFocus()
	if e.collision != nil {
		e.collision.Stop()
		e.collision = nil
	}
	e.StopTether()
}

func (e *Engine) indexOf(id string) int {
	for i := range e.nodes {
		if e.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) collisionRadius(idx int) float64 {
	if idx == e.hoverIndex {
		return e.opts.CollisionRadius * e.opts.HoverRadiusScale
	}
	return e.opts.CollisionRadius
}

// syncBasePositions copies the optimizer's latest embedding into the node
// arena. The base layer owns node writes while no secondary layer has the
// node set checked out.
func (e *Engine) syncBasePositions() {
	pos := e.optimizer.Positions()
	for i := range e.nodes {
		if 2*i+1 < len(pos) {
			e.nodes[i].X = pos[2*i]
			e.nodes[i].Y = pos[2*i+1]
		}
	}
}

func (e *Engine) setRendered(idx int, x, y float64) {
	if idx < 0 || idx >= len(e.nodes) {
		return
	}
	e.nodes[idx].X = x
	e.nodes[idx].Y = y
}

func (e *Engine) renderedPositions() []float64 {
	out := make([]float64, 2*len(e.nodes))
	for i, n := range e.nodes {
		out[2*i] = n.X
		out[2*i+1] = n.Y
	}
	return out
}

// displacement is the mean per-node movement since the previous tick.
func (e *Engine) displacement() float64 {
	cur := e.renderedPositions()
	if len(e.prevPos) != len(cur) {
		e.prevPos = cur
		return 0
	}
	var total float64
	for i := 0; i < len(cur); i += 2 {
		dx := cur[i] - e.prevPos[i]
		dy := cur[i+1] - e.prevPos[i+1]
		total += dx*dx + dy*dy
	}
	e.prevPos = cur
	n := float64(len(cur) / 2)
	if n == 0 {
		return 0
	}
	return total / n
}

func (e *Engine) recomputePull() {
	if e.viewport == nil {
		e.pullState = forces.PullState{}
		return
	}
	e.pullState = forces.ComputePullState(
		e.nodes, e.adjacency, e.vectors, *e.viewport, e.opts.Pull, &e.pullState, nil)
	metrics.PulledNodes.Set(float64(len(e.pullState.Pulled)))
}

// levelResolution mirrors the geometric sequence used by cluster.DetectLevels.
func levelResolution(base float64, level, nLevels int) float64 {
	if base <= 0 {
		base = 0.01
	}
	scale := 1.0
	for i := level; i < nLevels-1; i++ {
		scale /= 2
	}
	return base * scale
}
