package forces

import (
	"math"
	"testing"
	"time"

	"github.com/fronx/semantic-navigator/pkg/graph"
)

func TestSimStopDiscardsVelocity(t *testing.T) {
	sim := NewSim([]float64{0, 0, 10, 10}, nil)
	sim.AddForce(&Links{Links: []Link{{A: 0, B: 1, Rest: 1, Strength: 1}}})
	sim.Step()
	sim.Stop()

	for _, p := range sim.Particles() {
		if p.VX != 0 || p.VY != 0 {
			t.Fatalf("velocity not discarded on stop: %+v", p)
		}
	}
	if sim.Step() {
		t.Error("stopped sim must not step")
	}
}

func TestSimSettles(t *testing.T) {
	sim := NewSim([]float64{0, 0, 10, 0}, nil)
	for i := 0; i < 1000 && sim.Step(); i++ {
	}
	if sim.Running() {
		t.Error("sim did not settle within 1000 ticks")
	}
}

func TestCollisionRadiusRequeried(t *testing.T) {
	// Two nodes separated by 10. With radius 2 each there is no overlap;
	// after "hover" grows node 0's radius to 12, they must be pushed apart.
	hovered := false
	radius := func(idx int) float64 {
		if idx == 0 && hovered {
			return 12
		}
		return 2
	}

	sim := NewSim([]float64{0, 0, 10, 0}, nil)
	sim.AddForce(&Collision{Radius: radius, Strength: 1})

	sim.Step()
	p := sim.Particles()
	if math.Abs(p[1].X-10) > 1e-9 {
		t.Fatalf("no-overlap case moved node: %f", p[1].X)
	}

	hovered = true
	sim.Restart(1)
	for i := 0; i < 300 && sim.Step(); i++ {
	}

	p = sim.Particles()
	gap := math.Hypot(p[1].X-p[0].X, p[1].Y-p[0].Y)
	if gap <= 10 {
		t.Errorf("hover radius growth had no effect: gap %f", gap)
	}
}

func TestTetherHardConstraint(t *testing.T) {
	for _, siblings := range []int{1, 4, 9} {
		tether := &Tether{
			Parent:       []int{-1, 0},
			Siblings:     []int{0, siblings},
			ParentRadius: 10,
			Multiplier:   1.5,
			ChildRadius:  4,
			SpreadFactor: 2,
			Strength:     0.5,
		}
		maxDist := tether.MaxDistance(siblings)

		// Child starts far outside the cap.
		sim := NewSim([]float64{0, 0, maxDist * 3, 0}, nil)
		sim.AddForce(tether)
		for i := 0; i < 500 && sim.Step(); i++ {
		}

		p := sim.Particles()
		dist := math.Hypot(p[1].X-p[0].X, p[1].Y-p[0].Y)
		if dist > maxDist+1e-9 {
			t.Errorf("siblings=%d: child at distance %f exceeds max %f", siblings, dist, maxDist)
		}
	}
}

func TestTetherMaxDistanceGrowsBySqrt(t *testing.T) {
	tether := &Tether{ParentRadius: 10, Multiplier: 1, ChildRadius: 2, SpreadFactor: 1}
	base := tether.BaseDistance()

	d1 := tether.MaxDistance(1) - base
	d4 := tether.MaxDistance(4) - base
	d9 := tether.MaxDistance(9) - base
	if math.Abs(d4-2*d1) > 1e-9 || math.Abs(d9-3*d1) > 1e-9 {
		t.Errorf("spread not sqrt-law: %f %f %f", d1, d4, d9)
	}
}

func TestFocusStateTwoHops(t *testing.T) {
	edges := []graph.Edge{
		{Source: 0, Target: 1, Weight: 1},
		{Source: 1, Target: 2, Weight: 1},
		{Source: 2, Target: 3, Weight: 1},
	}
	fs := NewFocusState(graph.BuildAdjacency(edges), 0)
	if len(fs.NodeSet) != 3 {
		t.Fatalf("focus set size %d, want 3", len(fs.NodeSet))
	}
	if fs.Depth[2] != 2 {
		t.Errorf("depth of 2-hop node = %d, want 2", fs.Depth[2])
	}
}

func TestFocusSimRespectsBounds(t *testing.T) {
	edges := []graph.Edge{
		{Source: 0, Target: 1, Weight: 1, RestLength: 50},
		{Source: 1, Target: 2, Weight: 1, RestLength: 50},
	}
	adj := graph.BuildAdjacency(edges)
	positions := []float64{0, 0, 100, 0, 200, 0}

	bounds := &Rect{MinX: -10, MinY: -10, MaxX: 120, MaxY: 10}
	sim := NewFocusSim(positions, NewFocusState(adj, 0), edges, bounds, DefaultFocusConfig())

	for i := 0; i < 200 && sim.Step(); i++ {
		for _, p := range sim.Particles() {
			if !bounds.Contains(p.X, p.Y) {
				t.Fatalf("particle escaped bounds: (%f, %f)", p.X, p.Y)
			}
		}
	}
}

func TestClickFocusLinkParams(t *testing.T) {
	if _, _, ok := ClickFocusLinkParams(0.01); ok {
		t.Error("similarity below floor must omit the link")
	}

	rest, strength, ok := ClickFocusLinkParams(1.0)
	if !ok || rest != 60 || math.Abs(strength-0.85) > 1e-9 {
		t.Errorf("sim=1: rest=%f strength=%f", rest, strength)
	}

	rest, strength, ok = ClickFocusLinkParams(0.5)
	if !ok || math.Abs(rest-150) > 1e-9 || math.Abs(strength-0.55) > 1e-9 {
		t.Errorf("sim=0.5: rest=%f strength=%f", rest, strength)
	}
}

func TestInterpEndpoints(t *testing.T) {
	ip := NewInterp(time.Second, nil)
	t0 := time.Unix(0, 0)
	start := []float64{0, 0}
	target := []float64{100, -50}
	ip.Retarget("a", start, target, t0)

	got := ip.At(t0)
	if got[0] != 0 || got[1] != 0 {
		t.Errorf("t=0 sample = %v, want start", got)
	}

	got = ip.At(t0.Add(time.Second))
	if got[0] != 100 || got[1] != -50 {
		t.Errorf("t=D sample = %v, want exact target", got)
	}

	// After completion, samples keep returning the target.
	got = ip.At(t0.Add(2 * time.Second))
	if got[0] != 100 || got[1] != -50 {
		t.Errorf("post-completion sample = %v, want target", got)
	}
}

func TestInterpRetargetIdentity(t *testing.T) {
	ip := NewInterp(time.Second, Linear)
	t0 := time.Unix(0, 0)
	ip.Retarget("a", []float64{0}, []float64{10}, t0)

	// Same key mid-flight must not restart the clock.
	ip.Retarget("a", []float64{99}, []float64{99}, t0.Add(500*time.Millisecond))
	got := ip.At(t0.Add(500 * time.Millisecond))
	if math.Abs(got[0]-5) > 1e-9 {
		t.Errorf("same-key retarget restarted animation: %v", got)
	}

	// New key mid-flight restarts from the provided snapshot.
	ip.Retarget("b", []float64{20}, []float64{40}, t0.Add(600*time.Millisecond))
	got = ip.At(t0.Add(600 * time.Millisecond))
	if math.Abs(got[0]-20) > 1e-9 {
		t.Errorf("new-key retarget did not restart: %v", got)
	}
}

func TestInterpFallbackSnap(t *testing.T) {
	ip := NewInterp(time.Second, nil)
	ip.SetFallback([]float64{7, 8})
	got := ip.At(time.Unix(0, 0))
	if got[0] != 7 || got[1] != 8 {
		t.Errorf("no target set: got %v, want fallback", got)
	}
}

func pullTestNodes() ([]graph.Node, graph.Adjacency) {
	// 0 and 1 on screen, 2 off screen linked to 0, 3 off screen linked
	// only to 1, 4 off screen and isolated.
	nodes := []graph.Node{
		{Index: 0, ID: "a", X: 10, Y: 10},
		{Index: 1, ID: "b", X: 50, Y: 50},
		{Index: 2, ID: "c", X: 300, Y: 10},
		{Index: 3, ID: "d", X: 10, Y: 300},
		{Index: 4, ID: "e", X: 400, Y: 400},
	}
	adj := graph.BuildAdjacency([]graph.Edge{
		{Source: 0, Target: 2, Weight: 0.9},
		{Source: 1, Target: 3, Weight: 0.8},
	})
	return nodes, adj
}

func TestPullStateBasics(t *testing.T) {
	nodes, adj := pullTestNodes()
	vp := Viewport{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100, CliffInset: 5}

	state := ComputePullState(nodes, adj, nil, vp, DefaultPullConfig(), nil, nil)

	if _, ok := state.Primary["a"]; !ok {
		t.Fatal("on-screen node missing from primary set")
	}
	if _, ok := state.Pulled["e"]; ok {
		t.Error("isolated off-screen node must not be pulled")
	}

	c, ok := state.Pulled["c"]
	if !ok {
		t.Fatal("one-hop off-screen node not pulled")
	}
	if c.X != 95 || c.Y != 10 {
		t.Errorf("cliff clamp wrong: (%f, %f), want (95, 10)", c.X, c.Y)
	}
	if c.RealX != 300 || c.RealY != 10 {
		t.Errorf("real position not preserved: (%f, %f)", c.RealX, c.RealY)
	}
	if len(c.ConnectedPrimaryIDs) != 1 || c.ConnectedPrimaryIDs[0] != "a" {
		t.Errorf("anchors = %v, want [a]", c.ConnectedPrimaryIDs)
	}
}

func TestPullDeadPullRemoval(t *testing.T) {
	nodes, adj := pullTestNodes()
	vp := Viewport{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100, CliffInset: 5}
	cfg := DefaultPullConfig()

	state := ComputePullState(nodes, adj, nil, vp, cfg, nil, nil)
	if _, ok := state.Pulled["d"]; !ok {
		t.Fatal("expected d pulled while its anchor b is on screen")
	}

	// Camera pans so that b scrolls off screen: d's only anchor is gone.
	vp2 := Viewport{MinX: -100, MinY: -100, MaxX: 30, MaxY: 30, CliffInset: 5}
	state2 := ComputePullState(nodes, adj, nil, vp2, cfg, &state, nil)
	if _, ok := state2.Pulled["d"]; ok {
		t.Error("dead pull survived recompute")
	}

	// Content-driven nodes survive losing their anchors.
	state3 := ComputePullState(nodes, adj, nil, vp2, cfg, &state, map[string]bool{"d": true})
	if _, ok := state3.Pulled["d"]; !ok {
		t.Error("content-driven pull was dropped")
	}
}

func TestPullCapPrefersSimilarity(t *testing.T) {
	nodes := []graph.Node{{Index: 0, ID: "p", X: 10, Y: 10}}
	var edges []graph.Edge
	for i := 1; i <= 5; i++ {
		nodes = append(nodes, graph.Node{Index: i, ID: string(rune('a' + i)), X: 500, Y: float64(i)})
		edges = append(edges, graph.Edge{Source: 0, Target: i, Weight: float64(i) / 10})
	}
	adj := graph.BuildAdjacency(edges)
	vp := Viewport{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100, CliffInset: 5}

	state := ComputePullState(nodes, adj, nil, vp, PullConfig{MaxPulled: 2, MinSimilarity: 0}, nil, nil)
	if len(state.Pulled) != 2 {
		t.Fatalf("pulled %d nodes, want cap of 2", len(state.Pulled))
	}
	// Highest weights are nodes 5 (0.5) and 4 (0.4).
	if _, ok := state.Pulled[string(rune('a'+5))]; !ok {
		t.Error("highest-similarity candidate not selected")
	}
	if _, ok := state.Pulled[string(rune('a'+4))]; !ok {
		t.Error("second-highest candidate not selected")
	}
}
