package layout

import (
	"math"
	"math/rand"
	"testing"
)

func testVectors(n, dims int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = make([]float32, dims)
		for d := range vectors[i] {
			vectors[i][d] = rng.Float32()
		}
	}
	return vectors
}

func TestStepBeforeInit(t *testing.T) {
	o := NewOptimizer(DefaultConfig(), nil)
	if _, err := o.Step(1); err != ErrNotInitialized {
		t.Fatalf("got %v, want ErrNotInitialized", err)
	}
}

func TestInsufficientInput(t *testing.T) {
	o := NewOptimizer(DefaultConfig(), nil)
	o.Init(testVectors(1, 8, 1))

	if o.State() != Converged {
		t.Fatalf("single point should converge immediately, state=%d", o.State())
	}
	done, err := o.Step(1)
	if err != nil || !done {
		t.Fatalf("step on converged empty layout: done=%v err=%v", done, err)
	}
	if len(o.Positions()) != 0 {
		t.Errorf("expected empty positions, got %d", len(o.Positions()))
	}
}

func TestRadiusNormalization(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 50
	cfg.NNeighbors = 8
	cfg.TargetRadius = 100

	o := NewOptimizer(cfg, NewParamCache(8))
	o.Init(testVectors(40, 8, 2))

	// Partial progress: radius must already hold after any completed step.
	if _, err := o.Step(10); err != nil {
		t.Fatal(err)
	}

	pos := o.Positions()
	n := len(pos) / 2
	var cx, cy float64
	for i := 0; i < n; i++ {
		cx += pos[2*i]
		cy += pos[2*i+1]
	}
	cx /= float64(n)
	cy /= float64(n)

	maxDist := 0.0
	for i := 0; i < n; i++ {
		dx, dy := pos[2*i]-cx, pos[2*i+1]-cy
		if d := math.Sqrt(dx*dx + dy*dy); d > maxDist {
			maxDist = d
		}
	}
	if math.Abs(maxDist-cfg.TargetRadius) > 1e-6 {
		t.Errorf("max centroid distance = %f, want %f", maxDist, cfg.TargetRadius)
	}
}

func TestResetDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 20
	vectors := testVectors(30, 8, 3)
	cache := NewParamCache(8)

	o := NewOptimizer(cfg, cache)
	o.Init(vectors)
	first := o.Positions()

	o.Reset()
	if o.State() != Uninitialized {
		t.Fatal("reset did not return to Uninitialized")
	}
	o.Init(vectors)
	second := o.Positions()

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("epoch-0 embedding differs at %d: %f vs %f", i, first[i], second[i])
		}
	}
}

func TestConvergesOnEpochBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 30
	cfg.NNeighbors = 6

	o := NewOptimizer(cfg, NewParamCache(8))
	o.Init(testVectors(25, 8, 4))

	steps := 0
	for {
		done, err := o.Step(7)
		if err != nil {
			t.Fatal(err)
		}
		steps++
		if done {
			break
		}
		if steps > 100 {
			t.Fatal("optimizer did not converge within the epoch budget")
		}
	}

	if o.Epoch() != cfg.Epochs {
		t.Errorf("epoch counter = %d, want %d", o.Epoch(), cfg.Epochs)
	}
	if o.State() != Converged {
		t.Error("state is not Converged after budget exhaustion")
	}

	for _, p := range o.Positions() {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatal("non-finite position in converged embedding")
		}
	}

	// Rest lengths must be measured from the final positions.
	pos := o.Positions()
	for _, e := range o.Edges() {
		dx := pos[2*e.Source] - pos[2*e.Target]
		dy := pos[2*e.Source+1] - pos[2*e.Target+1]
		want := math.Sqrt(dx*dx + dy*dy)
		if math.Abs(e.RestLength-want) > 1e-9 {
			t.Fatalf("rest length %f does not match measured distance %f", e.RestLength, want)
		}
	}
}

func TestObserverEvents(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 10

	var events []Event
	o := NewOptimizer(cfg, NewParamCache(8))
	o.Subscribe(observerFunc(func(ev Event) { events = append(events, ev) }))
	o.Init(testVectors(10, 4, 5))

	for done := false; !done; {
		var err error
		done, err = o.Step(3)
		if err != nil {
			t.Fatal(err)
		}
	}

	if len(events) == 0 {
		t.Fatal("no events delivered")
	}
	last := events[len(events)-1]
	if last.Kind != EventComplete || last.Epoch != cfg.Epochs {
		t.Errorf("last event = %+v, want Complete at epoch %d", last, cfg.Epochs)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.Kind != EventProgress {
			t.Errorf("intermediate event is not Progress: %+v", ev)
		}
	}
}

type observerFunc func(Event)

func (f observerFunc) HandleLayoutEvent(ev Event) { f(ev) }

func TestSeededInitSkipsOptimization(t *testing.T) {
	cfg := DefaultConfig()
	o := NewOptimizer(cfg, nil)

	positions := []float64{0, 0, 10, 0, 0, 10}
	o.InitSeeded(positions, nil, 0)

	if o.State() != Converged {
		t.Fatal("seeded init with no remaining budget must be Converged")
	}
	got := o.Positions()
	for i := range positions {
		if got[i] != positions[i] {
			t.Fatalf("seeded position %d changed: %f vs %f", i, got[i], positions[i])
		}
	}
}

func TestConfigClamp(t *testing.T) {
	cfg := Config{
		NNeighbors:      -3,
		Spread:          -1,
		Epochs:          0,
		NegativeSamples: -1,
		TargetRadius:    -5,
	}
	cfg.Clamp()
	if cfg.NNeighbors < 2 || cfg.Spread <= 0 || cfg.Epochs < 1 ||
		cfg.NegativeSamples < 1 || cfg.TargetRadius <= 0 {
		t.Errorf("clamp left invalid values: %+v", cfg)
	}
}

func TestParamCacheReuse(t *testing.T) {
	cache := NewParamCache(4)
	p1 := fitCurve(1.0, 0.1)
	cache.put("1|0.1", p1)
	p2, ok := cache.get("1|0.1")
	if !ok || p2 != p1 {
		t.Errorf("cache miss or mismatch: %+v vs %+v", p2, p1)
	}
}
