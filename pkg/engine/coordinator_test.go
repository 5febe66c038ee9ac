package engine

import "testing"

func quietCoordinator() *Coordinator {
	return NewCoordinator(CoordinatorConfig{
		DisplacementThreshold: 0.1,
		WindowSize:            3,
		SustainTicks:          2,
		InitialFitDelay:       5,
	})
}

func TestCoolingLatch(t *testing.T) {
	c := quietCoordinator()

	for i := 0; i < 10; i++ {
		c.Observe(5.0) // loud
	}
	if c.Cooling() {
		t.Fatal("cooling while displacement is high")
	}

	for i := 0; i < 5; i++ {
		c.Observe(0.01)
	}
	if !c.Cooling() {
		t.Fatal("did not cool after sustained quiet ticks")
	}

	// Latched: a noisy tick does not un-cool.
	c.Observe(10)
	if !c.Cooling() {
		t.Error("cooling latch released")
	}

	c.Reset()
	if c.Cooling() {
		t.Error("reset did not clear cooling")
	}
}

func TestAutoFitOneShots(t *testing.T) {
	c := quietCoordinator()

	// Initial fit fires exactly once, after the delay.
	fits := 0
	for i := 0; i < 20; i++ {
		c.Observe(5.0)
		if c.AutoFit() {
			fits++
		}
	}
	if fits != 1 {
		t.Fatalf("initial auto-fit fired %d times, want 1", fits)
	}

	// Cooling fit fires once more.
	fits = 0
	for i := 0; i < 10; i++ {
		c.Observe(0.01)
		if c.AutoFit() {
			fits++
		}
	}
	if fits != 1 {
		t.Fatalf("cooling auto-fit fired %d times, want 1", fits)
	}
}

func TestAutoFitSuppressedByUserInteraction(t *testing.T) {
	c := quietCoordinator()

	for i := 0; i < 10; i++ {
		c.Observe(5.0)
		c.AutoFit()
	}
	c.MarkUserInteraction()

	for i := 0; i < 10; i++ {
		c.Observe(0.01)
		if c.AutoFit() {
			t.Fatal("post-cooling auto-fit fired despite user interaction")
		}
	}
	if !c.Cooling() {
		t.Error("cooling itself must still happen")
	}
}
