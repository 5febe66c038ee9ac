package engine

// Coordinator watches aggregate per-tick motion and decides when the layout
// has settled ("cooling") and when the camera should auto-fit.
//
// Cooling is latched: once the average displacement over the rolling window
// stays below the threshold for the sustain count, the host should tighten
// collision radii and drive the simulation's alpha target to zero instead
// of leaving it perpetually warm.
//
// Auto-fit fires at most twice per layout: once shortly after load, and
// once right after cooling begins — the second only if the user has not
// panned or zoomed manually in the interim.
type Coordinator struct {
	threshold   float64
	windowSize  int
	sustain     int
	initialWait int

	window []float64
	below  int
	ticks  int

	cooling        bool
	userInteracted bool
	didInitialFit  bool
	didCoolingFit  bool
}

// CoordinatorConfig tunes settle detection.
type CoordinatorConfig struct {
	// DisplacementThreshold is the mean per-node movement below which a
	// tick counts as quiet.
	DisplacementThreshold float64

	// WindowSize is the rolling displacement window length in ticks.
	WindowSize int

	// SustainTicks is how many consecutive quiet windows trigger cooling.
	SustainTicks int

	// InitialFitDelay is the tick count after which the first auto-fit fires.
	InitialFitDelay int
}

// DefaultCoordinatorConfig returns settle detection tuned for a 60fps loop.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		DisplacementThreshold: 0.05,
		WindowSize:            10,
		SustainTicks:          15,
		InitialFitDelay:       30,
	}
}

// NewCoordinator creates a coordinator, clamping non-positive settings to
// usable minimums.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.DisplacementThreshold <= 0 {
		cfg.DisplacementThreshold = 0.05
	}
	if cfg.WindowSize < 1 {
		cfg.WindowSize = 1
	}
	if cfg.SustainTicks < 1 {
		cfg.SustainTicks = 1
	}
	if cfg.InitialFitDelay < 0 {
		cfg.InitialFitDelay = 0
	}
	return &Coordinator{
		threshold:   cfg.DisplacementThreshold,
		windowSize:  cfg.WindowSize,
		sustain:     cfg.SustainTicks,
		initialWait: cfg.InitialFitDelay,
	}
}

// Observe records one tick's mean displacement.
func (c *Coordinator) Observe(displacement float64) {
	c.ticks++
	c.window = append(c.window, displacement)
	if len(c.window) > c.windowSize {
		c.window = c.window[1:]
	}
	if len(c.window) < c.windowSize {
		return
	}

	var sum float64
	for _, d := range c.window {
		sum += d
	}
	if sum/float64(len(c.window)) < c.threshold {
		c.below++
		if c.below >= c.sustain {
			c.cooling = true
		}
	} else {
		c.below = 0
	}
}

// Cooling reports whether the layout has settled.
func (c *Coordinator) Cooling() bool { return c.cooling }

// MarkUserInteraction records a manual pan/zoom/drag. The flag is never
// cleared until the next fresh layout.
func (c *Coordinator) MarkUserInteraction() { c.userInteracted = true }

// AutoFit reports whether the camera should fit now, consuming the
// one-shot. Call once per tick after Observe.
func (c *Coordinator) AutoFit() bool {
	if !c.didInitialFit && c.ticks >= c.initialWait {
		c.didInitialFit = true
		return true
	}
	if c.cooling && !c.didCoolingFit {
		c.didCoolingFit = true
		return !c.userInteracted
	}
	return false
}

// Reset prepares the coordinator for a fresh layout, clearing the cooling
// latch, the fit one-shots and the user-interaction flag.
func (c *Coordinator) Reset() {
	c.window = c.window[:0]
	c.below = 0
	c.ticks = 0
	c.cooling = false
	c.userInteracted = false
	c.didInitialFit = false
	c.didCoolingFit = false
}
