package forces

import "time"

// Easing maps normalized animation time t in [0,1] to an eased fraction.
type Easing func(t float64) float64

// EaseOutCubic is the default transition curve: fast start, gentle landing.
func EaseOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// Linear easing.
func Linear(t float64) float64 { return t }

// Interp is the generic time-based interpolator used for position and
// opacity transitions: it lerps from a captured start snapshot to a target
// snapshot over a fixed duration.
//
// Retarget restarts the animation whenever the target key changes identity.
// While no animation is in flight and no target has been set, At snaps to
// the fallback snapshot.
type Interp struct {
	duration time.Duration
	easing   Easing

	key       string
	start     []float64
	target    []float64
	startedAt time.Time
	active    bool

	fallback []float64
}

// NewInterp creates an interpolator. easing nil defaults to EaseOutCubic;
// duration <= 0 defaults to 300ms.
func NewInterp(duration time.Duration, easing Easing) *Interp {
	if duration <= 0 {
		duration = 300 * time.Millisecond
	}
	if easing == nil {
		easing = EaseOutCubic
	}
	return &Interp{duration: duration, easing: easing}
}

// SetFallback provides the snapshot returned before any target is set.
func (ip *Interp) SetFallback(values []float64) {
	ip.fallback = append([]float64(nil), values...)
}

// Retarget starts (or restarts) an animation from start to target. The key
// identifies the target: calling Retarget again with the same key is a
// no-op, so per-frame callers don't perpetually restart the clock.
func (ip *Interp) Retarget(key string, start, target []float64, now time.Time) {
	if ip.active && key == ip.key {
		return
	}
	ip.key = key
	ip.start = append([]float64(nil), start...)
	ip.target = append([]float64(nil), target...)
	ip.startedAt = now
	ip.active = true
}

// Active reports whether an animation is in flight at the given time.
func (ip *Interp) Active(now time.Time) bool {
	return ip.active && now.Sub(ip.startedAt) < ip.duration
}

// At samples the interpolated snapshot. t=0 yields exactly the start
// values; t >= duration yields exactly the target values. With no target
// set it snaps to the fallback.
func (ip *Interp) At(now time.Time) []float64 {
	if !ip.active {
		return append([]float64(nil), ip.fallback...)
	}

	elapsed := now.Sub(ip.startedAt)
	if elapsed >= ip.duration {
		ip.active = false
		ip.key = ""
		done := append([]float64(nil), ip.target...)
		// The finished target becomes the fallback for subsequent samples.
		ip.fallback = append([]float64(nil), ip.target...)
		return done
	}
	if elapsed <= 0 {
		return append([]float64(nil), ip.start...)
	}

	f := ip.easing(float64(elapsed) / float64(ip.duration))
	out := make([]float64, len(ip.target))
	for i := range out {
		s := 0.0
		if i < len(ip.start) {
			s = ip.start[i]
		}
		out[i] = s + (ip.target[i]-s)*f
	}
	return out
}
