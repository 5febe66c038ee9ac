package layout

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// curveParams are the (a, b) coefficients of the low-dimensional membership
// function f(d) = 1 / (1 + a*d^(2b)), fitted to the target curve implied by
// (spread, minDist).
type curveParams struct {
	A, B float64
}

// ParamCache memoizes fitted curve parameters per (spread, minDist)
// signature. It is an explicit object scoped to one engine instance, so
// tests can construct isolated caches.
type ParamCache struct {
	inner *lru.Cache[string, curveParams]
}

// NewParamCache returns a bounded cache. size <= 0 falls back to 64 entries,
// far more than any realistic slider session produces.
func NewParamCache(size int) *ParamCache {
	if size <= 0 {
		size = 64
	}
	// lru.New only fails on size <= 0, which is excluded above.
	inner, _ := lru.New[string, curveParams](size)
	return &ParamCache{inner: inner}
}

func (p *ParamCache) get(sig string) (curveParams, bool) {
	if p == nil {
		return curveParams{}, false
	}
	return p.inner.Get(sig)
}

func (p *ParamCache) put(sig string, v curveParams) {
	if p == nil {
		return
	}
	p.inner.Add(sig, v)
}

// fitCurve fits (a, b) by grid search so that 1/(1+a*d^2b) approximates the
// piecewise target: 1 for d < minDist, exp(-(d-minDist)/spread) beyond.
func fitCurve(spread, minDist float64) curveParams {
	const nPoints = 300

	xv := make([]float64, nPoints)
	yv := make([]float64, nPoints)
	for i := 0; i < nPoints; i++ {
		xv[i] = float64(i) / float64(nPoints-1) * spread * 3
		if xv[i] < minDist {
			yv[i] = 1.0
		} else {
			yv[i] = math.Exp(-(xv[i] - minDist) / spread)
		}
	}

	best := curveParams{A: 1, B: 1}
	bestErr := math.Inf(1)
	for a := 0.1; a <= 10.0; a += 0.1 {
		for b := 0.1; b <= 2.0; b += 0.05 {
			var sumErr float64
			for i := 0; i < nPoints; i++ {
				pred := 1.0 / (1.0 + a*math.Pow(xv[i], 2*b))
				diff := pred - yv[i]
				sumErr += diff * diff
			}
			if sumErr < bestErr {
				bestErr = sumErr
				best = curveParams{A: a, B: b}
			}
		}
	}
	return best
}
