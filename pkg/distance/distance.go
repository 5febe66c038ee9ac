// Package distance provides the vector similarity primitives used by the
// layout engine: squared Euclidean distance for neighbor-graph construction
// and cosine similarity for focus and pull layers.
//
// The package picks an implementation at startup via runtime CPU detection:
// on CPUs with AVX2 the Gonum BLAS routines are used (Gonum dispatches to
// SIMD internally), otherwise plain Go loops avoid the BLAS call overhead
// on short vectors.
package distance

import (
	"errors"
	"math"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"gonum.org/v1/gonum/blas/gonum"
)

// Metric selects the distance calculation used when building similarity graphs.
type Metric string

const (
	// Cosine is cosine distance (1 - cosine similarity).
	Cosine Metric = "cosine"
	// Euclidean is the squared Euclidean distance.
	Euclidean Metric = "euclidean"
)

// ErrLengthMismatch is returned when two vectors of different dimensions are compared.
var ErrLengthMismatch = errors.New("distance: vectors must have the same length")

// Func is the common shape of every float32 distance implementation.
type Func func(v1, v2 []float32) (float64, error)

var (
	dotFunc       Func = dotGo
	sqEuclidean   Func = squaredEuclideanGo
	squaredNormFn      = squaredNormGo
)

func init() {
	// Gonum handles SIMD dispatch internally; on AVX2-capable CPUs it beats
	// the scalar loops for the embedding sizes we see (256..1536 dims).
	if cpuid.CPU.Has(cpuid.AVX2) {
		dotFunc = dotGonum
		sqEuclidean = squaredEuclideanGonum
		squaredNormFn = squaredNormGonum
	}
}

// --- WORKSPACE POOL ---

// diffWorkspace avoids allocating a difference buffer on every Euclidean
// call. 1536 covers the largest embedding dimension we ingest; larger
// vectors grow the pooled slice on first use.
var diffWorkspace = sync.Pool{
	New: func() interface{} {
		s := make([]float32, 1536)
		return &s
	},
}

// SquaredEuclidean returns the squared Euclidean distance between v1 and v2.
func SquaredEuclidean(v1, v2 []float32) (float64, error) {
	return sqEuclidean(v1, v2)
}

// Dot returns the dot product of v1 and v2.
func Dot(v1, v2 []float32) (float64, error) {
	return dotFunc(v1, v2)
}

// CosineSimilarity returns the cosine of the angle between v1 and v2 in
// [-1, 1]. A zero vector yields similarity 0.
func CosineSimilarity(v1, v2 []float32) (float64, error) {
	dot, err := dotFunc(v1, v2)
	if err != nil {
		return 0, err
	}
	n1 := squaredNormFn(v1)
	n2 := squaredNormFn(v2)
	if n1 == 0 || n2 == 0 {
		return 0, nil
	}
	return dot / math.Sqrt(n1*n2), nil
}

// CosineDistance returns 1 - CosineSimilarity(v1, v2).
func CosineDistance(v1, v2 []float32) (float64, error) {
	sim, err := CosineSimilarity(v1, v2)
	if err != nil {
		return 0, err
	}
	return 1.0 - sim, nil
}

// ForMetric returns the distance function for a metric. Unknown metrics fall
// back to Euclidean, which is the neighbor-graph default.
func ForMetric(m Metric) Func {
	if m == Cosine {
		return CosineDistance
	}
	return SquaredEuclidean
}

// --- REFERENCE IMPLEMENTATIONS (PURE GO) ---

func squaredEuclideanGo(v1, v2 []float32) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	var sum float32
	for i := range v1 {
		diff := v1[i] - v2[i]
		sum += diff * diff
	}
	return float64(sum), nil
}

func dotGo(v1, v2 []float32) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	var sum float32
	for i := range v1 {
		sum += v1[i] * v2[i]
	}
	return float64(sum), nil
}

func squaredNormGo(v []float32) float64 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float64(sum)
}

// --- GONUM-BASED IMPLEMENTATIONS ---

var gonumEngine = gonum.Implementation{}

func squaredEuclideanGonum(v1, v2 []float32) (float64, error) {
	n := len(v1)
	if n != len(v2) {
		return 0, ErrLengthMismatch
	}
	if n == 0 {
		return 0, nil
	}

	diffPtr := diffWorkspace.Get().(*[]float32)
	defer diffWorkspace.Put(diffPtr)

	if cap(*diffPtr) < n {
		*diffPtr = make([]float32, n)
	}
	diff := (*diffPtr)[:n]

	copy(diff, v1)
	gonumEngine.Saxpy(n, -1, v2, 1, diff, 1)
	dot := gonumEngine.Sdot(n, diff, 1, diff, 1)
	return float64(dot), nil
}

func dotGonum(v1, v2 []float32) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	return float64(gonumEngine.Sdot(len(v1), v1, 1, v2, 1)), nil
}

func squaredNormGonum(v []float32) float64 {
	return float64(gonumEngine.Sdot(len(v), v, 1, v, 1))
}
