package distance

import (
	"math"
	"testing"
)

// Helper for tolerance comparison
func floatsAreEqual(a, b float64) bool {
	const tolerance = 1e-6
	return math.Abs(a-b) < tolerance
}

func TestSquaredEuclidean(t *testing.T) {
	v1, v2 := []float32{1, 2}, []float32{3, 4}
	expected := 8.0 // (3-1)^2 + (4-2)^2 = 4 + 4 = 8
	dist, err := SquaredEuclidean(v1, v2)
	if err != nil {
		t.Fatal(err)
	}
	if !floatsAreEqual(dist, expected) {
		t.Errorf("got %f, want %f", dist, expected)
	}
}

func TestSquaredEuclideanImplementationsAgree(t *testing.T) {
	// The dispatched implementation must match the pure Go reference,
	// regardless of which one init() picked.
	v1 := []float32{0.5, -1.25, 3, 0, 2.75, -0.5, 1, 1}
	v2 := []float32{1.5, 0.25, -3, 4, 2.75, 0.5, -1, 2}

	ref, _ := squaredEuclideanGo(v1, v2)
	gnm, _ := squaredEuclideanGonum(v1, v2)
	if !floatsAreEqual(ref, gnm) {
		t.Errorf("gonum %f disagrees with reference %f", gnm, ref)
	}
}

func TestCosineSimilarity(t *testing.T) {
	v1 := []float32{1, 2, 3}
	v2 := []float32{1, 2, 3}
	sim, err := CosineSimilarity(v1, v2)
	if err != nil {
		t.Fatal(err)
	}
	if !floatsAreEqual(sim, 1.0) {
		t.Errorf("identical vectors: got %f, want 1.0", sim)
	}

	// Orthogonal vectors
	sim, _ = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if !floatsAreEqual(sim, 0.0) {
		t.Errorf("orthogonal vectors: got %f, want 0.0", sim)
	}

	// Zero vector must not divide by zero
	sim, _ = CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	if sim != 0 {
		t.Errorf("zero vector: got %f, want 0", sim)
	}
}

func TestLengthMismatch(t *testing.T) {
	if _, err := SquaredEuclidean([]float32{1}, []float32{1, 2}); err == nil {
		t.Error("SquaredEuclidean accepted mismatched lengths")
	}
	if _, err := Dot([]float32{1}, []float32{1, 2}); err == nil {
		t.Error("Dot accepted mismatched lengths")
	}
}

func TestForMetric(t *testing.T) {
	v1 := []float32{1, 0}
	v2 := []float32{0, 1}

	d, err := ForMetric(Cosine)(v1, v2)
	if err != nil {
		t.Fatal(err)
	}
	if !floatsAreEqual(d, 1.0) {
		t.Errorf("cosine distance of orthogonal vectors: got %f, want 1.0", d)
	}

	d, _ = ForMetric(Euclidean)(v1, v2)
	if !floatsAreEqual(d, 2.0) {
		t.Errorf("squared euclidean: got %f, want 2.0", d)
	}
}
