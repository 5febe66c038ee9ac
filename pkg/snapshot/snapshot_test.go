package snapshot

import (
	"bytes"
	"math"
	"testing"

	"github.com/fronx/semantic-navigator/pkg/graph"
)

func TestRoundTrip(t *testing.T) {
	s := New()
	if s.ID == "" {
		t.Fatal("snapshot has no identity")
	}
	s.NodeIDs = []string{"kw:alpha", "kw:beta"}
	s.Positions = []float64{1, 2, 3, 4}
	s.Edges = []graph.Edge{{Source: 0, Target: 1, Weight: 0.5, RestLength: 12.5}}
	s.Resolutions = []float64{0.5, 1.0}
	s.Assignments = []map[string]int{{"kw:alpha": 0, "kw:beta": 0}}
	s.SetEmbeddings([][]float32{{0.25, -1.5}, {3.0, 0.125}})

	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if got.ID != s.ID || len(got.Positions) != 4 || len(got.Edges) != 1 {
		t.Errorf("round trip mangled snapshot: %+v", got)
	}
	if got.Edges[0].RestLength != 12.5 {
		t.Errorf("rest length lost: %f", got.Edges[0].RestLength)
	}

	vectors := got.EmbeddingVectors()
	// These values are exactly representable in float16.
	want := [][]float32{{0.25, -1.5}, {3.0, 0.125}}
	for i := range want {
		for d := range want[i] {
			if vectors[i][d] != want[i][d] {
				t.Errorf("embedding[%d][%d] = %f, want %f", i, d, vectors[i][d], want[i][d])
			}
		}
	}
}

func TestQuantizeLossBounded(t *testing.T) {
	v := []float32{0.123456, -0.98765, 1.41421}
	back := Dequantize(Quantize(v))
	for i := range v {
		if math.Abs(float64(back[i]-v[i])) > 1e-3 {
			t.Errorf("quantization error too large at %d: %f vs %f", i, back[i], v[i])
		}
	}
}
