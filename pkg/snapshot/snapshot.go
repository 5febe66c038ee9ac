// Package snapshot defines the serializable state of a layout run:
// positions, learned edges, resolution settings and cluster maps, plus the
// embedding vectors quantized to half precision. A cache writer outside
// this core persists snapshots and feeds them back in as the initial seed
// for a later run, skipping re-optimization.
package snapshot

import (
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/x448/float16"

	"github.com/fronx/semantic-navigator/pkg/graph"
)

// Snapshot is the complete gob-serializable state of one layout.
type Snapshot struct {
	ID        string
	CreatedAt time.Time

	// NodeIDs[i] is the external ID of node index i; Positions is the flat
	// 2N coordinate array in the same index space.
	NodeIDs   []string
	Positions []float64
	Edges     []graph.Edge

	// Resolutions are the community-detection resolution settings the
	// assignments were computed at; Assignments[level][nodeID] is the
	// community ID at that level.
	Resolutions []float64
	Assignments []map[string]int
	Hubs        []map[int]string

	// Embeddings are stored as float16 bit patterns to halve the cache
	// footprint; EmbeddingDims is the per-vector dimension.
	EmbeddingDims int
	Embeddings    [][]uint16
}

// New creates an empty snapshot with a fresh identity.
func New() *Snapshot {
	return &Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// SetEmbeddings quantizes and stores the given vectors.
func (s *Snapshot) SetEmbeddings(vectors [][]float32) {
	s.Embeddings = make([][]uint16, len(vectors))
	s.EmbeddingDims = 0
	for i, v := range vectors {
		if len(v) > s.EmbeddingDims {
			s.EmbeddingDims = len(v)
		}
		s.Embeddings[i] = Quantize(v)
	}
}

// EmbeddingVectors dequantizes the stored vectors back to float32.
func (s *Snapshot) EmbeddingVectors() [][]float32 {
	out := make([][]float32, len(s.Embeddings))
	for i, q := range s.Embeddings {
		out[i] = Dequantize(q)
	}
	return out
}

// Encode writes the snapshot in gob format.
func (s *Snapshot) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("failed to encode layout snapshot: %w", err)
	}
	return nil
}

// Decode reads a gob snapshot.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode layout snapshot: %w", err)
	}
	return &s, nil
}

// Quantize converts a float32 vector to float16 bit patterns.
func Quantize(v []float32) []uint16 {
	out := make([]uint16, len(v))
	for i, x := range v {
		out[i] = float16.Fromfloat32(x).Bits()
	}
	return out
}

// Dequantize converts float16 bit patterns back to float32.
func Dequantize(q []uint16) []float32 {
	out := make([]float32, len(q))
	for i, bits := range q {
		out[i] = float16.Frombits(bits).Float32()
	}
	return out
}
