// Package artifact implements the fixed on-device ANN binary format.
package artifact

import (
	"errors"
	"fmt"

	"github.com/shelfann/shelfann/knn"
	"github.com/shelfann/shelfann/quantization"
)

const (
	// Magic identifies artifact files. The name is historical: the
	// container is HNSW-compatible, but the graph inside is an exact
	// brute-force kNN neighbor list, not a multi-layer structure.
	// Consumers must not assume sublinear query time.
	Magic = "HNSWANN1"

	// Version is the current artifact format version.
	Version = 1

	// HeaderSize is the fixed byte length of the artifact header.
	HeaderSize = 36
)

var (
	// ErrCorrupt indicates a structurally invalid artifact. Decoding is
	// all-or-nothing: a corrupt artifact is never partially decoded.
	ErrCorrupt = errors.New("corrupt artifact")

	// ErrInvalidMagic indicates an unknown file signature.
	ErrInvalidMagic = errors.New("invalid magic")

	// ErrInvalidVersion indicates an unsupported format version.
	ErrInvalidVersion = errors.New("unsupported version")

	// ErrShape indicates inconsistent in-memory dimensions at encode time.
	ErrShape = errors.New("inconsistent artifact shape")
)

// Artifact is the in-memory form of an encoded index: quantized vectors,
// full-precision norms, and the per-node neighbor lists.
//
// An Artifact is immutable once written; it is identified externally by
// the SHA-256 checksum of its encoded bytes.
type Artifact struct {
	// Dim is the vector dimensionality.
	Dim int

	// M is the neighbor list length per node.
	M int

	// EntryNode is the suggested entry point for graph traversal
	// (informational).
	EntryNode int

	// EFSearch is the suggested query-time beam width (informational).
	EFSearch int

	// Scale is the shared quantization scale: original ≈ code * Scale.
	Scale float32

	// Codes holds one quantized vector per node, each of length Dim.
	Codes [][]int8

	// Norms holds each node's pre-quantization Euclidean norm.
	Norms []float32

	// Neighbors holds one neighbor list per node, each of length M,
	// descending by similarity, knn.Empty for unfilled slots.
	Neighbors [][]int32
}

// NodeCount returns the number of nodes in the artifact.
func (a *Artifact) NodeCount() int {
	return len(a.Codes)
}

// EncodedSize returns the exact byte length of the encoded artifact.
func (a *Artifact) EncodedSize() int {
	n := a.NodeCount()
	return HeaderSize + n*a.Dim + n*4 + n*a.M*4
}

// validate checks that the in-memory shape is internally consistent
// before encoding.
func (a *Artifact) validate() error {
	if a.Dim < 0 || a.M < 0 {
		return fmt.Errorf("%w: negative dimensions", ErrShape)
	}
	if len(a.Norms) != len(a.Codes) || len(a.Neighbors) != len(a.Codes) {
		return fmt.Errorf("%w: %d codes, %d norms, %d neighbor lists",
			ErrShape, len(a.Codes), len(a.Norms), len(a.Neighbors))
	}
	for i, c := range a.Codes {
		if len(c) != a.Dim {
			return fmt.Errorf("%w: codes[%d] has %d dims, want %d", ErrShape, i, len(c), a.Dim)
		}
	}
	for i, nb := range a.Neighbors {
		if len(nb) != a.M {
			return fmt.Errorf("%w: neighbors[%d] has %d slots, want %d", ErrShape, i, len(nb), a.M)
		}
	}
	return nil
}

// FromVectors quantizes the given L2-normalized vectors and pairs them
// with the prebuilt neighbor lists to form an artifact.
func FromVectors(vectors [][]float32, neighbors [][]int32, entryNode, efSearch int) (*Artifact, error) {
	if len(vectors) != len(neighbors) {
		return nil, fmt.Errorf("%w: %d vectors, %d neighbor lists", ErrShape, len(vectors), len(neighbors))
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	m := 0
	if len(neighbors) > 0 {
		m = len(neighbors[0])
	}

	codes, norms, scale := quantization.QuantizeBatch(vectors)

	a := &Artifact{
		Dim:       dim,
		M:         m,
		EntryNode: entryNode,
		EFSearch:  efSearch,
		Scale:     scale,
		Codes:     codes,
		Norms:     norms,
		Neighbors: neighbors,
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// DecodeVector reconstructs the approximate float32 vector for node i.
func (a *Artifact) DecodeVector(i int) []float32 {
	v := make([]float32, a.Dim)
	for j, c := range a.Codes[i] {
		v[j] = float32(c) * a.Scale
	}
	return v
}

// NeighborsOf returns the filled neighbor indices of node i, descending
// by similarity.
func (a *Artifact) NeighborsOf(i int) []int32 {
	row := a.Neighbors[i]
	out := make([]int32, 0, len(row))
	for _, idx := range row {
		if idx == knn.Empty {
			break
		}
		out = append(out, idx)
	}
	return out
}
