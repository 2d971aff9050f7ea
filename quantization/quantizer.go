// Package quantization provides vector quantization for memory-efficient
// artifact storage.
package quantization

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/shelfann/shelfann/internal/math32"
)

// MaxCode is the largest absolute quantized value. Codes always lie in
// [-MaxCode, MaxCode].
const MaxCode = 127

// ScaleFloor is the minimum quantization scale. Degenerate all-zero input
// trains to this floor instead of producing a zero divisor.
const ScaleFloor = 1e-8

// SymmetricQuantizer implements signed 8-bit scalar quantization with a
// single shared scale, such that original ≈ code * scale.
//
// It compresses float32 vectors (4 bytes/dim) to int8 (1 byte/dim) for 4x
// memory savings. One scale across the whole batch keeps decode trivial;
// the precision loss is acceptable because inputs are unit-normalized, so
// component magnitudes are bounded and comparable.
type SymmetricQuantizer struct {
	scale float32
}

// NewSymmetricQuantizer creates a new untrained quantizer with scale 1.
func NewSymmetricQuantizer() *SymmetricQuantizer {
	return &SymmetricQuantizer{scale: 1}
}

// Train calibrates the shared scale from the largest absolute component
// across all vectors. Training never fails: an empty or all-zero batch
// yields the ScaleFloor scale.
func (sq *SymmetricQuantizer) Train(vectors [][]float32) error {
	var maxAbs float32
	for _, vec := range vectors {
		if m := math32.MaxAbs(vec); m > maxAbs {
			maxAbs = m
		}
	}

	sq.scale = maxAbs / MaxCode
	if sq.scale < ScaleFloor {
		sq.scale = ScaleFloor
	}

	return nil
}

// Scale returns the shared quantization scale.
func (sq *SymmetricQuantizer) Scale() float32 {
	return sq.scale
}

// Encode quantizes a float32 vector to int8 codes.
// Rounding is half-to-even; values outside the trained range clamp to
// [-MaxCode, MaxCode].
func (sq *SymmetricQuantizer) Encode(v []float32) []int8 {
	codes := make([]int8, len(v))
	for i, val := range v {
		q := math.RoundToEven(float64(val) / float64(sq.scale))
		if q > MaxCode {
			q = MaxCode
		} else if q < -MaxCode {
			q = -MaxCode
		}
		codes[i] = int8(q)
	}

	return codes
}

// Decode reconstructs an approximate float32 vector from int8 codes.
func (sq *SymmetricQuantizer) Decode(codes []int8) []float32 {
	decoded := make([]float32, len(codes))
	for i, c := range codes {
		decoded[i] = float32(c) * sq.scale
	}

	return decoded
}

// BytesPerDimension returns 1 (int8 storage).
func (sq *SymmetricQuantizer) BytesPerDimension() int {
	return 1
}

// CompressionRatio returns the memory compression ratio (always 4.0 for
// 8-bit quantization).
func (sq *SymmetricQuantizer) CompressionRatio() float64 {
	return 4.0
}

// MarshalBinary implements encoding.BinaryMarshaler.
// Format (little-endian): [scale:float32]
func (sq *SymmetricQuantizer) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(sq.scale))
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (sq *SymmetricQuantizer) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return errors.New("invalid symmetric quantizer binary length")
	}
	sq.scale = math.Float32frombits(binary.LittleEndian.Uint32(data))
	return nil
}

// QuantizeBatch trains a quantizer on vectors and encodes every vector.
// It also records each vector's pre-quantization Euclidean norm at full
// precision, for exact-similarity fallback at query time.
func QuantizeBatch(vectors [][]float32) (codes [][]int8, norms []float32, scale float32) {
	sq := NewSymmetricQuantizer()
	_ = sq.Train(vectors)

	codes = make([][]int8, len(vectors))
	norms = make([]float32, len(vectors))
	for i, vec := range vectors {
		codes[i] = sq.Encode(vec)
		norms[i] = math32.Norm(vec)
	}

	return codes, norms, sq.Scale()
}
