package quantization

import (
	"math"
	"testing"
)

func TestSymmetricQuantizer_Train(t *testing.T) {
	vectors := [][]float32{
		{-1.0, 0.0, 1.0},
		{-0.5, 0.5, 0.25},
	}

	sq := NewSymmetricQuantizer()
	if err := sq.Train(vectors); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	want := float32(1.0) / MaxCode
	if sq.Scale() != want {
		t.Errorf("Expected scale=%g, got %g", want, sq.Scale())
	}
}

func TestSymmetricQuantizer_TrainDegenerate(t *testing.T) {
	sq := NewSymmetricQuantizer()
	if err := sq.Train([][]float32{{0, 0, 0}}); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if sq.Scale() != ScaleFloor {
		t.Errorf("Expected floor scale %g, got %g", float32(ScaleFloor), sq.Scale())
	}

	// Empty input behaves the same: no failure, floor scale.
	sq = NewSymmetricQuantizer()
	if err := sq.Train(nil); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if sq.Scale() != ScaleFloor {
		t.Errorf("Expected floor scale %g, got %g", float32(ScaleFloor), sq.Scale())
	}
}

func TestSymmetricQuantizer_EncodeDecode(t *testing.T) {
	sq := NewSymmetricQuantizer()
	original := []float32{-1.0, -0.5, 0.0, 0.5, 1.0}
	if err := sq.Train([][]float32{original}); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	codes := sq.Encode(original)
	if len(codes) != len(original) {
		t.Fatalf("Expected %d codes, got %d", len(original), len(codes))
	}

	for _, c := range codes {
		if c < -MaxCode || c > MaxCode {
			t.Fatalf("code %d out of range", c)
		}
	}

	decoded := sq.Decode(codes)
	for i := range original {
		err := float32(math.Abs(float64(original[i] - decoded[i])))
		// Round-trip bound: half a quantization step plus float slack.
		if err > sq.Scale()/2+1e-6 {
			t.Errorf("Reconstruction error too large at %d: %g", i, err)
		}
	}
}

func TestSymmetricQuantizer_Clamp(t *testing.T) {
	sq := NewSymmetricQuantizer()
	if err := sq.Train([][]float32{{0.5}}); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	// 2.0 is far outside the trained range and must clamp, not wrap.
	codes := sq.Encode([]float32{2.0, -2.0})
	if codes[0] != MaxCode {
		t.Errorf("Expected %d, got %d", MaxCode, codes[0])
	}
	if codes[1] != -MaxCode {
		t.Errorf("Expected %d, got %d", -MaxCode, codes[1])
	}
}

func TestSymmetricQuantizer_BytesPerDimension(t *testing.T) {
	sq := NewSymmetricQuantizer()
	if sq.BytesPerDimension() != 1 {
		t.Errorf("Expected 1 byte per dimension, got %d", sq.BytesPerDimension())
	}
	if sq.CompressionRatio() != 4.0 {
		t.Errorf("Expected compression ratio 4.0, got %f", sq.CompressionRatio())
	}
}

func TestSymmetricQuantizer_MarshalRoundTrip(t *testing.T) {
	sq := NewSymmetricQuantizer()
	if err := sq.Train([][]float32{{0.25, -0.75}}); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	data, err := sq.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	restored := NewSymmetricQuantizer()
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if restored.Scale() != sq.Scale() {
		t.Errorf("Scale mismatch: %g != %g", restored.Scale(), sq.Scale())
	}

	if err := restored.UnmarshalBinary([]byte{1, 2}); err == nil {
		t.Error("Expected error for short input")
	}
}

func TestQuantizeBatch(t *testing.T) {
	vectors := [][]float32{
		{1, 0},
		{0.6, 0.8},
	}

	codes, norms, scale := QuantizeBatch(vectors)
	if len(codes) != 2 || len(norms) != 2 {
		t.Fatalf("unexpected batch shapes: %d codes, %d norms", len(codes), len(norms))
	}
	if scale != float32(1.0)/MaxCode {
		t.Errorf("unexpected scale %g", scale)
	}

	for i, n := range norms {
		if math.Abs(float64(n)-1.0) > 1e-6 {
			t.Errorf("norm[%d] = %g, want 1.0", i, n)
		}
	}

	// code * scale must approximate the input within half a step.
	for i := range vectors {
		for j := range vectors[i] {
			approx := float32(codes[i][j]) * scale
			if math.Abs(float64(vectors[i][j]-approx)) > float64(scale)/2+1e-6 {
				t.Errorf("round-trip bound violated at [%d][%d]", i, j)
			}
		}
	}
}
