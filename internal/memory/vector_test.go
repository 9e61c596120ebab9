package memory

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestFloat32SliceToBlob_LittleEndian(t *testing.T) {
	blob := float32SliceToBlob([]float32{1.0, 2.0, 3.0})
	if len(blob) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(blob))
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(blob[4:8])); v != 2.0 {
		t.Errorf("second float: got %f, want 2.0", v)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	tests := map[string][]float32{
		"empty":   nil,
		"simple":  {1.5, -2.5, 3.14},
		"extreme": {0.0, -1.0, 1e-10, 1e10, math.MaxFloat32},
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			out := BlobToFloat32Slice(float32SliceToBlob(input))
			if len(out) != len(input) {
				t.Fatalf("length: got %d, want %d", len(out), len(input))
			}
			for i := range input {
				if out[i] != input[i] {
					t.Errorf("index %d: got %f, want %f", i, out[i], input[i])
				}
			}
		})
	}
}

func TestVectorMatch_Similarity(t *testing.T) {
	if s := (VectorMatch{Distance: 0}).Similarity(); s != 1 {
		t.Errorf("zero distance: got %f, want 1", s)
	}
	if s := (VectorMatch{Distance: 1}).Similarity(); s != 0.5 {
		t.Errorf("unit distance: got %f, want 0.5", s)
	}
	near := VectorMatch{Distance: 0.2}.Similarity()
	far := VectorMatch{Distance: 3}.Similarity()
	if near <= far {
		t.Errorf("closer match should score higher: %f <= %f", near, far)
	}
}

func TestVectorStore_DisabledIsNoop(t *testing.T) {
	var v *VectorStore
	if v.Enabled() {
		t.Error("nil vector store should report disabled")
	}
}
