package store

import "testing"

func TestVectorEncodeDecode(t *testing.T) {
	in := []float32{0.25, -1.5, 0, 3.14159}
	out, err := DecodeVector(EncodeVector(in))
	if err != nil {
		t.Fatalf("DecodeVector: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("element %d: %f != %f", i, in[i], out[i])
		}
	}
}

func TestDecodeVectorBadLength(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for truncated blob")
	}
}
