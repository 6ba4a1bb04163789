package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
	}
}

func TestStereoRoundTrip(t *testing.T) {
	left := []float64{1, 2, 3}
	right := []float64{-1, -2, -3}

	block := Stereo(left, right)
	if len(block) != 6 {
		t.Fatalf("len = %d, want 6", len(block))
	}

	RequireSliceNearlyEqual(t, Channel(block, 0), left, 0)
	RequireSliceNearlyEqual(t, Channel(block, 1), right, 0)
}

func TestSplitBlocks(t *testing.T) {
	signal := StereoDC(1, 2, 10)

	blocks := SplitBlocks(signal, 4)
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	for _, b := range blocks {
		if len(b) != 8 {
			t.Fatalf("block len = %d, want 8", len(b))
		}
	}
}

func TestMaxAbs(t *testing.T) {
	if got := MaxAbs([]float64{0.1, -0.7, 0.3}); got != 0.7 {
		t.Fatalf("MaxAbs = %v, want 0.7", got)
	}
	if got := MaxAbs(nil); got != 0 {
		t.Fatalf("MaxAbs(nil) = %v, want 0", got)
	}
}
