package dynamics

import (
	"math"
	"testing"
)

func TestSoftClip(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{0.5, 1.5 * (0.5 - 0.125/3)},
		{-0.5, -1.5 * (0.5 - 0.125/3)},
		{1, 1},
		{-1, -1},
		{3, 1},
		{-7, -1},
	}

	for _, tt := range tests {
		if got := SoftClip(tt.in); math.Abs(got-tt.want) > 1e-15 {
			t.Fatalf("SoftClip(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSoftClipContinuousAtRails(t *testing.T) {
	below := SoftClip(math.Nextafter(1, 0))
	if math.Abs(below-1) > 1e-12 {
		t.Fatalf("SoftClip just below 1 = %v, want about 1", below)
	}
}

func TestSoftClipChannel(t *testing.T) {
	buf := []float64{2, 2, -2, -2, 0.5, 0.5}
	SoftClipChannel(buf, 1)

	want := []float64{2, 1, -2, -1, 0.5, SoftClip(0.5)}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %v, want %v", buf, want)
		}
	}
}
