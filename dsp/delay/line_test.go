package delay

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-rack/dsp/interp"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for size=0")
	}

	if _, err := New(-1); err == nil {
		t.Fatal("expected error for size=-1")
	}
}

func TestNewDefaults(t *testing.T) {
	d, err := New(16)
	if err != nil {
		t.Fatal(err)
	}

	if d.Len() != 16 {
		t.Fatalf("Len: got %d want 16", d.Len())
	}

	if d.mode != interp.Hermite {
		t.Fatalf("default mode: got %v want Hermite", d.mode)
	}

	if d.MaxDelay() != 13 {
		t.Fatalf("MaxDelay: got %v want 13", d.MaxDelay())
	}
}

func TestReadWrite(t *testing.T) {
	d, _ := New(8)
	for i := 1; i <= 5; i++ {
		d.Write(float64(i))
	}

	for delay, want := range map[int]float64{1: 5, 2: 4, 5: 1} {
		if got := d.Read(delay); got != want {
			t.Fatalf("Read(%d): got %v want %v", delay, got, want)
		}
	}
}

func TestReadWraparound(t *testing.T) {
	d, _ := New(4)
	for i := 1; i <= 10; i++ {
		d.Write(float64(i))
	}

	if got := d.Read(1); got != 10 {
		t.Fatalf("Read(1): got %v want 10", got)
	}
	if got := d.Read(4); got != 7 {
		t.Fatalf("Read(4): got %v want 7", got)
	}
}

func TestReset(t *testing.T) {
	d, _ := New(8)
	for i := range 8 {
		d.Write(float64(i + 1))
	}

	d.Reset()

	for i := 1; i <= 8; i++ {
		if got := d.Read(i); got != 0 {
			t.Fatalf("Read(%d) after Reset: got %v", i, got)
		}
	}
}

func TestReadFractionalLinearRamp(t *testing.T) {
	for _, mode := range []interp.Mode{interp.Hermite, interp.Linear} {
		d, _ := New(32, WithMode(mode))
		for i := range 32 {
			d.Write(float64(i))
		}

		// The newest sample is 31, so delay k reads 32-k.
		got := d.ReadFractional(4.5)
		if !approxEqual(got, 27.5, 1e-9) {
			t.Fatalf("mode %v: ReadFractional(4.5) got %v want 27.5", mode, got)
		}
	}
}

func TestReadFractionalClamped(t *testing.T) {
	d, _ := New(16)
	for i := range 16 {
		d.Write(float64(i))
	}

	if got, want := d.ReadFractional(-3), d.Read(1); got != want {
		t.Fatalf("negative delay: got %v want %v", got, want)
	}
	if got, want := d.ReadFractional(100), d.ReadFractional(d.MaxDelay()); got != want {
		t.Fatalf("oversized delay: got %v want %v", got, want)
	}
}
