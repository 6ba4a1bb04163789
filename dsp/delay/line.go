package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rack/dsp/interp"
)

// Line is a circular delay line.
type Line struct {
	buffer   []float64
	writePos int
	mode     interp.Mode
}

// Option configures a Line.
type Option func(*Line)

// WithMode selects the interpolator used by [Line.ReadFractional].
func WithMode(m interp.Mode) Option {
	return func(d *Line) {
		d.mode = m
	}
}

// New returns a delay line of fixed size.
func New(size int, opts ...Option) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}
	d := &Line{buffer: make([]float64, size)}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// MaxDelay returns the longest delay ReadFractional can serve.
func (d *Line) MaxDelay() float64 {
	return float64(len(d.buffer) - 3)
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples. Delay 1 is the last written sample.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	readPos := ((d.writePos-delay)%size + size) % size
	return d.buffer[readPos]
}

// ReadFractional reads a fractional delay in samples, clamped to
// [1, MaxDelay].
func (d *Line) ReadFractional(delay float64) float64 {
	delay = max(1, min(delay, d.MaxDelay()))

	p := int(math.Floor(delay))
	t := delay - float64(p)

	if d.mode == interp.Linear {
		return interp.Linear2(t, d.Read(p), d.Read(p+1))
	}

	return interp.Hermite4(t, d.Read(p-1), d.Read(p), d.Read(p+1), d.Read(p+2))
}

// Reset clears line state.
func (d *Line) Reset() {
	clear(d.buffer)
	d.writePos = 0
}
