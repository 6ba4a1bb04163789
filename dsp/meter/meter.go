// Package meter provides the peak followers and the byte-scaled level
// encoding used for the front-panel input and output meters.
package meter

import (
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// Smoothing coefficients of the block-rate peak followers.
const (
	InputSmoothing  = 0.95
	OutputSmoothing = 0.9
)

// Level scale: 255 at 0 dBV, 3.2 steps per dB.
const (
	levelFullScale = 255.0
	levelPerDB     = 3.2
)

// Follower is a block-rate exponential peak tracker:
//
//	peak = k*peak + (1-k)*max
//
// It starts at zero and carries its value across blocks.
type Follower struct {
	k    float64
	peak float64
}

// NewFollower returns a Follower with smoothing coefficient k in [0, 1).
func NewFollower(k float64) Follower {
	return Follower{k: core.Clamp(k, 0, 0.999999)}
}

// Update feeds the maximum of the current block and returns the new peak.
func (f *Follower) Update(max float64) float64 {
	f.peak = core.FlushDenormals(f.k*f.peak + (1-f.k)*max)
	return f.peak
}

// Peak returns the current tracked value.
func (f *Follower) Peak() float64 {
	return f.peak
}

// Reset sets the tracked value to zero.
func (f *Follower) Reset() {
	f.peak = 0
}

// Level converts a linear amplitude to the meter scale
// 255 + 3.2*20*log10(x), clamped at 0 from below.
func Level(x float64) float64 {
	if x <= 0 || math.IsNaN(x) {
		return 0
	}

	v := levelFullScale + levelPerDB*core.LinearToDB(x)
	if v < 0 {
		return 0
	}
	return v
}
