package dcblock

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// DefaultCutoffHz is the corner frequency used by the input conditioner.
const DefaultCutoffHz = 3.7

const (
	minPole = 0.9
	maxPole = 0.99999
)

// Blocker is a two-channel DC blocker operating on interleaved blocks.
//
// It is owned by the audio goroutine and is not safe for concurrent use.
type Blocker struct {
	pole float64
	x1   [2]float64
	y1   [2]float64
}

// New returns a Blocker for the given sample rate and cutoff frequency.
func New(sampleRate, cutoffHz float64) (*Blocker, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("dcblock sample rate must be positive and finite: %f", sampleRate)
	}
	if cutoffHz <= 0 || cutoffHz >= sampleRate/2 || !core.IsFinite(cutoffHz) {
		return nil, fmt.Errorf("dcblock cutoff must be in (0, %f): %f", sampleRate/2, cutoffHz)
	}

	pole := core.Clamp(1-2*math.Pi*cutoffHz/sampleRate, minPole, maxPole)

	return &Blocker{pole: pole}, nil
}

// Pole returns the feedback coefficient R.
func (b *Blocker) Pole() float64 {
	return b.pole
}

// ProcessSample filters one sample of channel ch (0 or 1).
func (b *Blocker) ProcessSample(ch int, x float64) float64 {
	y := x - b.x1[ch] + b.pole*b.y1[ch]
	b.x1[ch] = x
	b.y1[ch] = core.FlushDenormals(y)
	return y
}

// ProcessStereo filters an interleaved stereo block in place and returns
// the absolute peak of each filtered channel.
func (b *Blocker) ProcessStereo(buf []float64) (peakLeft, peakRight float64) {
	for i := 0; i+1 < len(buf); i += 2 {
		l := b.ProcessSample(0, buf[i])
		r := b.ProcessSample(1, buf[i+1])
		buf[i] = l
		buf[i+1] = r

		if a := math.Abs(l); a > peakLeft {
			peakLeft = a
		}
		if a := math.Abs(r); a > peakRight {
			peakRight = a
		}
	}
	return peakLeft, peakRight
}

// Reset clears the filter memory of both channels.
func (b *Blocker) Reset() {
	b.x1 = [2]float64{}
	b.y1 = [2]float64{}
}
