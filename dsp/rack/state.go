package rack

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effects/dynamics"
	"github.com/cwbudde/algo-rack/dsp/filter/dcblock"
	"github.com/cwbudde/algo-rack/dsp/meter"
)

// State is everything the pipeline carries from one block to the next. It
// belongs to the audio goroutine.
type State struct {
	dc   *dcblock.Blocker
	gate *dynamics.NoiseGate

	peakIn    meter.Follower
	peakLeft  meter.Follower
	peakRight meter.Follower
	peakOut   meter.Follower

	lastEdge dynamics.Transition
}

// NewState builds the per-engine state for cfg. The gate starts closed and
// all peak trackers start at zero.
func NewState(cfg core.ProcessorConfig, gateOpts ...dynamics.NoiseGateOption) (*State, error) {
	dc, err := dcblock.New(cfg.SampleRate, dcblock.DefaultCutoffHz)
	if err != nil {
		return nil, fmt.Errorf("rack: input conditioner: %w", err)
	}

	gate, err := dynamics.NewNoiseGate(cfg.BlockSize, gateOpts...)
	if err != nil {
		return nil, fmt.Errorf("rack: noise gate: %w", err)
	}

	return &State{
		dc:        dc,
		gate:      gate,
		peakIn:    meter.NewFollower(meter.InputSmoothing),
		peakLeft:  meter.NewFollower(meter.InputSmoothing),
		peakRight: meter.NewFollower(meter.InputSmoothing),
		peakOut:   meter.NewFollower(meter.OutputSmoothing),
	}, nil
}

// Gate returns the noise gate.
func (s *State) Gate() *dynamics.NoiseGate { return s.gate }

// LastEdge returns what the gate did to the most recent block.
func (s *State) LastEdge() dynamics.Transition { return s.lastEdge }

// Peaks returns the smoothed input trackers and the output tracker.
func (s *State) Peaks() (in, left, right, out float64) {
	return s.peakIn.Peak(), s.peakLeft.Peak(), s.peakRight.Peak(), s.peakOut.Peak()
}

// conditionInput removes DC from buf and advances the input trackers.
func (s *State) conditionInput(buf []float64) (overall, left, right float64) {
	maxLeft, maxRight := s.dc.ProcessStereo(buf)
	maxOverall := math.Max(maxLeft, maxRight)

	return s.peakIn.Update(maxOverall), s.peakLeft.Update(maxLeft), s.peakRight.Update(maxRight)
}

// applyGate gates buf and returns the input level to report, or zero when
// the gate is closed.
func (s *State) applyGate(buf []float64, overall, left, right float64) float64 {
	s.lastEdge = s.gate.Process(buf, overall, left, right)
	if !s.gate.IsOpen() {
		return 0
	}
	return meter.Level(overall)
}

// conditionOutput soft clips the selected channels and returns the output
// level taken from the first frame.
func (s *State) conditionOutput(buf []float64, softClip [2]bool) float64 {
	for ch, on := range softClip {
		if on {
			dynamics.SoftClipChannel(buf, ch)
		}
	}

	if len(buf) < 2 {
		return 0
	}
	first := 0.5 * (math.Abs(buf[0]) + math.Abs(buf[1]))

	return meter.Level(s.peakOut.Update(first))
}

// Reset returns the state to its start-up values.
func (s *State) Reset() {
	s.dc.Reset()
	s.peakIn.Reset()
	s.peakLeft.Reset()
	s.peakRight.Reset()
	s.peakOut.Reset()
	s.lastEdge = dynamics.Held
	s.gate.Reset()
}
