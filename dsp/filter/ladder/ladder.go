package ladder

import (
	"fmt"
	"math"
)

const (
	// MinCutoffHz is the lowest accepted cutoff.
	MinCutoffHz = 1.0
	// MaxResonance is the highest accepted resonance; the filter
	// self-oscillates close to it.
	MaxResonance = 4.0
	// MinDrive and MaxDrive bound the input drive.
	MinDrive = 0.1
	MaxDrive = 24.0

	thermalVoltage = 5.0
	stateLimit     = 32.0
)

// Filter is a mono ladder low-pass.
type Filter struct {
	sampleRate float64
	cutoffHz   float64
	resonance  float64
	drive      float64

	coefficient float64
	feedback    float64
	shape       float64
	outputScale float64

	stage    [4]float64
	tanhLast [4]float64
	prevOut  float64
}

// New returns a filter with the given sample rate, cutoff and resonance at
// unity drive.
func New(sampleRate, cutoffHz, resonance float64) (*Filter, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("ladder: sample rate must be > 0 and finite: %f", sampleRate)
	}
	if err := validateRange(resonance, 0, MaxResonance, "resonance"); err != nil {
		return nil, err
	}

	f := &Filter{sampleRate: sampleRate, resonance: resonance, drive: 1}
	if err := f.SetCutoffHz(cutoffHz); err != nil {
		return nil, err
	}
	return f, nil
}

// SampleRate returns the sample rate in Hz.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// CutoffHz returns the cutoff in Hz.
func (f *Filter) CutoffHz() float64 { return f.cutoffHz }

// Resonance returns the resonance in [0, MaxResonance].
func (f *Filter) Resonance() float64 { return f.resonance }

// Drive returns the input drive.
func (f *Filter) Drive() float64 { return f.drive }

// SetCutoffHz sets the cutoff. It must lie in [MinCutoffHz, Nyquist).
func (f *Filter) SetCutoffHz(cutoffHz float64) error {
	if err := validateRange(cutoffHz, MinCutoffHz, math.Inf(1), "cutoff"); err != nil {
		return err
	}
	if nyquist := 0.5 * f.sampleRate; cutoffHz >= nyquist {
		return fmt.Errorf("ladder: cutoff must be < Nyquist (%f Hz): %f", nyquist, cutoffHz)
	}
	f.cutoffHz = cutoffHz
	f.update()
	return nil
}

// SetResonance sets the resonance in [0, MaxResonance].
func (f *Filter) SetResonance(resonance float64) error {
	if err := validateRange(resonance, 0, MaxResonance, "resonance"); err != nil {
		return err
	}
	f.resonance = resonance
	f.update()
	return nil
}

// SetDrive sets the input drive in [MinDrive, MaxDrive].
func (f *Filter) SetDrive(drive float64) error {
	if err := validateRange(drive, MinDrive, MaxDrive, "drive"); err != nil {
		return err
	}
	f.drive = drive
	f.update()
	return nil
}

// Reset clears the ladder state.
func (f *Filter) Reset() {
	f.stage = [4]float64{}
	f.tanhLast = [4]float64{}
	f.prevOut = 0
}

// ProcessSample filters one sample. Non-finite input is treated as silence.
func (f *Filter) ProcessSample(input float64) float64 {
	if !isFinite(input) {
		input = 0
	}

	fb := 0.5 * (f.stage[3] + f.prevOut)
	x := math.Tanh(f.shape * (input - f.feedback*fb))

	g := f.coefficient
	for i := range f.stage {
		t := math.Tanh(f.shape * f.stage[i])
		f.stage[i] = clipState(f.stage[i] + g*(x-t))
		x = math.Tanh(f.shape * f.stage[i])
		f.tanhLast[i] = x
	}
	f.prevOut = f.stage[3]

	out := f.outputScale * f.stage[3]
	if !isFinite(out) {
		return 0
	}
	return out
}

// ProcessStrided filters every stride-th sample of buf in place, starting
// at index 0. A stride of 2 filters one channel of an interleaved stereo
// block.
func (f *Filter) ProcessStrided(buf []float64, stride int) {
	for i := 0; i < len(buf); i += stride {
		buf[i] = f.ProcessSample(buf[i])
	}
}

func (f *Filter) update() {
	fc := f.cutoffHz / f.sampleRate

	tune := max(1.8730*fc*fc*fc+0.4955*fc*fc-0.6490*fc+0.9988, 0)
	f.coefficient = 2 * thermalVoltage * (1 - math.Exp(-2*math.Pi*tune*fc))

	comp := max(-3.9364*fc*fc+1.8409*fc+0.9968, 0)
	f.feedback = f.resonance * comp

	f.shape = 0.5 * f.drive / thermalVoltage

	// Feedback lowers the passband gain to 1/(1+k).
	f.outputScale = 1 + f.feedback
}

func validateRange(value, lo, hi float64, name string) error {
	if !isFinite(value) {
		return fmt.Errorf("ladder: %s must be finite: %v", name, value)
	}
	if value < lo || value > hi {
		return fmt.Errorf("ladder: %s must be in [%g, %g]: %f", name, lo, hi, value)
	}
	return nil
}

func clipState(v float64) float64 {
	return max(-stateLimit, min(stateLimit, v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
