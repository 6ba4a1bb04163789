package telemetry

import (
	"fmt"
	"math/bits"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-rack/dsp/spectrum"
	"github.com/cwbudde/algo-rack/dsp/window"
)

// AnalyzerConfig configures an [Analyzer].
type AnalyzerConfig struct {
	SampleRate float64
	// FFTSize is the spectrum length in samples, a power of two.
	FFTSize int
	// Window is applied to each FFT frame.
	Window window.Type
	// History is the number of level readings kept.
	History int
	// ToneHz enables the tone tracker when positive.
	ToneHz float64
}

// DefaultAnalyzerConfig returns a 2048-point Hann spectrum at 44.1 kHz with
// 256 level readings and no tone tracker.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		SampleRate: 44100,
		FFTSize:    2048,
		Window:     window.TypeHann,
		History:    256,
	}
}

// Level is one reading of the level history.
type Level struct {
	Seq     uint64
	Input   float64
	Output  float64
	Warning bool
}

// Analyzer accumulates frames popped from a [Ring]. It is not safe for
// concurrent use; run it on the consumer goroutine.
type Analyzer struct {
	cfg  AnalyzerConfig
	plan *algofft.Plan[complex128]
	win  []float64
	gain float64

	acc    []float64
	fill   int
	in     []complex128
	out    []complex128
	re, im []float64
	mag    []float64
	frames uint64

	history []Level
	next    int
	count   int

	warnings uint64
	tone     *spectrum.Goertzel
	toneAmp  float64
}

// NewAnalyzer validates cfg and plans the FFT.
func NewAnalyzer(cfg AnalyzerConfig) (*Analyzer, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("analyzer sample rate must be positive: %f", cfg.SampleRate)
	}
	if cfg.FFTSize < 4 || bits.OnesCount(uint(cfg.FFTSize)) != 1 {
		return nil, fmt.Errorf("analyzer fft size must be a power of two >= 4: %d", cfg.FFTSize)
	}
	if cfg.History <= 0 {
		return nil, fmt.Errorf("analyzer history must be > 0: %d", cfg.History)
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("analyzer: plan fft: %w", err)
	}

	win := window.Generate(cfg.Window, cfg.FFTSize, window.WithPeriodic())
	gain, err := window.CoherentGain(win)
	if err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}

	half := cfg.FFTSize/2 + 1
	a := &Analyzer{
		cfg:     cfg,
		plan:    plan,
		win:     win,
		gain:    gain,
		acc:     make([]float64, cfg.FFTSize),
		in:      make([]complex128, cfg.FFTSize),
		out:     make([]complex128, cfg.FFTSize),
		re:      make([]float64, half),
		im:      make([]float64, half),
		mag:     make([]float64, half),
		history: make([]Level, cfg.History),
	}

	if cfg.ToneHz > 0 {
		a.tone, err = spectrum.NewGoertzel(cfg.ToneHz, cfg.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("analyzer: %w", err)
		}
	}

	return a, nil
}

// Feed adds one frame. The two channels are summed to mono for the
// spectrum and tone tracker.
func (a *Analyzer) Feed(f *Frame) error {
	a.history[a.next] = Level{
		Seq:     f.Seq,
		Input:   f.Metrics.InputLevel,
		Output:  f.Metrics.OutputLevel,
		Warning: f.Metrics.Warning,
	}
	a.next = (a.next + 1) % len(a.history)
	a.count = min(a.count+1, len(a.history))
	if f.Metrics.Warning {
		a.warnings++
	}

	for i := 0; i+1 < len(f.Block); i += 2 {
		a.acc[a.fill] = 0.5 * (f.Block[i] + f.Block[i+1])
		a.fill++
		if a.fill == len(a.acc) {
			if err := a.analyze(); err != nil {
				return err
			}
			a.fill = 0
		}
	}
	return nil
}

func (a *Analyzer) analyze() error {
	if a.tone != nil {
		a.tone.Reset()
		a.tone.ProcessBlock(a.acc)
		a.toneAmp = a.tone.Amplitude()
	}

	if err := window.ApplyCoefficientsInPlace(a.acc, a.win); err != nil {
		return err
	}
	for i, v := range a.acc {
		a.in[i] = complex(v, 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return fmt.Errorf("analyzer: fft: %w", err)
	}

	spectrum.Split(a.out[:len(a.re)], a.re, a.im)
	spectrum.MagnitudeFromParts(a.mag, a.re, a.im)

	// Scale so a bin-centred sine of amplitude A reads A.
	scale := 2 / (float64(len(a.acc)) * a.gain)
	for i := range a.mag {
		a.mag[i] *= scale
	}
	a.mag[0] /= 2

	a.frames++
	return nil
}

// Drain pops every queued frame from r into the analyzer and returns the
// number consumed.
func (a *Analyzer) Drain(r *Ring, scratch *Frame) (int, error) {
	n := 0
	for r.Pop(scratch) {
		if err := a.Feed(scratch); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Spectra returns the number of completed spectra.
func (a *Analyzer) Spectra() uint64 { return a.frames }

// Spectrum returns the latest amplitude spectrum, FFTSize/2+1 bins. The
// slice is overwritten by later frames.
func (a *Analyzer) Spectrum() []float64 { return a.mag }

// Peak returns the frequency and amplitude of the strongest non-DC bin of
// the latest spectrum.
func (a *Analyzer) Peak() (hz, amp float64) {
	k, frac, err := spectrum.PeakBin(a.mag)
	if err != nil || a.frames == 0 {
		return 0, 0
	}
	return spectrum.BinFrequency(frac, a.cfg.FFTSize, a.cfg.SampleRate), a.mag[k]
}

// Tone returns the amplitude measured at ToneHz over the latest FFT frame,
// or zero when the tracker is disabled.
func (a *Analyzer) Tone() float64 { return a.toneAmp }

// Levels returns the level history, oldest first.
func (a *Analyzer) Levels() []Level {
	out := make([]Level, 0, a.count)
	start := (a.next - a.count + len(a.history)) % len(a.history)
	for i := range a.count {
		out = append(out, a.history[(start+i)%len(a.history)])
	}
	return out
}

// Warnings returns the number of frames fed with the deadline warning set.
func (a *Analyzer) Warnings() uint64 { return a.warnings }
