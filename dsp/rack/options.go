package rack

import (
	"log/slog"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effects/dynamics"
)

// Settings are the engine parameters the control plane may change while
// audio runs. They are published atomically and picked up by the audio
// goroutine at the start of the next block.
type Settings struct {
	GateMode  dynamics.GateMode
	GateOpen  float64
	GateClose float64

	// DaisyChain feeds the processed channel 0 into channel 1.
	DaisyChain bool

	// ToStereo0 and ToStereo1 are the remix selectors, see [Remix].
	ToStereo0 int
	ToStereo1 int

	// SoftClip enables the output soft clipper per channel.
	SoftClip [2]bool
}

// DefaultSettings returns gating on both channels at the default
// thresholds, no daisy chain, no remix and no soft clipping.
func DefaultSettings() Settings {
	return Settings{
		GateMode:  dynamics.GateBoth,
		GateOpen:  dynamics.DefaultGateOpen,
		GateClose: dynamics.DefaultGateClose,
	}
}

type engineConfig struct {
	proc     []core.ProcessorOption
	controls ControlSource
	sink     Sink
	logger   *slog.Logger
	clock    Clock
	settings Settings
	slots    *Slots
}

// Option configures an [Engine].
type Option func(*engineConfig)

// WithSampleRate sets the sample rate in Hz.
func WithSampleRate(sampleRate float64) Option {
	return func(c *engineConfig) {
		c.proc = append(c.proc, core.WithSampleRate(sampleRate))
	}
}

// WithBlockSize sets the number of frames per block.
func WithBlockSize(frames int) Option {
	return func(c *engineConfig) {
		c.proc = append(c.proc, core.WithBlockSize(frames))
	}
}

// WithControlSource sets the supplier of the per-block control snapshot.
// Without one every trigger is low and every CV is zero.
func WithControlSource(src ControlSource) Option {
	return func(c *engineConfig) {
		c.controls = src
	}
}

// WithSink sets the receiver of per-block metrics.
func WithSink(sink Sink) Option {
	return func(c *engineConfig) {
		c.sink = sink
	}
}

// WithLogger sets the logger used for control-plane events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock of the deadline monitor.
func WithClock(clock Clock) Option {
	return func(c *engineConfig) {
		c.clock = clock
	}
}

// WithSettings sets the initial engine settings.
func WithSettings(s Settings) Option {
	return func(c *engineConfig) {
		c.settings = s
	}
}

// WithSlots makes the engine dispatch to an existing registry.
func WithSlots(s *Slots) Option {
	return func(c *engineConfig) {
		c.slots = s
	}
}
