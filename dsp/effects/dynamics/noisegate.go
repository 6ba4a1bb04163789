package dynamics

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// DefaultGateOpen is the peak level above which a closed gate opens.
	DefaultGateOpen = 0.0003
	// DefaultGateClose is the peak level below which an open gate closes.
	DefaultGateClose = 0.0001
)

// ErrGateHysteresis is returned when the close threshold is not below the
// open threshold.
var ErrGateHysteresis = errors.New("gate close threshold must be below open threshold")

// GateMode selects which signal the noise gate listens to and acts on.
type GateMode int

const (
	// GateOff disables gating; the gate reports open and passes everything.
	GateOff GateMode = iota
	// GateBoth detects on the combined peak and gates both channels.
	GateBoth
	// GateLeft detects on and gates channel 0 only.
	GateLeft
	// GateRight detects on and gates channel 1 only.
	GateRight
)

// String returns the configuration name of the mode.
func (m GateMode) String() string {
	switch m {
	case GateOff:
		return "off"
	case GateBoth:
		return "both"
	case GateLeft:
		return "left"
	case GateRight:
		return "right"
	default:
		return fmt.Sprintf("GateMode(%d)", int(m))
	}
}

// ParseGateMode is the inverse of [GateMode.String].
func ParseGateMode(s string) (GateMode, error) {
	for m := GateOff; m <= GateRight; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return GateOff, fmt.Errorf("unknown gate mode: %q", s)
}

// Transition reports what the gate did to a block.
type Transition int

const (
	// Held means the block was passed (open) or zeroed (closed) without an edge.
	Held Transition = iota
	// Opened means the block was faded in with the forward ramp.
	Opened
	// Closed means the block was faded out with the reversed ramp.
	Closed
)

// NoiseGate is a block-rate hysteretic gate with click-free edges.
//
// The gate decides once per block from a smoothed peak value. A closed gate
// opens when the peak rises above the open threshold and an open gate closes
// when it falls below the close threshold; in between the state is held.
// Edge blocks are multiplied with a squared ramp of one block length so the
// output never jumps.
//
// A NoiseGate starts closed. It is owned by the audio goroutine and is not
// safe for concurrent use.
type NoiseGate struct {
	mode      GateMode
	openLevel float64
	closeLvl  float64
	open      bool

	ramp       []float64 // ((i+1)/(N+1))^2, i in [0, N)
	rampUp2    []float64 // ramp, each value duplicated for interleaved frames
	rampDown2  []float64 // rampUp2 reversed per frame
	blockFrame int
}

// NoiseGateOption configures a NoiseGate.
type NoiseGateOption func(*NoiseGate) error

// WithGateMode sets the detection and action mode.
func WithGateMode(mode GateMode) NoiseGateOption {
	return func(g *NoiseGate) error {
		return g.SetMode(mode)
	}
}

// WithGateThresholds sets the open and close thresholds.
func WithGateThresholds(open, close float64) NoiseGateOption {
	return func(g *NoiseGate) error {
		return g.SetThresholds(open, close)
	}
}

// NewNoiseGate creates a gate for blocks of blockSize frames. The default
// mode is [GateBoth] with [DefaultGateOpen] and [DefaultGateClose].
func NewNoiseGate(blockSize int, opts ...NoiseGateOption) (*NoiseGate, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("gate block size must be > 0: %d", blockSize)
	}

	g := &NoiseGate{
		mode:       GateBoth,
		openLevel:  DefaultGateOpen,
		closeLvl:   DefaultGateClose,
		blockFrame: blockSize,
		ramp:       Ramp(blockSize),
		rampUp2:    make([]float64, 2*blockSize),
		rampDown2:  make([]float64, 2*blockSize),
	}

	for i, v := range g.ramp {
		g.rampUp2[2*i] = v
		g.rampUp2[2*i+1] = v
		w := g.ramp[blockSize-1-i]
		g.rampDown2[2*i] = w
		g.rampDown2[2*i+1] = w
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Ramp returns the anti-click table of n values ((i+1)/(n+1))^2. Every value
// lies strictly inside (0, 1) and the table is strictly increasing.
func Ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i+1) / float64(n+1)
		out[i] = x * x
	}
	return out
}

// Validate reports whether m is a known mode.
func (m GateMode) Validate() error {
	if m < GateOff || m > GateRight {
		return fmt.Errorf("gate mode is invalid: %d", int(m))
	}
	return nil
}

// ValidateThresholds checks an open/close pair without applying it.
func ValidateThresholds(open, close float64) error {
	if open <= 0 || close <= 0 || !core.IsFinite(open) || !core.IsFinite(close) {
		return fmt.Errorf("gate thresholds must be positive and finite: open=%f close=%f", open, close)
	}
	if close >= open {
		return fmt.Errorf("%w: open=%f close=%f", ErrGateHysteresis, open, close)
	}
	return nil
}

// SetMode changes the gate mode. Switching to [GateOff] leaves the gate open.
func (g *NoiseGate) SetMode(mode GateMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	g.mode = mode
	if mode == GateOff {
		g.open = true
	}
	return nil
}

// SetThresholds sets the open and close levels. close must be strictly
// below open so the gate has a hysteresis band.
func (g *NoiseGate) SetThresholds(open, close float64) error {
	if err := ValidateThresholds(open, close); err != nil {
		return err
	}
	g.openLevel = open
	g.closeLvl = close
	return nil
}

// Mode returns the current mode.
func (g *NoiseGate) Mode() GateMode { return g.mode }

// Thresholds returns the open and close levels.
func (g *NoiseGate) Thresholds() (open, close float64) { return g.openLevel, g.closeLvl }

// IsOpen reports whether the gate currently passes signal.
func (g *NoiseGate) IsOpen() bool { return g.mode == GateOff || g.open }

// Reset closes the gate unless it is disabled.
func (g *NoiseGate) Reset() {
	g.open = g.mode == GateOff
}

// RampTable returns the forward ramp. The slice must not be modified.
func (g *NoiseGate) RampTable() []float64 { return g.ramp }

// Step advances the state machine with one peak value and returns the
// resulting transition without touching audio.
func (g *NoiseGate) Step(peak float64) Transition {
	if g.mode == GateOff {
		return Held
	}
	switch {
	case g.open && peak < g.closeLvl:
		g.open = false
		return Closed
	case !g.open && peak > g.openLevel:
		g.open = true
		return Opened
	default:
		return Held
	}
}

// Process gates one interleaved stereo block in place. overall, left and
// right are the smoothed input peaks; the mode decides which one is used.
func (g *NoiseGate) Process(buf []float64, overall, left, right float64) Transition {
	switch g.mode {
	case GateOff:
		return Held
	case GateLeft:
		return g.processChannel(buf, 0, left)
	case GateRight:
		return g.processChannel(buf, 1, right)
	}

	t := g.Step(overall)
	switch t {
	case Opened:
		g.applyStereo(buf, g.rampUp2, false)
	case Closed:
		g.applyStereo(buf, g.rampDown2, true)
	default:
		if !g.open {
			core.Zero(buf)
		}
	}
	return t
}

func (g *NoiseGate) processChannel(buf []float64, ch int, peak float64) Transition {
	t := g.Step(peak)
	switch t {
	case Opened:
		g.applyChannel(buf, ch, false)
	case Closed:
		g.applyChannel(buf, ch, true)
	default:
		if !g.open {
			core.ZeroChannel(buf, ch)
		}
	}
	return t
}

func (g *NoiseGate) applyStereo(buf, table []float64, reverse bool) {
	if len(buf) == len(table) {
		vecmath.MulBlockInPlace(buf, table)
		return
	}
	g.applyChannel(buf, 0, reverse)
	g.applyChannel(buf, 1, reverse)
}

// applyChannel multiplies one channel with the ramp. Blocks that differ
// from the configured size index the table proportionally.
func (g *NoiseGate) applyChannel(buf []float64, ch int, reverse bool) {
	frames := len(buf) / 2
	n := g.blockFrame
	for i := range frames {
		j := i
		if frames != n {
			j = i * n / frames
		}
		if reverse {
			j = n - 1 - j
		}
		buf[2*i+ch] *= g.ramp[j]
	}
}
