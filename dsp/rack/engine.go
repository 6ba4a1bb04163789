package rack

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effects/dynamics"
)

// Engine runs the per-block pipeline:
//
//	control snapshot -> input conditioner -> noise gate -> dispatcher
//	-> remixer (both channels only) -> output conditioner -> deadline monitor
//
// [Engine.Process] must be called from a single goroutine. Everything else
// is safe for concurrent use from control-plane goroutines.
type Engine struct {
	cfg   core.ProcessorConfig
	slots *Slots
	state *State

	controls ControlSource
	sink     Sink
	monitor  *Monitor
	log      *slog.Logger

	pending atomic.Pointer[Settings]
	applied *Settings

	snap Snapshot
	ctx  Context
}

// NewEngine builds an engine with 32-frame blocks at 44.1 kHz unless
// configured otherwise.
func NewEngine(opts ...Option) (*Engine, error) {
	ec := engineConfig{
		logger:   slog.New(slog.DiscardHandler),
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&ec)
		}
	}

	cfg := core.ApplyProcessorOptions(ec.proc...)

	if err := validateSettings(ec.settings); err != nil {
		return nil, err
	}

	state, err := NewState(cfg,
		dynamics.WithGateMode(ec.settings.GateMode),
		dynamics.WithGateThresholds(ec.settings.GateOpen, ec.settings.GateClose))
	if err != nil {
		return nil, err
	}

	slots := ec.slots
	if slots == nil {
		slots = NewSlots(ec.logger)
	}

	e := &Engine{
		cfg:      cfg,
		slots:    slots,
		state:    state,
		controls: ec.controls,
		sink:     ec.sink,
		monitor:  NewMonitor(cfg.BlockPeriod(), ec.clock),
		log:      ec.logger,
	}
	e.ctx = Context{controls: &e.snap, sampleRate: cfg.SampleRate}

	s := ec.settings
	e.pending.Store(&s)
	e.applySettings()

	e.log.Info("engine ready",
		"sample_rate", cfg.SampleRate,
		"block_size", cfg.BlockSize,
		"budget", e.monitor.Budget())

	return e, nil
}

// Config returns the sample rate and block size.
func (e *Engine) Config() core.ProcessorConfig { return e.cfg }

// Slots returns the slot registry for control-plane edits.
func (e *Engine) Slots() *Slots { return e.slots }

// Monitor returns the deadline monitor.
func (e *Engine) Monitor() *Monitor { return e.monitor }

// State returns the pipeline state. It may only be inspected from the
// audio goroutine or while audio is stopped.
func (e *Engine) State() *State { return e.state }

// Settings returns the most recently published settings.
func (e *Engine) Settings() Settings { return *e.pending.Load() }

// SetSettings validates s and publishes it. The audio goroutine applies it
// at the start of its next block.
func (e *Engine) SetSettings(s Settings) error {
	if err := validateSettings(s); err != nil {
		return err
	}
	e.pending.Store(&s)
	e.log.Debug("settings published",
		"gate", s.GateMode.String(),
		"daisy_chain", s.DaisyChain,
		"remix", [2]int{s.ToStereo0, s.ToStereo1},
		"soft_clip", s.SoftClip)
	return nil
}

func validateSettings(s Settings) error {
	if err := s.GateMode.Validate(); err != nil {
		return fmt.Errorf("rack: settings: %w", err)
	}
	if err := dynamics.ValidateThresholds(s.GateOpen, s.GateClose); err != nil {
		return fmt.Errorf("rack: settings: %w", err)
	}
	return nil
}

func (e *Engine) applySettings() *Settings {
	s := e.pending.Load()
	if s == e.applied {
		return s
	}
	// Both calls were validated on the publishing side.
	_ = e.state.gate.SetMode(s.GateMode)
	_ = e.state.gate.SetThresholds(s.GateOpen, s.GateClose)
	e.applied = s
	return s
}

// Process runs the pipeline over one interleaved stereo block in place and
// fills m. It never blocks and never fails: contention on the slot guard
// degrades to a block in which no processor ran. The returned mask tells
// which channels were produced by processors.
//
// m may be nil when the caller does not need metrics.
func (e *Engine) Process(buf []float64, m *Metrics) Mask {
	var scratch Metrics
	if m == nil {
		m = &scratch
	}

	e.monitor.Begin()

	set := e.applySettings()

	e.snap = Snapshot{}
	if e.controls != nil {
		e.controls.Read(&e.snap)
	}

	overall, left, right := e.state.conditionInput(buf)
	if lvl := e.state.applyGate(buf, overall, left, right); lvl > 0 {
		m.InputLevel = lvl
	}

	e.ctx.reset(buf)
	mask := e.slots.Dispatch(&e.ctx, set.DaisyChain)
	e.ctx.reset(nil)

	if mask == MaskBoth {
		Remix(buf, set.ToStereo0, set.ToStereo1)
	}

	if lvl := e.state.conditionOutput(buf, set.SoftClip); lvl > 0 {
		m.OutputLevel = lvl
	}

	if e.monitor.End() {
		m.Warning = true
	}

	if e.sink != nil {
		e.sink.Push(*m, buf)
	}

	return mask
}
