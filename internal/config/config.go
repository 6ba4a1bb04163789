// Package config handles rackd configuration loaded from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-rack/control/midi"
	"github.com/cwbudde/algo-rack/dsp/effects/dynamics"
	"github.com/cwbudde/algo-rack/dsp/processors"
	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/dsp/window"
	"github.com/cwbudde/algo-rack/telemetry"
)

// Config holds the complete daemon configuration.
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Gate      GateConfig      `yaml:"gate"`
	Output    OutputConfig    `yaml:"output"`
	MIDI      MIDIConfig      `yaml:"midi"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// Patches are the slot layouts the keyboard can switch between. The
	// first one is loaded at start.
	Patches []Patch `yaml:"patches"`
	Debug   bool    `yaml:"debug"`
}

// AudioConfig holds the block geometry and device buffering.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	BlockSize  int `yaml:"block_size"`
	// DeviceBuffer is the output device buffer length.
	DeviceBuffer time.Duration `yaml:"device_buffer"`
	Input        InputConfig   `yaml:"input"`
}

// Input sources.
const (
	InputSilence = "silence"
	InputSine    = "sine"
	InputNoise   = "noise"
)

// InputConfig selects the signal fed to the engine input, standing in for
// the audio jacks.
type InputConfig struct {
	// Source is "silence", "sine" or "noise".
	Source    string  `yaml:"source"`
	Frequency float64 `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude"`
}

// GateConfig holds the noise gate mode and thresholds.
type GateConfig struct {
	// Mode is one of "off", "both", "left" or "right".
	Mode  string  `yaml:"mode"`
	Open  float64 `yaml:"open"`
	Close float64 `yaml:"close"`
}

// OutputConfig holds the post-dispatch routing.
type OutputConfig struct {
	DaisyChain bool `yaml:"daisy_chain"`
	// Remix holds the two selectors, 0 keep, 1 spread, 2 move.
	Remix    [2]int  `yaml:"remix"`
	SoftClip [2]bool `yaml:"soft_clip"`
}

// MIDIConfig maps a MIDI input device onto control lines.
type MIDIConfig struct {
	Enabled bool `yaml:"enabled"`
	// Device is the portmidi device ID, negative for the default input.
	Device int `yaml:"device"`
	// Channel is 0-15, or -1 for every channel.
	Channel   int              `yaml:"channel"`
	Notes     map[uint8]int    `yaml:"notes"`
	CC        map[uint8]CCLine `yaml:"cc"`
	PitchBend int              `yaml:"pitch_bend"`
}

// CCLine routes one controller.
type CCLine struct {
	Line    int  `yaml:"line"`
	Bipolar bool `yaml:"bipolar"`
}

// TelemetryConfig holds the metrics ring and output analyzer settings.
type TelemetryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Ring     int           `yaml:"ring"`
	FFTSize  int           `yaml:"fft_size"`
	Window   string        `yaml:"window"`
	History  int           `yaml:"history"`
	ToneHz   float64       `yaml:"tone_hz"`
	Interval time.Duration `yaml:"interval"`
}

// Patch is a named slot layout.
type Patch struct {
	Name  string `yaml:"name"`
	Slots []Slot `yaml:"slots"`
}

// Slot is one processor instance and the channels it is bound to.
type Slot struct {
	Type string `yaml:"type"`
	// Mask is "left", "right" or "both".
	Mask   string             `yaml:"mask"`
	Params map[string]float64 `yaml:"params"`
	// Script is the Lua source of a "lua" processor.
	Script string `yaml:"script"`
}

// Default returns the configuration used when no file is given: 44.1 kHz,
// 32-frame blocks, gate on both channels, MIDI and telemetry off, and a
// single empty patch.
func Default() *Config {
	def := midi.DefaultMap()

	cfg := &Config{
		Audio: AudioConfig{
			SampleRate:   44100,
			BlockSize:    32,
			DeviceBuffer: 20 * time.Millisecond,
			Input: InputConfig{
				Source:    InputSine,
				Frequency: 110,
				Amplitude: 0.5,
			},
		},
		Gate: GateConfig{
			Mode:  dynamics.GateBoth.String(),
			Open:  dynamics.DefaultGateOpen,
			Close: dynamics.DefaultGateClose,
		},
		MIDI: MIDIConfig{
			Device:    -1,
			Channel:   midi.Omni,
			Notes:     def.Notes,
			CC:        make(map[uint8]CCLine, len(def.CC)),
			PitchBend: def.PitchBend,
		},
		Telemetry: TelemetryConfig{
			Ring:     64,
			FFTSize:  2048,
			Window:   window.TypeHann.String(),
			History:  256,
			Interval: time.Second,
		},
		Patches: []Patch{{Name: "empty"}},
	}
	for cc, m := range def.CC {
		cfg.MIDI.CC[cc] = CCLine{Line: m.Line, Bipolar: m.Bipolar}
	}

	return cfg
}

// Load reads and validates the YAML file at path. Keys absent from the
// file keep their [Default] values; unknown keys are an error.
func Load(path string) (*Config, error) {
	// #nosec G304 - the path is an operator-supplied command line flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML configuration data.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// Decoding merges into existing maps; start the mappings empty so a
	// file replaces them.
	notes, cc := cfg.MIDI.Notes, cfg.MIDI.CC
	cfg.MIDI.Notes, cfg.MIDI.CC = nil, nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.MIDI.Notes == nil {
		cfg.MIDI.Notes = notes
	}
	if cfg.MIDI.CC == nil {
		cfg.MIDI.CC = cc
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0: %d", c.Audio.SampleRate)
	}
	if c.Audio.BlockSize <= 0 {
		return fmt.Errorf("audio.block_size must be > 0: %d", c.Audio.BlockSize)
	}
	if c.Audio.DeviceBuffer < 0 {
		return fmt.Errorf("audio.device_buffer must be >= 0: %s", c.Audio.DeviceBuffer)
	}

	if err := c.Audio.Input.validate(float64(c.Audio.SampleRate)); err != nil {
		return err
	}

	if _, err := c.Settings(); err != nil {
		return err
	}

	if _, err := c.MIDIMap(); err != nil {
		return err
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Ring <= 0 {
			return fmt.Errorf("telemetry.ring must be > 0: %d", c.Telemetry.Ring)
		}
		if c.Telemetry.Interval <= 0 {
			return fmt.Errorf("telemetry.interval must be > 0: %s", c.Telemetry.Interval)
		}
		if _, err := c.AnalyzerConfig(); err != nil {
			return err
		}
	}

	if len(c.Patches) == 0 {
		return errors.New("at least one patch is required")
	}
	for i, p := range c.Patches {
		if p.Name == "" {
			return fmt.Errorf("patches[%d]: name is required", i)
		}
		for j, s := range p.Slots {
			if s.Type == "" {
				return fmt.Errorf("patch %q slot %d: type is required", p.Name, j)
			}
			if _, err := s.ChannelMask(); err != nil {
				return fmt.Errorf("patch %q slot %d: %w", p.Name, j, err)
			}
		}
	}

	return nil
}

func (in InputConfig) validate(sampleRate float64) error {
	switch in.Source {
	case InputSilence:
		return nil
	case InputSine:
		if in.Frequency <= 0 || in.Frequency >= sampleRate/2 {
			return fmt.Errorf("audio.input.frequency must be in (0, %g): %g", sampleRate/2, in.Frequency)
		}
	case InputNoise:
	default:
		return fmt.Errorf("audio.input.source must be silence, sine or noise: %q", in.Source)
	}
	if in.Amplitude < 0 || in.Amplitude > 1 {
		return fmt.Errorf("audio.input.amplitude must be in [0, 1]: %g", in.Amplitude)
	}
	return nil
}

// Settings converts the gate and output sections to engine settings.
func (c *Config) Settings() (rack.Settings, error) {
	mode, err := dynamics.ParseGateMode(c.Gate.Mode)
	if err != nil {
		return rack.Settings{}, fmt.Errorf("gate.mode: %w", err)
	}
	if err := dynamics.ValidateThresholds(c.Gate.Open, c.Gate.Close); err != nil {
		return rack.Settings{}, fmt.Errorf("gate: %w", err)
	}
	for i, sel := range c.Output.Remix {
		if sel < rack.RemixKeep || sel > rack.RemixMove {
			return rack.Settings{}, fmt.Errorf("output.remix[%d] must be 0-2: %d", i, sel)
		}
	}

	return rack.Settings{
		GateMode:   mode,
		GateOpen:   c.Gate.Open,
		GateClose:  c.Gate.Close,
		DaisyChain: c.Output.DaisyChain,
		ToStereo0:  c.Output.Remix[0],
		ToStereo1:  c.Output.Remix[1],
		SoftClip:   c.Output.SoftClip,
	}, nil
}

// EngineOptions converts the configuration to engine options. Control
// source, sink and logger are left to the caller.
func (c *Config) EngineOptions() ([]rack.Option, error) {
	s, err := c.Settings()
	if err != nil {
		return nil, err
	}
	return []rack.Option{
		rack.WithSampleRate(float64(c.Audio.SampleRate)),
		rack.WithBlockSize(c.Audio.BlockSize),
		rack.WithSettings(s),
	}, nil
}

// MIDIMap converts the MIDI section to a validated control map.
func (c *Config) MIDIMap() (midi.Map, error) {
	m := midi.Map{
		Channel:   c.MIDI.Channel,
		Notes:     c.MIDI.Notes,
		CC:        make(map[uint8]midi.CVMap, len(c.MIDI.CC)),
		PitchBend: c.MIDI.PitchBend,
	}
	for cc, l := range c.MIDI.CC {
		m.CC[cc] = midi.CVMap{Line: l.Line, Bipolar: l.Bipolar}
	}
	if err := m.Validate(); err != nil {
		return midi.Map{}, err
	}
	return m, nil
}

// AnalyzerConfig converts the telemetry section to analyzer settings.
func (c *Config) AnalyzerConfig() (telemetry.AnalyzerConfig, error) {
	w, err := window.Parse(c.Telemetry.Window)
	if err != nil {
		return telemetry.AnalyzerConfig{}, fmt.Errorf("telemetry.window: %w", err)
	}
	ac := telemetry.AnalyzerConfig{
		SampleRate: float64(c.Audio.SampleRate),
		FFTSize:    c.Telemetry.FFTSize,
		Window:     w,
		History:    c.Telemetry.History,
		ToneHz:     c.Telemetry.ToneHz,
	}
	// Run the analyzer's own checks without planning an FFT.
	if ac.FFTSize < 4 || ac.FFTSize&(ac.FFTSize-1) != 0 {
		return telemetry.AnalyzerConfig{}, fmt.Errorf("telemetry.fft_size must be a power of two >= 4: %d", ac.FFTSize)
	}
	if ac.History <= 0 {
		return telemetry.AnalyzerConfig{}, fmt.Errorf("telemetry.history must be > 0: %d", ac.History)
	}
	if ac.ToneHz < 0 || ac.ToneHz > ac.SampleRate/2 {
		return telemetry.AnalyzerConfig{}, fmt.Errorf("telemetry.tone_hz must be in [0, %g]: %g", ac.SampleRate/2, ac.ToneHz)
	}
	return ac, nil
}

// Patch returns the patch with the given name.
func (c *Config) Patch(name string) (Patch, bool) {
	for _, p := range c.Patches {
		if p.Name == name {
			return p, true
		}
	}
	return Patch{}, false
}

// ChannelMask parses the slot's mask.
func (s Slot) ChannelMask() (rack.Mask, error) {
	m, err := rack.ParseMask(s.Mask)
	if err != nil {
		return rack.MaskNone, err
	}
	if m == rack.MaskNone {
		return rack.MaskNone, fmt.Errorf("slot mask must select a channel: %q", s.Mask)
	}
	return m, nil
}

// ProcessorParams converts the slot to processor construction parameters.
func (s Slot) ProcessorParams() processors.Params {
	p := processors.Params{Num: s.Params}
	if s.Script != "" {
		p.Str = map[string]string{"script": s.Script}
	}
	return p
}
