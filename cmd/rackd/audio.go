package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/internal/config"
)

// source fills the engine input with one interleaved stereo block.
type source interface {
	fill(buf []float64)
}

type silence struct{}

func (silence) fill(buf []float64) { clear(buf) }

type sine struct {
	amp   float64
	phase float64
	step  float64
}

func (s *sine) fill(buf []float64) {
	for i := 0; i+1 < len(buf); i += 2 {
		v := s.amp * math.Sin(2*math.Pi*s.phase)
		buf[i], buf[i+1] = v, v
		s.phase += s.step
		if s.phase >= 1 {
			s.phase--
		}
	}
}

type noise struct {
	amp float64
	rng *rand.Rand
}

func (n *noise) fill(buf []float64) {
	for i := range buf {
		buf[i] = n.amp * (2*n.rng.Float64() - 1)
	}
}

func newSource(in config.InputConfig, sampleRate float64) (source, error) {
	switch in.Source {
	case config.InputSilence:
		return silence{}, nil
	case config.InputSine:
		return &sine{amp: in.Amplitude, step: in.Frequency / sampleRate}, nil
	case config.InputNoise:
		return &noise{amp: in.Amplitude, rng: rand.New(rand.NewSource(1))}, nil
	default:
		return nil, fmt.Errorf("unknown input source: %q", in.Source)
	}
}

// blockReader is the io.Reader the output device pulls from. The device's
// goroutine is the audio goroutine: every engine block is rendered inside
// Read.
type blockReader struct {
	engine *rack.Engine
	src    source

	// inputOff silences the input source, standing in for unplugging it.
	inputOff atomic.Bool

	block   []float64
	pending []byte
	off     int
	metrics rack.Metrics
}

func newBlockReader(e *rack.Engine, src source) *blockReader {
	n := 2 * e.Config().BlockSize
	return &blockReader{
		engine:  e,
		src:     src,
		block:   make([]float64, n),
		pending: make([]byte, 4*n),
		off:     4 * n,
	}
}

// Read fills p with float32 little-endian stereo frames, rendering as many
// blocks as needed. It never fails.
func (r *blockReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if r.off == len(r.pending) {
			r.render()
		}
		c := copy(p[n:], r.pending[r.off:])
		n += c
		r.off += c
	}
	return n, nil
}

func (r *blockReader) render() {
	if r.inputOff.Load() {
		clear(r.block)
	} else {
		r.src.fill(r.block)
	}

	r.metrics = rack.Metrics{}
	r.engine.Process(r.block, &r.metrics)

	for i, v := range r.block {
		binary.LittleEndian.PutUint32(r.pending[4*i:], math.Float32bits(float32(v)))
	}
	r.off = 0
}

// openOutput starts playback of r on the default device.
func openOutput(cfg config.AudioConfig, r *blockReader) (*oto.Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   cfg.DeviceBuffer,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	player := ctx.NewPlayer(r)
	player.Play()

	logger.Debug("audio output started", "buffer", cfg.DeviceBuffer)

	return player, nil
}
