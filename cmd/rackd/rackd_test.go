package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/cwbudde/algo-rack/control/midi"
	"github.com/cwbudde/algo-rack/dsp/effects/dynamics"
	"github.com/cwbudde/algo-rack/dsp/processors"
	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/internal/config"
)

func newTestEngine(t *testing.T) *rack.Engine {
	t.Helper()
	e, err := rack.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func newTestRig(t *testing.T, e *rack.Engine, patches []config.Patch) *rig {
	t.Helper()
	host := processors.NewHost(processors.DefaultRegistry(), e.Config(), e.Slots(), nil)
	return newRig(host, patches, logger)
}

var testPatches = []config.Patch{
	{Name: "split", Slots: []config.Slot{
		{Type: "vca", Mask: "left"},
		{Type: "crush", Mask: "right"},
	}},
	{Name: "delay", Slots: []config.Slot{
		{Type: "delay", Mask: "both", Params: map[string]float64{"time": 0.1}},
	}},
	{Name: "unknown", Slots: []config.Slot{
		{Type: "reverb", Mask: "left"},
	}},
	{Name: "mono on both", Slots: []config.Slot{
		{Type: "vca", Mask: "both"},
	}},
}

func TestNewSource(t *testing.T) {
	s, err := newSource(config.InputConfig{Source: config.InputSine, Frequency: 1, Amplitude: 1}, 4)
	if err != nil {
		t.Fatalf("newSource() error = %v", err)
	}

	buf := make([]float64, 8)
	s.fill(buf)
	want := []float64{0, 0, 1, 1, 0, 0, -1, -1}
	for i := range want {
		if math.Abs(buf[i]-want[i]) > 1e-12 {
			t.Fatalf("sine = %v, want %v", buf, want)
		}
	}

	n, err := newSource(config.InputConfig{Source: config.InputNoise, Amplitude: 0.5}, 44100)
	if err != nil {
		t.Fatalf("newSource() error = %v", err)
	}
	buf = make([]float64, 256)
	n.fill(buf)
	for _, v := range buf {
		if math.Abs(v) > 0.5 {
			t.Fatalf("noise sample %f exceeds amplitude", v)
		}
	}

	if _, err := newSource(config.InputConfig{Source: "mic"}, 44100); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestBlockReaderRendersBlocks(t *testing.T) {
	e := newTestEngine(t)
	src, err := newSource(config.InputConfig{Source: config.InputSine, Frequency: 440, Amplitude: 0.5}, e.Config().SampleRate)
	if err != nil {
		t.Fatalf("newSource() error = %v", err)
	}
	r := newBlockReader(e, src)

	blockBytes := 4 * 2 * e.Config().BlockSize

	// Odd chunk sizes straddle block boundaries.
	total := 0
	for _, n := range []int{100, 3, blockBytes, 2*blockBytes - 103} {
		p := make([]byte, n)
		got, err := r.Read(p)
		if err != nil || got != n {
			t.Fatalf("Read(%d) = %d, %v", n, got, err)
		}
		total += got
	}

	if total != 3*blockBytes {
		t.Fatalf("read %d bytes, want %d", total, 3*blockBytes)
	}
	if blocks := e.Monitor().Stats().Blocks; blocks != 3 {
		t.Fatalf("engine processed %d blocks, want 3", blocks)
	}
}

func TestBlockReaderEncodesEngineOutput(t *testing.T) {
	e := newTestEngine(t)
	r := newBlockReader(e, &noise{amp: 0.5, rng: newTestRand()})

	p := make([]byte, 4*len(r.block))
	if _, err := r.Read(p); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	for i, v := range r.block {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[4*i:]))
		if got != float32(v) {
			t.Fatalf("sample %d = %f, want %f", i, got, float32(v))
		}
	}
}

func TestBlockReaderInputOff(t *testing.T) {
	e := newTestEngine(t)
	r := newBlockReader(e, &noise{amp: 1, rng: newTestRand()})
	r.inputOff.Store(true)

	p := make([]byte, 4*len(r.block))
	if _, err := r.Read(p); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(p, make([]byte, len(p))) {
		t.Fatal("expected silence with input off")
	}
}

func TestRigSwitchesPatches(t *testing.T) {
	e := newTestEngine(t)
	r := newTestRig(t, e, testPatches)
	ctx := context.Background()

	if r.Current() != -1 {
		t.Fatalf("Current() = %d, want -1", r.Current())
	}

	if err := r.load(ctx, 0); err != nil {
		t.Fatalf("load(0) error = %v", err)
	}
	if n := len(r.host.Instances()); n != 2 {
		t.Fatalf("instances = %d, want 2", n)
	}
	if _, ok := e.Slots().Get(rack.Channel1); !ok {
		t.Fatal("right slot not bound")
	}

	if err := r.load(ctx, 1); err != nil {
		t.Fatalf("load(1) error = %v", err)
	}
	insts := r.host.Instances()
	if len(insts) != 1 || insts[0].Type != "delay" || insts[0].Bound != rack.MaskBoth {
		t.Fatalf("instances after switch = %+v", insts)
	}
	if r.Current() != 1 {
		t.Fatalf("Current() = %d, want 1", r.Current())
	}
}

func TestRigKeepsPatchOnCreateError(t *testing.T) {
	e := newTestEngine(t)
	r := newTestRig(t, e, testPatches)
	ctx := context.Background()

	if err := r.load(ctx, 1); err != nil {
		t.Fatalf("load(1) error = %v", err)
	}
	if err := r.load(ctx, 2); err == nil {
		t.Fatal("expected error for unknown processor type")
	}
	if r.Current() != 1 || len(r.host.Instances()) != 1 {
		t.Fatalf("Current() = %d, instances = %d", r.Current(), len(r.host.Instances()))
	}
	if err := r.load(ctx, 9); err == nil {
		t.Fatal("expected error for missing patch")
	}
}

func TestRigClearsOnBindError(t *testing.T) {
	e := newTestEngine(t)
	r := newTestRig(t, e, testPatches)
	ctx := context.Background()

	if err := r.load(ctx, 0); err != nil {
		t.Fatalf("load(0) error = %v", err)
	}
	if err := r.load(ctx, 3); err == nil {
		t.Fatal("expected error binding a mono processor to both channels")
	}
	if r.Current() != -1 || len(r.host.Instances()) != 0 {
		t.Fatalf("Current() = %d, instances = %d", r.Current(), len(r.host.Instances()))
	}
	if mask := e.Process(make([]float64, 2*e.Config().BlockSize), nil); mask != rack.MaskNone {
		t.Fatalf("mask after failed load = %s, want none", mask)
	}
}

func newTestKeyboard(t *testing.T) (*keyboard, *bool, *bytes.Buffer) {
	t.Helper()
	e := newTestEngine(t)
	controls, err := midi.New(midi.DefaultMap())
	if err != nil {
		t.Fatalf("midi.New() error = %v", err)
	}
	quit := new(bool)
	out := new(bytes.Buffer)
	k := &keyboard{
		engine:   e,
		controls: controls,
		reader:   newBlockReader(e, silence{}),
		rig:      newTestRig(t, e, testPatches),
		quit:     func() { *quit = true },
		out:      out,
		pulseLen: time.Hour,
	}
	return k, quit, out
}

func TestKeyboardSettings(t *testing.T) {
	k, _, _ := newTestKeyboard(t)
	ctx := context.Background()

	for _, b := range []byte("gdrs") {
		if k.handle(ctx, b) {
			t.Fatalf("key %q requested quit", b)
		}
	}

	s := k.engine.Settings()
	if s.GateMode != dynamics.GateLeft {
		t.Fatalf("GateMode = %s, want left", s.GateMode)
	}
	if !s.DaisyChain {
		t.Fatal("DaisyChain not toggled")
	}
	if s.ToStereo0 != rack.RemixSpread || s.ToStereo1 != rack.RemixSpread {
		t.Fatalf("remix = (%d, %d), want (1, 1)", s.ToStereo0, s.ToStereo1)
	}
	if s.SoftClip != [2]bool{true, true} {
		t.Fatalf("SoftClip = %v", s.SoftClip)
	}

	// Gate mode wraps around after right.
	for range 2 {
		k.handle(ctx, 'g')
	}
	if k.engine.Settings().GateMode != dynamics.GateOff {
		t.Fatalf("GateMode = %s, want off", k.engine.Settings().GateMode)
	}
}

func TestKeyboardTriggersAndPatches(t *testing.T) {
	k, _, _ := newTestKeyboard(t)
	ctx := context.Background()

	k.handle(ctx, 'x')
	var snap rack.Snapshot
	k.controls.Read(&snap)
	if !snap.Triggers[1] || snap.Triggers[0] {
		t.Fatalf("Triggers = %v, want only line 1 high", snap.Triggers)
	}

	k.handle(ctx, '2')
	if k.rig.Current() != 1 {
		t.Fatalf("Current() = %d, want 1", k.rig.Current())
	}

	k.handle(ctx, 'i')
	if !k.reader.inputOff.Load() {
		t.Fatal("input not switched off")
	}
}

func TestKeyboardHelpAndQuit(t *testing.T) {
	k, quit, out := newTestKeyboard(t)
	ctx := context.Background()

	k.handle(ctx, '?')
	if out.String() != keyHelp {
		t.Fatalf("help output = %q", out.String())
	}

	if !k.handle(ctx, 'q') || !*quit {
		t.Fatal("q did not quit")
	}
}

func TestNextRemixCyclesAll(t *testing.T) {
	s0, s1 := rack.RemixKeep, rack.RemixKeep
	seen := map[[2]int]bool{}
	for range remixCycle {
		s0, s1 = nextRemix(s0, s1)
		seen[[2]int{s0, s1}] = true
	}
	if len(seen) != len(remixCycle) {
		t.Fatalf("visited %d combinations, want %d", len(seen), len(remixCycle))
	}
	if s0 != rack.RemixKeep || s1 != rack.RemixKeep {
		t.Fatalf("cycle ended at (%d, %d)", s0, s1)
	}
}

func TestConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	c := &consoleWriter{w: &buf}

	if _, err := c.Write([]byte("a\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	c.raw.Store(true)
	n, err := c.Write([]byte("b\nc\n"))
	if err != nil || n != 4 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if buf.String() != "a\nb\r\nc\r\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func newTestRand() *rand.Rand { return rand.New(rand.NewSource(3)) }

func TestExampleConfigPatchesLoad(t *testing.T) {
	cfg, err := config.Load("rackd.example.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		t.Fatalf("EngineOptions() error = %v", err)
	}
	e, err := rack.NewEngine(opts...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	r := newTestRig(t, e, cfg.Patches)
	buf := make([]float64, 2*e.Config().BlockSize)
	for i, p := range cfg.Patches {
		if err := r.load(context.Background(), i); err != nil {
			t.Fatalf("patch %q: %v", p.Name, err)
		}
		e.Process(buf, nil)
	}
	if err := r.host.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
