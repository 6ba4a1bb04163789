package processors

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/internal/testutil"
)

const testFrames = 32

func testConfig() core.ProcessorConfig {
	return core.ApplyProcessorOptions(core.WithBlockSize(testFrames))
}

func build(t *testing.T, f Factory, params Params) rack.Processor {
	t.Helper()
	p, err := f(testConfig(), params)
	if err != nil {
		t.Fatalf("factory error = %v", err)
	}
	return p
}

func TestVCAFollowsCV(t *testing.T) {
	p := build(t, NewVCA, Params{Num: map[string]float64{"cv": 2}})
	var snap rack.Snapshot
	snap.CV[2] = 0.5

	// First block ramps from 0 to 0.5, later blocks hold.
	buf := testutil.StereoDC(1, 1, testFrames)
	p.Process(rack.MaskLeft, rack.NewContext(buf, &snap, 44100))
	if got := buf[2*(testFrames-1)]; math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("end of ramp = %v, want 0.5", got)
	}
	if buf[0] >= buf[2] {
		t.Fatal("ramp not increasing")
	}

	buf = testutil.StereoDC(1, 1, testFrames)
	p.Process(rack.MaskLeft, rack.NewContext(buf, &snap, 44100))
	testutil.RequireSliceNearlyEqual(t, testutil.Channel(buf, 0), testutil.DC(0.5, testFrames), 1e-12)
	testutil.RequireSliceNearlyEqual(t, testutil.Channel(buf, 1), testutil.DC(1, testFrames), 0)
}

func TestVCATarget(t *testing.T) {
	p := build(t, NewVCA, Params{Num: map[string]float64{"gain": 2, "offset": 0.25, "depth": 0.5}})
	v := p.(*VCA)
	for _, tc := range []struct{ cv, want float64 }{
		{0, 0.5},
		{1, 1.5},
		{4, 2},
		{-2, 0},
	} {
		if got := v.Target(tc.cv); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("Target(%v) = %v, want %v", tc.cv, got, tc.want)
		}
	}
}

func TestVCARightChannelAndOddBlocks(t *testing.T) {
	p := build(t, NewVCA, Params{Num: map[string]float64{"offset": 1}})
	buf := testutil.StereoDC(1, 1, 3*testFrames)
	p.Process(rack.MaskRight, rack.NewContext(buf, nil, 44100))

	testutil.RequireSliceNearlyEqual(t, testutil.Channel(buf, 0), testutil.DC(1, 3*testFrames), 0)
	if got := buf[len(buf)-1]; math.Abs(got-1) > 1e-12 {
		t.Fatalf("last sample = %v, want 1", got)
	}

	before := testutil.StereoDC(1, 1, testFrames)
	p.Process(rack.MaskBoth, rack.NewContext(before, nil, 44100))
	testutil.RequireSliceNearlyEqual(t, before, testutil.StereoDC(1, 1, testFrames), 0)
}

func TestPingPongCrossesChannels(t *testing.T) {
	// 4-sample delay, full wet, no feedback.
	p := build(t, NewPingPong, Params{Num: map[string]float64{
		"time": 4.0 / 44100, "feedback": 0, "mix": 1,
	}})

	impulse := make([]float64, 2*testFrames)
	impulse[0] = 1
	p.Process(rack.MaskBoth, rack.NewContext(impulse, nil, 44100))

	left := testutil.Channel(impulse, 0)
	if math.Abs(left[4]-1) > 1e-9 {
		t.Fatalf("left[4] = %v, want delayed impulse", left[4])
	}
	if testutil.MaxAbs(testutil.Channel(impulse, 1)) > 1e-9 {
		t.Fatal("impulse leaked into the right channel without feedback")
	}
}

func TestPingPongFeedbackAlternates(t *testing.T) {
	p := build(t, NewPingPong, Params{Num: map[string]float64{
		"time": 4.0 / 44100, "feedback": 0.5, "mix": 1,
	}})

	buf := make([]float64, 2*testFrames)
	buf[0] = 1
	p.Process(rack.MaskBoth, rack.NewContext(buf, nil, 44100))

	left := testutil.Channel(buf, 0)
	right := testutil.Channel(buf, 1)
	if math.Abs(left[4]-1) > 1e-9 || math.Abs(right[8]-0.5) > 1e-9 || math.Abs(left[12]-0.25) > 1e-9 {
		t.Fatalf("echoes: left[4]=%v right[8]=%v left[12]=%v", left[4], right[8], left[12])
	}
}

func TestPingPongTriggerClears(t *testing.T) {
	p := build(t, NewPingPong, Params{Num: map[string]float64{
		"time": 40.0 / 44100, "feedback": 0, "mix": 1, "clear": 1,
	}})

	buf := testutil.StereoDC(1, 1, testFrames)
	p.Process(rack.MaskBoth, rack.NewContext(buf, nil, 44100))

	var snap rack.Snapshot
	snap.Triggers[1] = true
	buf = make([]float64, 2*testFrames)
	p.Process(rack.MaskBoth, rack.NewContext(buf, &snap, 44100))
	testutil.RequireSilent(t, buf)
}

func TestCrusherHoldsAndQuantizes(t *testing.T) {
	p := build(t, NewCrusher, Params{Num: map[string]float64{"rate": 0.25, "bits": 3}})

	ramp := make([]float64, testFrames)
	for i := range ramp {
		ramp[i] = float64(i) / testFrames
	}
	buf := testutil.Stereo(ramp, ramp)
	p.Process(rack.MaskLeft, rack.NewContext(buf, nil, 44100))

	out := testutil.Channel(buf, 0)
	for i := range out {
		held := ramp[i-i%4]
		want := math.Round(held*4) / 4
		if out[i] != want {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
	testutil.RequireSliceNearlyEqual(t, testutil.Channel(buf, 1), ramp, 0)
}

func TestCrusherTriggerResamples(t *testing.T) {
	p := build(t, NewCrusher, Params{Num: map[string]float64{"rate": 0.001, "bits": 24}})

	buf := testutil.StereoDC(0.5, 0, testFrames)
	p.Process(rack.MaskLeft, rack.NewContext(buf, nil, 44100))

	var snap rack.Snapshot
	snap.Triggers[0] = true
	buf = testutil.StereoDC(-0.25, 0, testFrames)
	p.Process(rack.MaskLeft, rack.NewContext(buf, &snap, 44100))
	if buf[0] != -0.25 {
		t.Fatalf("after trigger out = %v, want -0.25", buf[0])
	}

	buf = testutil.StereoDC(0.75, 0, testFrames)
	p.Process(rack.MaskLeft, rack.NewContext(buf, &snap, 44100))
	if buf[0] != -0.25 {
		t.Fatalf("held trigger resampled: out = %v", buf[0])
	}
}

func TestScriptGain(t *testing.T) {
	p := build(t, NewScript, Params{
		Str: map[string]string{"script": `
function gain(cv, trig)
  if trig then return 0 end
  return math.abs(cv) * 2
end`},
		Num: map[string]float64{"cv": 1, "trig": 2},
	})
	s := p.(*Script)
	defer s.Close()

	var snap rack.Snapshot
	snap.CV[1] = -0.25
	buf := testutil.StereoDC(1, 1, testFrames)
	p.Process(rack.MaskLeft, rack.NewContext(buf, &snap, 44100))
	if s.Gain() != 0.5 || buf[0] != 0.5 || buf[1] != 1 {
		t.Fatalf("gain = %v, frame 0 = (%v, %v)", s.Gain(), buf[0], buf[1])
	}

	snap.Triggers[2] = true
	buf = testutil.StereoDC(1, 1, testFrames)
	p.Process(rack.MaskLeft, rack.NewContext(buf, &snap, 44100))
	testutil.RequireSilent(t, testutil.Channel(buf, 0))
	if s.Errors() != 0 {
		t.Fatalf("Errors() = %d", s.Errors())
	}
}

func TestScriptFailuresMute(t *testing.T) {
	p := build(t, NewScript, Params{Str: map[string]string{"script": `
function gain(cv, trig)
  if cv > 0 then error("boom") end
  return "loud"
end`}})
	s := p.(*Script)
	defer s.Close()

	var snap rack.Snapshot
	for _, cv := range []float64{1, 0} {
		snap.CV[0] = cv
		buf := testutil.StereoDC(1, 1, testFrames)
		p.Process(rack.MaskRight, rack.NewContext(buf, &snap, 44100))
		testutil.RequireSilent(t, testutil.Channel(buf, 1))
	}
	if s.Errors() != 2 {
		t.Fatalf("Errors() = %d, want 2", s.Errors())
	}
}

func TestScriptConstructionErrors(t *testing.T) {
	for name, src := range map[string]string{
		"empty":    "",
		"syntax":   "function gain(",
		"no entry": "x = 1",
	} {
		if _, err := NewScript(testConfig(), Params{Str: map[string]string{"script": src}}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestVCFCutoffFollowsCV(t *testing.T) {
	p := build(t, NewVCF, Params{Num: map[string]float64{"cutoff": 500, "octaves": 2}})
	v := p.(*VCF)

	for _, tc := range []struct{ cv, want float64 }{
		{0, 500},
		{1, 2000},
		{-0.5, 250},
		{8, 0.45 * 44100},
	} {
		if got := v.Cutoff(tc.cv); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Cutoff(%v) = %v, want %v", tc.cv, got, tc.want)
		}
	}
}

func TestVCFFiltersSelectedChannel(t *testing.T) {
	p := build(t, NewVCF, Params{Num: map[string]float64{"cutoff": 200, "resonance": 0, "octaves": 8, "cv": 1}})
	var snap rack.Snapshot

	sine := testutil.DeterministicSine(8000, 44100, 0.1, 64*testFrames)
	signal := testutil.Stereo(sine, sine)

	var last []float64
	for _, block := range testutil.SplitBlocks(signal, testFrames) {
		p.Process(rack.MaskRight, rack.NewContext(block, &snap, 44100))
		last = block
	}

	if got := testutil.MaxAbs(testutil.Channel(last, 1)); got > 0.001 {
		t.Fatalf("filtered channel amplitude = %f, want < 0.001", got)
	}
	if got := testutil.MaxAbs(testutil.Channel(last, 0)); got < 0.05 {
		t.Fatalf("untouched channel amplitude = %f", got)
	}

	// Opening the filter with CV lets the tone through again.
	snap.CV[1] = 1
	for _, block := range testutil.SplitBlocks(signal, testFrames) {
		p.Process(rack.MaskRight, rack.NewContext(block, &snap, 44100))
		last = block
	}
	if got := testutil.MaxAbs(testutil.Channel(last, 1)); got < 0.05 {
		t.Fatalf("open filter amplitude = %f, want > 0.05", got)
	}
}
