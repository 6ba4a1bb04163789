package processors

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/delay"
	"github.com/cwbudde/algo-rack/dsp/rack"
)

const pingPongMaxSeconds = 2.0

// PingPong is a stereo delay whose feedback crosses between the channels.
// A rising edge on the clear trigger empties both lines.
type PingPong struct {
	time     *Param
	feedback *Param
	mix      *Param
	clear    *Param

	sampleRate float64
	left       *delay.Line
	right      *delay.Line
	lastTrig   bool
}

// NewPingPong builds a ping-pong delay. Parameters: time (seconds, up to 2,
// default 0.25), feedback (0..0.95, default 0.4), mix (0..1, default 0.5),
// clear (trigger line, default 0).
func NewPingPong(cfg core.ProcessorConfig, params Params) (rack.Processor, error) {
	if cfg.SampleRate <= 0 || !core.IsFinite(cfg.SampleRate) {
		return nil, fmt.Errorf("delay sample rate must be positive and finite: %f", cfg.SampleRate)
	}

	size := int(math.Ceil(pingPongMaxSeconds*cfg.SampleRate)) + 4

	left, err := delay.New(size)
	if err != nil {
		return nil, err
	}
	right, err := delay.New(size)
	if err != nil {
		return nil, err
	}

	return &PingPong{
		time:       newParam("time", 1/cfg.SampleRate, pingPongMaxSeconds, params.GetNum("time", 0.25)),
		feedback:   newParam("feedback", 0, 0.95, params.GetNum("feedback", 0.4)),
		mix:        newParam("mix", 0, 1, params.GetNum("mix", 0.5)),
		clear:      newParam("clear", 0, rack.NumTriggers-1, params.GetNum("clear", 0)),
		sampleRate: cfg.SampleRate,
		left:       left,
		right:      right,
	}, nil
}

// Stereo reports true.
func (p *PingPong) Stereo() bool { return true }

// Params returns the runtime parameters.
func (p *PingPong) Params() []*Param {
	return []*Param{p.time, p.feedback, p.mix, p.clear}
}

// Process runs the delay over both channels.
func (p *PingPong) Process(_ rack.Mask, ctx *rack.Context) {
	trig := ctx.Trigger(line(p.clear, rack.NumTriggers))
	if trig && !p.lastTrig {
		p.left.Reset()
		p.right.Reset()
	}
	p.lastTrig = trig

	d := p.time.Get() * p.sampleRate
	fb := p.feedback.Get()
	wet := p.mix.Get()
	dry := 1 - wet

	buf := ctx.Buffer()
	for i := 0; i+1 < len(buf); i += 2 {
		inL, inR := buf[i], buf[i+1]
		dl := p.left.ReadFractional(d)
		dr := p.right.ReadFractional(d)

		p.left.Write(core.FlushDenormals(inL + fb*dr))
		p.right.Write(core.FlushDenormals(inR + fb*dl))

		buf[i] = dry*inL + wet*dl
		buf[i+1] = dry*inR + wet*dr
	}
}
