package processors

import (
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
)

// Crusher is a mono sample-and-hold decimator with bit-depth reduction.
// The rate is the fraction of the sample rate at which new input is taken;
// a rising edge on the reset trigger samples on the next frame.
type Crusher struct {
	rate  *Param
	bits  *Param
	reset *Param

	phase    float64
	held     float64
	lastTrig bool
}

// NewCrusher builds a crusher. Parameters: rate (0.001..1, default 0.25),
// bits (1..24, default 8), reset (trigger line, default 0).
func NewCrusher(_ core.ProcessorConfig, params Params) (rack.Processor, error) {
	return &Crusher{
		rate:  newParam("rate", 0.001, 1, params.GetNum("rate", 0.25)),
		bits:  newParam("bits", 1, 24, params.GetNum("bits", 8)),
		reset: newParam("reset", 0, rack.NumTriggers-1, params.GetNum("reset", 0)),
		phase: 1,
	}, nil
}

// Stereo reports false.
func (c *Crusher) Stereo() bool { return false }

// Params returns the runtime parameters.
func (c *Crusher) Params() []*Param {
	return []*Param{c.rate, c.bits, c.reset}
}

// Process decimates the channel in mask.
func (c *Crusher) Process(mask rack.Mask, ctx *rack.Context) {
	ch, ok := mask.Channel()
	if !ok {
		return
	}

	trig := ctx.Trigger(line(c.reset, rack.NumTriggers))
	if trig && !c.lastTrig {
		c.phase = 1
	}
	c.lastTrig = trig

	rate := c.rate.Get()
	levels := math.Exp2(math.Round(c.bits.Get()) - 1)

	buf := ctx.Buffer()
	for i := int(ch); i < len(buf); i += 2 {
		if c.phase >= 1 {
			c.phase -= math.Floor(c.phase)
			c.held = core.Clamp(math.Round(buf[i]*levels)/levels, -1, 1)
		}
		c.phase += rate
		buf[i] = c.held
	}
}
