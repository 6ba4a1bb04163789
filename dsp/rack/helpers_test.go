package rack

import (
	"sync/atomic"
	"time"
)

// gainProc scales the channels it is asked to produce.
type gainProc struct {
	stereo bool
	gain   float64

	calls    atomic.Int64
	lastMask atomic.Uint32
}

func newGain(stereo bool, gain float64) *gainProc {
	return &gainProc{stereo: stereo, gain: gain}
}

func (p *gainProc) Stereo() bool { return p.stereo }

func (p *gainProc) Process(mask Mask, ctx *Context) {
	p.calls.Add(1)
	p.lastMask.Store(uint32(mask))

	buf := ctx.Buffer()
	for i := 0; i+1 < len(buf); i += 2 {
		if mask.Has(MaskLeft) {
			buf[i] *= p.gain
		}
		if mask.Has(MaskRight) {
			buf[i+1] *= p.gain
		}
	}
}

// constProc overwrites the block with fixed values.
type constProc struct {
	left, right float64
}

func (p *constProc) Stereo() bool { return true }

func (p *constProc) Process(_ Mask, ctx *Context) {
	buf := ctx.Buffer()
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i] = p.left
		buf[i+1] = p.right
	}
}

// stepClock advances by step on every call.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func frozenClock() Clock {
	t := time.Unix(0, 0)
	return func() time.Time { return t }
}
