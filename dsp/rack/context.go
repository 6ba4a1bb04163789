package rack

// Context is the per-block view handed to processors. It carries the
// interleaved stereo buffer (mutated in place) and the control snapshot.
type Context struct {
	buf        []float64
	controls   *Snapshot
	sampleRate float64
}

// NewContext wraps buf and controls. Processors receive contexts from the
// engine; NewContext exists for driving processors directly in tests and
// offline tools.
func NewContext(buf []float64, controls *Snapshot, sampleRate float64) *Context {
	if controls == nil {
		controls = &Snapshot{}
	}
	return &Context{buf: buf, controls: controls, sampleRate: sampleRate}
}

func (c *Context) reset(buf []float64) {
	c.buf = buf
}

// Buffer returns the interleaved block: frame i is (buf[2i], buf[2i+1]).
func (c *Context) Buffer() []float64 { return c.buf }

// Frames returns the number of stereo frames in the block.
func (c *Context) Frames() int { return len(c.buf) / 2 }

// SampleRate returns the engine sample rate in Hz.
func (c *Context) SampleRate() float64 { return c.sampleRate }

// Controls returns the snapshot of this block. It must not be modified.
func (c *Context) Controls() *Snapshot { return c.controls }

// Trigger returns trigger line i, or false for an out-of-range index.
func (c *Context) Trigger(i int) bool {
	if i < 0 || i >= NumTriggers {
		return false
	}
	return c.controls.Triggers[i]
}

// CV returns control voltage line i, or 0 for an out-of-range index.
func (c *Context) CV(i int) float64 {
	if i < 0 || i >= NumCV {
		return 0
	}
	return c.controls.CV[i]
}
