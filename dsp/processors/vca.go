package processors

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
)

// VCA is a mono voltage-controlled amplifier. Its gain is
//
//	gain * clamp(offset + depth*cv, 0, 1)
//
// where cv is the selected control line. Gain changes are ramped linearly
// across the block.
type VCA struct {
	gain   *Param
	offset *Param
	depth  *Param
	cv     *Param

	current float64
	in      []float64
	out     []float64
	env     []float64
}

// NewVCA builds a VCA. Parameters: gain (0..4, default 1), offset (-1..1,
// default 0), depth (-2..2, default 1), cv (line index, default 0).
func NewVCA(cfg core.ProcessorConfig, params Params) (rack.Processor, error) {
	if cfg.BlockSize <= 0 {
		return nil, fmt.Errorf("vca block size must be > 0: %d", cfg.BlockSize)
	}

	v := &VCA{
		gain:   newParam("gain", 0, 4, params.GetNum("gain", 1)),
		offset: newParam("offset", -1, 1, params.GetNum("offset", 0)),
		depth:  newParam("depth", -2, 2, params.GetNum("depth", 1)),
		cv:     newParam("cv", 0, rack.NumCV-1, params.GetNum("cv", 0)),
		in:     make([]float64, cfg.BlockSize),
		out:    make([]float64, cfg.BlockSize),
		env:    make([]float64, cfg.BlockSize),
	}
	return v, nil
}

// Stereo reports false.
func (v *VCA) Stereo() bool { return false }

// Params returns the runtime parameters.
func (v *VCA) Params() []*Param {
	return []*Param{v.gain, v.offset, v.depth, v.cv}
}

// Target returns the gain the VCA moves to for control value cv.
func (v *VCA) Target(cv float64) float64 {
	return v.gain.Get() * core.Clamp(v.offset.Get()+v.depth.Get()*cv, 0, 1)
}

// Process applies the gain to the channel in mask.
func (v *VCA) Process(mask rack.Mask, ctx *rack.Context) {
	ch, ok := mask.Channel()
	if !ok {
		return
	}

	buf := ctx.Buffer()
	n := ctx.Frames()
	v.in = core.EnsureLen(v.in, n)
	v.out = core.EnsureLen(v.out, n)
	v.env = core.EnsureLen(v.env, n)

	target := v.Target(ctx.CV(line(v.cv, rack.NumCV)))
	step := (target - v.current) / float64(n)
	for i := range n {
		v.in[i] = buf[2*i+int(ch)]
		v.env[i] = v.current + step*float64(i+1)
	}
	v.current = target

	vecmath.MulBlock(v.out, v.in, v.env)

	for i, s := range v.out {
		buf[2*i+int(ch)] = s
	}
}
