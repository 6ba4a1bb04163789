package processors

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/filter/ladder"
	"github.com/cwbudde/algo-rack/dsp/rack"
)

// VCF is a mono voltage-controlled ladder low-pass. The cutoff follows
//
//	cutoff * 2^(octaves*cv)
//
// evaluated once per block.
type VCF struct {
	cutoff    *Param
	resonance *Param
	drive     *Param
	octaves   *Param
	cv        *Param

	maxCutoff float64
	filter    *ladder.Filter
}

// NewVCF builds a VCF. Parameters: cutoff (Hz, default 1000), resonance
// (0..4, default 0.5), drive (0.1..24, default 1), octaves of CV
// modulation (-8..8, default 4), cv (line index, default 0).
func NewVCF(cfg core.ProcessorConfig, params Params) (rack.Processor, error) {
	maxCutoff := 0.45 * cfg.SampleRate

	v := &VCF{
		cutoff:    newParam("cutoff", ladder.MinCutoffHz, maxCutoff, params.GetNum("cutoff", 1000)),
		resonance: newParam("resonance", 0, ladder.MaxResonance, params.GetNum("resonance", 0.5)),
		drive:     newParam("drive", ladder.MinDrive, ladder.MaxDrive, params.GetNum("drive", 1)),
		octaves:   newParam("octaves", -8, 8, params.GetNum("octaves", 4)),
		cv:        newParam("cv", 0, rack.NumCV-1, params.GetNum("cv", 0)),
		maxCutoff: maxCutoff,
	}

	f, err := ladder.New(cfg.SampleRate, v.cutoff.Get(), v.resonance.Get())
	if err != nil {
		return nil, fmt.Errorf("vcf: %w", err)
	}
	if err := f.SetDrive(v.drive.Get()); err != nil {
		return nil, fmt.Errorf("vcf: %w", err)
	}
	v.filter = f

	return v, nil
}

// Stereo reports false.
func (v *VCF) Stereo() bool { return false }

// Params returns the runtime parameters.
func (v *VCF) Params() []*Param {
	return []*Param{v.cutoff, v.resonance, v.drive, v.octaves, v.cv}
}

// Cutoff returns the cutoff in Hz the filter uses for control value cv.
func (v *VCF) Cutoff(cv float64) float64 {
	hz := v.cutoff.Get() * math.Exp2(v.octaves.Get()*cv)
	return core.Clamp(hz, ladder.MinCutoffHz, v.maxCutoff)
}

// Process filters the channel in mask.
func (v *VCF) Process(mask rack.Mask, ctx *rack.Context) {
	ch, ok := mask.Channel()
	if !ok {
		return
	}

	// Parameters are clamped to the filter's ranges, so the setters
	// cannot fail.
	if r := v.resonance.Get(); r != v.filter.Resonance() {
		_ = v.filter.SetResonance(r)
	}
	if d := v.drive.Get(); d != v.filter.Drive() {
		_ = v.filter.SetDrive(d)
	}
	if hz := v.Cutoff(ctx.CV(line(v.cv, rack.NumCV))); hz != v.filter.CutoffHz() {
		_ = v.filter.SetCutoffHz(hz)
	}

	v.filter.ProcessStrided(ctx.Buffer()[int(ch):], 2)
}
