package processors

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Params holds the construction parameters of one processor instance.
type Params struct {
	Num map[string]float64
	Str map[string]string
}

// GetNum safely extracts a numeric parameter, returning def if missing or invalid.
func (p Params) GetNum(key string, def float64) float64 {
	if p.Num == nil {
		return def
	}

	v, ok := p.Num[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	return v
}

// GetStr returns a string parameter, or def if missing.
func (p Params) GetStr(key, def string) string {
	if v, ok := p.Str[key]; ok {
		return v
	}
	return def
}

// Param is a bounded numeric parameter that the control plane may change
// while the audio goroutine reads it.
type Param struct {
	Name string
	Min  float64
	Max  float64

	bits atomic.Uint64
}

func newParam(name string, lo, hi, value float64) *Param {
	p := &Param{Name: name, Min: lo, Max: hi}
	p.Set(value)
	return p
}

// Get returns the current value.
func (p *Param) Get() float64 {
	return math.Float64frombits(p.bits.Load())
}

// Set stores v clamped to [Min, Max]. NaN is ignored.
func (p *Param) Set(v float64) {
	if math.IsNaN(v) {
		return
	}
	p.bits.Store(math.Float64bits(min(max(v, p.Min), p.Max)))
}

// Tunable is implemented by processors with runtime parameters.
type Tunable interface {
	Params() []*Param
}

// SetParam sets the named parameter of p.
func SetParam(p any, name string, v float64) error {
	t, ok := p.(Tunable)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	for _, prm := range t.Params() {
		if prm.Name == name {
			prm.Set(v)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownParam, name)
}

// line converts a parameter to a control line index in [0, n).
func line(p *Param, n int) int {
	i := int(p.Get())
	return min(max(i, 0), n-1)
}
