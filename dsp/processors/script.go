package processors

import (
	"errors"
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
)

const scriptEntry = "gain"

var errNoScriptEntry = errors.New("script does not define function gain(cv, trig)")

// Script is a mono processor whose gain is computed once per block by a Lua
// function
//
//	function gain(cv, trig) return ... end
//
// called with the selected CV line and trigger line. A failing call or a
// non-numeric result mutes the block and is counted.
//
// The Lua state allocates, so Script is meant for patch prototyping rather
// than for running on a tight deadline.
type Script struct {
	cv   *Param
	trig *Param

	state    *lua.LState
	fn       lua.LValue
	gain     float64
	failures atomic.Uint64
}

// NewScript compiles the "script" string parameter. Numeric parameters: cv
// and trig select the control lines passed to the function (default 0).
func NewScript(_ core.ProcessorConfig, params Params) (rack.Processor, error) {
	src := params.GetStr("script", "")
	if src == "" {
		return nil, errors.New("lua processor needs a script")
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("lua: %w", err)
	}

	fn := L.GetGlobal(scriptEntry)
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, errNoScriptEntry
	}

	return &Script{
		cv:    newParam("cv", 0, rack.NumCV-1, params.GetNum("cv", 0)),
		trig:  newParam("trig", 0, rack.NumTriggers-1, params.GetNum("trig", 0)),
		state: L,
		fn:    fn,
	}, nil
}

// Stereo reports false.
func (s *Script) Stereo() bool { return false }

// Params returns the runtime parameters.
func (s *Script) Params() []*Param {
	return []*Param{s.cv, s.trig}
}

// Errors returns the number of blocks muted by a script failure.
func (s *Script) Errors() uint64 { return s.failures.Load() }

// Gain returns the gain applied to the last block.
func (s *Script) Gain() float64 { return s.gain }

// Process evaluates the script and scales the channel in mask.
func (s *Script) Process(mask rack.Mask, ctx *rack.Context) {
	ch, ok := mask.Channel()
	if !ok {
		return
	}

	s.gain = s.eval(ctx.CV(line(s.cv, rack.NumCV)), ctx.Trigger(line(s.trig, rack.NumTriggers)))

	buf := ctx.Buffer()
	for i := int(ch); i < len(buf); i += 2 {
		buf[i] *= s.gain
	}
}

func (s *Script) eval(cv float64, trig bool) float64 {
	err := s.state.CallByParam(lua.P{Fn: s.fn, NRet: 1, Protect: true}, lua.LNumber(cv), lua.LBool(trig))
	if err != nil {
		s.failures.Add(1)
		return 0
	}

	ret := s.state.Get(-1)
	s.state.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok || !core.IsFinite(float64(n)) {
		s.failures.Add(1)
		return 0
	}
	return float64(n)
}

// Close releases the Lua state.
func (s *Script) Close() error {
	s.state.Close()
	return nil
}
