package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/cwbudde/algo-rack/control/midi"
	"github.com/cwbudde/algo-rack/dsp/effects/dynamics"
	"github.com/cwbudde/algo-rack/dsp/rack"
)

const keyHelp = `  1-9      load patch
  z x c v  pulse trigger 0-3
  g        cycle gate mode
  d        toggle daisy chain
  r        cycle remix
  s        toggle soft clip
  i        toggle input signal
  l        list processor instances
  ?        help
  q        quit
`

const triggerPulse = 20 * time.Millisecond

var triggerKeys = map[byte]int{'z': 0, 'x': 1, 'c': 2, 'v': 3}

// remixCycle is the order in which the r key steps through the remix
// selectors.
var remixCycle = [][2]int{
	{rack.RemixKeep, rack.RemixKeep},
	{rack.RemixSpread, rack.RemixSpread},
	{rack.RemixMove, rack.RemixMove},
	{rack.RemixSpread, rack.RemixKeep},
	{rack.RemixKeep, rack.RemixSpread},
	{rack.RemixMove, rack.RemixKeep},
	{rack.RemixKeep, rack.RemixMove},
	{rack.RemixMove, rack.RemixSpread},
	{rack.RemixSpread, rack.RemixMove},
}

// keyboard is the interactive control thread. Every key is handled on the
// reading goroutine; slot edits block it, never the audio goroutine.
type keyboard struct {
	engine   *rack.Engine
	controls *midi.Controls
	reader   *blockReader
	rig      *rig
	quit     func()
	out      io.Writer
	// pulseLen is how long a trigger key holds its line high.
	pulseLen time.Duration
}

// handle acts on one key and reports whether the daemon should stop.
func (k *keyboard) handle(ctx context.Context, b byte) bool {
	switch {
	case b == 'q' || b == 3 || b == 4:
		k.quit()
		return true
	case b >= '1' && b <= '9':
		if err := k.rig.load(ctx, int(b-'1')); err != nil {
			logger.Warn("patch switch failed", "err", err)
		}
	case b == '?' || b == 'h':
		fmt.Fprint(k.out, keyHelp)
	case b == 'l':
		for _, inst := range k.rig.host.Instances() {
			logger.Info("instance", "id", inst.ID, "type", inst.Type, "stereo", inst.Stereo, "bound", inst.Bound.String())
		}
	case b == 'i':
		off := !k.reader.inputOff.Load()
		k.reader.inputOff.Store(off)
		logger.Info("input", "on", !off)
	default:
		if line, ok := triggerKeys[b]; ok {
			k.pulse(line)
			return false
		}
		k.edit(b)
	}
	return false
}

func (k *keyboard) pulse(line int) {
	k.controls.SetTrigger(line, true)
	time.AfterFunc(k.pulseLen, func() {
		k.controls.SetTrigger(line, false)
	})
	logger.Debug("trigger", "line", line)
}

// edit applies a settings key.
func (k *keyboard) edit(b byte) {
	s := k.engine.Settings()
	switch b {
	case 'g':
		s.GateMode = (s.GateMode + 1) % (dynamics.GateRight + 1)
	case 'd':
		s.DaisyChain = !s.DaisyChain
	case 'r':
		s.ToStereo0, s.ToStereo1 = nextRemix(s.ToStereo0, s.ToStereo1)
	case 's':
		on := !s.SoftClip[0]
		s.SoftClip = [2]bool{on, on}
	default:
		return
	}

	if err := k.engine.SetSettings(s); err != nil {
		logger.Warn("settings rejected", "err", err)
		return
	}
	logger.Info("settings",
		"gate", s.GateMode.String(),
		"daisy_chain", s.DaisyChain,
		"remix", [2]int{s.ToStereo0, s.ToStereo1},
		"soft_clip", s.SoftClip[0])
}

func nextRemix(s0, s1 int) (int, int) {
	for i, r := range remixCycle {
		if r == [2]int{s0, s1} {
			n := remixCycle[(i+1)%len(remixCycle)]
			return n[0], n[1]
		}
	}
	return remixCycle[0][0], remixCycle[0][1]
}

// startKeyboard puts the terminal into raw mode and feeds keys to k until
// ctx ends or a quit key is pressed. It returns a function restoring the
// terminal. Without a terminal on stdin it does nothing.
func startKeyboard(ctx context.Context, k *keyboard) func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		logger.Info("stdin is not a terminal, keyboard control disabled")
		return func() {}
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		logger.Warn("failed to set raw mode, keyboard control disabled", "err", err)
		return func() {}
	}
	console.raw.Store(true)

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 1 && k.handle(ctx, buf[0]) {
				return
			}
		}
	}()

	return func() {
		console.raw.Store(false)
		_ = term.Restore(fd, old)
	}
}
