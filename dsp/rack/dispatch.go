package rack

import "github.com/cwbudde/algo-rack/dsp/core"

// Dispatch runs the bound processors over ctx and returns the channels they
// produced.
//
// The guard is taken shared without waiting and held until the processors
// return, so a control-plane edit can never release a processor that is
// still running. If the guard is busy no processor runs and the result is
// [MaskNone]; the buffer is then left untouched.
//
// Unless the left processor is stereo, daisyChain copies channel 0 into
// channel 1 after the left processor ran. A right processor then receives
// the left output as its input; with no right processor the copy is the
// channel 1 output.
func (s *Slots) Dispatch(ctx *Context, daisyChain bool) Mask {
	if !s.guard.TryAcquireShared() {
		return MaskNone
	}
	defer s.guard.ReleaseShared()

	mask := MaskNone

	if s.left != nil {
		mask = MaskLeft
		if s.left.Stereo() {
			mask = MaskBoth
		}
		s.left.Process(mask, ctx)
	}

	if mask.Has(MaskRight) {
		return mask
	}

	if daisyChain {
		core.CopyChannel(ctx.buf, 1, 0)
	}

	if s.right != nil {
		s.right.Process(MaskRight, ctx)
		mask |= MaskRight
	}

	return mask
}
