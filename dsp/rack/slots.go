package rack

import (
	"context"
	"fmt"
	"log/slog"
)

// Slots binds up to two processors to the physical outputs.
//
// A stereo processor always lives in the left slot and owns both outputs;
// while it is bound the right slot is empty. Mono processors occupy the left
// and right slots independently.
//
// Slots does not own the processors it references: instances are created
// and released by their owner (see the processors package) and a slot only
// points at them.
type Slots struct {
	guard Guard
	left  Processor
	right Processor

	log *slog.Logger
}

// NewSlots returns an empty registry. logger may be nil.
func NewSlots(logger *slog.Logger) *Slots {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Slots{log: logger}
}

// Get returns the processor that produces channel ch. It never waits: ok is
// false when the guard is held by a control-plane edit. p is nil when
// nothing drives the channel.
func (s *Slots) Get(ch Channel) (p Processor, ok bool) {
	if !s.guard.TryAcquireShared() {
		return nil, false
	}
	defer s.guard.ReleaseShared()

	return s.resolve(ch), true
}

func (s *Slots) resolve(ch Channel) Processor {
	if ch == Channel1 {
		if s.left != nil && s.left.Stereo() {
			return s.left
		}
		return s.right
	}
	return s.left
}

// Bind attaches p to the channels in mask. Stereo processors must be bound
// to [MaskBoth]; mono processors to exactly [MaskLeft] or [MaskRight].
func (s *Slots) Bind(ctx context.Context, mask Mask, p Processor) error {
	if err := validateBind(mask, p); err != nil {
		return err
	}

	if err := s.guard.Acquire(ctx); err != nil {
		return fmt.Errorf("rack: bind %s: %w", mask, err)
	}
	defer s.guard.Release()

	s.bindLocked(mask, p)
	s.log.Debug("slot bound", "mask", mask.String(), "stereo", p.Stereo())

	return nil
}

// Unbind clears the slots selected by mask. A stereo processor in the left
// slot owns both channels, so any non-empty mask clears it.
func (s *Slots) Unbind(ctx context.Context, mask Mask) error {
	if err := validateUnbind(mask); err != nil {
		return err
	}

	if err := s.guard.Acquire(ctx); err != nil {
		return fmt.Errorf("rack: unbind %s: %w", mask, err)
	}
	defer s.guard.Release()

	s.unbindLocked(mask)
	s.log.Debug("slot cleared", "mask", mask.String())

	return nil
}

// Update runs fn with the guard held exclusively so several edits become
// visible to the audio goroutine at once. Blocks dispatched while fn runs
// see no processors. If fn returns an error the edits it already made stay
// in place.
func (s *Slots) Update(ctx context.Context, fn func(tx *SlotTx) error) error {
	if err := s.guard.Acquire(ctx); err != nil {
		return fmt.Errorf("rack: update slots: %w", err)
	}
	defer s.guard.Release()

	return fn(&SlotTx{s: s})
}

// SlotTx edits the slots inside [Slots.Update].
type SlotTx struct {
	s *Slots
}

// Bind is [Slots.Bind] without acquiring the guard.
func (tx *SlotTx) Bind(mask Mask, p Processor) error {
	if err := validateBind(mask, p); err != nil {
		return err
	}
	tx.s.bindLocked(mask, p)
	return nil
}

// Unbind is [Slots.Unbind] without acquiring the guard.
func (tx *SlotTx) Unbind(mask Mask) error {
	if err := validateUnbind(mask); err != nil {
		return err
	}
	tx.s.unbindLocked(mask)
	return nil
}

// Get returns the processor driving ch.
func (tx *SlotTx) Get(ch Channel) Processor {
	return tx.s.resolve(ch)
}

func validateBind(mask Mask, p Processor) error {
	if p == nil {
		return ErrInvalidProcessor
	}

	if p.Stereo() {
		if mask != MaskBoth {
			return fmt.Errorf("%w: stereo processor needs %s, got %s", ErrBadChannelAssignment, MaskBoth, mask)
		}
		return nil
	}

	if mask != MaskLeft && mask != MaskRight {
		return fmt.Errorf("%w: mono processor needs left or right, got %s", ErrBadChannelAssignment, mask)
	}
	return nil
}

func validateUnbind(mask Mask) error {
	if mask&MaskBoth == MaskNone {
		return fmt.Errorf("%w: mask %s selects no channel", ErrBadChannelAssignment, mask)
	}
	return nil
}

func (s *Slots) bindLocked(mask Mask, p Processor) {
	switch {
	case p.Stereo():
		s.left = p
		s.right = nil
	case mask == MaskLeft:
		s.left = p
	default:
		// A mono processor taking channel 1 evicts a stereo owner.
		if s.left != nil && s.left.Stereo() {
			s.left = nil
		}
		s.right = p
	}
}

func (s *Slots) unbindLocked(mask Mask) {
	stereo := s.left != nil && s.left.Stereo()
	if mask.Has(MaskLeft) || stereo {
		s.left = nil
	}
	if mask.Has(MaskRight) {
		s.right = nil
	}
}
