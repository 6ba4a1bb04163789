package rack

import "errors"

var (
	// ErrFailedToAcquireLock is returned by control-plane calls whose context
	// ended before the slot guard could be acquired. The audio path never
	// sees it: contention there means "no processor ran this block".
	ErrFailedToAcquireLock = errors.New("rack: failed to acquire slot guard")

	// ErrInvalidProcessor is returned when binding a nil processor.
	ErrInvalidProcessor = errors.New("rack: invalid processor")

	// ErrBadChannelAssignment is returned when a channel mask does not fit
	// the processor (stereo needs both channels, mono exactly one) or
	// selects no channel at all.
	ErrBadChannelAssignment = errors.New("rack: bad channel assignment")
)
