package rack

import "fmt"

// Number of control lines sampled per block.
const (
	NumTriggers = 4
	NumCV       = 8
)

// Channel names one of the two physical outputs.
type Channel int

const (
	Channel0 Channel = iota
	Channel1
)

// String returns "ch0" or "ch1".
func (c Channel) String() string {
	switch c {
	case Channel0:
		return "ch0"
	case Channel1:
		return "ch1"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// Mask is a set of physical channels.
type Mask uint8

const (
	MaskNone  Mask = 0
	MaskLeft  Mask = 1 << 0
	MaskRight Mask = 1 << 1
	MaskBoth       = MaskLeft | MaskRight
)

// Has reports whether every channel in o is also in m.
func (m Mask) Has(o Mask) bool {
	return m&o == o
}

// Channel returns the single channel selected by m. It is only meaningful
// for [MaskLeft] and [MaskRight]; any other mask reports false.
func (m Mask) Channel() (Channel, bool) {
	switch m {
	case MaskLeft:
		return Channel0, true
	case MaskRight:
		return Channel1, true
	default:
		return 0, false
	}
}

// String returns the configuration name of the mask.
func (m Mask) String() string {
	switch m {
	case MaskNone:
		return "none"
	case MaskLeft:
		return "left"
	case MaskRight:
		return "right"
	case MaskBoth:
		return "both"
	default:
		return fmt.Sprintf("Mask(%d)", uint8(m))
	}
}

// ParseMask is the inverse of [Mask.String].
func ParseMask(s string) (Mask, error) {
	for _, m := range []Mask{MaskNone, MaskLeft, MaskRight, MaskBoth} {
		if m.String() == s {
			return m, nil
		}
	}
	return MaskNone, fmt.Errorf("rack: unknown channel mask %q", s)
}

// Snapshot is the control input of one block: trigger/gate lines and
// control voltages, refreshed before anything else runs and read-only
// afterwards. CV lines are normalized to roughly [-1, 1] or [0, 1]
// depending on the jack.
type Snapshot struct {
	Triggers [NumTriggers]bool
	CV       [NumCV]float64
}

// Metrics is filled by [Engine.Process] for every block.
//
// Levels use the meter scale 255 + 3.2*dBV; zero means silence or
// not written this block.
type Metrics struct {
	InputLevel  float64
	OutputLevel float64
	Warning     bool
}
