package midi

import (
	"fmt"
	"math"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-rack/dsp/rack"
)

// Omni accepts messages on every MIDI channel.
const Omni = -1

// NoLine disables a mapping.
const NoLine = -1

// CVMap routes a controller to a CV line.
type CVMap struct {
	Line int
	// Bipolar maps 0..127 to [-1, 1] with 64 at zero; otherwise to [0, 1].
	Bipolar bool
}

// Map describes how MIDI messages become control lines.
type Map struct {
	// Channel is the MIDI channel (0-15) to listen on, or [Omni].
	Channel int
	// Notes maps a key to a trigger line; the line is high while the key
	// is held.
	Notes map[uint8]int
	// CC maps a controller number to a CV line.
	CC map[uint8]CVMap
	// PitchBend is the bipolar CV line fed by pitch bend, or [NoLine].
	PitchBend int
}

// DefaultMap listens on all channels. Keys 36-39 (the usual drum pads)
// drive triggers 0-3, controllers 70-77 drive CV 0-7, pitch bend is unused.
func DefaultMap() Map {
	m := Map{
		Channel:   Omni,
		Notes:     make(map[uint8]int, rack.NumTriggers),
		CC:        make(map[uint8]CVMap, rack.NumCV),
		PitchBend: NoLine,
	}
	for i := range rack.NumTriggers {
		m.Notes[uint8(36+i)] = i
	}
	for i := range rack.NumCV {
		m.CC[uint8(70+i)] = CVMap{Line: i}
	}
	return m
}

// Validate checks channel and line ranges.
func (m Map) Validate() error {
	if m.Channel != Omni && (m.Channel < 0 || m.Channel > 15) {
		return fmt.Errorf("midi channel must be 0-15 or omni: %d", m.Channel)
	}
	for key, l := range m.Notes {
		if key > 127 || l < 0 || l >= rack.NumTriggers {
			return fmt.Errorf("midi note %d: trigger line out of range: %d", key, l)
		}
	}
	for cc, cv := range m.CC {
		if cc > 127 || cv.Line < 0 || cv.Line >= rack.NumCV {
			return fmt.Errorf("midi cc %d: cv line out of range: %d", cc, cv.Line)
		}
	}
	if m.PitchBend != NoLine && (m.PitchBend < 0 || m.PitchBend >= rack.NumCV) {
		return fmt.Errorf("midi pitch bend: cv line out of range: %d", m.PitchBend)
	}
	return nil
}

// Controls holds the current value of every control line. It implements
// [rack.ControlSource].
//
// Handle may be called from any goroutine; Read never blocks.
type Controls struct {
	m    Map
	trig [rack.NumTriggers]atomic.Bool
	cv   [rack.NumCV]atomic.Uint64

	handled atomic.Uint64
	ignored atomic.Uint64
}

var _ rack.ControlSource = (*Controls)(nil)

// New returns controls for the given map.
func New(m Map) (*Controls, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &Controls{m: m}, nil
}

// Read copies the current lines into s.
func (c *Controls) Read(s *rack.Snapshot) {
	for i := range c.trig {
		s.Triggers[i] = c.trig[i].Load()
	}
	for i := range c.cv {
		s.CV[i] = math.Float64frombits(c.cv[i].Load())
	}
}

// SetTrigger drives trigger line i directly. Out-of-range lines are ignored.
func (c *Controls) SetTrigger(i int, on bool) {
	if i >= 0 && i < rack.NumTriggers {
		c.trig[i].Store(on)
	}
}

// SetCV drives CV line i directly. Out-of-range lines are ignored.
func (c *Controls) SetCV(i int, v float64) {
	if i >= 0 && i < rack.NumCV {
		c.cv[i].Store(math.Float64bits(v))
	}
}

// Reset drops all triggers and zeroes all CV lines.
func (c *Controls) Reset() {
	for i := range c.trig {
		c.trig[i].Store(false)
	}
	for i := range c.cv {
		c.cv[i].Store(0)
	}
}

// Handle applies one message and reports whether it was mapped.
func (c *Controls) Handle(msg gomidi.Message) bool {
	if c.apply(msg) {
		c.handled.Add(1)
		return true
	}
	c.ignored.Add(1)
	return false
}

// HandleRaw applies a short message given as status and data bytes, the
// form delivered by portmidi.
func (c *Controls) HandleRaw(status, data1, data2 byte) bool {
	return c.Handle(gomidi.Message{status, data1, data2})
}

// Stats returns the number of mapped and ignored messages.
func (c *Controls) Stats() (handled, ignored uint64) {
	return c.handled.Load(), c.ignored.Load()
}

func (c *Controls) apply(msg gomidi.Message) bool {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return c.note(ch, key, true)
	case msg.GetNoteEnd(&ch, &key):
		return c.note(ch, key, false)
	case msg.GetControlChange(&ch, &cc, &val):
		m, ok := c.m.CC[cc]
		if !ok || !c.accepts(ch) {
			return false
		}
		c.SetCV(m.Line, ccValue(val, m.Bipolar))
		return true
	case msg.GetPitchBend(&ch, &rel, &abs):
		if c.m.PitchBend == NoLine || !c.accepts(ch) {
			return false
		}
		c.SetCV(c.m.PitchBend, max(float64(rel)/8191, -1))
		return true
	}
	return false
}

func (c *Controls) note(ch, key uint8, on bool) bool {
	l, ok := c.m.Notes[key]
	if !ok || !c.accepts(ch) {
		return false
	}
	c.SetTrigger(l, on)
	return true
}

func (c *Controls) accepts(ch uint8) bool {
	return c.m.Channel == Omni || int(ch) == c.m.Channel
}

func ccValue(v uint8, bipolar bool) float64 {
	if bipolar {
		return max((float64(v)-64)/63, -1)
	}
	return float64(v) / 127
}
