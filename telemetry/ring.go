package telemetry

import (
	"fmt"
	"math/bits"
	"sync/atomic"

	"github.com/cwbudde/algo-rack/dsp/rack"
)

// Frame is one block as seen by the sink.
type Frame struct {
	Seq     uint64
	Metrics rack.Metrics
	Block   []float64
}

// Ring is a bounded SPSC queue of frames with preallocated storage. Push is
// called by the audio goroutine and never blocks or allocates for blocks up
// to the configured size; Pop is called by one consumer goroutine.
type Ring struct {
	slots []Frame
	mask  uint64

	head atomic.Uint64 // next slot to write
	tail atomic.Uint64 // next slot to read

	seq     uint64
	dropped atomic.Uint64
}

var _ rack.Sink = (*Ring)(nil)

// NewRing returns a ring of at least capacity frames, rounded up to a power
// of two, each holding blocks of up to blockLen samples.
func NewRing(capacity, blockLen int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("telemetry ring capacity must be > 0: %d", capacity)
	}
	if blockLen <= 0 {
		return nil, fmt.Errorf("telemetry block length must be > 0: %d", blockLen)
	}

	n := uint64(1) << bits.Len64(uint64(capacity-1))
	r := &Ring{slots: make([]Frame, n), mask: n - 1}
	for i := range r.slots {
		r.slots[i].Block = make([]float64, 0, blockLen)
	}
	return r, nil
}

// Cap returns the number of frames the ring can hold.
func (r *Ring) Cap() int { return len(r.slots) }

// Len returns the number of queued frames.
func (r *Ring) Len() int { return int(r.head.Load() - r.tail.Load()) }

// Dropped returns the number of frames discarded because the ring was full.
func (r *Ring) Dropped() uint64 { return r.dropped.Load() }

// Push copies m and block into the ring. It drops the frame when the ring
// is full. Blocks longer than the slot size are truncated.
func (r *Ring) Push(m rack.Metrics, block []float64) {
	r.seq++

	head := r.head.Load()
	if head-r.tail.Load() == uint64(len(r.slots)) {
		r.dropped.Add(1)
		return
	}

	f := &r.slots[head&r.mask]
	f.Seq = r.seq
	f.Metrics = m
	n := min(len(block), cap(f.Block))
	f.Block = f.Block[:n]
	copy(f.Block, block)

	r.head.Store(head + 1)
}

// Pop copies the oldest frame into dst and reports whether there was one.
// dst.Block is reused when it has enough capacity.
func (r *Ring) Pop(dst *Frame) bool {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return false
	}

	f := &r.slots[tail&r.mask]
	dst.Seq = f.Seq
	dst.Metrics = f.Metrics
	if cap(dst.Block) < len(f.Block) {
		dst.Block = make([]float64, len(f.Block))
	}
	dst.Block = dst.Block[:len(f.Block)]
	copy(dst.Block, f.Block)

	r.tail.Store(tail + 1)
	return true
}
