package rack

// Processor is the capability every sound processor implements.
//
// Process is called on the audio goroutine once per block with the channels
// the processor is expected to produce: [MaskBoth] for stereo processors,
// [MaskLeft] or [MaskRight] for mono ones. It must not block, must not
// retain ctx or its buffer, and should not allocate.
//
// Parameter changes from other goroutines are the processor's own concern;
// the engine provides no locking around Process beyond the slot guard.
type Processor interface {
	Stereo() bool
	Process(mask Mask, ctx *Context)
}

// ControlSource fills the control snapshot at the start of each block.
// Read is called on the audio goroutine and must not block.
type ControlSource interface {
	Read(s *Snapshot)
}

// ControlSourceFunc adapts a function to [ControlSource].
type ControlSourceFunc func(s *Snapshot)

// Read calls f(s).
func (f ControlSourceFunc) Read(s *Snapshot) { f(s) }

// Sink receives the metrics and the finished block after every call to
// [Engine.Process]. Push runs on the audio goroutine: it must copy what it
// keeps and must never block.
type Sink interface {
	Push(m Metrics, block []float64)
}
