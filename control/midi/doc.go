// Package midi turns incoming MIDI messages into the trigger and CV lines
// the rack reads once per block.
//
// Messages arrive on a device goroutine and are decoded into atomics; the
// audio goroutine reads a consistent-enough snapshot without locking.
// Individual lines are updated atomically, so a block may see one line
// from before and another from after a burst of messages.
package midi
