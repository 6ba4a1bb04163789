// Package rack implements the real-time block engine of the module.
//
// Once per audio block [Engine.Process] runs, in strict order:
//
//  1. refresh the control [Snapshot] (trigger and CV lines)
//  2. DC-block the stereo input and update the input peak followers
//  3. run the hysteretic noise gate
//  4. dispatch the block to the processors bound in [Slots]
//  5. remix the two outputs (only when a processor produced both)
//  6. soft clip and meter the output
//  7. check the block against its deadline
//
// The audio goroutine and the control goroutine share exactly one piece of
// mutable state, the slot registry. The audio side only ever uses the
// non-blocking acquisition of its [Guard]; when a control-plane edit holds
// the guard the block runs without processors instead of waiting.
package rack
