// Package telemetry moves per-block metrics and audio off the audio
// goroutine and analyzes them there.
//
// [Ring] is a single-producer single-consumer queue that implements
// [rack.Sink]; when the consumer falls behind, new blocks are dropped and
// counted rather than waited for. [Analyzer] consumes frames and keeps a
// level history, an output magnitude spectrum and an optional tone tracker.
package telemetry
