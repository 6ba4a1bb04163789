// Package spectrum turns FFT bins into the magnitude readouts shown by the
// output monitor, and tracks single tones with a Goertzel filter.
//
// The package does not implement an FFT itself; it works on bins produced
// by an external backend.
package spectrum
