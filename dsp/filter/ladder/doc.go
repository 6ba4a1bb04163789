// Package ladder provides a nonlinear four-stage transistor ladder
// low-pass filter with Huovilainen-style tuning and resonance
// compensation.
//
// The cutoff may be changed on every block without clicks, which makes the
// filter suitable as a voltage-controlled filter driven by CV lines.
package ladder
