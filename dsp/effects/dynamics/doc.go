// Package dynamics provides the level-dependent stages of the rack
// pipeline.
//
// Included processors:
//   - NoiseGate: Hysteresis gate driven by an external peak level, with
//     squared fade ramps on open and close edges and per-channel modes.
//   - SoftClip: Cubic output saturator applied per channel.
package dynamics
