// Package dcblock implements the one-pole DC blocking high-pass used to
// condition raw stereo input before level detection and gating.
//
// The filter is
//
//	y[n] = x[n] - x[n-1] + R*y[n-1],  R = 1 - 2*pi*fc/fs
//
// with one independent state pair per physical channel.
package dcblock
