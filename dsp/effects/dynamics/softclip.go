package dynamics

import "math"

// SoftClip maps x through the cubic saturator 1.5*(x - x^3/3), which meets
// the rails at +/-1 with zero slope. Inputs outside (-1, 1) are clamped.
func SoftClip(x float64) float64 {
	if math.Abs(x) < 1 {
		return 1.5 * (x - (x*x*x)/3)
	}
	return math.Copysign(1, x)
}

// SoftClipChannel applies [SoftClip] to one channel of an interleaved
// stereo block in place.
func SoftClipChannel(buf []float64, ch int) {
	for i := ch; i < len(buf); i += 2 {
		buf[i] = SoftClip(buf[i])
	}
}
