package core

// Stereo blocks are interleaved: frame i occupies buf[2*i] (channel 0)
// and buf[2*i+1] (channel 1).

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// ZeroChannel sets every sample of one channel of an interleaved stereo
// block to 0. ch must be 0 or 1.
func ZeroChannel(buf []float64, ch int) {
	for i := ch; i < len(buf); i += 2 {
		buf[i] = 0
	}
}

// CopyChannel copies channel src of an interleaved stereo block into
// channel dst of the same block.
func CopyChannel(buf []float64, dst, src int) {
	if dst == src {
		return
	}
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i+dst] = buf[i+src]
	}
}
