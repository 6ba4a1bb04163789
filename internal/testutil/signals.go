package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Stereo interleaves two equally long channels into one block of
// len(ch0) frames. Missing samples in ch1 are zero.
func Stereo(ch0, ch1 []float64) []float64 {
	out := make([]float64, 2*len(ch0))
	for i, v := range ch0 {
		out[2*i] = v
		if i < len(ch1) {
			out[2*i+1] = ch1[i]
		}
	}
	return out
}

// StereoDC returns an interleaved block of frames frames with the given
// constant value on each channel.
func StereoDC(left, right float64, frames int) []float64 {
	return Stereo(DC(left, frames), DC(right, frames))
}

// Channel extracts one channel of an interleaved stereo block.
func Channel(block []float64, ch int) []float64 {
	out := make([]float64, len(block)/2)
	for i := range out {
		out[i] = block[2*i+ch]
	}
	return out
}

// SplitBlocks cuts an interleaved signal into consecutive blocks of frames
// frames each. A trailing partial block is dropped.
func SplitBlocks(signal []float64, frames int) [][]float64 {
	size := 2 * frames
	var blocks [][]float64
	for off := 0; off+size <= len(signal); off += size {
		block := make([]float64, size)
		copy(block, signal[off:off+size])
		blocks = append(blocks, block)
	}
	return blocks
}
