package spectrum

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
)

// Split copies the real and imaginary parts of in into re and im, which
// must be at least len(in) long.
func Split(in []complex128, re, im []float64) {
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}
}

// MagnitudeFromParts computes |X[k]| = sqrt(re[k]^2 + im[k]^2) into dst.
//
// All three slices must have the same length.
func MagnitudeFromParts(dst, re, im []float64) {
	vecmath.Magnitude(dst, re, im)
}

// BinFrequency returns the frequency of the possibly fractional bin
// position of an fftSize-point transform.
func BinFrequency(bin float64, fftSize int, sampleRate float64) float64 {
	return bin * sampleRate / float64(fftSize)
}

// PeakBin returns the index of the largest magnitude, ignoring bin 0, and
// its fractional position refined by parabolic interpolation.
func PeakBin(mag []float64) (int, float64, error) {
	if len(mag) < 2 {
		return 0, 0, fmt.Errorf("spectrum: need at least 2 bins: %d", len(mag))
	}

	k := 1
	for i := 2; i < len(mag); i++ {
		if mag[i] > mag[k] {
			k = i
		}
	}

	if k == len(mag)-1 {
		return k, float64(k), nil
	}

	a, b, c := mag[k-1], mag[k], mag[k+1]
	den := a - 2*b + c
	if den == 0 {
		return k, float64(k), nil
	}

	return k, float64(k) + 0.5*(a-c)/den, nil
}
