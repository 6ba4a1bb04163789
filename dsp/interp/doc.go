// Package interp provides the fractional-read interpolators used by the
// delay line.
//
//   - [Linear2]:  2-point linear interpolation
//   - [Hermite4]: 4-point cubic Hermite (default)
package interp
