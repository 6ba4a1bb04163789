package rack

// Remix selectors. Each output channel has one; it describes where that
// channel's processed content goes.
const (
	RemixKeep   = 0 // stays on its own channel
	RemixSpread = 1 // shared at half level between both channels
	RemixMove   = 2 // moves to the other channel at full level
)

// Remix redistributes the two channels of an interleaved block in place.
// toStereo0 and toStereo1 select the behavior for channel 0 and channel 1;
// with a and b the input samples of one frame:
//
//	(1,0) spread 0 to both             0.5a       | 0.5a + b
//	(0,1) spread 1 to both             a + 0.5b   | 0.5b
//	(1,1) mix both to both             0.5(a+b)   | 0.5(a+b)
//	(2,2) swap                         b          | a
//	(2,0) mix 0 into 1, mute 0         0          | 0.5(a+b)
//	(0,2) mix 1 into 0, mute 1         0.5(a+b)   | 0
//	(2,1) move 0 to 1, spread 1        0.5b       | a + 0.5b
//	(1,2) move 1 to 0, spread 0        0.5a + b   | 0.5a
//
// Any other pair leaves the block unchanged.
func Remix(buf []float64, toStereo0, toStereo1 int) {
	var c [4]float64 // out0 = c0*a + c1*b, out1 = c2*a + c3*b

	switch [2]int{toStereo0, toStereo1} {
	case [2]int{RemixSpread, RemixKeep}:
		c = [4]float64{0.5, 0, 0.5, 1}
	case [2]int{RemixKeep, RemixSpread}:
		c = [4]float64{1, 0.5, 0, 0.5}
	case [2]int{RemixSpread, RemixSpread}:
		c = [4]float64{0.5, 0.5, 0.5, 0.5}
	case [2]int{RemixMove, RemixMove}:
		c = [4]float64{0, 1, 1, 0}
	case [2]int{RemixMove, RemixKeep}:
		c = [4]float64{0, 0, 0.5, 0.5}
	case [2]int{RemixKeep, RemixMove}:
		c = [4]float64{0.5, 0.5, 0, 0}
	case [2]int{RemixMove, RemixSpread}:
		c = [4]float64{0, 0.5, 1, 0.5}
	case [2]int{RemixSpread, RemixMove}:
		c = [4]float64{0.5, 1, 0.5, 0}
	default:
		return
	}

	for i := 0; i+1 < len(buf); i += 2 {
		a, b := buf[i], buf[i+1]
		buf[i] = c[0]*a + c[1]*b
		buf[i+1] = c[2]*a + c[3]*b
	}
}
