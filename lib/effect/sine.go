package effect

import "math"

// ZeroOneSin is sin(x) mapped onto 0..1. It peaks at pi/2, bottoms out at
// 3pi/2 and crosses 0.5 at 0.
func ZeroOneSin(x float64) float64 {
	return (math.Sin(x) + 1) / 2
}

// startHalf reports whether x lies in the first half of its 2pi cycle.
func startHalf(x float64) bool {
	m := math.Mod(x, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	return m < math.Pi
}

// SineVariant shapes ZeroOneSin. Snap variants replace one half of each
// cycle with a hard step; the start half is [0, pi), the end half [pi, 2pi).
type SineVariant string

const (
	SineDefault      SineVariant = "default"
	SineSnapInStart  SineVariant = "snap_in_start"
	SineSnapInEnd    SineVariant = "snap_in_end"
	SineSnapOutStart SineVariant = "snap_out_start"
	SineSnapOutEnd   SineVariant = "snap_out_end"
	SineSnapBoth     SineVariant = "snap_both"
)

// Apply evaluates the variant at x. Unknown and empty variants behave
// like SineDefault.
func (v SineVariant) Apply(x float64) float64 {
	start := startHalf(x)
	switch v {
	case SineSnapInStart:
		if start {
			return 1
		}
	case SineSnapInEnd:
		if !start {
			return 1
		}
	case SineSnapOutStart:
		if start {
			return 0
		}
	case SineSnapOutEnd:
		if !start {
			return 0
		}
	case SineSnapBoth:
		if start {
			return 1
		}
		return 0
	}
	return ZeroOneSin(x)
}
