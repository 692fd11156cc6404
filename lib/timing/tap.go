package timing

import "time"

const (
	// maxBeatLength is the longest gap between taps that still continues a
	// chain (30 bpm).
	maxBeatLength = 2 * time.Second

	// chainResetBeats ends a chain when the gap exceeds this many beats at
	// the current tempo.
	chainResetBeats = 2

	minTapsForBPM = 2

	defaultMaxTaps = 10
)

// TapChain keeps the most recent taps of one tap-tempo gesture and derives a
// tempo from them.
type TapChain struct {
	taps    []time.Time
	maxTaps int
}

// NewTapChain returns a chain holding at most maxTaps taps.
func NewTapChain(maxTaps int) *TapChain {
	if maxTaps < minTapsForBPM {
		maxTaps = defaultMaxTaps
	}
	return &TapChain{taps: make([]time.Time, 0, maxTaps), maxTaps: maxTaps}
}

func (c *TapChain) active(at time.Time, lastBPM float64) bool {
	if len(c.taps) == 0 {
		return true
	}
	gap := at.Sub(c.taps[len(c.taps)-1])
	if gap < 0 || gap >= maxBeatLength {
		return false
	}
	if lastBPM > 0 {
		reset := time.Duration(float64(time.Minute) / lastBPM * chainResetBeats)
		if gap >= reset {
			return false
		}
	}
	return true
}

// Tap records a tap at the given instant and returns the resulting tempo. A
// tap that is too far from the previous one starts a new chain, in which
// case lastBPM is returned unchanged.
func (c *TapChain) Tap(at time.Time, lastBPM float64) float64 {
	if !c.active(at, lastBPM) {
		c.taps = c.taps[:0]
	}
	if len(c.taps) == c.maxTaps {
		copy(c.taps, c.taps[1:])
		c.taps = c.taps[:len(c.taps)-1]
	}
	c.taps = append(c.taps, at)

	if len(c.taps) < minTapsForBPM {
		return lastBPM
	}
	return c.averageBPM()
}

// Len returns the number of taps in the current chain.
func (c *TapChain) Len() int { return len(c.taps) }

func (c *TapChain) averageBPM() float64 {
	var sum float64
	n := 0
	for i := 1; i < len(c.taps); i++ {
		d := c.taps[i].Sub(c.taps[i-1]).Seconds()
		if d <= 0 {
			continue
		}
		sum += 60 / d
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
