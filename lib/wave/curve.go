// Package wave evaluates piecewise curves defined by control points over one
// cycle of a periodic phase.
package wave

import (
	"math"
	"sort"
)

// Segment selects how the segment ending at a control point is drawn.
type Segment string

const (
	SegmentLinear Segment = "linear"
	// SegmentSquare holds the previous point's y for the first half of the
	// segment and jumps to the point's y for the second half.
	SegmentSquare Segment = "square"
	// SegmentSmooth is a smoothstep between the two points.
	SegmentSmooth Segment = "smooth"
)

// Point is one control point. X and Y are both in [0,1].
type Point struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Segment Segment `json:"segment,omitempty" yaml:"segment,omitempty"`
}

// Curve is an ordered-by-evaluation set of control points. Points need not
// be stored sorted.
type Curve struct {
	Points []Point `json:"points" yaml:"points"`
}

// Fold maps a phase in radians onto the fraction of its cycle in [0,1).
// Positive exact multiples of 2π fold to 1 so a point placed at x=1 is
// reachable at the end of each cycle.
func Fold(t float64) float64 {
	const tau = 2 * math.Pi
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}
	m := math.Mod(t, tau)
	if m == 0 && t > 0 {
		return 1
	}
	if m < 0 {
		m += tau
	}
	return m / tau
}

// Value evaluates the curve at phase t (radians).
//
// The first point at or after the folded phase brackets the segment. If
// that point is the first in the curve, the result is its y only when the
// phase folds to exactly 1, and 0 otherwise. Phases past the last point
// also give 0. The curve does not wrap from its last point to its first.
func (c Curve) Value(t float64) float64 {
	if len(c.Points) == 0 {
		return 0
	}
	frac := Fold(t)
	points := c.sorted()

	idx := sort.Search(len(points), func(i int) bool { return points[i].X >= frac })
	if idx == len(points) {
		return 0
	}
	cur := points[idx]
	if idx == 0 {
		if frac == 1 {
			return cur.Y
		}
		return 0
	}

	prev := points[idx-1]
	span := cur.X - prev.X
	if span <= 0 {
		return cur.Y
	}
	local := (frac - prev.X) / span
	return interpolate(cur.Segment, prev.Y, cur.Y, local)
}

func (c Curve) sorted() []Point {
	if sort.SliceIsSorted(c.Points, func(i, j int) bool { return c.Points[i].X < c.Points[j].X }) {
		return c.Points
	}
	points := make([]Point, len(c.Points))
	copy(points, c.Points)
	sort.SliceStable(points, func(i, j int) bool { return points[i].X < points[j].X })
	return points
}

func interpolate(seg Segment, from, to, t float64) float64 {
	switch seg {
	case SegmentSquare:
		if t < 0.5 {
			return from
		}
		return to
	case SegmentSmooth:
		t = t * t * (3 - 2*t)
	}
	return from + (to-from)*t
}
