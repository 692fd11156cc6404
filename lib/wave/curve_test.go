package wave

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, 0.0, Fold(0))
	assert.InDelta(t, 0.25, Fold(math.Pi/2), 1e-12)
	assert.InDelta(t, 0.75, Fold(-math.Pi/2), 1e-12)
	assert.Equal(t, 1.0, Fold(2*math.Pi))
	assert.Equal(t, 1.0, Fold(4*math.Pi))
	assert.Equal(t, 0.0, Fold(math.NaN()))
}

func TestEmptyCurveIsZero(t *testing.T) {
	var c Curve
	for _, x := range []float64{0, 1, math.Pi, 100} {
		assert.Equal(t, 0.0, c.Value(x))
	}
}

func TestSinglePointAtEndOfCycle(t *testing.T) {
	c := Curve{Points: []Point{{X: 1, Y: 0.7}}}

	assert.Equal(t, 0.7, c.Value(2*math.Pi))
	assert.Equal(t, 0.7, c.Value(6*math.Pi))

	for _, x := range []float64{0, 0.1, math.Pi / 2, math.Pi, 1.9 * math.Pi} {
		assert.Equal(t, 0.0, c.Value(x), "t=%v", x)
	}
}

func TestTriangle(t *testing.T) {
	// Stored out of order on purpose.
	c := Curve{Points: []Point{
		{X: 0.5, Y: 1},
		{X: 0, Y: 0},
		{X: 1, Y: 0},
	}}

	assert.InDelta(t, 0.5, c.Value(math.Pi/2), 1e-9)
	assert.InDelta(t, 1.0, c.Value(math.Pi), 1e-9)
	assert.InDelta(t, 0.5, c.Value(1.5*math.Pi), 1e-9)
	assert.InDelta(t, 0.5, c.Value(-math.Pi/2), 1e-9)
	// Input is not mutated.
	assert.Equal(t, 0.5, c.Points[0].X)
}

func TestPastLastPointIsZero(t *testing.T) {
	c := Curve{Points: []Point{{X: 0, Y: 1}, {X: 0.5, Y: 1}}}
	assert.Equal(t, 0.0, c.Value(1.5*math.Pi))
}

func TestSegmentCurves(t *testing.T) {
	square := Curve{Points: []Point{{X: 0, Y: 0.2}, {X: 1, Y: 0.8, Segment: SegmentSquare}}}
	assert.Equal(t, 0.2, square.Value(0.4*math.Pi))
	assert.Equal(t, 0.8, square.Value(1.2*math.Pi))

	smooth := Curve{Points: []Point{{X: 0, Y: 0}, {X: 1, Y: 1, Segment: SegmentSmooth}}}
	assert.InDelta(t, 0.5, smooth.Value(math.Pi), 1e-9)
	assert.Less(t, smooth.Value(0.2*math.Pi), 0.1)
}
