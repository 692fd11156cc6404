package effect

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/feature"
	"lightbrainz/lib/timing"
	"lightbrainz/lib/wave"
)

const eps = 1e-9

var t0 = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

func TestZeroOneSin(t *testing.T) {
	assert.InDelta(t, 1.0, ZeroOneSin(math.Pi/2), eps)
	assert.InDelta(t, 0.0, ZeroOneSin(3*math.Pi/2), eps)
	assert.InDelta(t, 0.5, ZeroOneSin(0), eps)
}

func TestSineVariants(t *testing.T) {
	start := math.Pi / 4
	end := 5 * math.Pi / 4
	// Negative phases wrap, so this lands in the end half too.
	negEnd := -3 * math.Pi / 4

	tests := []struct {
		variant    SineVariant
		start, end float64
	}{
		{SineDefault, ZeroOneSin(start), ZeroOneSin(end)},
		{SineSnapInStart, 1, ZeroOneSin(end)},
		{SineSnapInEnd, ZeroOneSin(start), 1},
		{SineSnapOutStart, 0, ZeroOneSin(end)},
		{SineSnapOutEnd, ZeroOneSin(start), 0},
		{SineSnapBoth, 1, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			assert.InDelta(t, tt.start, tt.variant.Apply(start), eps)
			assert.InDelta(t, tt.end, tt.variant.Apply(end), eps)
			assert.InDelta(t, tt.end, tt.variant.Apply(negEnd), eps)
		})
	}

	assert.InDelta(t, 1.0, SineSnapBoth.Apply(0), eps, "0 is in the start half")
	assert.InDelta(t, 0.0, SineSnapBoth.Apply(math.Pi), eps, "pi is in the end half")
}

func TestIntensitySineQuarterBeat(t *testing.T) {
	d := &Descriptor{Speed: Speed{BPM: 120}, Effect: IntensitySine{Variant: SineDefault}}
	in := Input{
		Role:  feature.Intensity,
		State: &channel.CapturedState{Started: t0},
		Now:   t0.Add(125 * time.Millisecond),
	}

	res, err := d.Sample(in)
	require.NoError(t, err)
	assert.Nil(t, res.Node)
	assert.InDelta(t, 1.0, res.Level, 1e-9)

	in.Role = feature.IntensityFine
	res, err = d.Sample(in)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Level, 1e-9)

	in.Role = feature.Pan
	_, err = d.Sample(in)
	assert.ErrorIs(t, err, ErrNoValueForAttribute)

	in.State = nil
	_, err = d.Sample(in)
	assert.ErrorIs(t, err, ErrEffectNotStarted)
}

func TestPositionRectIsNotStarted(t *testing.T) {
	d := &Descriptor{Speed: DefaultSpeed(), Effect: PositionRect{PanSize: 1, TiltSize: 1}}
	_, err := d.Sample(Input{Role: feature.Pan, State: &channel.CapturedState{Started: t0}, Now: t0})
	assert.ErrorIs(t, err, ErrEffectNotStarted)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestResolveTiming(t *testing.T) {
	h := timing.NewHandler()

	t.Run("literal bpm", func(t *testing.T) {
		tm := ResolveTiming(Speed{BPM: 60}, Phase{}, t0, 0, t0.Add(2*time.Second), h)
		assert.InDelta(t, 2.0, tm.Elapsed, eps)
		assert.InDelta(t, 2*math.Pi, tm.Speed, eps)
		assert.InDelta(t, 4*math.Pi, tm.X(), eps)
	})

	t.Run("scaled master", func(t *testing.T) {
		tm := ResolveTiming(Speed{Master: &MasterRef{ID: 0, Scale: 1}}, Phase{}, t0, 0, t0, h)
		assert.InDelta(t, 240.0, tm.BPM, eps)
		assert.InDelta(t, 8*math.Pi, tm.Speed, eps)
	})

	t.Run("missing master freezes", func(t *testing.T) {
		tm := ResolveTiming(Speed{BPM: 90, Master: &MasterRef{ID: 42}}, Phase{}, t0, 0, t0.Add(time.Second), h)
		assert.Equal(t, 0.0, tm.BPM)
		assert.Equal(t, 0.0, tm.X())
	})

	t.Run("phase range", func(t *testing.T) {
		tm := ResolveTiming(Speed{BPM: 120}, Phase{Mode: PhaseRange, Start: 0, End: 90}, t0, 0.5, t0, h)
		assert.InDelta(t, math.Pi/4, tm.PhaseRad, eps)
		assert.InDelta(t, -math.Pi/4, tm.X(), eps)
	})
}

func TestResolveTimingSync(t *testing.T) {
	h := timing.NewHandler()
	ref := t0.Add(-10 * time.Second)
	_, err := h.Tap(3, ref)
	require.NoError(t, err)

	started := ref.Add(300 * time.Millisecond)

	unsynced := ResolveTiming(Speed{Master: &MasterRef{ID: 3}}, Phase{}, started, 0, started, h)
	assert.InDelta(t, 0.0, unsynced.Elapsed, eps)

	frac := ResolveTiming(Speed{Master: &MasterRef{ID: 3, Sync: SyncBeatFrac}}, Phase{}, started, 0, started, h)
	assert.InDelta(t, 0.3, frac.Elapsed, 1e-6)

	// 120 bpm doubled: the beat grid shrinks to 0.25s.
	beat := ResolveTiming(Speed{Master: &MasterRef{ID: 3, Scale: 1, Sync: SyncBeat}}, Phase{}, started, 0, started, h)
	assert.InDelta(t, 0.05, beat.Elapsed, 1e-6)
}

func TestScale(t *testing.T) {
	assert.Equal(t, 1.0, Scale(0).Value())
	assert.Equal(t, 1.0/128, MinScale.Value())
	assert.Equal(t, 128.0, Scale(9).Value())
	assert.Equal(t, "1/4", Scale(-2).String())
	assert.Equal(t, "x8", Scale(3).String())
}

func TestPositionEffects(t *testing.T) {
	eight := PositionFigureEight{PanSize: 0.4, TiltSize: 0.2, PanCenter: 0.5, TiltCenter: 0.5}
	v, err := eight.Value(math.Pi / 4)
	require.NoError(t, err)
	pos := v.(feature.PositionPanTilt)
	assert.InDelta(t, 0.7, pos.Pan, eps)
	assert.InDelta(t, 0.5+math.Sin(math.Pi/4)*0.1, pos.Tilt, eps)

	big := PositionFigureEight{PanSize: 4, PanCenter: 0.5}
	v, _ = big.Value(math.Pi / 4)
	assert.Greater(t, v.(feature.PositionPanTilt).Pan, 1.0, "figure eight is unclamped")

	ellipse := PositionEllipse{PanSize: 4, TiltSize: 0.5, PanCenter: 0.5, TiltCenter: 0.5}
	v, err = ellipse.Value(math.Pi / 2)
	require.NoError(t, err)
	pos = v.(feature.PositionPanTilt)
	assert.Equal(t, 1.0, pos.Pan)
	assert.InDelta(t, 0.75, pos.Tilt, eps)
}

func TestHueRotate(t *testing.T) {
	v, err := ColorHueRotate{HueSize: 0, HueCenter: 0}.Value(1)
	require.NoError(t, err)
	assert.InDeltaMapValues(t, map[string]float64{"r": 1, "g": 0, "b": 0}, rgbMap(v), eps)

	v, _ = ColorHueRotate{HueCenter: 1.0 / 3}.Value(0)
	assert.InDeltaMapValues(t, map[string]float64{"r": 0, "g": 1, "b": 0}, rgbMap(v), eps)

	// Hue wraps: 1 + 2/3 is blue.
	v, _ = ColorHueRotate{HueSize: 2, HueCenter: 2.0 / 3}.Value(math.Pi / 2)
	assert.InDeltaMapValues(t, map[string]float64{"r": 0, "g": 0, "b": 1}, rgbMap(v), eps)

	assert.Equal(t, feature.ColorRGB{R: 0.5, G: 0.5, B: 0.5}, HSLToRGB(0.3, 0, 0.5))
}

func rgbMap(v feature.Value) map[string]float64 {
	c := v.(feature.ColorRGB)
	return map[string]float64{"r": c.R, "g": c.G, "b": c.B}
}

func TestCurves(t *testing.T) {
	tests := []struct {
		curve Curve
		in    float64
		want  float64
	}{
		{CurveLinear, 0.3, 0.3},
		{CurveLinear, 1.7, 1},
		{CurveLinear, -1, 0},
		{CurveSnap, 0.99, 0},
		{CurveSnap, 1, 1},
		{CurveEaseIn, 0.5, 0.25},
		{CurveEaseOut, 0.5, 0.75},
		{CurveEaseInOut, 0.25, 0.125},
		{CurveEaseInOut, 0.75, 0.875},
		{CurveEaseInOut, 1, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, tt.curve.Value(tt.in), eps, "%s(%v)", tt.curve, tt.in)
	}
}

const dimmer = "Dimmer"

func values(fixtureID uint32, n channel.Node) ChannelValues {
	return ChannelValues{fixtureID: {dimmer: n}}
}

func TestKeyframeLayer(t *testing.T) {
	off := channel.Discrete{Value: 0}
	on := channel.Discrete{Value: 1}
	layer := Layer{Keyframes: []Keyframe{
		{Start: 0, Values: values(1, off), Curve: CurveLinear},
		{Start: 0, Values: values(1, on), Curve: CurveLinear},
	}}

	n, ok := layer.Value(1, dimmer, 0)
	require.True(t, ok)
	assert.Equal(t, off, n)

	n, ok = layer.Value(1, dimmer, 0.25)
	require.True(t, ok)
	m := n.(channel.Mix)
	assert.Equal(t, on, m.A)
	assert.Equal(t, off, m.B)
	assert.InDelta(t, 0.5, m.Factor, eps)

	// After the last keyframe the layer heads back to the first.
	n, ok = layer.Value(1, dimmer, 0.75)
	require.True(t, ok)
	m = n.(channel.Mix)
	assert.Equal(t, off, m.A)
	assert.Equal(t, on, m.B)
	assert.InDelta(t, 0.5, m.Factor, eps)

	_, ok = layer.Value(2, dimmer, 0.25)
	assert.False(t, ok)
}

func TestKeyframeStartsAndSnap(t *testing.T) {
	kf := Keyframe{Start: 0.5}
	assert.InDelta(t, 0.05, kf.AbsoluteStart(10, 0), eps)
	assert.InDelta(t, 0.95, kf.AbsoluteStart(10, 9), eps)
	assert.InDelta(t, 1.0, Keyframe{Start: 1}.AbsoluteStart(10, 9), eps)

	off := channel.Discrete{Value: 0}
	on := channel.Discrete{Value: 1}
	layer := Layer{Keyframes: []Keyframe{
		{Values: values(1, off)},
		{Values: values(1, on), Curve: CurveSnap},
	}}
	n, _ := layer.Value(1, dimmer, 0.49)
	assert.Equal(t, off, n, "snap holds until the segment ends")
}

func TestKeyframesLayerFallback(t *testing.T) {
	k := &Keyframes{Layers: []Layer{
		{Keyframes: []Keyframe{{Values: ChannelValues{1: {"Pan": channel.Discrete{Value: 0.2}}}}}},
		{Keyframes: []Keyframe{{Values: values(1, channel.Home{})}}},
	}}

	n, ok := k.Value(1, dimmer, 0)
	require.True(t, ok)
	assert.Equal(t, channel.Home{}, n)

	assert.Equal(t, []uint32{1}, k.Fixtures())
	assert.Equal(t, []string{dimmer, "Pan"}, k.Channels(1))

	d := &Descriptor{Speed: DefaultSpeed(), Effect: k}
	res, err := d.Sample(Input{FixtureID: 1, Channel: "Pan", State: &channel.CapturedState{Started: t0}, Now: t0})
	require.NoError(t, err)
	assert.Equal(t, channel.Discrete{Value: 0.2}, res.Node)

	_, err = d.Sample(Input{FixtureID: 1, Channel: "Tilt", State: &channel.CapturedState{Started: t0}, Now: t0})
	assert.ErrorIs(t, err, ErrNoValueForAttribute)
}

func TestWaves(t *testing.T) {
	ramp := wave.Curve{Points: []wave.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}
	w := &Waves{Parts: []WavePart{
		{Wave: ramp, Channels: []string{dimmer}},
		{Wave: ramp, Channels: []string{"Zoom", dimmer}, PhaseScale: 2},
		{Wave: ramp, Channels: []string{"Focus"}, PhaseOffset: 90},
	}}

	v, ok := w.Value(dimmer, math.Pi)
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, eps)

	v, _ = w.Value("Zoom", math.Pi)
	assert.InDelta(t, 0.25, v, eps)

	v, _ = w.Value("Focus", math.Pi)
	assert.InDelta(t, 0.25, v, eps)

	_, ok = w.Value("Gobo", 1)
	assert.False(t, ok)
	assert.Equal(t, []string{dimmer, "Zoom", "Focus"}, w.Channels())
}

func TestCovers(t *testing.T) {
	sine := &Descriptor{Effect: IntensitySine{}}
	assert.True(t, sine.Covers(1, "Dim", feature.IntensityFine))
	assert.False(t, sine.Covers(1, "Dim", feature.Pan))

	waves := &Descriptor{Effect: &Waves{Parts: []WavePart{{Channels: []string{dimmer}}}}}
	assert.True(t, waves.Covers(7, dimmer, feature.Unused))
	assert.False(t, waves.Covers(7, "Zoom", feature.Zoom))
}

func TestDescriptorJSON(t *testing.T) {
	d := &Descriptor{
		Speed: Speed{Master: &MasterRef{ID: 2, Scale: -1, Sync: SyncBeat}},
		Phase: Phase{Mode: PhaseRange, Start: 0, End: 180},
		Effect: &Keyframes{Layers: []Layer{{Keyframes: []Keyframe{
			{Start: 0, Values: values(4, channel.Discrete{Value: 1}), Curve: CurveEaseIn},
		}}}},
	}
	b, err := json.Marshal(d)
	require.NoError(t, err)

	var back Descriptor
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d.Speed, back.Speed)
	assert.Equal(t, d.Phase, back.Phase)
	k, ok := back.Effect.(*Keyframes)
	require.True(t, ok)
	assert.Equal(t, channel.Discrete{Value: 1}, k.Layers[0].Keyframes[0].Values[4][dimmer])
	assert.Equal(t, CurveEaseIn, k.Layers[0].Keyframes[0].Curve)

	var bare Speed
	require.NoError(t, json.Unmarshal([]byte(`96`), &bare))
	assert.Equal(t, Speed{BPM: 96}, bare)

	_, err = Config{Kind: "strobe"}.Build()
	assert.Error(t, err)
}
