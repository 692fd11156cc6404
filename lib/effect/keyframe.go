package effect

import (
	"slices"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/wave"
)

// Curve shapes the fade of the segment ending at a keyframe.
type Curve string

const (
	CurveLinear    Curve = "linear"
	CurveSnap      Curve = "snap"
	CurveEaseIn    Curve = "ease_in"
	CurveEaseOut   Curve = "ease_out"
	CurveEaseInOut Curve = "ease_in_out"
)

// Value maps a segment fraction to a fade factor. t is clamped to [0,1];
// unknown curves are linear.
func (c Curve) Value(t float64) float64 {
	t = clamp01(t)
	switch c {
	case CurveSnap:
		if t >= 1 {
			return 1
		}
		return 0
	case CurveEaseIn:
		return t * t
	case CurveEaseOut:
		return 1 - (1-t)*(1-t)
	case CurveEaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		u := -2*t + 2
		return 1 - u*u/2
	default:
		return t
	}
}

// ChannelValues holds value trees per fixture and channel name.
type ChannelValues map[uint32]map[string]channel.Node

func (v ChannelValues) get(fixtureID uint32, name string) (channel.Node, bool) {
	n, ok := v[fixtureID][name]
	return n, ok
}

// Keyframe is one step of a keyframe layer. Start is relative to the
// keyframe's slot: 0 places it at the beginning of its 1/n share of the
// cycle, 1 at the end.
type Keyframe struct {
	Start  float64       `json:"start" yaml:"start"`
	Values ChannelValues `json:"-" yaml:"-"`
	Curve  Curve         `json:"curve,omitempty" yaml:"curve,omitempty"`
}

// AbsoluteStart places keyframe idx of n on the 0..1 cycle.
func (k Keyframe) AbsoluteStart(n, idx int) float64 {
	return k.Start/float64(n) + float64(idx)/float64(n)
}

// Layer is an ordered sequence of keyframes. After the last keyframe the
// layer fades back to the first one.
type Layer struct {
	Keyframes []Keyframe `json:"keyframes" yaml:"keyframes"`
}

// Value returns the tree for a fixture channel at cycle fraction t.
func (l Layer) Value(fixtureID uint32, name string, t float64) (channel.Node, bool) {
	n := len(l.Keyframes)
	if n == 0 {
		return nil, false
	}

	idx := n - 1
	for i := 0; i < n-1; i++ {
		if l.Keyframes[i+1].AbsoluteStart(n, i+1) > t {
			idx = i
			break
		}
	}

	start := l.Keyframes[idx].AbsoluteStart(n, idx)
	end := 1.0
	if idx+1 < n {
		end = l.Keyframes[idx+1].AbsoluteStart(n, idx+1)
	}
	local := 1.0
	if span := end - start; span > 0 {
		local = (t - start) / span
	}

	cur, ok := l.Keyframes[idx].Values.get(fixtureID, name)
	if !ok {
		return nil, false
	}
	next := l.Keyframes[(idx+1)%n]
	fade := next.Curve.Value(local)
	if fade == 0 {
		return cur, true
	}
	target, ok := next.Values.get(fixtureID, name)
	if !ok {
		return nil, false
	}
	return channel.Mix{A: target, B: cur, Factor: fade}, true
}

// Keyframes is a stack of keyframe layers. The first layer that has a
// value for a channel wins.
type Keyframes struct {
	Layers []Layer `json:"layers" yaml:"layers"`
}

func (*Keyframes) effectMarker() {}

func (*Keyframes) String() string { return "Keyframes" }

// Value folds x onto the 0..1 cycle and looks the channel up layer by
// layer.
func (k *Keyframes) Value(fixtureID uint32, name string, x float64) (channel.Node, bool) {
	t := wave.Fold(x)
	for _, l := range k.Layers {
		if n, ok := l.Value(fixtureID, name, t); ok {
			return n, true
		}
	}
	return nil, false
}

// Fixtures returns the ids of all fixtures any keyframe touches, sorted.
func (k *Keyframes) Fixtures() []uint32 {
	seen := make(map[uint32]struct{})
	for _, l := range k.Layers {
		for _, kf := range l.Keyframes {
			for id := range kf.Values {
				seen[id] = struct{}{}
			}
		}
	}
	ids := make([]uint32, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Channels returns the channel names touched for fixtureID, sorted.
func (k *Keyframes) Channels(fixtureID uint32) []string {
	seen := make(map[string]struct{})
	for _, l := range k.Layers {
		for _, kf := range l.Keyframes {
			for name := range kf.Values[fixtureID] {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
