package effect

import (
	"math"
	"slices"

	"lightbrainz/lib/wave"
)

// WavePart drives a list of channels, by name, from one wave curve.
type WavePart struct {
	Wave     wave.Curve `json:"wave" yaml:"wave"`
	Channels []string   `json:"channels" yaml:"channels"`
	// PhaseOffset shifts this part against the effect, in degrees.
	PhaseOffset float64 `json:"phase_offset,omitempty" yaml:"phase_offset,omitempty"`
	// PhaseScale stretches the wave over this many cycles. Zero means one.
	PhaseScale float64 `json:"phase_scale,omitempty" yaml:"phase_scale,omitempty"`
}

// Waves is an effect made of wave parts. The first part listing a channel
// drives it.
type Waves struct {
	Parts []WavePart `json:"parts" yaml:"parts"`
}

func (*Waves) effectMarker() {}

func (*Waves) String() string { return "Waves" }

// Value evaluates channel name at x = t*speed - phase.
func (w *Waves) Value(name string, x float64) (float64, bool) {
	for _, p := range w.Parts {
		if !slices.Contains(p.Channels, name) {
			continue
		}
		scale := p.PhaseScale
		if scale == 0 {
			scale = 1
		}
		return p.Wave.Value((x - p.PhaseOffset*math.Pi/180) / scale), true
	}
	return 0, false
}

// Channels returns every channel name the effect drives, in part order.
func (w *Waves) Channels() []string {
	var out []string
	for _, p := range w.Parts {
		for _, c := range p.Channels {
			if !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
	}
	return out
}
