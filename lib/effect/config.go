package effect

import (
	"encoding/json"
	"fmt"

	"lightbrainz/lib/channel"
)

// Kind strings of the flat effect encoding.
const (
	KindIntensitySine       = "intensity_sine"
	KindPositionFigureEight = "position_figure_eight"
	KindPositionEllipse     = "position_ellipse"
	KindPositionRect        = "position_rect"
	KindColorHueRotate      = "color_hue_rotate"
	KindKeyframes           = "keyframes"
	KindWaves               = "waves"
)

// Config is the flat, serializable form of an Effect. Only the fields of
// the named Kind are read.
type Config struct {
	Kind string `json:"kind" yaml:"kind"`

	Variant    SineVariant `json:"variant,omitempty" yaml:"variant,omitempty"`
	PanSize    float64     `json:"pan_size,omitempty" yaml:"pan_size,omitempty"`
	TiltSize   float64     `json:"tilt_size,omitempty" yaml:"tilt_size,omitempty"`
	PanCenter  float64     `json:"pan_center,omitempty" yaml:"pan_center,omitempty"`
	TiltCenter float64     `json:"tilt_center,omitempty" yaml:"tilt_center,omitempty"`
	HueSize    float64     `json:"hue_size,omitempty" yaml:"hue_size,omitempty"`
	HueCenter  float64     `json:"hue_center,omitempty" yaml:"hue_center,omitempty"`

	Layers []LayerConfig `json:"layers,omitempty" yaml:"layers,omitempty"`
	Parts  []WavePart    `json:"parts,omitempty" yaml:"parts,omitempty"`
}

type LayerConfig struct {
	Keyframes []KeyframeConfig `json:"keyframes" yaml:"keyframes"`
}

type KeyframeConfig struct {
	Start  float64                            `json:"start" yaml:"start"`
	Curve  Curve                              `json:"curve,omitempty" yaml:"curve,omitempty"`
	Values map[uint32]map[string]channel.Tree `json:"values" yaml:"values"`
}

// Build turns the flat form back into an Effect.
func (c Config) Build() (Effect, error) {
	switch c.Kind {
	case KindIntensitySine:
		return IntensitySine{Variant: c.Variant}, nil
	case KindPositionFigureEight:
		return PositionFigureEight{PanSize: c.PanSize, TiltSize: c.TiltSize, PanCenter: c.PanCenter, TiltCenter: c.TiltCenter}, nil
	case KindPositionEllipse:
		return PositionEllipse{PanSize: c.PanSize, TiltSize: c.TiltSize, PanCenter: c.PanCenter, TiltCenter: c.TiltCenter, Variant: c.Variant}, nil
	case KindPositionRect:
		return PositionRect{PanSize: c.PanSize, TiltSize: c.TiltSize, PanCenter: c.PanCenter, TiltCenter: c.TiltCenter}, nil
	case KindColorHueRotate:
		return ColorHueRotate{HueSize: c.HueSize, HueCenter: c.HueCenter}, nil
	case KindKeyframes:
		k := &Keyframes{Layers: make([]Layer, len(c.Layers))}
		for i, lc := range c.Layers {
			l := Layer{Keyframes: make([]Keyframe, len(lc.Keyframes))}
			for j, kc := range lc.Keyframes {
				values := make(ChannelValues, len(kc.Values))
				for fid, chans := range kc.Values {
					m := make(map[string]channel.Node, len(chans))
					for name, tree := range chans {
						if tree.Node == nil {
							return nil, fmt.Errorf("keyframe %d.%d: fixture %d channel %q: empty value", i, j, fid, name)
						}
						m[name] = tree.Node
					}
					values[fid] = m
				}
				l.Keyframes[j] = Keyframe{Start: kc.Start, Curve: kc.Curve, Values: values}
			}
			k.Layers[i] = l
		}
		return k, nil
	case KindWaves:
		return &Waves{Parts: c.Parts}, nil
	case "":
		return nil, fmt.Errorf("effect: missing kind")
	default:
		return nil, fmt.Errorf("effect: unknown kind %q", c.Kind)
	}
}

// ConfigOf flattens e.
func ConfigOf(e Effect) (Config, error) {
	switch e := e.(type) {
	case IntensitySine:
		return Config{Kind: KindIntensitySine, Variant: e.Variant}, nil
	case PositionFigureEight:
		return Config{Kind: KindPositionFigureEight, PanSize: e.PanSize, TiltSize: e.TiltSize, PanCenter: e.PanCenter, TiltCenter: e.TiltCenter}, nil
	case PositionEllipse:
		return Config{Kind: KindPositionEllipse, PanSize: e.PanSize, TiltSize: e.TiltSize, PanCenter: e.PanCenter, TiltCenter: e.TiltCenter, Variant: e.Variant}, nil
	case PositionRect:
		return Config{Kind: KindPositionRect, PanSize: e.PanSize, TiltSize: e.TiltSize, PanCenter: e.PanCenter, TiltCenter: e.TiltCenter}, nil
	case ColorHueRotate:
		return Config{Kind: KindColorHueRotate, HueSize: e.HueSize, HueCenter: e.HueCenter}, nil
	case *Keyframes:
		c := Config{Kind: KindKeyframes, Layers: make([]LayerConfig, len(e.Layers))}
		for i, l := range e.Layers {
			lc := LayerConfig{Keyframes: make([]KeyframeConfig, len(l.Keyframes))}
			for j, kf := range l.Keyframes {
				values := make(map[uint32]map[string]channel.Tree, len(kf.Values))
				for fid, chans := range kf.Values {
					m := make(map[string]channel.Tree, len(chans))
					for name, n := range chans {
						m[name] = channel.Tree{Node: n}
					}
					values[fid] = m
				}
				lc.Keyframes[j] = KeyframeConfig{Start: kf.Start, Curve: kf.Curve, Values: values}
			}
			c.Layers[i] = lc
		}
		return c, nil
	case *Waves:
		return Config{Kind: KindWaves, Parts: e.Parts}, nil
	default:
		return Config{}, fmt.Errorf("effect: unsupported type %T", e)
	}
}

// DescriptorConfig is the serializable form of a Descriptor.
type DescriptorConfig struct {
	Speed  Speed  `json:"speed" yaml:"speed"`
	Phase  Phase  `json:"phase" yaml:"phase"`
	Effect Config `json:"effect" yaml:"effect"`
}

// Build returns the descriptor. A zero speed defaults to DefaultSpeed.
func (c DescriptorConfig) Build() (*Descriptor, error) {
	e, err := c.Effect.Build()
	if err != nil {
		return nil, err
	}
	speed := c.Speed
	if speed.Master == nil && speed.BPM == 0 {
		speed = DefaultSpeed()
	}
	return &Descriptor{Speed: speed, Phase: c.Phase, Effect: e}, nil
}

// MarshalJSON implements json.Marshaler.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	ec, err := ConfigOf(d.Effect)
	if err != nil {
		return nil, err
	}
	return json.Marshal(DescriptorConfig{Speed: d.Speed, Phase: d.Phase, Effect: ec})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var c DescriptorConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("decode effect: %w", err)
	}
	built, err := c.Build()
	if err != nil {
		return err
	}
	*d = *built
	return nil
}
