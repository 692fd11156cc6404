package effect

import (
	"fmt"
	"math"

	"lightbrainz/lib/feature"
)

// FeatureEffect is a closed-form effect producing a whole feature value.
// Implementations: IntensitySine, PositionFigureEight, PositionEllipse,
// PositionRect, ColorHueRotate.
type FeatureEffect interface {
	Effect
	FeatureType() feature.Type
	// Roles lists the coarse channel roles the effect produces.
	Roles() []feature.ChannelType
	// Value evaluates the effect at x = t*speed - phase.
	Value(x float64) (feature.Value, error)
}

type IntensitySine struct {
	Variant SineVariant `json:"variant,omitempty" yaml:"variant,omitempty"`
}

// PositionFigureEight traces a Lissajous figure eight: pan runs at twice
// the tilt frequency. Output is not clamped.
type PositionFigureEight struct {
	PanSize    float64 `json:"pan_size" yaml:"pan_size"`
	TiltSize   float64 `json:"tilt_size" yaml:"tilt_size"`
	PanCenter  float64 `json:"pan_center" yaml:"pan_center"`
	TiltCenter float64 `json:"tilt_center" yaml:"tilt_center"`
}

// PositionEllipse drives both axes from the same shaped sine.
type PositionEllipse struct {
	PanSize    float64     `json:"pan_size" yaml:"pan_size"`
	TiltSize   float64     `json:"tilt_size" yaml:"tilt_size"`
	PanCenter  float64     `json:"pan_center" yaml:"pan_center"`
	TiltCenter float64     `json:"tilt_center" yaml:"tilt_center"`
	Variant    SineVariant `json:"variant,omitempty" yaml:"variant,omitempty"`
}

// PositionRect is declared so presets carrying it decode, but it has no
// evaluator yet and always reports ErrEffectNotStarted and
// ErrNotImplemented.
//
// TODO: trace the rectangle corners.
type PositionRect struct {
	PanSize    float64 `json:"pan_size" yaml:"pan_size"`
	TiltSize   float64 `json:"tilt_size" yaml:"tilt_size"`
	PanCenter  float64 `json:"pan_center" yaml:"pan_center"`
	TiltCenter float64 `json:"tilt_center" yaml:"tilt_center"`
}

// ColorHueRotate swings the hue around HueCenter at full saturation.
type ColorHueRotate struct {
	HueSize   float64 `json:"hue_size" yaml:"hue_size"`
	HueCenter float64 `json:"hue_center" yaml:"hue_center"`
}

func (IntensitySine) effectMarker()       {}
func (PositionFigureEight) effectMarker() {}
func (PositionEllipse) effectMarker()     {}
func (PositionRect) effectMarker()        {}
func (ColorHueRotate) effectMarker()      {}

func (IntensitySine) FeatureType() feature.Type       { return feature.TypeIntensity }
func (PositionFigureEight) FeatureType() feature.Type { return feature.TypePositionPanTilt }
func (PositionEllipse) FeatureType() feature.Type     { return feature.TypePositionPanTilt }
func (PositionRect) FeatureType() feature.Type        { return feature.TypePositionPanTilt }
func (ColorHueRotate) FeatureType() feature.Type      { return feature.TypeColorRGB }

var (
	intensityRoles = []feature.ChannelType{feature.Intensity}
	panTiltRoles   = []feature.ChannelType{feature.Pan, feature.Tilt}
	rgbRoles       = []feature.ChannelType{feature.Red, feature.Green, feature.Blue}
)

func (IntensitySine) Roles() []feature.ChannelType       { return intensityRoles }
func (PositionFigureEight) Roles() []feature.ChannelType { return panTiltRoles }
func (PositionEllipse) Roles() []feature.ChannelType     { return panTiltRoles }
func (PositionRect) Roles() []feature.ChannelType        { return panTiltRoles }
func (ColorHueRotate) Roles() []feature.ChannelType      { return rgbRoles }

func (e IntensitySine) Value(x float64) (feature.Value, error) {
	return feature.Single{Type: feature.TypeIntensity, Value: e.Variant.Apply(x)}, nil
}

func (e PositionFigureEight) Value(x float64) (feature.Value, error) {
	return feature.PositionPanTilt{
		Pan:  math.Sin(2*x)*e.PanSize/2 + e.PanCenter,
		Tilt: math.Sin(x)*e.TiltSize/2 + e.TiltCenter,
	}, nil
}

func (e PositionEllipse) Value(x float64) (feature.Value, error) {
	v := e.Variant.Apply(x) - 0.5
	return feature.PositionPanTilt{
		Pan:  clamp01(v*e.PanSize + e.PanCenter),
		Tilt: clamp01(v*e.TiltSize + e.TiltCenter),
	}, nil
}

var errRect = fmt.Errorf("position rect: %w: %w", ErrNotImplemented, ErrEffectNotStarted)

func (PositionRect) Value(float64) (feature.Value, error) {
	return nil, errRect
}

func (e ColorHueRotate) Value(x float64) (feature.Value, error) {
	hue := math.Sin(x)*e.HueSize/2 + e.HueCenter
	hue -= math.Floor(hue)
	return HSLToRGB(hue, 1, 0.5), nil
}

func (IntensitySine) String() string       { return "Intensity Sine" }
func (PositionFigureEight) String() string { return "Figure 8" }
func (PositionEllipse) String() string     { return "Circle" }
func (PositionRect) String() string        { return "Rect" }
func (ColorHueRotate) String() string      { return "Hue Rotate" }

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}
