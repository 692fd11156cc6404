package feature

import (
	"fmt"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/dmxvalue"
)

// Value is a typed feature reading. Implementations: Single, ColorRGB,
// ColorMacroValue, PositionPanTilt.
type Value interface {
	FeatureType() Type
	featureValue()
}

// Single is the value of a one-axis feature such as intensity or zoom.
type Single struct {
	Type  Type    `json:"type"`
	Value float64 `json:"value"`
}

// ColorRGB is a normalized RGB triple.
type ColorRGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// ColorMacroValue selects a color wheel/macro slot by raw value.
type ColorMacroValue struct {
	Macro uint8 `json:"macro"`
}

// PositionPanTilt is a normalized pan/tilt position with optional speed.
type PositionPanTilt struct {
	Pan   float64  `json:"pan"`
	Tilt  float64  `json:"tilt"`
	Speed *float64 `json:"speed,omitempty"`
}

func (v Single) FeatureType() Type        { return v.Type }
func (ColorRGB) FeatureType() Type        { return TypeColorRGB }
func (ColorMacroValue) FeatureType() Type { return TypeColorMacro }
func (PositionPanTilt) FeatureType() Type { return TypePositionPanTilt }

func (Single) featureValue()          {}
func (ColorRGB) featureValue()        {}
func (ColorMacroValue) featureValue() {}
func (PositionPanTilt) featureValue() {}

// Component returns the normalized level v carries for a channel role. Fine
// roles report the same level as their coarse partner; callers pick the
// byte they need from it.
func Component(v Value, role ChannelType) (float64, bool) {
	if coarse, ok := role.CoarsePartner(); ok {
		role = coarse
	}
	switch v := v.(type) {
	case Single:
		if singleChannel[v.Type] == role {
			return v.Value, true
		}
	case ColorRGB:
		switch role {
		case Red:
			return v.R, true
		case Green:
			return v.G, true
		case Blue:
			return v.B, true
		}
	case ColorMacroValue:
		if role == ColorMacro {
			return float64(v.Macro) / 255, true
		}
	case PositionPanTilt:
		switch role {
		case Pan:
			return v.Pan, true
		case Tilt:
			return v.Tilt, true
		case PanTiltSpeed:
			if v.Speed != nil {
				return *v.Speed, true
			}
		}
	}
	return 0, false
}

// SplitCoarseFine quantizes f to 16 bits and returns the coarse and fine
// bytes as normalized levels for two 8-bit channels.
func SplitCoarseFine(f float64) (coarse, fine float64) {
	v, _ := dmxvalue.FromFloat(f, 2, 0)
	parts := v.Split()
	return parts[0].Float(), parts[1].Float()
}

// Compose joins a coarse value and an optional fine value into one level.
// Layouts too wide to combine fall back to the coarse value alone.
func Compose(coarse dmxvalue.Value, fine *dmxvalue.Value) float64 {
	if fine == nil {
		return coarse.Float()
	}
	combined, err := dmxvalue.Combine(coarse, *fine)
	if err != nil {
		return coarse.Float()
	}
	return combined.Float()
}

// WriteBack converts v into the per-channel nodes that reproduce it on a
// fixture laid out as cfg. Fine channels are only written when cfg.Fine is
// set.
func WriteBack(v Value, cfg Config) (map[ChannelType]channel.Node, error) {
	if v.FeatureType() != cfg.Type {
		return nil, fmt.Errorf("feature: cannot write %s value to %s feature", v.FeatureType(), cfg.Type)
	}
	roles, err := ChannelTypes(cfg)
	if err != nil {
		return nil, err
	}

	out := make(map[ChannelType]channel.Node, len(roles))
	for _, role := range roles {
		if role.IsFine() {
			continue
		}
		level, ok := Component(v, role)
		if !ok {
			continue
		}
		fineRole, hasFine := role.FinePartner()
		if hasFine && cfg.Fine {
			coarse, fine := SplitCoarseFine(level)
			out[role] = channel.Discrete{Value: coarse}
			out[fineRole] = channel.Discrete{Value: fine}
			continue
		}
		out[role] = channel.Discrete{Value: level}
	}
	return out, nil
}
