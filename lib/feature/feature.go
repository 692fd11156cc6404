package feature

import (
	"errors"
	"fmt"
)

// Type names a logical fixture capability.
type Type string

const (
	TypeIntensity       Type = "intensity"
	TypeZoom            Type = "zoom"
	TypeFocus           Type = "focus"
	TypeShutter         Type = "shutter"
	TypeColorRGB        Type = "color_rgb"
	TypeColorMacro      Type = "color_macro"
	TypePositionPanTilt Type = "position_pan_tilt"
)

// ErrUnknownType is returned for feature types this package does not define.
var ErrUnknownType = errors.New("feature: unknown feature type")

// Config describes how a feature is laid out on one fixture.
type Config struct {
	Type Type `json:"type" yaml:"type"`

	// Fine is set when the fixture carries fine channels for the feature.
	Fine bool `json:"fine,omitempty" yaml:"fine,omitempty"`

	// HasSpeed adds the pan/tilt speed channel to PositionPanTilt.
	HasSpeed bool `json:"has_speed,omitempty" yaml:"has_speed,omitempty"`
}

// singleChannel maps single-value features to their coarse role.
var singleChannel = map[Type]ChannelType{
	TypeIntensity: Intensity,
	TypeZoom:      Zoom,
	TypeFocus:     Focus,
	TypeShutter:   Shutter,
}

// ChannelTypes returns the ordered roles the feature owns for cfg.
func ChannelTypes(cfg Config) ([]ChannelType, error) {
	withFine := func(roles ...ChannelType) []ChannelType {
		out := make([]ChannelType, 0, 2*len(roles))
		for _, r := range roles {
			out = append(out, r)
			if fine, ok := r.FinePartner(); ok && cfg.Fine {
				out = append(out, fine)
			}
		}
		return out
	}

	if role, ok := singleChannel[cfg.Type]; ok {
		return withFine(role), nil
	}
	switch cfg.Type {
	case TypeColorRGB:
		return withFine(Red, Green, Blue), nil
	case TypeColorMacro:
		return []ChannelType{ColorMacro}, nil
	case TypePositionPanTilt:
		roles := withFine(Pan, Tilt)
		if cfg.HasSpeed {
			roles = append(roles, PanTiltSpeed)
		}
		return roles, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}

// TypeOf returns the feature a role belongs to.
func TypeOf(role ChannelType) (Type, bool) {
	if coarse, ok := role.CoarsePartner(); ok {
		role = coarse
	}
	for t, r := range singleChannel {
		if r == role {
			return t, true
		}
	}
	switch role {
	case Red, Green, Blue:
		return TypeColorRGB, true
	case ColorMacro:
		return TypeColorMacro, true
	case Pan, Tilt, PanTiltSpeed:
		return TypePositionPanTilt, true
	}
	return "", false
}
