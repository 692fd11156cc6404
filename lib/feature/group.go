package feature

// Group is a named set of roles that presets record and apply together.
type Group struct {
	ID           uint32        `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	ChannelTypes []ChannelType `json:"channel_types" yaml:"channel_types"`
}

const (
	GroupIntensity uint32 = 0
	GroupPosition  uint32 = 1
	GroupColor     uint32 = 2
	GroupBeam      uint32 = 3
	GroupFocus     uint32 = 4
	GroupControl   uint32 = 5
)

// DefaultGroups returns the stock feature groups keyed by id.
func DefaultGroups() map[uint32]Group {
	groups := []Group{
		{ID: GroupIntensity, Name: "Intensity", ChannelTypes: []ChannelType{Intensity, IntensityFine}},
		{ID: GroupPosition, Name: "Position", ChannelTypes: []ChannelType{Pan, PanFine, Tilt, TiltFine, PanTiltSpeed}},
		{ID: GroupColor, Name: "Color", ChannelTypes: []ChannelType{
			Red, RedFine, Green, GreenFine, Blue, BlueFine, White, WhiteFine, ColorMacro, ColorTemp,
		}},
		{ID: GroupBeam, Name: "Beam", ChannelTypes: []ChannelType{Prism, PrismRotation, Gobo, GoboRotation, Shutter}},
		{ID: GroupFocus, Name: "Focus", ChannelTypes: []ChannelType{Zoom, ZoomFine, Focus, FocusFine}},
		{ID: GroupControl, Name: "Control", ChannelTypes: nil},
	}
	out := make(map[uint32]Group, len(groups))
	for _, g := range groups {
		out[g.ID] = g
	}
	return out
}

// Contains reports whether role belongs to g.
func (g Group) Contains(role ChannelType) bool {
	for _, r := range g.ChannelTypes {
		if r == role {
			return true
		}
	}
	return false
}
