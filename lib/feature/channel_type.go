// Package feature groups physical channel roles into logical fixture
// features and converts between feature values and per-channel values.
package feature

// ChannelType is the role a physical channel plays inside a feature.
type ChannelType string

const (
	Unused ChannelType = "unused"

	Intensity     ChannelType = "intensity"
	IntensityFine ChannelType = "intensity_fine"

	Pan          ChannelType = "pan"
	PanFine      ChannelType = "pan_fine"
	Tilt         ChannelType = "tilt"
	TiltFine     ChannelType = "tilt_fine"
	PanTiltSpeed ChannelType = "pan_tilt_speed"

	Red       ChannelType = "red"
	RedFine   ChannelType = "red_fine"
	Green     ChannelType = "green"
	GreenFine ChannelType = "green_fine"
	Blue      ChannelType = "blue"
	BlueFine  ChannelType = "blue_fine"
	White     ChannelType = "white"
	WhiteFine ChannelType = "white_fine"

	ColorMacro ChannelType = "color_macro"
	ColorTemp  ChannelType = "color_temp"

	Prism         ChannelType = "prism"
	PrismRotation ChannelType = "prism_rotation"
	Gobo          ChannelType = "gobo"
	GoboRotation  ChannelType = "gobo_rotation"

	Zoom      ChannelType = "zoom"
	ZoomFine  ChannelType = "zoom_fine"
	Focus     ChannelType = "focus"
	FocusFine ChannelType = "focus_fine"

	Shutter ChannelType = "shutter"
)

var fineOf = map[ChannelType]ChannelType{
	Intensity: IntensityFine,
	Pan:       PanFine,
	Tilt:      TiltFine,
	Red:       RedFine,
	Green:     GreenFine,
	Blue:      BlueFine,
	White:     WhiteFine,
	Zoom:      ZoomFine,
	Focus:     FocusFine,
}

var coarseOf = func() map[ChannelType]ChannelType {
	m := make(map[ChannelType]ChannelType, len(fineOf))
	for c, f := range fineOf {
		m[f] = c
	}
	return m
}()

var shortNames = map[ChannelType]string{
	Unused:        "X",
	Intensity:     "Int",
	IntensityFine: "IntF",
	Pan:           "Pa",
	PanFine:       "PaF",
	Tilt:          "Ti",
	TiltFine:      "TiF",
	PanTiltSpeed:  "PaTiSp",
	Red:           "Re",
	RedFine:       "ReF",
	Green:         "Gr",
	GreenFine:     "GrF",
	Blue:          "Bl",
	BlueFine:      "BlF",
	White:         "Wh",
	WhiteFine:     "WhF",
	ColorMacro:    "CoMa",
	ColorTemp:     "CoTe",
	Prism:         "Pr",
	PrismRotation: "PrR",
	Gobo:          "Go",
	GoboRotation:  "GoRo",
	Zoom:          "Zo",
	ZoomFine:      "ZoF",
	Focus:         "Fo",
	FocusFine:     "FoF",
	Shutter:       "Sh",
}

// Known reports whether c is one of the defined roles.
func (c ChannelType) Known() bool {
	_, ok := shortNames[c]
	return ok
}

// ShortName is the abbreviated label used in compact displays.
func (c ChannelType) ShortName() string {
	if s, ok := shortNames[c]; ok {
		return s
	}
	return string(c)
}

// FinePartner returns the fine role paired with a coarse role.
func (c ChannelType) FinePartner() (ChannelType, bool) {
	f, ok := fineOf[c]
	return f, ok
}

// CoarsePartner returns the coarse role paired with a fine role.
func (c ChannelType) CoarsePartner() (ChannelType, bool) {
	f, ok := coarseOf[c]
	return f, ok
}

// IsFine reports whether c is the low byte of a coarse/fine pair.
func (c ChannelType) IsFine() bool {
	_, ok := coarseOf[c]
	return ok
}
