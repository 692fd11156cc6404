package feature

import (
	"fmt"
	"strings"

	"lightbrainz/lib/channel"
)

// DisplayState summarizes what a feature currently shows. Implementations:
// DisplayHome, DisplayPreset, DisplayDiscrete, DisplayValue.
type DisplayState interface {
	displayState()
}

type DisplayHome struct{}

type DisplayPreset struct {
	ID channel.PresetID
}

// DisplayDiscrete is the literal level of the feature's primary channel.
type DisplayDiscrete struct {
	Value float64
}

// DisplayValue carries a resolved feature value when the channels disagree.
type DisplayValue struct {
	Value Value
}

func (DisplayHome) displayState()     {}
func (DisplayPreset) displayState()   {}
func (DisplayDiscrete) displayState() {}
func (DisplayValue) displayState()    {}

// IsHome reports whether s is DisplayHome.
func IsHome(s DisplayState) bool {
	_, ok := s.(DisplayHome)
	return ok
}

// Summarize picks the display state for a feature's member nodes.
// All members showing the same Home or Preset node collapse to that state;
// otherwise the primary (first) member's discrete level is reported, and
// anything else falls through to resolved.
func Summarize(nodes []channel.Node, resolved func() (Value, error)) (DisplayState, error) {
	if len(nodes) == 0 {
		return DisplayHome{}, nil
	}
	first := nodes[0].String()
	same := true
	for _, n := range nodes[1:] {
		if n.String() != first {
			same = false
			break
		}
	}
	if same {
		switch n := nodes[0].(type) {
		case channel.Home:
			return DisplayHome{}, nil
		case channel.Preset:
			return DisplayPreset{ID: n.ID}, nil
		}
	}
	if d, ok := nodes[0].(channel.Discrete); ok {
		return DisplayDiscrete{Value: d.Value}, nil
	}
	v, err := resolved()
	if err != nil {
		return nil, err
	}
	return DisplayValue{Value: v}, nil
}

// DisplayText renders s for an operator. presetName looks up the preset's
// name and reports false for presets that no longer exist.
func DisplayText(s DisplayState, presetName func(channel.PresetID) (string, bool)) string {
	switch s := s.(type) {
	case DisplayHome:
		return "Home"
	case DisplayPreset:
		if presetName != nil {
			if name, ok := presetName(s.ID); ok {
				return name
			}
		}
		return fmt.Sprintf("Preset %s (deleted)", s.ID)
	case DisplayDiscrete:
		return fmt.Sprintf("%.2f%%", s.Value*100)
	case DisplayValue:
		return valueText(s.Value)
	default:
		return "?"
	}
}

func valueText(v Value) string {
	switch v := v.(type) {
	case Single:
		return fmt.Sprintf("%.2f%%", v.Value*100)
	case ColorRGB:
		return fmt.Sprintf("R%.0f G%.0f B%.0f", v.R*255, v.G*255, v.B*255)
	case ColorMacroValue:
		return fmt.Sprintf("Macro %d", v.Macro)
	case PositionPanTilt:
		var b strings.Builder
		fmt.Fprintf(&b, "Pan %.2f Tilt %.2f", v.Pan, v.Tilt)
		if v.Speed != nil {
			fmt.Fprintf(&b, " Speed %.2f", *v.Speed)
		}
		return b.String()
	default:
		return "?"
	}
}
