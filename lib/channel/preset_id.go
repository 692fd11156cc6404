package channel

import (
	"fmt"
	"strconv"
	"strings"
)

// PresetID addresses a preset inside a feature group. Its text form is
// "group.preset", e.g. "1.4".
type PresetID struct {
	Group  uint32 `json:"group"`
	Preset uint32 `json:"preset"`
}

func (id PresetID) String() string {
	return fmt.Sprintf("%d.%d", id.Group, id.Preset)
}

// Less orders ids by group, then preset.
func (id PresetID) Less(other PresetID) bool {
	if id.Group != other.Group {
		return id.Group < other.Group
	}
	return id.Preset < other.Preset
}

// ParsePresetID parses the "group.preset" form.
func ParsePresetID(s string) (PresetID, error) {
	g, p, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return PresetID{}, fmt.Errorf("invalid preset id %q: want group.preset", s)
	}
	group, err := strconv.ParseUint(g, 10, 32)
	if err != nil {
		return PresetID{}, fmt.Errorf("invalid preset id %q: group: %w", s, err)
	}
	preset, err := strconv.ParseUint(p, 10, 32)
	if err != nil {
		return PresetID{}, fmt.Errorf("invalid preset id %q: preset: %w", s, err)
	}
	return PresetID{Group: uint32(group), Preset: uint32(preset)}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (id PresetID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *PresetID) UnmarshalText(b []byte) error {
	parsed, err := ParsePresetID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
