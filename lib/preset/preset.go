// Package preset stores presets and decides which fixture channels a
// preset drives.
//
// A preset holds either captured channel values or an effect. Presets are
// immutable once handed to a Handler; updates replace them.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/effect"
	"lightbrainz/lib/feature"
)

var (
	ErrExists       = errors.New("preset already exists")
	ErrNotUpdatable = errors.New("effect presets cannot be updated from values")
	ErrEmptyContent = errors.New("preset has no content")
	ErrMixedContent = errors.New("preset cannot hold both values and an effect")
	ErrUnknownMode  = errors.New("unknown update mode")
	ErrUnknownGroup = errors.New("unknown feature group")
)

type NotFoundError struct {
	ID channel.PresetID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("preset %s not found", e.ID)
}

func (e *NotFoundError) NotFound() bool { return true }

// UpdateMode decides how recorded values meet existing ones.
type UpdateMode string

const (
	// UpdateMerge only adds fixtures the preset does not know yet.
	UpdateMerge UpdateMode = "merge"
	// UpdateOverride replaces the values of every recorded fixture.
	UpdateOverride UpdateMode = "override"
)

// Target summarizes how a preset relates to a set of selected fixtures.
type Target int

const (
	TargetNone Target = iota
	TargetSome
	TargetAll
)

func (t Target) String() string {
	switch t {
	case TargetAll:
		return "all"
	case TargetSome:
		return "some"
	default:
		return "none"
	}
}

// Preset is either captured values or an effect.
type Preset struct {
	ID     channel.PresetID
	Name   string
	Values effect.ChannelValues
	Effect *effect.Descriptor
}

// New builds a value preset. An empty name becomes the default
// "<group> Preset <id>" label.
func New(id channel.PresetID, name string, values effect.ChannelValues) (*Preset, error) {
	if name == "" {
		n, err := DefaultName(id)
		if err != nil {
			return nil, err
		}
		name = n
	}
	return &Preset{ID: id, Name: name, Values: values}, nil
}

// DefaultName labels a preset after its feature group.
func DefaultName(id channel.PresetID) (string, error) {
	g, ok := feature.DefaultGroups()[id.Group]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownGroup, id.Group)
	}
	return fmt.Sprintf("%s Preset %s", g.Name, id), nil
}

func (p *Preset) validate() error {
	switch {
	case p.Effect != nil && len(p.Values) > 0:
		return ErrMixedContent
	case p.Effect == nil && p.Values == nil:
		return ErrEmptyContent
	case p.Effect != nil && p.Effect.Effect == nil:
		return ErrEmptyContent
	}
	return nil
}

// IsEffect reports whether the preset runs an effect.
func (p *Preset) IsEffect() bool { return p.Effect != nil }

// Value returns the captured value tree for a fixture channel.
func (p *Preset) Value(fixtureID uint32, name string) (channel.Node, bool) {
	n, ok := p.Values[fixtureID][name]
	return n, ok
}

// ChannelRef names one channel of a fixture together with its role.
type ChannelRef struct {
	Name string
	Role feature.ChannelType
}

// Channels returns the names among chans that applying p to fixtureID
// sets, in the order of chans.
func (p *Preset) Channels(fixtureID uint32, chans []ChannelRef) []string {
	var out []string
	for _, c := range chans {
		if p.Effect != nil {
			if p.Effect.Covers(fixtureID, c.Name, c.Role) {
				out = append(out, c.Name)
			}
			continue
		}
		if _, ok := p.Value(fixtureID, c.Name); ok {
			out = append(out, c.Name)
		}
	}
	return out
}

// Target reports whether p holds values for all, some or none of the
// selected fixtures. Effects target every fixture.
func (p *Preset) Target(selected []uint32) Target {
	if p.Effect != nil {
		return TargetAll
	}
	mutual := 0
	for _, id := range selected {
		if _, ok := p.Values[id]; ok {
			mutual++
		}
	}
	switch {
	case mutual == 0:
		return TargetNone
	case mutual == len(selected):
		return TargetAll
	default:
		return TargetSome
	}
}

// Fixtures lists the fixtures the preset carries values for, sorted.
func (p *Preset) Fixtures() []uint32 {
	if p.Effect != nil {
		if k, ok := p.Effect.Effect.(*effect.Keyframes); ok {
			return k.Fixtures()
		}
	}
	return slices.Sorted(maps.Keys(p.Values))
}

// withUpdate returns a copy of p with values merged in per mode, and the
// number of fixtures that changed.
func (p *Preset) withUpdate(values effect.ChannelValues, mode UpdateMode) (*Preset, int, error) {
	if p.Effect != nil {
		return nil, 0, ErrNotUpdatable
	}
	if mode != UpdateMerge && mode != UpdateOverride {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	next := &Preset{ID: p.ID, Name: p.Name, Values: maps.Clone(p.Values)}
	if next.Values == nil {
		next.Values = make(effect.ChannelValues)
	}
	updated := 0
	for fid, chans := range values {
		if _, exists := next.Values[fid]; exists && mode != UpdateOverride {
			continue
		}
		next.Values[fid] = maps.Clone(chans)
		updated++
	}
	return next, updated, nil
}

type presetJSON struct {
	ID     channel.PresetID                   `json:"id"`
	Name   string                             `json:"name"`
	Values map[uint32]map[string]channel.Tree `json:"values,omitempty"`
	Effect *effect.Descriptor                 `json:"effect,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p *Preset) MarshalJSON() ([]byte, error) {
	out := presetJSON{ID: p.ID, Name: p.Name, Effect: p.Effect}
	if len(p.Values) > 0 {
		out.Values = make(map[uint32]map[string]channel.Tree, len(p.Values))
		for fid, chans := range p.Values {
			m := make(map[string]channel.Tree, len(chans))
			for name, n := range chans {
				m[name] = channel.Tree{Node: n}
			}
			out.Values[fid] = m
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Preset) UnmarshalJSON(data []byte) error {
	var in presetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode preset: %w", err)
	}
	*p = Preset{ID: in.ID, Name: in.Name, Effect: in.Effect, Values: treeValues(in.Values)}
	return nil
}

func treeValues(in map[uint32]map[string]channel.Tree) effect.ChannelValues {
	if in == nil {
		return nil
	}
	out := make(effect.ChannelValues, len(in))
	for fid, chans := range in {
		m := make(map[string]channel.Node, len(chans))
		for name, t := range chans {
			if t.Node != nil {
				m[name] = t.Node
			}
		}
		out[fid] = m
	}
	return out
}
