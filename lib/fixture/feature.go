package fixture

import (
	"fmt"
	"math"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/dmxvalue"
	"lightbrainz/lib/feature"
	"lightbrainz/lib/profile"
	"lightbrainz/lib/resolve"
)

// FeatureConfigNotFoundError is returned when the profile does not
// configure the feature.
type FeatureConfigNotFoundError struct {
	FixtureID uint32
	Type      feature.Type
}

func (e *FeatureConfigNotFoundError) Error() string {
	return fmt.Sprintf("fixture %d has no %s feature", e.FixtureID, e.Type)
}

func (e *FeatureConfigNotFoundError) NotFound() bool { return true }

// FeatureNotFoundError is returned when a configured feature is missing
// one of its channels.
type FeatureNotFoundError struct {
	FixtureID uint32
	Type      feature.Type
	Role      feature.ChannelType
}

func (e *FeatureNotFoundError) Error() string {
	return fmt.Sprintf("fixture %d feature %s: no %s channel", e.FixtureID, e.Type, e.Role)
}

func (e *FeatureNotFoundError) NotFound() bool { return true }

type member struct {
	role feature.ChannelType
	ch   *profile.Channel
}

// FeatureConfig returns the profile's layout of feature t.
func (f *Fixture) FeatureConfig(t feature.Type) (feature.Config, error) {
	cfg, ok := f.Profile.Feature(t)
	if !ok {
		return feature.Config{}, &FeatureConfigNotFoundError{FixtureID: f.ID, Type: t}
	}
	return cfg, nil
}

func (f *Fixture) members(t feature.Type) (feature.Config, []member, error) {
	cfg, err := f.FeatureConfig(t)
	if err != nil {
		return cfg, nil, err
	}
	roles, err := feature.ChannelTypes(cfg)
	if err != nil {
		return cfg, nil, err
	}
	out := make([]member, 0, len(roles))
	for _, role := range roles {
		ch, ok := f.Profile.ChannelByRole(role)
		if !ok {
			return cfg, nil, &FeatureNotFoundError{FixtureID: f.ID, Type: t, Role: role}
		}
		out = append(out, member{role: role, ch: ch})
	}
	return cfg, out, nil
}

// FeatureChannels returns the names of the channels feature t owns, in
// feature order.
func (f *Fixture) FeatureChannels(t feature.Type) ([]string, error) {
	_, ms, err := f.members(t)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.ch.Name
	}
	return names, nil
}

// FeatureValue resolves every member channel of t and packs the result.
// Coarse and fine channels are recombined into one level per axis.
func (f *Fixture) FeatureValue(t feature.Type, env resolve.Env) (feature.Value, error) {
	_, ms, err := f.members(t)
	if err != nil {
		return nil, err
	}
	raw := make(map[feature.ChannelType]dmxvalue.Value, len(ms))
	for _, m := range ms {
		v, err := f.Resolve(m.ch, env)
		if err != nil {
			return nil, err
		}
		raw[m.role] = v
	}

	levels := make(map[feature.ChannelType]float64, len(ms))
	for role, v := range raw {
		if role.IsFine() {
			continue
		}
		var fine *dmxvalue.Value
		if fr, ok := role.FinePartner(); ok {
			if fv, ok := raw[fr]; ok {
				fine = &fv
			}
		}
		levels[role] = feature.Compose(v, fine)
	}

	switch t {
	case feature.TypeColorRGB:
		return feature.ColorRGB{R: levels[feature.Red], G: levels[feature.Green], B: levels[feature.Blue]}, nil
	case feature.TypeColorMacro:
		return feature.ColorMacroValue{Macro: uint8(math.Round(levels[feature.ColorMacro] * 255))}, nil
	case feature.TypePositionPanTilt:
		v := feature.PositionPanTilt{Pan: levels[feature.Pan], Tilt: levels[feature.Tilt]}
		if s, ok := levels[feature.PanTiltSpeed]; ok {
			v.Speed = &s
		}
		return v, nil
	default:
		role := ms[0].role
		return feature.Single{Type: t, Value: levels[role]}, nil
	}
}

// SetFeatureUpdates returns the channel trees that make the fixture show v.
func (f *Fixture) SetFeatureUpdates(v feature.Value) (map[string]channel.Node, error) {
	cfg, ms, err := f.members(v.FeatureType())
	if err != nil {
		return nil, err
	}
	nodes, err := feature.WriteBack(v, cfg)
	if err != nil {
		return nil, err
	}
	out := make(map[string]channel.Node, len(nodes))
	for _, m := range ms {
		if n, ok := nodes[m.role]; ok {
			out[m.ch.Name] = n
		}
	}
	return out, nil
}

// HomeFeatureUpdates returns Home for every member channel of t.
func (f *Fixture) HomeFeatureUpdates(t feature.Type) (map[string]channel.Node, error) {
	_, ms, err := f.members(t)
	if err != nil {
		return nil, err
	}
	out := make(map[string]channel.Node, len(ms))
	for _, m := range ms {
		out[m.ch.Name] = channel.Home{}
	}
	return out, nil
}

// DisplayState summarizes what feature t currently shows.
func (f *Fixture) DisplayState(t feature.Type, env resolve.Env) (feature.DisplayState, error) {
	_, ms, err := f.members(t)
	if err != nil {
		return nil, err
	}
	nodes := make([]channel.Node, len(ms))
	for i, m := range ms {
		nodes[i] = f.values[m.ch.Name]
	}
	return feature.Summarize(nodes, func() (feature.Value, error) {
		return f.FeatureValue(t, env)
	})
}
