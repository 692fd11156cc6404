// Package fixture holds patched fixtures and the value tree currently
// assigned to each of their channels.
package fixture

import (
	"errors"
	"fmt"
	"maps"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/dmxvalue"
	"lightbrainz/lib/preset"
	"lightbrainz/lib/profile"
	"lightbrainz/lib/resolve"
)

// UniverseSize is the number of slots in one DMX universe.
const UniverseSize = 512

var (
	ErrExists     = errors.New("fixture already exists")
	ErrBadPatch   = errors.New("fixture does not fit its universe")
	ErrNilNode    = errors.New("fixture: nil channel value")
	ErrNoProfile  = errors.New("fixture: missing profile")
	ErrAddrInUse  = errors.New("fixture: address range overlaps another fixture")
	ErrTooComplex = errors.New("fixture: value tree too deep")
)

type NotFoundError struct {
	ID uint32
}

func (e *NotFoundError) Error() string  { return fmt.Sprintf("fixture %d not found", e.ID) }
func (e *NotFoundError) NotFound() bool { return true }

type ChannelNotFoundError struct {
	FixtureID uint32
	Channel   string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("fixture %d has no channel %q", e.FixtureID, e.Channel)
}

func (e *ChannelNotFoundError) NotFound() bool { return true }

// Fixture is one patched fixture. A Fixture value is never modified after
// it has been stored in a Handler; changes produce a new Fixture.
type Fixture struct {
	ID       uint32
	Name     string
	Profile  *profile.Profile
	Universe uint16

	// Address is the 1-based first slot.
	Address uint16

	values map[string]channel.Node
}

// New patches a fixture with every channel at Home.
func New(id uint32, name string, p *profile.Profile, universe, address uint16) (*Fixture, error) {
	if p == nil {
		return nil, ErrNoProfile
	}
	if address < 1 || int(address)+p.Footprint()-1 > UniverseSize {
		return nil, fmt.Errorf("%w: fixture %d at %d.%d needs %d slots", ErrBadPatch, id, universe, address, p.Footprint())
	}
	if name == "" {
		name = fmt.Sprintf("%s %d", p.Name, id)
	}
	values := make(map[string]channel.Node, len(p.Channels))
	for _, ch := range p.Channels {
		values[ch.Name] = channel.Home{}
	}
	return &Fixture{ID: id, Name: name, Profile: p, Universe: universe, Address: address, values: values}, nil
}

// Channel returns the profile channel called name.
func (f *Fixture) Channel(name string) (*profile.Channel, error) {
	ch, err := f.Profile.Channel(name)
	if err != nil {
		return nil, &ChannelNotFoundError{FixtureID: f.ID, Channel: name}
	}
	return ch, nil
}

// Node returns the tree currently assigned to a channel.
func (f *Fixture) Node(name string) (channel.Node, error) {
	n, ok := f.values[name]
	if !ok {
		return nil, &ChannelNotFoundError{FixtureID: f.ID, Channel: name}
	}
	return n, nil
}

// Values returns a copy of the channel to tree mapping.
func (f *Fixture) Values() map[string]channel.Node {
	return maps.Clone(f.values)
}

// ChannelRefs lists the fixture's channels with their roles, in
// profile order.
func (f *Fixture) ChannelRefs() []preset.ChannelRef {
	refs := make([]preset.ChannelRef, 0, len(f.Profile.Channels))
	for _, ch := range f.Profile.Channels {
		refs = append(refs, preset.ChannelRef{Name: ch.Name, Role: ch.Role})
	}
	return refs
}

// Slot is the 0-based universe slot of the channel's first byte.
func (f *Fixture) Slot(ch *profile.Channel) int {
	return int(f.Address) - 1 + ch.Offset()
}

// span is the 0-based slot range [first, last] the fixture occupies.
func (f *Fixture) span() (first, last int) {
	first = int(f.Address) - 1
	return first, first + f.Profile.Footprint() - 1
}

// with returns a copy of f with updates applied. Every name must be a
// channel of f.
func (f *Fixture) with(updates map[string]channel.Node) (*Fixture, error) {
	for name, n := range updates {
		if _, ok := f.values[name]; !ok {
			return nil, &ChannelNotFoundError{FixtureID: f.ID, Channel: name}
		}
		if n == nil {
			return nil, fmt.Errorf("%w: fixture %d channel %q", ErrNilNode, f.ID, name)
		}
		if channel.Depth(n) > resolve.MaxDepth {
			return nil, fmt.Errorf("%w: fixture %d channel %q", ErrTooComplex, f.ID, name)
		}
	}
	next := *f
	next.values = maps.Clone(f.values)
	maps.Copy(next.values, updates)
	return &next, nil
}

// Resolve evaluates the tree of one channel.
func (f *Fixture) Resolve(ch *profile.Channel, env resolve.Env) (dmxvalue.Value, error) {
	n, ok := f.values[ch.Name]
	if !ok {
		return dmxvalue.Value{}, &resolve.ChannelError{FixtureID: f.ID, Channel: ch.Name,
			Err: &ChannelNotFoundError{FixtureID: f.ID, Channel: ch.Name}}
	}
	return resolve.Resolve(n, env.Context(f.ID, ch.Name, ch))
}

// ResolveName is Resolve by channel name.
func (f *Fixture) ResolveName(name string, env resolve.Env) (dmxvalue.Value, error) {
	ch, err := f.Channel(name)
	if err != nil {
		return dmxvalue.Value{}, &resolve.ChannelError{FixtureID: f.ID, Channel: name, Err: err}
	}
	return f.Resolve(ch, env)
}
