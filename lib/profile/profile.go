// Package profile is the fixture profile adapter: channel layout, byte
// widths, home values, channel functions and their named ranges.
//
// Profiles are read-only after Normalize. Lookups never lock.
package profile

import (
	"errors"
	"fmt"

	"lightbrainz/lib/dmxvalue"
	"lightbrainz/lib/feature"
)

// RangeKind tells how a named range resolves.
type RangeKind string

const (
	// RangeMacro is a fixed slot; it resolves to its From value.
	RangeMacro RangeKind = "macro"
	// RangeManual maps an attached 0..1 position onto [From, To].
	RangeManual RangeKind = "manual"
)

// Range is a named sub-range of a channel function. From and To are raw
// values at the channel's width.
type Range struct {
	Name string    `yaml:"name"`
	From uint64    `yaml:"from"`
	To   uint64    `yaml:"to"`
	Kind RangeKind `yaml:"kind,omitempty"`
}

// Function is one function of a channel, spanning raw values [From, To].
type Function struct {
	Name string  `yaml:"name"`
	From uint64  `yaml:"from"`
	To   *uint64 `yaml:"to,omitempty"`
	Sets []Range `yaml:"sets,omitempty"`
}

// Channel is one physical channel of a fixture.
type Channel struct {
	Name      string              `yaml:"name"`
	Role      feature.ChannelType `yaml:"role"`
	Bytes     uint8               `yaml:"bytes,omitempty"`
	Home      uint64              `yaml:"home,omitempty"`
	Functions []Function          `yaml:"functions,omitempty"`

	// Set by Normalize.
	offset  int
	shift   uint8
	logical uint8
}

// Profile describes one fixture type.
type Profile struct {
	Name     string           `yaml:"name"`
	Channels []*Channel       `yaml:"channels"`
	Features []feature.Config `yaml:"features,omitempty"`

	byName map[string]*Channel
	byRole map[feature.ChannelType]*Channel
}

var ErrInvalidProfile = errors.New("profile: invalid profile")

type ChannelNotFoundError struct {
	Profile string
	Channel string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("channel %q not found in profile %q", e.Channel, e.Profile)
}

func (e *ChannelNotFoundError) NotFound() bool { return true }

type FunctionNotFoundError struct {
	Channel  string
	Function int
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("channel %q has no function %d", e.Channel, e.Function)
}

func (e *FunctionNotFoundError) NotFound() bool { return true }

type RangeNotFoundError struct {
	Channel string
	Name    string
}

func (e *RangeNotFoundError) Error() string {
	return fmt.Sprintf("channel %q has no range %q", e.Channel, e.Name)
}

func (e *RangeNotFoundError) NotFound() bool { return true }

// Normalize fills defaults, validates the layout and pairs coarse and fine
// channels. It must be called once before lookups.
func (p *Profile) Normalize() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProfile)
	}
	p.byName = make(map[string]*Channel, len(p.Channels))
	p.byRole = make(map[feature.ChannelType]*Channel, len(p.Channels))

	offset := 0
	for i, ch := range p.Channels {
		if ch == nil || ch.Name == "" {
			return fmt.Errorf("%w: %s: channel %d has no name", ErrInvalidProfile, p.Name, i)
		}
		if _, dup := p.byName[ch.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate channel %q", ErrInvalidProfile, p.Name, ch.Name)
		}
		if ch.Bytes == 0 {
			ch.Bytes = 1
		}
		if !dmxvalue.ValidWidth(ch.Bytes) {
			return fmt.Errorf("%w: %s: channel %q: %w", ErrInvalidProfile, p.Name, ch.Name, dmxvalue.ErrInvalidByteWidth)
		}
		if ch.Role == "" {
			ch.Role = feature.Unused
		}
		if !ch.Role.Known() {
			return fmt.Errorf("%w: %s: channel %q: unknown role %q", ErrInvalidProfile, p.Name, ch.Name, ch.Role)
		}
		if len(ch.Functions) == 0 {
			ch.Functions = []Function{{Name: ch.Name}}
		}
		limit := dmxvalue.MaxFor(ch.Bytes)
		if ch.Home > limit {
			return fmt.Errorf("%w: %s: channel %q: home %d exceeds %d", ErrInvalidProfile, p.Name, ch.Name, ch.Home, limit)
		}
		for fi, fn := range ch.Functions {
			if fn.To == nil {
				to := limit
				ch.Functions[fi].To = &to
			} else if *fn.To > limit || *fn.To < fn.From {
				return fmt.Errorf("%w: %s: channel %q function %d: bad range %d..%d", ErrInvalidProfile, p.Name, ch.Name, fi, fn.From, *fn.To)
			}
		}

		ch.offset = offset
		ch.shift = 0
		ch.logical = ch.Bytes
		offset += int(ch.Bytes)

		p.byName[ch.Name] = ch
		if ch.Role != feature.Unused {
			if _, dup := p.byRole[ch.Role]; dup {
				return fmt.Errorf("%w: %s: role %q used twice", ErrInvalidProfile, p.Name, ch.Role)
			}
			p.byRole[ch.Role] = ch
		}
	}

	for role, coarse := range p.byRole {
		fineRole, ok := role.FinePartner()
		if !ok {
			continue
		}
		fine, ok := p.byRole[fineRole]
		if !ok {
			continue
		}
		logical := coarse.Bytes + fine.Bytes
		if !dmxvalue.ValidWidth(logical) {
			return fmt.Errorf("%w: %s: %s pair is %d bytes wide", ErrInvalidProfile, p.Name, role, logical)
		}
		coarse.logical, fine.logical = logical, logical
		fine.shift = coarse.Bytes
	}

	for _, cfg := range p.Features {
		if _, err := feature.ChannelTypes(cfg); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidProfile, p.Name, err)
		}
	}
	return nil
}

// Footprint is the number of DMX slots the fixture occupies.
func (p *Profile) Footprint() int {
	n := 0
	for _, ch := range p.Channels {
		n += int(ch.Bytes)
	}
	return n
}

// Channel looks a channel up by name.
func (p *Profile) Channel(name string) (*Channel, error) {
	if ch, ok := p.byName[name]; ok {
		return ch, nil
	}
	return nil, &ChannelNotFoundError{Profile: p.Name, Channel: name}
}

// ChannelByRole looks a channel up by role.
func (p *Profile) ChannelByRole(role feature.ChannelType) (*Channel, bool) {
	ch, ok := p.byRole[role]
	return ch, ok
}

// Feature returns the profile's config for a feature type.
func (p *Profile) Feature(t feature.Type) (feature.Config, bool) {
	for _, cfg := range p.Features {
		if cfg.Type == t {
			return cfg, true
		}
	}
	return feature.Config{}, false
}

// Offset is the channel's first slot relative to the fixture address.
func (c *Channel) Offset() int { return c.offset }

// ChannelRole returns the channel's role.
func (c *Channel) ChannelRole() feature.ChannelType { return c.Role }

// LogicalBytes is the width of the value the channel is part of; for a
// coarse/fine pair that is the pair's combined width.
func (c *Channel) LogicalBytes() uint8 { return c.logical }

// LogicalShift is the index of the channel's most significant byte inside
// its logical value.
func (c *Channel) LogicalShift() uint8 { return c.shift }

// HomeValue is the channel's neutral value.
func (c *Channel) HomeValue() (dmxvalue.Value, error) {
	return dmxvalue.New(c.Home, c.Bytes, c.shift)
}

func (c *Channel) function(idx int) (*Function, error) {
	if idx < 0 || idx >= len(c.Functions) {
		return nil, &FunctionNotFoundError{Channel: c.Name, Function: idx}
	}
	return &c.Functions[idx], nil
}

// ByteWidth is the width values of function idx are quantized at.
func (c *Channel) ByteWidth(idx int) (uint8, error) {
	if _, err := c.function(idx); err != nil {
		return 0, err
	}
	return c.Bytes, nil
}

// Shift is the byte shift values of function idx carry.
func (c *Channel) Shift(idx int) (uint8, error) {
	if _, err := c.function(idx); err != nil {
		return 0, err
	}
	return c.shift, nil
}

// FunctionRange returns the raw span of function idx.
func (c *Channel) FunctionRange(idx int) (from, to uint64, err error) {
	fn, err := c.function(idx)
	if err != nil {
		return 0, 0, err
	}
	return fn.From, *fn.To, nil
}

// NamedRange looks up a named sub-range of function idx.
func (c *Channel) NamedRange(idx int, name string) (Range, error) {
	fn, err := c.function(idx)
	if err != nil {
		return Range{}, err
	}
	for _, r := range fn.Sets {
		if r.Name == name {
			if r.Kind == "" {
				r.Kind = RangeMacro
			}
			return r, nil
		}
	}
	return Range{}, &RangeNotFoundError{Channel: c.Name, Name: name}
}

// Width is the number of DMX slots the channel occupies.
func (c *Channel) Width() uint8 { return c.Bytes }
