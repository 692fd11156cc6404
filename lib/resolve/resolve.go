// Package resolve turns a channel value tree into the quantized value the
// channel outputs at one instant.
//
// Resolution only reads. Presets and speed masters come in through the
// Lookup interfaces, so callers can pass either the live handlers or
// frozen snapshots of them.
package resolve

import (
	"errors"
	"fmt"
	"math"
	"time"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/dmxvalue"
	"lightbrainz/lib/effect"
	"lightbrainz/lib/feature"
	"lightbrainz/lib/preset"
	"lightbrainz/lib/profile"
	"lightbrainz/lib/timing"
)

// MaxDepth bounds nesting through Mix nodes and preset indirection.
const MaxDepth = 16

// ErrMalformedTree is returned for nil nodes and trees nested deeper than
// MaxDepth, which includes presets that refer to themselves.
var ErrMalformedTree = errors.New("resolve: malformed value tree")

// ChannelProfile is what the resolver needs to know about one physical
// channel. *profile.Channel implements it.
type ChannelProfile interface {
	HomeValue() (dmxvalue.Value, error)
	ByteWidth(function int) (uint8, error)
	Shift(function int) (uint8, error)
	FunctionRange(function int) (from, to uint64, err error)
	NamedRange(function int, name string) (profile.Range, error)
	ChannelRole() feature.ChannelType

	// Width is the physical width, LogicalBytes and LogicalShift place
	// the channel inside a coarse/fine pair.
	Width() uint8
	LogicalBytes() uint8
	LogicalShift() uint8
}

var _ ChannelProfile = (*profile.Channel)(nil)

// Context is everything a tree may reach while resolving.
type Context struct {
	FixtureID uint32
	Channel   string
	Profile   ChannelProfile
	Presets   preset.Lookup
	Timing    timing.Lookup
	Now       time.Time
}

// Env is the part of a Context shared by every channel in one pass.
type Env struct {
	Presets preset.Lookup
	Timing  timing.Lookup
	Now     time.Time
}

// Context binds e to one channel.
func (e Env) Context(fixtureID uint32, name string, p ChannelProfile) Context {
	return Context{
		FixtureID: fixtureID,
		Channel:   name,
		Profile:   p,
		Presets:   e.Presets,
		Timing:    e.Timing,
		Now:       e.Now,
	}
}

// Resolve evaluates n for the channel described by ctx. Failures are
// returned as *ChannelError.
func Resolve(n channel.Node, ctx Context) (dmxvalue.Value, error) {
	if ctx.Profile == nil {
		return dmxvalue.Value{}, &ChannelError{FixtureID: ctx.FixtureID, Channel: ctx.Channel,
			Err: fmt.Errorf("%w: no profile", ErrMalformedTree)}
	}
	v, err := resolve(n, &ctx, 0)
	if err != nil {
		return dmxvalue.Value{}, &ChannelError{FixtureID: ctx.FixtureID, Channel: ctx.Channel, Err: err}
	}
	return v, nil
}

func resolve(n channel.Node, ctx *Context, depth int) (dmxvalue.Value, error) {
	if depth >= MaxDepth {
		return dmxvalue.Value{}, fmt.Errorf("%w: deeper than %d", ErrMalformedTree, MaxDepth)
	}

	switch n := n.(type) {
	case channel.Home:
		return ctx.Profile.HomeValue()

	case channel.Discrete:
		return discrete(n, ctx.Profile)

	case channel.DiscreteSet:
		return discreteSet(n, ctx.Profile)

	case channel.Preset:
		return resolvePreset(n, ctx, depth)

	case channel.Mix:
		a, err := resolve(n.A, ctx, depth+1)
		if err != nil {
			return dmxvalue.Value{}, err
		}
		b, err := resolve(n.B, ctx, depth+1)
		if err != nil {
			return dmxvalue.Value{}, err
		}
		return dmxvalue.Mix(a, b, n.Factor)

	case nil:
		return dmxvalue.Value{}, fmt.Errorf("%w: nil node", ErrMalformedTree)

	default:
		return dmxvalue.Value{}, fmt.Errorf("%w: unknown node %T", ErrMalformedTree, n)
	}
}

func discrete(n channel.Discrete, p ChannelProfile) (dmxvalue.Value, error) {
	width, err := p.ByteWidth(n.Function)
	if err != nil {
		return dmxvalue.Value{}, err
	}
	shift, err := p.Shift(n.Function)
	if err != nil {
		return dmxvalue.Value{}, err
	}
	from, to, err := p.FunctionRange(n.Function)
	if err != nil {
		return dmxvalue.Value{}, err
	}
	if from == 0 && to == dmxvalue.MaxFor(width) {
		return dmxvalue.FromFloat(n.Value, width, shift)
	}
	return dmxvalue.New(lerp(from, to, n.Value), width, shift)
}

func discreteSet(n channel.DiscreteSet, p ChannelProfile) (dmxvalue.Value, error) {
	r, err := p.NamedRange(n.Function, n.Set)
	if err != nil {
		return dmxvalue.Value{}, err
	}
	width, err := p.ByteWidth(n.Function)
	if err != nil {
		return dmxvalue.Value{}, err
	}
	shift, err := p.Shift(n.Function)
	if err != nil {
		return dmxvalue.Value{}, err
	}
	raw := r.From
	if r.Kind == profile.RangeManual && n.Position != nil {
		raw = lerp(r.From, r.To, *n.Position)
	}
	return dmxvalue.New(raw, width, shift)
}

// lerp maps f in [0,1] onto [from, to], rounding to the nearest step.
func lerp(from, to uint64, f float64) uint64 {
	switch {
	case math.IsNaN(f) || f <= 0 || to <= from:
		return from
	case f >= 1:
		return to
	}
	return from + uint64(math.Round(float64(to-from)*f))
}

func resolvePreset(n channel.Preset, ctx *Context, depth int) (dmxvalue.Value, error) {
	if ctx.Presets == nil {
		return dmxvalue.Value{}, &preset.NotFoundError{ID: n.ID}
	}
	p, err := ctx.Presets.Preset(n.ID)
	if err != nil {
		return dmxvalue.Value{}, err
	}

	if !p.IsEffect() {
		v, ok := p.Value(ctx.FixtureID, ctx.Channel)
		if !ok {
			return dmxvalue.Value{}, fmt.Errorf("preset %s: %w", n.ID, effect.ErrNoValueForAttribute)
		}
		return resolve(v, ctx, depth+1)
	}

	res, err := p.Effect.Sample(effect.Input{
		FixtureID: ctx.FixtureID,
		Channel:   ctx.Channel,
		Role:      ctx.Profile.ChannelRole(),
		State:     n.State,
		Now:       ctx.Now,
		Masters:   ctx.Timing,
	})
	if err != nil {
		return dmxvalue.Value{}, fmt.Errorf("preset %s: %w", n.ID, err)
	}
	if res.Node != nil {
		return resolve(res.Node, ctx, depth+1)
	}
	return level(res.Level, ctx.Profile)
}

// level quantizes an effect level at the channel's logical width and
// returns the bytes that belong to this channel.
func level(f float64, p ChannelProfile) (dmxvalue.Value, error) {
	logical, err := dmxvalue.FromFloat(f, p.LogicalBytes(), 0)
	if err != nil {
		return dmxvalue.Value{}, err
	}
	return logical.Slice(p.LogicalShift(), p.Width())
}
