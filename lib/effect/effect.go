// Package effect evaluates time-based effects: closed-form feature effects,
// keyframe layers and wave parts, all driven by a speed that is either a
// literal BPM or a shared speed master.
//
// Evaluators are pure. Everything time dependent comes in through Input.
package effect

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/feature"
	"lightbrainz/lib/timing"
)

var (
	// ErrEffectNotStarted is returned for effects without a start instant
	// and for effects that have no evaluator.
	ErrEffectNotStarted = errors.New("effect not started")

	// ErrNoValueForAttribute is returned when an effect does not drive the
	// requested channel.
	ErrNoValueForAttribute = errors.New("effect has no value for attribute")

	// ErrNotImplemented marks effect kinds that decode but cannot be
	// evaluated. Such errors also match ErrEffectNotStarted.
	ErrNotImplemented = errors.New("effect not implemented")
)

// Effect is a closed union of effect kinds: the FeatureEffect
// implementations, *Keyframes and *Waves.
type Effect interface {
	effectMarker()
}

// Descriptor is an effect plus the speed and phase it runs with. It is
// immutable configuration owned by a preset.
type Descriptor struct {
	Speed  Speed  `json:"speed"`
	Phase  Phase  `json:"phase"`
	Effect Effect `json:"-"`
}

// Input locates one channel sample in time and space.
type Input struct {
	FixtureID uint32
	Channel   string
	Role      feature.ChannelType

	// State is nil for presets that were never applied.
	State *channel.CapturedState
	Now   time.Time

	// Masters may be nil, in which case speed master references freeze.
	Masters timing.Lookup
}

// Result is an effect sample. Keyframe effects yield a Node that still
// has to be resolved; the others yield a normalized Level.
type Result struct {
	Level float64
	Node  channel.Node
}

// Sample evaluates the descriptor for one channel.
func (d *Descriptor) Sample(in Input) (Result, error) {
	if in.State == nil {
		return Result{}, ErrEffectNotStarted
	}
	tm := ResolveTiming(d.Speed, d.Phase, in.State.Started, in.State.FixtureOffset, in.Now, in.Masters)
	x := tm.X()

	switch e := d.Effect.(type) {
	case FeatureEffect:
		v, err := e.Value(x)
		if err != nil {
			return Result{}, err
		}
		level, ok := feature.Component(v, in.Role)
		if !ok {
			return Result{}, ErrNoValueForAttribute
		}
		return Result{Level: level}, nil

	case *Keyframes:
		n, ok := e.Value(in.FixtureID, in.Channel, x)
		if !ok {
			return Result{}, ErrNoValueForAttribute
		}
		return Result{Node: n}, nil

	case *Waves:
		level, ok := e.Value(in.Channel, x)
		if !ok {
			return Result{}, ErrNoValueForAttribute
		}
		return Result{Level: level}, nil

	default:
		return Result{}, ErrNoValueForAttribute
	}
}

// Covers reports whether the effect writes the named channel of fixtureID.
// Feature effects match by role, the others by channel name.
func (d *Descriptor) Covers(fixtureID uint32, name string, role feature.ChannelType) bool {
	switch e := d.Effect.(type) {
	case FeatureEffect:
		if coarse, ok := role.CoarsePartner(); ok {
			role = coarse
		}
		return slices.Contains(e.Roles(), role)
	case *Keyframes:
		return slices.Contains(e.Channels(fixtureID), name)
	case *Waves:
		return slices.Contains(e.Channels(), name)
	default:
		return false
	}
}

// Name is a short label for operator display.
func (d *Descriptor) Name() string {
	if s, ok := d.Effect.(fmt.Stringer); ok {
		return s.String()
	}
	return "Effect"
}
