package resolve

import (
	"errors"
	"fmt"

	"lightbrainz/lib/dmxvalue"
	"lightbrainz/lib/effect"
)

// ChannelError ties a resolution failure to the channel whose tree failed.
type ChannelError struct {
	FixtureID uint32
	Channel   string
	Err       error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("fixture %d channel %q: %v", e.FixtureID, e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// Class groups resolution errors by how the output loop treats them.
type Class int

const (
	// ClassNone is the class of a nil error.
	ClassNone Class = iota
	// ClassNotFound covers references to channels, features, presets or
	// speed masters that do not exist.
	ClassNotFound
	// ClassNotReady is an effect that has not been started.
	ClassNotReady
	// ClassUnsupported is an effect that cannot drive the channel.
	ClassUnsupported
	// ClassInvariant is a construction bug: a bad width or a broken tree.
	ClassInvariant
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassNotFound:
		return "not_found"
	case ClassNotReady:
		return "not_ready"
	case ClassUnsupported:
		return "unsupported"
	case ClassInvariant:
		return "invariant"
	default:
		return "other"
	}
}

type notFound interface {
	NotFound() bool
}

// Classify maps err onto a Class. Unimplemented effects also report
// ErrEffectNotStarted; they classify as unsupported.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, dmxvalue.ErrInvalidByteWidth) || errors.Is(err, ErrMalformedTree) {
		return ClassInvariant
	}
	if errors.Is(err, effect.ErrNotImplemented) || errors.Is(err, effect.ErrNoValueForAttribute) {
		return ClassUnsupported
	}
	var nf notFound
	if errors.As(err, &nf) && nf.NotFound() {
		return ClassNotFound
	}
	if errors.Is(err, effect.ErrEffectNotStarted) {
		return ClassNotReady
	}
	return ClassOther
}
