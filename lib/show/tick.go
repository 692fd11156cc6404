package show

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lightbrainz/lib/dmxvalue"
	"lightbrainz/lib/fixture"
	"lightbrainz/lib/profile"
	"lightbrainz/lib/resolve"
)

// ChannelKey names one fixture channel.
type ChannelKey struct {
	FixtureID uint32
	Channel   string
}

// Change is a channel whose output differs from the previous tick.
type Change struct {
	FixtureID uint32         `json:"fixture_id"`
	Channel   string         `json:"channel"`
	Value     dmxvalue.Value `json:"value"`
}

// Failure describes a channel that did not resolve this tick.
type Failure struct {
	FixtureID uint32
	Channel   string
	Class     resolve.Class
	Err       error
}

// Reporter is told about each failure the first time it is seen.
type Reporter interface {
	ReportFailure(f Failure)
}

// Frame is the output of one tick.
type Frame struct {
	At     time.Time
	Values map[ChannelKey]dmxvalue.Value

	// Universes holds one UniverseSize byte buffer per patched universe.
	Universes map[uint16][]byte
	Failures  int
}

type failureKey struct {
	ChannelKey
	class resolve.Class
}

// tickState is owned by Tick and guarded by mu.
type tickState struct {
	mu     sync.Mutex
	last   map[ChannelKey]dmxvalue.Value
	logged map[failureKey]struct{}
}

// Tick resolves every channel of every fixture at now and returns the
// frame together with the channels that changed since the previous tick.
//
// A failing channel never stops the tick. Missing references, unstarted
// effects and unclassified errors hold the previous output; unsupported
// effects and broken trees fall back to Home.
func (s *Show) Tick(now time.Time) (Frame, []Change) {
	fixtures := s.Fixtures.Snapshot()
	env := resolve.Env{
		Presets: s.Presets.Snapshot(),
		Timing:  s.Timing.Snapshot(),
		Now:     now,
	}

	s.tick.mu.Lock()
	defer s.tick.mu.Unlock()
	if s.tick.logged == nil {
		s.tick.logged = make(map[failureKey]struct{})
	}

	frame := Frame{
		At:        now,
		Values:    make(map[ChannelKey]dmxvalue.Value, len(s.tick.last)),
		Universes: make(map[uint16][]byte),
	}
	var changes []Change

	for _, fid := range fixtures.IDs() {
		f := fixtures[fid]
		buf, ok := frame.Universes[f.Universe]
		if !ok {
			buf = make([]byte, fixture.UniverseSize)
			frame.Universes[f.Universe] = buf
		}

		for _, ch := range f.Profile.Channels {
			key := ChannelKey{FixtureID: fid, Channel: ch.Name}
			v, err := f.Resolve(ch, env)
			if err != nil {
				frame.Failures++
				v = s.fallback(key, ch, err)
			} else {
				s.recovered(key)
			}

			frame.Values[key] = v
			writeSlots(buf, f.Slot(ch), ch.Width(), v)
			if prev, ok := s.tick.last[key]; !ok || prev != v {
				changes = append(changes, Change{FixtureID: fid, Channel: ch.Name, Value: v})
			}
		}
	}
	s.tick.last = frame.Values
	return frame, changes
}

// Last returns the output of the most recent tick.
func (s *Show) Last() []Change {
	s.tick.mu.Lock()
	defer s.tick.mu.Unlock()
	out := make([]Change, 0, len(s.tick.last))
	for k, v := range s.tick.last {
		out = append(out, Change{FixtureID: k.FixtureID, Channel: k.Channel, Value: v})
	}
	return out
}

func (s *Show) fallback(key ChannelKey, ch *profile.Channel, err error) dmxvalue.Value {
	class := resolve.Classify(err)
	s.noteFailure(key, class, err)

	switch class {
	case resolve.ClassUnsupported, resolve.ClassInvariant:
	default:
		if prev, ok := s.tick.last[key]; ok {
			return prev
		}
	}
	home, herr := ch.HomeValue()
	if herr != nil {
		return dmxvalue.Value{Bytes: ch.Width()}
	}
	return home
}

// noteFailure logs and reports a failure once per channel and class until
// the channel resolves again.
func (s *Show) noteFailure(key ChannelKey, class resolve.Class, err error) {
	fk := failureKey{ChannelKey: key, class: class}
	if _, seen := s.tick.logged[fk]; seen {
		return
	}
	s.tick.logged[fk] = struct{}{}

	level := slog.LevelWarn
	switch class {
	case resolve.ClassNotReady:
		level = slog.LevelDebug
	case resolve.ClassInvariant:
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "channel resolution failed",
		"fixture", key.FixtureID,
		"channel", key.Channel,
		"class", class.String(),
		"err", err,
	)
	if s.reporter != nil && class != resolve.ClassNotReady {
		s.reporter.ReportFailure(Failure{FixtureID: key.FixtureID, Channel: key.Channel, Class: class, Err: err})
	}
}

func (s *Show) recovered(key ChannelKey) {
	if len(s.tick.logged) == 0 {
		return
	}
	for c := resolve.ClassNotFound; c <= resolve.ClassOther; c++ {
		delete(s.tick.logged, failureKey{ChannelKey: key, class: c})
	}
}

// writeSlots stores v big-endian at slot, using exactly width bytes.
func writeSlots(buf []byte, slot int, width uint8, v dmxvalue.Value) {
	end := slot + int(width)
	if slot < 0 || end > len(buf) {
		return
	}
	var scratch [8]byte
	b := v.AppendBytes(scratch[:0])
	if len(b) > int(width) {
		b = b[len(b)-int(width):]
	}
	clear(buf[slot:end])
	copy(buf[end-len(b):end], b)
}
