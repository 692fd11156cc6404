// Package show owns one loaded show: the fixture, preset and timing
// handlers, the operations that mutate them and the output tick that
// resolves every channel.
//
// When an operation needs more than one handler it takes them in the order
// fixtures, presets, timing.
package show

import (
	"fmt"
	"log/slog"
	"time"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/effect"
	"lightbrainz/lib/feature"
	"lightbrainz/lib/fixture"
	"lightbrainz/lib/preset"
	"lightbrainz/lib/timing"
)

// Show is a loaded show. The zero value is not usable; call New.
type Show struct {
	Fixtures *fixture.Handler
	Presets  *preset.Handler
	Timing   *timing.Handler

	logger   *slog.Logger
	reporter Reporter
	tick     tickState
}

// New returns an empty show with the default speed masters. A nil logger
// discards output; reporter may be nil.
func New(logger *slog.Logger, reporter Reporter) *Show {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Show{
		Fixtures: fixture.NewHandler(),
		Presets:  preset.NewHandler(),
		Timing:   timing.NewHandler(),
		logger:   logger,
		reporter: reporter,
	}
}

func (s *Show) SetChannel(fixtureID uint32, name string, n channel.Node) error {
	return s.Fixtures.SetChannel(fixtureID, name, n)
}

func (s *Show) HomeChannel(fixtureID uint32, name string) error {
	return s.Fixtures.HomeChannel(fixtureID, name)
}

func (s *Show) HomeFeature(fixtureID uint32, t feature.Type) error {
	return s.Fixtures.HomeFeature(fixtureID, t)
}

func (s *Show) SetFeature(fixtureID uint32, v feature.Value) error {
	return s.Fixtures.SetFeature(fixtureID, v)
}

// HomeAll sends every channel of every fixture Home.
func (s *Show) HomeAll() {
	s.Fixtures.HomeAll()
}

// ApplyPreset points every channel the preset drives on the selected
// fixtures at it. Effect presets capture now and each fixture's phase
// offset within sel. It returns the number of channels set.
func (s *Show) ApplyPreset(id channel.PresetID, sel preset.Selection, now time.Time) (int, error) {
	p, err := s.Presets.Preset(id)
	if err != nil {
		return 0, err
	}

	count := 0
	err = s.Fixtures.UpdateEach(sel.Fixtures, func(f *fixture.Fixture) (map[string]channel.Node, error) {
		names := p.Channels(f.ID, f.ChannelRefs())
		node := channel.Preset{ID: id}
		if p.IsEffect() {
			offset, _ := sel.Offset(f.ID)
			node.State = &channel.CapturedState{Started: now, FixtureOffset: offset}
		}
		updates := make(map[string]channel.Node, len(names))
		for _, name := range names {
			updates[name] = node
		}
		count += len(updates)
		return updates, nil
	})
	if err != nil {
		return 0, fmt.Errorf("apply preset %s: %w", id, err)
	}
	s.logger.Debug("preset applied", "preset", id.String(), "fixtures", len(sel.Fixtures), "channels", count)
	return count, nil
}

// StopPreset sends every channel whose tree refers to id Home and returns
// how many were reset.
func (s *Show) StopPreset(id channel.PresetID) (int, error) {
	count := 0
	err := s.Fixtures.UpdateEach(s.Fixtures.IDs(), func(f *fixture.Fixture) (map[string]channel.Node, error) {
		updates := make(map[string]channel.Node)
		for name, n := range f.Values() {
			if channel.References(n, id) {
				updates[name] = channel.Home{}
			}
		}
		count += len(updates)
		return updates, nil
	})
	if err != nil {
		return 0, fmt.Errorf("stop preset %s: %w", id, err)
	}
	return count, nil
}

// RecordPreset captures the current trees of the selected fixtures'
// channels that belong to the preset's feature group. Channels at Home are
// skipped.
func (s *Show) RecordPreset(id channel.PresetID, name string, sel preset.Selection, mode preset.UpdateMode) (int, error) {
	group, ok := feature.DefaultGroups()[id.Group]
	if !ok {
		return 0, fmt.Errorf("record preset %s: %w: %d", id, preset.ErrUnknownGroup, id.Group)
	}

	fixtures := s.Fixtures.Snapshot()
	values := make(effect.ChannelValues)
	for _, fid := range sel.Fixtures {
		f, err := fixtures.Fixture(fid)
		if err != nil {
			return 0, fmt.Errorf("record preset %s: %w", id, err)
		}
		for _, ref := range f.ChannelRefs() {
			if !group.Contains(ref.Role) {
				continue
			}
			n, _ := f.Node(ref.Name)
			if _, home := n.(channel.Home); home {
				continue
			}
			if values[fid] == nil {
				values[fid] = make(map[string]channel.Node)
			}
			values[fid][ref.Name] = n
		}
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("record preset %s: %w", id, preset.ErrEmptyContent)
	}
	return s.Presets.Record(id, name, values, mode)
}

func (s *Show) TapSpeedMaster(id uint32, now time.Time) (timing.SpeedMaster, error) {
	return s.Timing.Tap(id, now)
}

func (s *Show) SetSpeedMasterBPM(id uint32, bpm float64) (timing.SpeedMaster, error) {
	return s.Timing.SetBPM(id, bpm)
}
