package main

import (
	"fmt"
	"log/slog"
	"time"

	"lightbrainz/lib/show"
)

// applyEvent performs ev against the show. It is only called from the
// daemon loop, between ticks.
func applyEvent(s *show.Show, ev Event, now time.Time, logger *slog.Logger) error {
	switch e := ev.(type) {
	case SetChannel:
		if e.Value.Node == nil {
			return fmt.Errorf("set_channel %d/%s: missing value", e.FixtureID, e.Channel)
		}
		return s.SetChannel(e.FixtureID, e.Channel, e.Value.Node)

	case HomeChannel:
		return s.HomeChannel(e.FixtureID, e.Channel)

	case HomeFeature:
		return s.HomeFeature(e.FixtureID, e.Feature)

	case HomeAll:
		s.HomeAll()
		return nil

	case ApplyPreset:
		n, err := s.ApplyPreset(e.Preset, e.Selection, now)
		if err != nil {
			return err
		}
		logger.Info("preset applied", "preset", e.Preset.String(), "fixtures", len(e.Selection.Fixtures), "channels", n)
		return nil

	case StopPreset:
		n, err := s.StopPreset(e.Preset)
		if err != nil {
			return err
		}
		logger.Info("preset stopped", "preset", e.Preset.String(), "channels", n)
		return nil

	case RecordPreset:
		n, err := s.RecordPreset(e.Preset, e.Name, e.Selection, e.Mode)
		if err != nil {
			return err
		}
		logger.Info("preset recorded", "preset", e.Preset.String(), "mode", string(e.Mode), "fixtures", n)
		return nil

	case TapSpeedMaster:
		sm, err := s.TapSpeedMaster(e.ID, now)
		if err != nil {
			return err
		}
		logger.Debug("speed master tapped", "id", sm.ID, "bpm", sm.BPM)
		return nil

	case SetSpeedMasterBPM:
		sm, err := s.SetSpeedMasterBPM(e.ID, e.BPM)
		if err != nil {
			return err
		}
		logger.Info("speed master set", "id", sm.ID, "bpm", sm.BPM)
		return nil

	default:
		return fmt.Errorf("unhandled event %T", ev)
	}
}
