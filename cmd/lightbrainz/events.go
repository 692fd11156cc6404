package main

import (
	"encoding/json"
	"fmt"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/feature"
	"lightbrainz/lib/preset"
	"lightbrainz/lib/show"
)

// ============================================================================
// Events - inputs to the daemon loop
// ============================================================================
// Events come from IPC clients; the state websocket only requests
// snapshots. The daemon loop applies them to the show between output ticks,
// so a tick never sees a half-applied event.
// ============================================================================

// Event is a marker interface for everything the daemon loop consumes.
type Event interface {
	eventMarker()
}

// SetChannel replaces a channel's value tree.
type SetChannel struct {
	FixtureID uint32       `json:"fixture_id"`
	Channel   string       `json:"channel"`
	Value     channel.Tree `json:"value"`
}

// HomeChannel sends one channel Home.
type HomeChannel struct {
	FixtureID uint32 `json:"fixture_id"`
	Channel   string `json:"channel"`
}

// HomeFeature sends every channel of one fixture feature Home.
type HomeFeature struct {
	FixtureID uint32       `json:"fixture_id"`
	Feature   feature.Type `json:"feature"`
}

// HomeAll sends every channel of every fixture Home.
type HomeAll struct{}

// ApplyPreset points the selected fixtures at a preset.
type ApplyPreset struct {
	Preset    channel.PresetID `json:"preset"`
	Selection preset.Selection `json:"selection"`
}

// StopPreset sends every channel using a preset Home.
type StopPreset struct {
	Preset channel.PresetID `json:"preset"`
}

// RecordPreset stores the selection's current values into a preset.
type RecordPreset struct {
	Preset    channel.PresetID  `json:"preset"`
	Name      string            `json:"name,omitempty"`
	Selection preset.Selection  `json:"selection"`
	Mode      preset.UpdateMode `json:"mode,omitempty"`
}

// TapSpeedMaster registers a tap on a speed master.
type TapSpeedMaster struct {
	ID uint32 `json:"id"`
}

// SetSpeedMasterBPM sets a speed master's tempo.
type SetSpeedMasterBPM struct {
	ID  uint32  `json:"id"`
	BPM float64 `json:"bpm"`
}

// RequestStateSnapshot asks the daemon loop for the last tick's channel
// values. Internal only; never decoded from the wire.
type RequestStateSnapshot struct {
	Reply chan<- []show.Change
}

// awaitedEvent carries an event whose outcome the sender waits for.
type awaitedEvent struct {
	Event Event
	Reply chan<- error
}

func (SetChannel) eventMarker()           {}
func (HomeChannel) eventMarker()          {}
func (HomeFeature) eventMarker()          {}
func (HomeAll) eventMarker()              {}
func (ApplyPreset) eventMarker()          {}
func (StopPreset) eventMarker()           {}
func (RecordPreset) eventMarker()         {}
func (TapSpeedMaster) eventMarker()       {}
func (SetSpeedMasterBPM) eventMarker()    {}
func (RequestStateSnapshot) eventMarker() {}
func (awaitedEvent) eventMarker()         {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	typeSetChannel        = "set_channel"
	typeHomeChannel       = "home_channel"
	typeHomeFeature       = "home_feature"
	typeHomeAll           = "home_all"
	typeApplyPreset       = "apply_preset"
	typeStopPreset        = "stop_preset"
	typeRecordPreset      = "record_preset"
	typeTapSpeedMaster    = "tap_speed_master"
	typeSetSpeedMasterBPM = "set_speed_master_bpm"
)

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case typeSetChannel:
		return decodeData[SetChannel](env)
	case typeHomeChannel:
		return decodeData[HomeChannel](env)
	case typeHomeFeature:
		return decodeData[HomeFeature](env)
	case typeHomeAll:
		return HomeAll{}, nil
	case typeApplyPreset:
		a, err := decodeData[ApplyPreset](env)
		if err != nil {
			return nil, err
		}
		a.Selection = withSelectionDefaults(a.Selection)
		return a, nil
	case typeStopPreset:
		return decodeData[StopPreset](env)
	case typeRecordPreset:
		a, err := decodeData[RecordPreset](env)
		if err != nil {
			return nil, err
		}
		a.Selection = withSelectionDefaults(a.Selection)
		if a.Mode == "" {
			a.Mode = preset.UpdateMerge
		}
		return a, nil
	case typeTapSpeedMaster:
		return decodeData[TapSpeedMaster](env)
	case typeSetSpeedMasterBPM:
		return decodeData[SetSpeedMasterBPM](env)
	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

func decodeData[T Event](env EventEnvelope) (T, error) {
	var a T
	if len(env.Data) == 0 {
		return a, fmt.Errorf("unmarshal %s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, &a); err != nil {
		return a, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return a, nil
}

func withSelectionDefaults(sel preset.Selection) preset.Selection {
	if sel.GroupSize <= 0 {
		sel.GroupSize = 1
	}
	if sel.Wings <= 0 {
		sel.Wings = 1
	}
	return sel
}

// eventType returns the wire discriminator for ev.
func eventType(ev Event) (string, bool) {
	switch ev.(type) {
	case SetChannel:
		return typeSetChannel, true
	case HomeChannel:
		return typeHomeChannel, true
	case HomeFeature:
		return typeHomeFeature, true
	case HomeAll:
		return typeHomeAll, true
	case ApplyPreset:
		return typeApplyPreset, true
	case StopPreset:
		return typeStopPreset, true
	case RecordPreset:
		return typeRecordPreset, true
	case TapSpeedMaster:
		return typeTapSpeedMaster, true
	case SetSpeedMasterBPM:
		return typeSetSpeedMasterBPM, true
	default:
		return "", false
	}
}

// MarshalEvent serializes an Event into a JSON envelope
func MarshalEvent(ev Event) ([]byte, error) {
	typ, ok := eventType(ev)
	if !ok {
		return nil, fmt.Errorf("unsupported event type: %T", ev)
	}

	env := EventEnvelope{Type: typ}
	if _, empty := ev.(HomeAll); !empty {
		data, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", typ, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}
