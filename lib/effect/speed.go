package effect

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"lightbrainz/lib/timing"
)

// Scale is a power-of-two speed multiplier stored as its exponent:
// -7 is 1/128, 0 is 1, 7 is 128.
type Scale int8

const (
	MinScale Scale = -7
	MaxScale Scale = 7
)

// Value returns the multiplier. Out-of-range exponents are clamped.
func (s Scale) Value() float64 {
	return math.Ldexp(1, int(min(max(s, MinScale), MaxScale)))
}

func (s Scale) String() string {
	if s < 0 {
		return fmt.Sprintf("1/%d", 1<<uint(-s))
	}
	return fmt.Sprintf("x%d", 1<<uint(s))
}

// Sync controls how an effect's phase origin snaps to its speed master.
type Sync string

const (
	SyncNone     Sync = "none"
	SyncBeatFrac Sync = "beat_frac"
	SyncBeat     Sync = "beat"
)

// Synced reports whether s aligns to the beat grid at all.
func (s Sync) Synced() bool {
	return s == SyncBeatFrac || s == SyncBeat
}

// MasterRef ties an effect to a shared speed master.
type MasterRef struct {
	ID    uint32 `json:"id" yaml:"id"`
	Scale Scale  `json:"scale,omitempty" yaml:"scale,omitempty"`
	Sync  Sync   `json:"sync,omitempty" yaml:"sync,omitempty"`
}

// Speed is either a literal BPM or a speed master reference. Master wins
// when both are set.
type Speed struct {
	BPM    float64    `json:"bpm,omitempty" yaml:"bpm,omitempty"`
	Master *MasterRef `json:"master,omitempty" yaml:"master,omitempty"`
}

// DefaultSpeed is a literal 120 BPM.
func DefaultSpeed() Speed {
	return Speed{BPM: timing.DefaultBPM}
}

// PhaseMode selects how a fixture's phase is derived.
type PhaseMode string

const (
	PhaseSingle PhaseMode = "single"
	PhaseRange  PhaseMode = "range"
)

// Phase is the per-fixture phase of an effect in degrees. In range mode
// the phase is interpolated between Start and End by the fixture's
// normalized offset within its selection.
type Phase struct {
	Mode  PhaseMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Start float64   `json:"start" yaml:"start"`
	End   float64   `json:"end,omitempty" yaml:"end,omitempty"`
}

// Degrees returns the phase for a fixture at offset (0..1).
func (p Phase) Degrees(offset float64) float64 {
	if p.Mode == PhaseRange {
		return p.Start + (p.End-p.Start)*offset
	}
	return p.Start
}

// Radians is Degrees converted to radians.
func (p Phase) Radians(offset float64) float64 {
	return p.Degrees(offset) * math.Pi / 180
}

// Timing is what an evaluator needs at one instant.
type Timing struct {
	// Elapsed is seconds since start, corrected onto the beat grid for
	// synced effects.
	Elapsed float64
	// BPM is the effective tempo after scaling.
	BPM float64
	// Speed is the angular speed in radians per second.
	Speed float64
	// PhaseRad is the fixture's phase offset.
	PhaseRad float64
}

// X is the effect argument t*speed - phase.
func (t Timing) X() float64 {
	return t.Elapsed*t.Speed - t.PhaseRad
}

// ResolveTiming computes the evaluator inputs for an effect that started
// at started and is sampled at now. A speed master that cannot be found
// yields a BPM of zero, which freezes the effect at its phase origin.
func ResolveTiming(speed Speed, phase Phase, started time.Time, fixtureOffset float64, now time.Time, masters timing.Lookup) Timing {
	elapsed := now.Sub(started).Seconds()

	var bpm float64
	if ref := speed.Master; ref != nil {
		if masters != nil {
			if sm, err := masters.SpeedMaster(ref.ID); err == nil {
				if ref.Sync.Synced() && sm.HasBeatReference() {
					mod := sm.SecsPerBeat()
					if ref.Sync == SyncBeat {
						mod /= ref.Scale.Value()
					}
					if mod > 0 {
						elapsed += math.Mod(started.Sub(sm.BeatReference).Seconds(), mod)
					}
				}
				bpm = sm.BPM * ref.Scale.Value()
			}
		}
	} else {
		bpm = speed.BPM
	}

	return Timing{
		Elapsed:  elapsed,
		BPM:      bpm,
		Speed:    2 * math.Pi * bpm / 60,
		PhaseRad: phase.Radians(fixtureOffset),
	}
}

// UnmarshalJSON accepts both the object form and a bare number as a BPM.
func (s *Speed) UnmarshalJSON(data []byte) error {
	var bpm float64
	if err := json.Unmarshal(data, &bpm); err == nil {
		*s = Speed{BPM: bpm}
		return nil
	}
	type plain Speed
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode effect speed: %w", err)
	}
	*s = Speed(p)
	return nil
}
