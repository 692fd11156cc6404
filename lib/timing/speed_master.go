package timing

import (
	"fmt"
	"math"
	"time"
)

// DefaultBPM is the tempo of a freshly registered speed master.
const DefaultBPM = 120.0

// DefaultOnBeatWindow is the half-width of the window OnBeat reports as "on
// the beat".
const DefaultOnBeatWindow = 50 * time.Millisecond

// SpeedMaster is a point-in-time copy of one tempo reference.
type SpeedMaster struct {
	ID  uint32  `json:"id"`
	BPM float64 `json:"bpm"`

	// LastTap is the instant of the most recent tap, zero if never tapped.
	LastTap time.Time `json:"last_tap,omitzero"`

	// BeatReference marks the most recent synchronized beat boundary. Zero
	// means the master has no beat grid yet.
	BeatReference time.Time `json:"beat_reference,omitzero"`
}

// HasBeatReference reports whether the master has been synchronized.
func (s SpeedMaster) HasBeatReference() bool { return !s.BeatReference.IsZero() }

// SecsPerBeat returns 60/BPM, or 0 when the tempo is not positive.
func (s SpeedMaster) SecsPerBeat() float64 {
	if s.BPM <= 0 {
		return 0
	}
	return 60 / s.BPM
}

// BeatPhase returns how far into the current beat now is, in [0,1). It is
// 0 for a master without a beat reference.
func (s SpeedMaster) BeatPhase(now time.Time) float64 {
	spb := s.SecsPerBeat()
	if spb == 0 || !s.HasBeatReference() {
		return 0
	}
	elapsed := math.Mod(now.Sub(s.BeatReference).Seconds(), spb)
	if elapsed < 0 {
		elapsed += spb
	}
	return elapsed / spb
}

// OnBeat reports whether now lies within window of a beat boundary on the
// master's grid.
func (s SpeedMaster) OnBeat(now time.Time, window time.Duration) bool {
	spb := s.SecsPerBeat()
	if spb == 0 || !s.HasBeatReference() {
		return false
	}
	off := s.BeatPhase(now) * spb
	w := window.Seconds()
	return off <= w || spb-off <= w
}

// Blink is true during the first half of each beat.
func (s SpeedMaster) Blink(now time.Time) bool {
	if !s.HasBeatReference() {
		return false
	}
	return s.BeatPhase(now) < 0.5
}

func (s SpeedMaster) String() string {
	return fmt.Sprintf("speed master %d (%.1f bpm)", s.ID, s.BPM)
}
