// Package timing owns the speed master registry that keeps effects on a
// shared tempo.
package timing

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrInvalidBPM is returned when a tempo override is not positive.
var ErrInvalidBPM = errors.New("timing: bpm must be > 0")

// SpeedMasterNotFoundError is returned for lookups of unregistered ids.
type SpeedMasterNotFoundError struct {
	ID uint32
}

func (e *SpeedMasterNotFoundError) Error() string {
	return fmt.Sprintf("speed master %d not found", e.ID)
}

// NotFound marks the error as a recoverable missing-entry condition.
func (e *SpeedMasterNotFoundError) NotFound() bool { return true }

// Lookup resolves speed masters by id. Both *Handler and Snapshot implement it.
type Lookup interface {
	SpeedMaster(id uint32) (SpeedMaster, error)
}

type entry struct {
	value SpeedMaster
	taps  *TapChain
}

// Handler is the lock-guarded speed master registry of one show.
type Handler struct {
	mu      sync.RWMutex
	masters map[uint32]*entry
}

// DefaultMasterCount is how many masters NewHandler registers.
const DefaultMasterCount = 10

// NewHandler returns a registry with masters 0..9 at DefaultBPM.
func NewHandler() *Handler {
	h := NewEmptyHandler()
	for id := uint32(0); id < DefaultMasterCount; id++ {
		h.masters[id] = newEntry(id, DefaultBPM)
	}
	return h
}

// NewEmptyHandler returns a registry without any masters.
func NewEmptyHandler() *Handler {
	return &Handler{masters: make(map[uint32]*entry)}
}

func newEntry(id uint32, bpm float64) *entry {
	return &entry{
		value: SpeedMaster{ID: id, BPM: bpm},
		taps:  NewTapChain(defaultMaxTaps),
	}
}

// Register adds or resets a master.
func (h *Handler) Register(id uint32, bpm float64) error {
	if bpm <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidBPM, bpm)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.masters[id] = newEntry(id, bpm)
	return nil
}

// Remove deletes a master. Removing an unknown id is a no-op.
func (h *Handler) Remove(id uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.masters, id)
}

// SpeedMaster returns a copy of the master.
func (h *Handler) SpeedMaster(id uint32) (SpeedMaster, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.masters[id]
	if !ok {
		return SpeedMaster{}, &SpeedMasterNotFoundError{ID: id}
	}
	return e.value, nil
}

// Tap feeds a tap into the master's tap chain, updates its tempo and moves
// its beat reference to now.
func (h *Handler) Tap(id uint32, now time.Time) (SpeedMaster, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.masters[id]
	if !ok {
		return SpeedMaster{}, &SpeedMasterNotFoundError{ID: id}
	}
	if bpm := e.taps.Tap(now, e.value.BPM); bpm > 0 {
		e.value.BPM = bpm
	}
	e.value.LastTap = now
	e.value.BeatReference = now
	return e.value, nil
}

// SetBPM overrides the master's tempo without touching its beat reference.
func (h *Handler) SetBPM(id uint32, bpm float64) (SpeedMaster, error) {
	if bpm <= 0 {
		return SpeedMaster{}, fmt.Errorf("%w: got %v", ErrInvalidBPM, bpm)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.masters[id]
	if !ok {
		return SpeedMaster{}, &SpeedMasterNotFoundError{ID: id}
	}
	e.value.BPM = bpm
	return e.value, nil
}

// Snapshot copies every master. The result does not alias the handler.
func (h *Handler) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := make(Snapshot, len(h.masters))
	for id, e := range h.masters {
		s[id] = e.value
	}
	return s
}

// Restore replaces the registry content with s. Tap chains restart.
func (h *Handler) Restore(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.masters = make(map[uint32]*entry, len(s))
	for id, v := range s {
		e := newEntry(id, v.BPM)
		e.value = v
		e.value.ID = id
		h.masters[id] = e
	}
}

// Snapshot is an immutable copy of the registry taken at one instant.
type Snapshot map[uint32]SpeedMaster

// SpeedMaster implements Lookup.
func (s Snapshot) SpeedMaster(id uint32) (SpeedMaster, error) {
	v, ok := s[id]
	if !ok {
		return SpeedMaster{}, &SpeedMasterNotFoundError{ID: id}
	}
	return v, nil
}

// IDs returns the registered ids in ascending order.
func (s Snapshot) IDs() []uint32 {
	ids := make([]uint32, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
