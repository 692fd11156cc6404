package preset

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/effect"
)

// Lookup is the read side of the preset store used during resolution.
type Lookup interface {
	Preset(id channel.PresetID) (*Preset, error)
}

// Handler is the lock-guarded preset store. Stored presets are never
// mutated; every change swaps in a new *Preset, so a pointer obtained
// from Preset or Snapshot stays consistent after the lock is released.
type Handler struct {
	mu      sync.RWMutex
	presets map[channel.PresetID]*Preset
}

func NewHandler() *Handler {
	return &Handler{presets: make(map[channel.PresetID]*Preset)}
}

// Put stores p, replacing any preset with the same id.
func (h *Handler) Put(p *Preset) error {
	if err := p.validate(); err != nil {
		return fmt.Errorf("preset %s: %w", p.ID, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presets[p.ID] = p
	return nil
}

// Preset returns the stored preset for id.
func (h *Handler) Preset(id channel.PresetID) (*Preset, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if p, ok := h.presets[id]; ok {
		return p, nil
	}
	return nil, &NotFoundError{ID: id}
}

// Delete removes a preset. Channels still pointing at it will fail to
// resolve until they are replaced.
func (h *Handler) Delete(id channel.PresetID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.presets[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(h.presets, id)
	return nil
}

func (h *Handler) Rename(id channel.PresetID, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.presets[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	next := *p
	next.Name = name
	h.presets[id] = &next
	return nil
}

// Record stores values as preset id. A new preset is created when id is
// free; otherwise values are folded in per mode. It returns the number of
// fixtures written.
func (h *Handler) Record(id channel.PresetID, name string, values effect.ChannelValues, mode UpdateMode) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	existing, ok := h.presets[id]
	if !ok {
		p, err := New(id, name, values)
		if err != nil {
			return 0, err
		}
		if err := p.validate(); err != nil {
			return 0, fmt.Errorf("preset %s: %w", id, err)
		}
		h.presets[id] = p
		return len(values), nil
	}

	next, updated, err := existing.withUpdate(values, mode)
	if err != nil {
		return 0, fmt.Errorf("preset %s: %w", id, err)
	}
	if name != "" {
		next.Name = name
	}
	h.presets[id] = next
	return updated, nil
}

// Name returns the preset's name. It reports false for unknown ids.
func (h *Handler) Name(id channel.PresetID) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if p, ok := h.presets[id]; ok {
		return p.Name, true
	}
	return "", false
}

// IDs returns all preset ids in group, preset order.
func (h *Handler) IDs() []channel.PresetID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedIDs(h.presets)
}

// Snapshot copies the current id to preset mapping.
func (h *Handler) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Snapshot(maps.Clone(h.presets))
}

// Snapshot is a frozen view of the store.
type Snapshot map[channel.PresetID]*Preset

func (s Snapshot) Preset(id channel.PresetID) (*Preset, error) {
	if p, ok := s[id]; ok {
		return p, nil
	}
	return nil, &NotFoundError{ID: id}
}

func (s Snapshot) Name(id channel.PresetID) (string, bool) {
	if p, ok := s[id]; ok {
		return p.Name, true
	}
	return "", false
}

func (s Snapshot) IDs() []channel.PresetID {
	return sortedIDs(s)
}

func sortedIDs(m map[channel.PresetID]*Preset) []channel.PresetID {
	ids := slices.Collect(maps.Keys(m))
	slices.SortFunc(ids, func(a, b channel.PresetID) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	return ids
}
