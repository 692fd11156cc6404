package fixture

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/feature"
)

// Handler is the lock-guarded fixture store. Like the preset store it
// swaps whole *Fixture values on change, so readers may keep using a
// fixture after releasing the lock.
type Handler struct {
	mu       sync.RWMutex
	fixtures map[uint32]*Fixture
}

func NewHandler() *Handler {
	return &Handler{fixtures: make(map[uint32]*Fixture)}
}

// Add patches f. Ids must be unique and fixtures in the same universe may
// not overlap.
func (h *Handler) Add(f *Fixture) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.fixtures[f.ID]; ok {
		return fmt.Errorf("%w: %d", ErrExists, f.ID)
	}
	first, last := f.span()
	for _, other := range h.fixtures {
		if other.Universe != f.Universe {
			continue
		}
		ofirst, olast := other.span()
		if first <= olast && ofirst <= last {
			return fmt.Errorf("%w: %d and %d in universe %d", ErrAddrInUse, f.ID, other.ID, f.Universe)
		}
	}
	h.fixtures[f.ID] = f
	return nil
}

func (h *Handler) Remove(id uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.fixtures[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(h.fixtures, id)
	return nil
}

func (h *Handler) Fixture(id uint32) (*Fixture, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if f, ok := h.fixtures[id]; ok {
		return f, nil
	}
	return nil, &NotFoundError{ID: id}
}

// IDs returns the patched fixture ids in ascending order.
func (h *Handler) IDs() []uint32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Sorted(maps.Keys(h.fixtures))
}

// Update replaces channel trees of one fixture. Either all updates apply
// or none do.
func (h *Handler) Update(id uint32, updates map[string]channel.Node) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updateLocked(id, updates)
}

func (h *Handler) updateLocked(id uint32, updates map[string]channel.Node) error {
	f, ok := h.fixtures[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	next, err := f.with(updates)
	if err != nil {
		return err
	}
	h.fixtures[id] = next
	return nil
}

// UpdateFunc computes updates from the current fixture and applies them
// under one exclusive lock.
func (h *Handler) UpdateFunc(id uint32, fn func(*Fixture) (map[string]channel.Node, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.fixtures[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	updates, err := fn(f)
	if err != nil {
		return err
	}
	return h.updateLocked(id, updates)
}

// UpdateEach runs fn for each listed fixture and applies all results
// under one exclusive lock. Nothing changes if any call fails.
func (h *Handler) UpdateEach(ids []uint32, fn func(*Fixture) (map[string]channel.Node, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	staged := make(map[uint32]*Fixture, len(ids))
	for _, id := range ids {
		f, ok := staged[id]
		if !ok {
			if f, ok = h.fixtures[id]; !ok {
				return &NotFoundError{ID: id}
			}
		}
		updates, err := fn(f)
		if err != nil {
			return err
		}
		next, err := f.with(updates)
		if err != nil {
			return err
		}
		staged[id] = next
	}
	maps.Copy(h.fixtures, staged)
	return nil
}

func (h *Handler) SetChannel(id uint32, name string, n channel.Node) error {
	return h.Update(id, map[string]channel.Node{name: n})
}

func (h *Handler) HomeChannel(id uint32, name string) error {
	return h.Update(id, map[string]channel.Node{name: channel.Home{}})
}

func (h *Handler) HomeFeature(id uint32, t feature.Type) error {
	return h.UpdateFunc(id, func(f *Fixture) (map[string]channel.Node, error) {
		return f.HomeFeatureUpdates(t)
	})
}

func (h *Handler) SetFeature(id uint32, v feature.Value) error {
	return h.UpdateFunc(id, func(f *Fixture) (map[string]channel.Node, error) {
		return f.SetFeatureUpdates(v)
	})
}

// HomeAll sets every channel of every fixture to Home.
func (h *Handler) HomeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, f := range h.fixtures {
		home := make(map[string]channel.Node, len(f.values))
		for name := range f.values {
			home[name] = channel.Home{}
		}
		next, _ := f.with(home)
		h.fixtures[id] = next
	}
}

// Replace installs whole channel maps for the given fixtures. Channels a
// map leaves out go Home. Nothing changes if any entry is invalid.
func (h *Handler) Replace(states map[uint32]map[string]channel.Node) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	staged := make(map[uint32]*Fixture, len(states))
	for id, values := range states {
		f, ok := h.fixtures[id]
		if !ok {
			return &NotFoundError{ID: id}
		}
		full := make(map[string]channel.Node, len(f.values))
		for name := range f.values {
			full[name] = channel.Home{}
		}
		maps.Copy(full, values)
		next, err := f.with(full)
		if err != nil {
			return err
		}
		staged[id] = next
	}
	maps.Copy(h.fixtures, staged)
	return nil
}

// Snapshot copies the id to fixture mapping.
func (h *Handler) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Snapshot(maps.Clone(h.fixtures))
}

// Snapshot is a frozen view of the store.
type Snapshot map[uint32]*Fixture

func (s Snapshot) Fixture(id uint32) (*Fixture, error) {
	if f, ok := s[id]; ok {
		return f, nil
	}
	return nil, &NotFoundError{ID: id}
}

func (s Snapshot) IDs() []uint32 {
	return slices.Sorted(maps.Keys(s))
}
