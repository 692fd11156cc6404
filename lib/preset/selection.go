package preset

import "slices"

// Selection is an ordered set of fixtures an operation was applied to.
// GroupSize and Wings shape how phase offsets spread across it: fixtures
// in the same group share an offset, and the pattern mirrors every
// len/GroupSize/Wings groups.
type Selection struct {
	Fixtures  []uint32 `json:"fixtures" yaml:"fixtures"`
	GroupSize int      `json:"group_size,omitempty" yaml:"group_size,omitempty"`
	Wings     int      `json:"wings,omitempty" yaml:"wings,omitempty"`
}

// NewSelection selects fixtures one per group, one wing.
func NewSelection(fixtures ...uint32) Selection {
	return Selection{Fixtures: fixtures, GroupSize: 1, Wings: 1}
}

func (s Selection) Has(fixtureID uint32) bool {
	return slices.Contains(s.Fixtures, fixtureID)
}

func (s Selection) groupSize() int { return max(s.GroupSize, 1) }

func (s Selection) wings() int { return max(s.Wings, 1) }

// NumGroups is the number of whole groups in the selection.
func (s Selection) NumGroups() int {
	return len(s.Fixtures) / s.groupSize()
}

// NumOffsets is the number of distinct offsets, never less than one.
func (s Selection) NumOffsets() int {
	return max(s.NumGroups()/s.wings(), 1)
}

// OffsetIndex returns the offset slot of fixtureID.
func (s Selection) OffsetIndex(fixtureID uint32) (int, bool) {
	pos := slices.Index(s.Fixtures, fixtureID)
	if pos < 0 {
		return 0, false
	}
	return (pos / s.groupSize()) % s.NumOffsets(), true
}

// Offset returns fixtureID's normalized offset in [0,1).
func (s Selection) Offset(fixtureID uint32) (float64, bool) {
	idx, ok := s.OffsetIndex(fixtureID)
	if !ok {
		return 0, false
	}
	return float64(idx) / float64(s.NumOffsets()), true
}
