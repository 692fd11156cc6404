// Package channel defines the recursive value tree that describes what a
// fixture channel should currently output.
//
// Nodes are immutable once built. A channel changes by having its whole
// tree replaced, never by mutating a node in place.
package channel

import (
	"fmt"
	"time"
)

// Node is one node of a channel value tree. Implementations: Home,
// Discrete, DiscreteSet, Preset, Mix.
type Node interface {
	fmt.Stringer
	nodeMarker()
}

// Home is the channel's neutral value as defined by its profile.
type Home struct{}

// Discrete is a direct level within one channel function.
type Discrete struct {
	Function int     `json:"function"`
	Value    float64 `json:"value"`
}

// DiscreteSet selects a named sub-range of a channel function. Position,
// when present, places the value inside a manual range.
type DiscreteSet struct {
	Function int      `json:"function"`
	Set      string   `json:"set"`
	Position *float64 `json:"position,omitempty"`
}

// Preset refers to an entry in the preset store. State pins the instant and
// selection context in which the preset was applied; effect presets without
// it are not started.
type Preset struct {
	ID    PresetID       `json:"id"`
	State *CapturedState `json:"state,omitempty"`
}

// Mix blends two subtrees. Factor weights A.
type Mix struct {
	A      Node    `json:"-"`
	B      Node    `json:"-"`
	Factor float64 `json:"factor"`
}

// CapturedState is recorded when a preset is applied to a fixture.
type CapturedState struct {
	Started       time.Time `json:"started"`
	FixtureOffset float64   `json:"fixture_offset"`
}

func (Home) nodeMarker()        {}
func (Discrete) nodeMarker()    {}
func (DiscreteSet) nodeMarker() {}
func (Preset) nodeMarker()      {}
func (Mix) nodeMarker()         {}

func (Home) String() string { return "Home" }

func (n Discrete) String() string {
	return fmt.Sprintf("%.2f%%", n.Value*100)
}

func (n DiscreteSet) String() string {
	if n.Position != nil {
		return fmt.Sprintf("%s (%.2f%%)", n.Set, *n.Position*100)
	}
	return n.Set
}

func (n Preset) String() string {
	return fmt.Sprintf("Preset %s", n.ID)
}

func (n Mix) String() string {
	return fmt.Sprintf("%s * %.2f + %s * %.2f", nodeString(n.A), n.Factor, nodeString(n.B), 1-n.Factor)
}

func nodeString(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

// Describe renders n like String, but shows preset names where presetName
// knows them and marks presets that no longer exist.
func Describe(n Node, presetName func(PresetID) (string, bool)) string {
	switch n := n.(type) {
	case Preset:
		if presetName != nil {
			if name, ok := presetName(n.ID); ok {
				return name
			}
		}
		return fmt.Sprintf("Preset %s (deleted)", n.ID)
	case Mix:
		return fmt.Sprintf("%s * %.2f + %s * %.2f",
			Describe(n.A, presetName), n.Factor, Describe(n.B, presetName), 1-n.Factor)
	case nil:
		return "<nil>"
	default:
		return n.String()
	}
}

// Depth returns the nesting depth of n. A leaf has depth 1.
func Depth(n Node) int {
	if m, ok := n.(Mix); ok {
		return 1 + max(Depth(m.A), Depth(m.B))
	}
	return 1
}

// References reports whether the tree contains a Preset node for id.
func References(n Node, id PresetID) bool {
	switch n := n.(type) {
	case Preset:
		return n.ID == id
	case Mix:
		return References(n.A, id) || References(n.B, id)
	default:
		return false
	}
}

// Equal compares two trees structurally.
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case Home:
		_, ok := b.(Home)
		return ok
	case Discrete:
		bb, ok := b.(Discrete)
		return ok && a == bb
	case DiscreteSet:
		bb, ok := b.(DiscreteSet)
		if !ok || a.Function != bb.Function || a.Set != bb.Set {
			return false
		}
		if a.Position == nil || bb.Position == nil {
			return a.Position == nil && bb.Position == nil
		}
		return *a.Position == *bb.Position
	case Preset:
		bb, ok := b.(Preset)
		if !ok || a.ID != bb.ID {
			return false
		}
		if a.State == nil || bb.State == nil {
			return a.State == nil && bb.State == nil
		}
		return a.State.Started.Equal(bb.State.Started) && a.State.FixtureOffset == bb.State.FixtureOffset
	case Mix:
		bb, ok := b.(Mix)
		return ok && a.Factor == bb.Factor && Equal(a.A, bb.A) && Equal(a.B, bb.B)
	default:
		return a == nil && b == nil
	}
}
