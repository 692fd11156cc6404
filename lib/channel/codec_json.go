package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MaxDecodeDepth bounds the nesting accepted from encoded trees.
const MaxDecodeDepth = 32

// ErrTooDeep is returned when an encoded tree nests deeper than MaxDecodeDepth.
var ErrTooDeep = errors.New("channel: value tree too deep")

// Envelope is the JSON form of a node: a type discriminator plus payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	typeHome        = "home"
	typeDiscrete    = "discrete"
	typeDiscreteSet = "discrete_set"
	typePreset      = "preset"
	typeMix         = "mix"
)

type mixData struct {
	A      json.RawMessage `json:"a"`
	B      json.RawMessage `json:"b"`
	Factor float64         `json:"factor"`
}

// MarshalNode encodes n as an Envelope.
func MarshalNode(n Node) ([]byte, error) {
	var (
		typ  string
		data any
	)
	switch n := n.(type) {
	case Home:
		return json.Marshal(Envelope{Type: typeHome})
	case Discrete:
		typ, data = typeDiscrete, n
	case DiscreteSet:
		typ, data = typeDiscreteSet, n
	case Preset:
		typ, data = typePreset, n
	case Mix:
		a, err := MarshalNode(n.A)
		if err != nil {
			return nil, fmt.Errorf("marshal mix a: %w", err)
		}
		b, err := MarshalNode(n.B)
		if err != nil {
			return nil, fmt.Errorf("marshal mix b: %w", err)
		}
		typ, data = typeMix, mixData{A: a, B: b, Factor: n.Factor}
	case nil:
		return nil, errors.New("marshal node: nil node")
	default:
		return nil, fmt.Errorf("marshal node: unsupported type %T", n)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Data: raw})
}

// UnmarshalNode decodes an Envelope produced by MarshalNode.
func UnmarshalNode(data []byte) (Node, error) {
	return unmarshalNode(data, 1)
}

func unmarshalNode(data []byte, depth int) (Node, error) {
	if depth > MaxDecodeDepth {
		return nil, ErrTooDeep
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case typeHome:
		return Home{}, nil

	case typeDiscrete:
		var n Discrete
		if err := json.Unmarshal(env.Data, &n); err != nil {
			return nil, fmt.Errorf("unmarshal Discrete: %w", err)
		}
		return n, nil

	case typeDiscreteSet:
		var n DiscreteSet
		if err := json.Unmarshal(env.Data, &n); err != nil {
			return nil, fmt.Errorf("unmarshal DiscreteSet: %w", err)
		}
		return n, nil

	case typePreset:
		var n Preset
		if err := json.Unmarshal(env.Data, &n); err != nil {
			return nil, fmt.Errorf("unmarshal Preset: %w", err)
		}
		return n, nil

	case typeMix:
		var m mixData
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal Mix: %w", err)
		}
		a, err := unmarshalNode(m.A, depth+1)
		if err != nil {
			return nil, fmt.Errorf("unmarshal Mix a: %w", err)
		}
		b, err := unmarshalNode(m.B, depth+1)
		if err != nil {
			return nil, fmt.Errorf("unmarshal Mix b: %w", err)
		}
		return Mix{A: a, B: b, Factor: m.Factor}, nil

	default:
		return nil, fmt.Errorf("unknown node type: %q", env.Type)
	}
}

// Tree wraps a Node so it can be embedded in JSON documents.
type Tree struct {
	Node Node
}

// MarshalJSON implements json.Marshaler.
func (t Tree) MarshalJSON() ([]byte, error) {
	if t.Node == nil {
		return MarshalNode(Home{})
	}
	return MarshalNode(t.Node)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tree) UnmarshalJSON(data []byte) error {
	n, err := UnmarshalNode(data)
	if err != nil {
		return err
	}
	t.Node = n
	return nil
}

// UnmarshalYAML decodes the same {type, data} envelope from YAML, so show
// files can embed trees.
func (t *Tree) UnmarshalYAML(value *yaml.Node) error {
	var doc any
	if err := value.Decode(&doc); err != nil {
		return fmt.Errorf("decode value tree: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode value tree: %w", err)
	}
	return t.UnmarshalJSON(raw)
}
