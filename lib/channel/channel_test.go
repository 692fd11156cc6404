package channel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleTree() Node {
	pos := 0.25
	return Mix{
		A: Discrete{Function: 1, Value: 0.75},
		B: Mix{
			A:      DiscreteSet{Function: 2, Set: "Red", Position: &pos},
			B:      Preset{ID: PresetID{Group: 2, Preset: 7}, State: &CapturedState{Started: time.Unix(1700000000, 123456789), FixtureOffset: 0.5}},
			Factor: 0.3,
		},
		Factor: 0.6,
	}
}

func TestJSONCodec(t *testing.T) {
	tree := sampleTree()
	b, err := MarshalNode(tree)
	require.NoError(t, err)

	got, err := UnmarshalNode(b)
	require.NoError(t, err)
	assert.True(t, Equal(tree, got), "got %s", got)

	var env Envelope
	require.NoError(t, json.Unmarshal(b, &env))
	assert.Equal(t, "mix", env.Type)
}

func TestJSONTreeWrapper(t *testing.T) {
	doc := struct {
		Value Tree `json:"value"`
	}{Value: Tree{Node: Preset{ID: PresetID{Group: 1, Preset: 3}}}}

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":{"type":"preset","data":{"id":"1.3"}}}`, string(b))

	var back struct {
		Value Tree `json:"value"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Preset{ID: PresetID{Group: 1, Preset: 3}}, back.Value.Node)
}

func TestYAMLTree(t *testing.T) {
	src := `
value:
  type: mix
  data:
    factor: 0.5
    a: {type: preset, data: {id: "2.1"}}
    b: {type: discrete, data: {function: 0, value: 1}}
`
	var doc struct {
		Value Tree `yaml:"value"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	want := Mix{A: Preset{ID: PresetID{Group: 2, Preset: 1}}, B: Discrete{Value: 1}, Factor: 0.5}
	assert.True(t, Equal(want, doc.Value.Node), "got %s", doc.Value.Node)
}

func TestJSONRejectsUnknownType(t *testing.T) {
	_, err := UnmarshalNode([]byte(`{"type":"fade"}`))
	assert.ErrorContains(t, err, "unknown node type")
}

func TestBinaryCodec(t *testing.T) {
	tree := sampleTree()
	b, err := AppendBinary(nil, tree)
	require.NoError(t, err)
	assert.Equal(t, TagMix, b[0])

	got, n, err := DecodeBinary(b)
	require.NoError(t, err)
	assert.Equal(t, len(b), n)
	assert.True(t, Equal(tree, got), "got %s", got)
}

func TestBinaryLayout(t *testing.T) {
	b, err := AppendBinary(nil, Preset{ID: PresetID{Group: 1, Preset: 2}})
	require.NoError(t, err)
	assert.Equal(t, []byte{TagPreset, 0, 0, 0, 1, 0, 0, 0, 2, 0}, b)

	b, err = AppendBinary(nil, DiscreteSet{Function: 3, Set: "Open"})
	require.NoError(t, err)
	assert.Equal(t, []byte{TagDiscreteSet, 0, 0, 0, 0, 0, 0, 0, 3, 0, 4, 'O', 'p', 'e', 'n', 0}, b)
}

func TestBinaryTruncatedAndUnknown(t *testing.T) {
	b, err := AppendBinary(nil, sampleTree())
	require.NoError(t, err)

	_, _, err = DecodeBinary(b[:len(b)-3])
	assert.Error(t, err)

	_, _, err = DecodeBinary([]byte{9})
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestDecodeDepthLimit(t *testing.T) {
	var n Node = Home{}
	for i := 0; i < MaxDecodeDepth+1; i++ {
		n = Mix{A: n, B: Home{}, Factor: 0.5}
	}
	b, err := AppendBinary(nil, n)
	require.NoError(t, err)
	_, _, err = DecodeBinary(b)
	assert.ErrorIs(t, err, ErrTooDeep)

	j, err := MarshalNode(n)
	require.NoError(t, err)
	_, err = UnmarshalNode(j)
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestPresetID(t *testing.T) {
	id, err := ParsePresetID("2.15")
	require.NoError(t, err)
	assert.Equal(t, PresetID{Group: 2, Preset: 15}, id)
	assert.Equal(t, "2.15", id.String())
	assert.True(t, PresetID{Group: 1, Preset: 9}.Less(id))

	for _, bad := range []string{"", "2", "a.b", "1.-1"} {
		_, err := ParsePresetID(bad)
		assert.Error(t, err, bad)
	}
}

func TestStringsAndHelpers(t *testing.T) {
	m := Mix{A: Discrete{Value: 1}, B: Home{}, Factor: 0.25}
	assert.Equal(t, "100.00% * 0.25 + Home * 0.75", m.String())
	assert.Equal(t, 2, Depth(m))

	id := PresetID{Group: 0, Preset: 1}
	withPreset := Mix{A: Preset{ID: id}, B: Home{}, Factor: 1}
	assert.True(t, References(withPreset, id))
	assert.False(t, References(m, id))

	names := func(p PresetID) (string, bool) { return "Warm", p == id }
	assert.Equal(t, "Warm", Describe(Preset{ID: id}, names))
	assert.Equal(t, "Preset 0.2 (deleted)", Describe(Preset{ID: PresetID{Preset: 2}}, names))
}
