package preset

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/effect"
	"lightbrainz/lib/feature"
)

var (
	colorRed = channel.PresetID{Group: 2, Preset: 1}
	dimFull  = channel.PresetID{Group: 0, Preset: 1}
)

func dimValues(ids ...uint32) effect.ChannelValues {
	v := make(effect.ChannelValues)
	for _, id := range ids {
		v[id] = map[string]channel.Node{"Dimmer": channel.Discrete{Value: 1}}
	}
	return v
}

func TestSelectionOffsets(t *testing.T) {
	s := NewSelection(10, 11, 12, 13)
	for i, id := range s.Fixtures {
		off, ok := s.Offset(id)
		require.True(t, ok)
		assert.InDelta(t, float64(i)/4, off, 1e-12)
	}
	_, ok := s.Offset(99)
	assert.False(t, ok)

	grouped := Selection{Fixtures: []uint32{1, 2, 3, 4, 5, 6, 7, 8}, GroupSize: 2, Wings: 2}
	// 4 groups mirrored over 2 wings: 0 0 1 1 0 0 1 1
	want := []int{0, 0, 1, 1, 0, 0, 1, 1}
	for i, id := range grouped.Fixtures {
		idx, ok := grouped.OffsetIndex(id)
		require.True(t, ok)
		assert.Equal(t, want[i], idx, "fixture %d", id)
	}
	assert.Equal(t, 2, grouped.NumOffsets())

	// More wings than groups still yields one offset slot.
	tiny := Selection{Fixtures: []uint32{1}, GroupSize: 4, Wings: 3}
	off, ok := tiny.Offset(1)
	require.True(t, ok)
	assert.Equal(t, 0.0, off)
}

func TestTarget(t *testing.T) {
	p, err := New(dimFull, "", dimValues(1, 2))
	require.NoError(t, err)
	assert.Equal(t, "Intensity Preset 0.1", p.Name)

	assert.Equal(t, TargetAll, p.Target([]uint32{1, 2}))
	assert.Equal(t, TargetSome, p.Target([]uint32{1, 3}))
	assert.Equal(t, TargetNone, p.Target([]uint32{3}))

	fx := &Preset{ID: colorRed, Effect: &effect.Descriptor{Effect: effect.ColorHueRotate{}}}
	assert.Equal(t, TargetAll, fx.Target([]uint32{3}))

	_, err = New(channel.PresetID{Group: 40, Preset: 1}, "", dimValues(1))
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestChannels(t *testing.T) {
	chans := []ChannelRef{
		{Name: "Dimmer", Role: feature.Intensity},
		{Name: "Red", Role: feature.Red},
		{Name: "Green", Role: feature.Green},
		{Name: "Blue", Role: feature.Blue},
	}

	values, _ := New(dimFull, "", dimValues(1))
	assert.Equal(t, []string{"Dimmer"}, values.Channels(1, chans))
	assert.Empty(t, values.Channels(2, chans))

	hue := &Preset{ID: colorRed, Effect: &effect.Descriptor{Effect: effect.ColorHueRotate{}}}
	assert.Equal(t, []string{"Red", "Green", "Blue"}, hue.Channels(7, chans))
}

func TestHandlerRecord(t *testing.T) {
	h := NewHandler()

	n, err := h.Record(dimFull, "Full", dimValues(1, 2), UpdateMerge)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	half := effect.ChannelValues{
		2: {"Dimmer": channel.Discrete{Value: 0.5}},
		3: {"Dimmer": channel.Discrete{Value: 0.5}},
	}
	before, _ := h.Preset(dimFull)

	n, err = h.Record(dimFull, "", half, UpdateMerge)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "merge only adds unknown fixtures")
	p, _ := h.Preset(dimFull)
	assert.Equal(t, channel.Discrete{Value: 1}, p.Values[2]["Dimmer"])
	assert.Equal(t, channel.Discrete{Value: 0.5}, p.Values[3]["Dimmer"])
	assert.Equal(t, "Full", p.Name)

	n, err = h.Record(dimFull, "", half, UpdateOverride)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	p, _ = h.Preset(dimFull)
	assert.Equal(t, channel.Discrete{Value: 0.5}, p.Values[2]["Dimmer"])

	// Earlier readers keep their view.
	assert.Len(t, before.Values, 2)
	assert.Equal(t, channel.Discrete{Value: 1}, before.Values[2]["Dimmer"])

	_, err = h.Record(dimFull, "", half, "append")
	assert.ErrorIs(t, err, ErrUnknownMode)

	require.NoError(t, h.Put(&Preset{ID: colorRed, Name: "Rainbow", Effect: &effect.Descriptor{Effect: effect.ColorHueRotate{}}}))
	_, err = h.Record(colorRed, "", half, UpdateOverride)
	assert.ErrorIs(t, err, ErrNotUpdatable)

	_, err = h.Record(channel.PresetID{Group: 1, Preset: 9}, "", nil, UpdateMerge)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestHandlerLookups(t *testing.T) {
	h := NewHandler()
	require.NoError(t, h.Put(&Preset{ID: colorRed, Name: "Red", Values: dimValues(1)}))
	require.NoError(t, h.Put(&Preset{ID: dimFull, Name: "Full", Values: dimValues(1)}))

	assert.Equal(t, []channel.PresetID{dimFull, colorRed}, h.IDs())

	snap := h.Snapshot()
	require.NoError(t, h.Rename(colorRed, "Crimson"))
	require.NoError(t, h.Delete(dimFull))

	name, ok := snap.Name(colorRed)
	assert.True(t, ok)
	assert.Equal(t, "Red", name, "snapshot is frozen")
	name, _ = h.Name(colorRed)
	assert.Equal(t, "Crimson", name)

	_, err := h.Preset(dimFull)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, dimFull, nf.ID)
	assert.ErrorAs(t, h.Delete(dimFull), &nf)
	assert.ErrorAs(t, h.Rename(dimFull, "x"), &nf)

	_, err = snap.Preset(dimFull)
	assert.NoError(t, err)

	err = h.Put(&Preset{ID: dimFull, Values: dimValues(1), Effect: &effect.Descriptor{Effect: effect.IntensitySine{}}})
	assert.True(t, errors.Is(err, ErrMixedContent))
}

func TestHandlerConcurrentAccess(t *testing.T) {
	h := NewHandler()
	require.NoError(t, h.Put(&Preset{ID: dimFull, Name: "Full", Values: dimValues(1)}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, _ = h.Record(dimFull, "", dimValues(uint32(j)), UpdateOverride)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				p, err := h.Preset(dimFull)
				if err == nil {
					_ = p.Target([]uint32{1})
				}
				_ = h.Snapshot().IDs()
			}
		}()
	}
	wg.Wait()

	p, err := h.Preset(dimFull)
	require.NoError(t, err)
	assert.Len(t, p.Values, 200)
}

func TestConfigBuild(t *testing.T) {
	src := `
- id: "0.3"
  name: Half
  values:
    1:
      Dimmer: {type: discrete, data: {function: 0, value: 0.5}}
- id: "2.4"
  effect:
    speed: {master: {id: 1, scale: -1, sync: beat}}
    phase: {mode: range, start: 0, end: 360}
    effect: {kind: color_hue_rotate, hue_size: 0.5, hue_center: 0.5}
`
	var cfgs []Config
	require.NoError(t, yaml.Unmarshal([]byte(src), &cfgs))
	require.Len(t, cfgs, 2)

	half, err := cfgs[0].Build()
	require.NoError(t, err)
	assert.Equal(t, channel.PresetID{Group: 0, Preset: 3}, half.ID)
	n, ok := half.Value(1, "Dimmer")
	require.True(t, ok)
	assert.Equal(t, channel.Discrete{Value: 0.5}, n)

	hue, err := cfgs[1].Build()
	require.NoError(t, err)
	assert.Equal(t, "Color Preset 2.4", hue.Name)
	require.True(t, hue.IsEffect())
	assert.Equal(t, effect.ColorHueRotate{HueSize: 0.5, HueCenter: 0.5}, hue.Effect.Effect)
	assert.Equal(t, effect.SyncBeat, hue.Effect.Speed.Master.Sync)

	_, err = Config{ID: "x"}.Build()
	assert.Error(t, err)
	_, err = Config{ID: "1.1"}.Build()
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestPresetJSON(t *testing.T) {
	p := &Preset{ID: dimFull, Name: "Full", Values: dimValues(4)}
	b, err := json.Marshal(p)
	require.NoError(t, err)

	var back Preset
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, p.ID, back.ID)
	assert.Equal(t, channel.Discrete{Value: 1}, back.Values[4]["Dimmer"])
	assert.Nil(t, back.Effect)
}
