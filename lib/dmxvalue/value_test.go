package dmxvalue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var widths = []uint8{1, 2, 4, 8}

func TestFromFloatRoundTrip(t *testing.T) {
	for _, w := range widths {
		// float64 carries 53 bits of mantissa, so 8-byte values can't do better.
		tolerance := math.Max(1/float64(MaxFor(w)), 1e-15)
		for i := 0; i <= 100; i++ {
			f := float64(i) / 100
			v, err := FromFloat(f, w, 0)
			require.NoError(t, err)
			assert.InDelta(t, f, v.Float(), tolerance, "width %d f %v", w, f)
		}
	}
}

func TestFromFloatClampsAndRounds(t *testing.T) {
	tests := []struct {
		name  string
		f     float64
		bytes uint8
		want  uint64
	}{
		{"below zero", -0.5, 1, 0},
		{"above one", 1.7, 1, 255},
		{"nan", math.NaN(), 2, 0},
		{"quarter rounds up", 0.25, 1, 64},
		{"half 16 bit", 0.5, 2, 32768},
		{"full 64 bit", 1, 8, math.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromFloat(tt.f, tt.bytes, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Raw)
			assert.Equal(t, tt.bytes, v.Bytes)
		})
	}
}

func TestInvalidByteWidth(t *testing.T) {
	for _, w := range []uint8{0, 3, 5, 9} {
		_, err := FromFloat(0.5, w, 0)
		assert.ErrorIs(t, err, ErrInvalidByteWidth)
		_, err = New(1, w, 0)
		assert.ErrorIs(t, err, ErrInvalidByteWidth)
	}
	_, err := Mix(Value{}, Value{Raw: 1, Bytes: 1}, 0.5)
	assert.ErrorIs(t, err, ErrInvalidByteWidth)
}

func TestNewClampsRaw(t *testing.T) {
	v, err := New(300, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(255), v.Raw)
}

func TestMix(t *testing.T) {
	a := Value{Raw: 200, Bytes: 1}
	b := Value{Raw: 1000, Bytes: 2, Shift: 1}

	t.Run("self is idempotent", func(t *testing.T) {
		for _, w := range widths {
			v, err := FromFloat(0.37, w, 0)
			require.NoError(t, err)
			for _, f := range []float64{0, 0.1, 0.5, 0.99, 1, 3} {
				got, err := Mix(v, v, f)
				require.NoError(t, err)
				assert.Equal(t, v, got)
			}
		}
	})

	t.Run("full factor returns a", func(t *testing.T) {
		got, err := Mix(a, b, 1)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	})

	t.Run("zero factor returns b", func(t *testing.T) {
		got, err := Mix(a, b, 0)
		require.NoError(t, err)
		assert.Equal(t, b, got)
	})

	t.Run("takes first operand width", func(t *testing.T) {
		full := Value{Raw: 255, Bytes: 1}
		zero := Value{Raw: 0, Bytes: 2}
		got, err := Mix(full, zero, 0.25)
		require.NoError(t, err)
		assert.Equal(t, Value{Raw: 64, Bytes: 1}, got)
	})
}

func TestMultiply(t *testing.T) {
	v := Value{Raw: 200, Bytes: 1}
	got, err := Multiply(v, 0.5)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got.Raw)

	got, err = Multiply(v, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(255), got.Raw)
}

func TestSplitCombine(t *testing.T) {
	v := Value{Raw: 0x1234, Bytes: 2}
	parts := v.Split()
	require.Len(t, parts, 2)
	assert.Equal(t, Value{Raw: 0x12, Bytes: 1, Shift: 0}, parts[0])
	assert.Equal(t, Value{Raw: 0x34, Bytes: 1, Shift: 1}, parts[1])

	back, err := Combine(parts...)
	require.NoError(t, err)
	assert.Equal(t, v, back)

	_, err = Combine(Value{Raw: 1, Bytes: 1}, Value{Raw: 1, Bytes: 2})
	assert.ErrorIs(t, err, ErrInvalidByteWidth)
}

func TestAppendBytes(t *testing.T) {
	assert.Equal(t, []byte{0xab}, Value{Raw: 0xab, Bytes: 1}.AppendBytes(nil))
	assert.Equal(t, []byte{0x12, 0x34}, Value{Raw: 0x1234, Bytes: 2}.AppendBytes(nil))
	assert.Equal(t, []byte{0, 0, 0x12, 0x34}, Value{Raw: 0x1234, Bytes: 4}.AppendBytes(nil))
}

func TestSlice(t *testing.T) {
	v := Value{Raw: 0x12345678, Bytes: 4}

	hi, err := v.Slice(0, 2)
	require.NoError(t, err)
	assert.Equal(t, Value{Raw: 0x1234, Bytes: 2, Shift: 0}, hi)

	lo, err := v.Slice(2, 2)
	require.NoError(t, err)
	assert.Equal(t, Value{Raw: 0x5678, Bytes: 2, Shift: 2}, lo)

	b, err := v.Slice(1, 1)
	require.NoError(t, err)
	assert.Equal(t, Value{Raw: 0x34, Bytes: 1, Shift: 1}, b)

	_, err = v.Slice(3, 2)
	assert.Error(t, err)
	_, err = v.Slice(0, 3)
	assert.ErrorIs(t, err, ErrInvalidByteWidth)
}
