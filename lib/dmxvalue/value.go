// Package dmxvalue converts between normalized floats and fixed-width DMX
// channel values of 1, 2, 4 or 8 bytes.
package dmxvalue

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidByteWidth is returned when a value is built with a byte width
// other than 1, 2, 4 or 8.
var ErrInvalidByteWidth = errors.New("dmxvalue: invalid byte width")

// Value is a quantized channel value.
//
// Bytes is the width of the value on the wire. Shift is the index of the
// most significant byte this value occupies inside a wider logical value
// (0 for a value that stands on its own or for the coarse byte of a pair).
type Value struct {
	Raw   uint64 `json:"raw"`
	Bytes uint8  `json:"bytes"`
	Shift uint8  `json:"shift,omitempty"`
}

// ValidWidth reports whether bytes is a supported width.
func ValidWidth(bytes uint8) bool {
	switch bytes {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

// MaxFor returns 2^(8*bytes)-1, or 0 for an unsupported width.
func MaxFor(bytes uint8) uint64 {
	switch bytes {
	case 1:
		return math.MaxUint8
	case 2:
		return math.MaxUint16
	case 4:
		return math.MaxUint32
	case 8:
		return math.MaxUint64
	default:
		return 0
	}
}

// New builds a value, clamping raw to the width's maximum.
func New(raw uint64, bytes, shift uint8) (Value, error) {
	if !ValidWidth(bytes) {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidByteWidth, bytes)
	}
	if max := MaxFor(bytes); raw > max {
		raw = max
	}
	return Value{Raw: raw, Bytes: bytes, Shift: shift}, nil
}

// FromFloat quantizes f to the given width. f is clamped to [0,1] and
// rounded to the nearest step.
func FromFloat(f float64, bytes, shift uint8) (Value, error) {
	if !ValidWidth(bytes) {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidByteWidth, bytes)
	}
	max := MaxFor(bytes)
	switch {
	case math.IsNaN(f) || f <= 0:
		return Value{Raw: 0, Bytes: bytes, Shift: shift}, nil
	case f >= 1:
		return Value{Raw: max, Bytes: bytes, Shift: shift}, nil
	}

	scaled := math.Round(f * float64(max))
	// float64(MaxUint64) rounds up to 2^64, which does not fit.
	if scaled >= float64(max) {
		return Value{Raw: max, Bytes: bytes, Shift: shift}, nil
	}
	return Value{Raw: uint64(scaled), Bytes: bytes, Shift: shift}, nil
}

// Max is the largest raw value representable at v's width.
func (v Value) Max() uint64 { return MaxFor(v.Bytes) }

// Valid reports whether v has a supported width.
func (v Value) Valid() bool { return ValidWidth(v.Bytes) }

// Float returns v normalized to [0,1].
func (v Value) Float() float64 {
	max := v.Max()
	if max == 0 {
		return 0
	}
	return float64(v.Raw) / float64(max)
}

// Mix blends a and b, weighting a by factor, and re-quantizes at a's width
// and shift. The result always takes the first operand's layout; callers
// mixing values of different widths get a's resolution back.
func Mix(a, b Value, factor float64) (Value, error) {
	if !a.Valid() {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidByteWidth, a.Bytes)
	}
	if !b.Valid() {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidByteWidth, b.Bytes)
	}

	// Exact shortcuts. Going through float loses precision at 8 bytes.
	switch {
	case a == b:
		return a, nil
	case factor == 1:
		return a, nil
	case factor == 0:
		return b, nil
	}

	return FromFloat(a.Float()*factor+b.Float()*(1-factor), a.Bytes, a.Shift)
}

// Multiply scales v by scalar in float space and re-quantizes at v's width.
func Multiply(v Value, scalar float64) (Value, error) {
	if !v.Valid() {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidByteWidth, v.Bytes)
	}
	if scalar == 1 {
		return v, nil
	}
	return FromFloat(v.Float()*scalar, v.Bytes, v.Shift)
}

// Split breaks v into one-byte values, most significant first. Part i has
// Shift v.Shift+i.
func (v Value) Split() []Value {
	if !v.Valid() {
		return nil
	}
	parts := make([]Value, v.Bytes)
	for i := range parts {
		shiftBits := 8 * uint(int(v.Bytes)-1-i)
		parts[i] = Value{
			Raw:   (v.Raw >> shiftBits) & 0xff,
			Bytes: 1,
			Shift: v.Shift + uint8(i),
		}
	}
	return parts
}

// Combine concatenates parts, most significant first, into one value whose
// width is the sum of the part widths. The result takes the first part's shift.
func Combine(parts ...Value) (Value, error) {
	if len(parts) == 0 {
		return Value{}, fmt.Errorf("%w: 0", ErrInvalidByteWidth)
	}
	var (
		raw   uint64
		width int
	)
	for _, p := range parts {
		if !p.Valid() {
			return Value{}, fmt.Errorf("%w: %d", ErrInvalidByteWidth, p.Bytes)
		}
		width += int(p.Bytes)
		if width > 8 {
			return Value{}, fmt.Errorf("%w: %d", ErrInvalidByteWidth, width)
		}
		raw = raw<<(8*uint(p.Bytes)) | p.Raw
	}
	if !ValidWidth(uint8(width)) {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidByteWidth, width)
	}
	return Value{Raw: raw, Bytes: uint8(width), Shift: parts[0].Shift}, nil
}

// Slice extracts bytes bytes of v starting at byte index shift, counted
// from the most significant byte. The result's Shift is shift.
func (v Value) Slice(shift, bytes uint8) (Value, error) {
	if !v.Valid() || !ValidWidth(bytes) {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidByteWidth, bytes)
	}
	if int(shift)+int(bytes) > int(v.Bytes) {
		return Value{}, fmt.Errorf("dmxvalue: slice [%d,%d) outside %d byte value", shift, int(shift)+int(bytes), v.Bytes)
	}
	if bytes == v.Bytes {
		return Value{Raw: v.Raw, Bytes: bytes, Shift: shift}, nil
	}
	low := 8 * uint(int(v.Bytes)-int(shift)-int(bytes))
	return Value{
		Raw:   (v.Raw >> low) & MaxFor(bytes),
		Bytes: bytes,
		Shift: shift,
	}, nil
}

// AppendBytes appends v in network byte order, using exactly v.Bytes bytes.
func (v Value) AppendBytes(dst []byte) []byte {
	switch v.Bytes {
	case 1:
		return append(dst, byte(v.Raw))
	case 2:
		return binary.BigEndian.AppendUint16(dst, uint16(v.Raw))
	case 4:
		return binary.BigEndian.AppendUint32(dst, uint32(v.Raw))
	case 8:
		return binary.BigEndian.AppendUint64(dst, v.Raw)
	default:
		return dst
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%d/%d", v.Raw, v.Bytes)
}
