package channel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Wire tags of the binary sync encoding. All integers are big endian.
const (
	TagHome        byte = 1
	TagDiscrete    byte = 2
	TagDiscreteSet byte = 3
	TagPreset      byte = 4
	TagMix         byte = 5
)

// ErrUnknownTag is returned when decoding meets a tag byte it does not know.
var ErrUnknownTag = errors.New("channel: unknown node tag")

// AppendBinary appends the binary encoding of n to dst.
//
//	Home:        tag
//	Discrete:    tag u64(function) f64(value)
//	DiscreteSet: tag u64(function) u16(len) name u8(has position) [f64(position)]
//	Preset:      tag u32(group) u32(preset) u8(has state) [i64(unix nanos) f64(offset)]
//	Mix:         tag <a> <b> f64(factor)
func AppendBinary(dst []byte, n Node) ([]byte, error) {
	switch n := n.(type) {
	case Home:
		return append(dst, TagHome), nil

	case Discrete:
		dst = append(dst, TagDiscrete)
		dst = binary.BigEndian.AppendUint64(dst, uint64(n.Function))
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(n.Value)), nil

	case DiscreteSet:
		if len(n.Set) > math.MaxUint16 {
			return nil, fmt.Errorf("encode discrete set: name too long (%d bytes)", len(n.Set))
		}
		dst = append(dst, TagDiscreteSet)
		dst = binary.BigEndian.AppendUint64(dst, uint64(n.Function))
		dst = binary.BigEndian.AppendUint16(dst, uint16(len(n.Set)))
		dst = append(dst, n.Set...)
		if n.Position == nil {
			return append(dst, 0), nil
		}
		dst = append(dst, 1)
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(*n.Position)), nil

	case Preset:
		dst = append(dst, TagPreset)
		dst = binary.BigEndian.AppendUint32(dst, n.ID.Group)
		dst = binary.BigEndian.AppendUint32(dst, n.ID.Preset)
		if n.State == nil {
			return append(dst, 0), nil
		}
		dst = append(dst, 1)
		dst = binary.BigEndian.AppendUint64(dst, uint64(n.State.Started.UnixNano()))
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(n.State.FixtureOffset)), nil

	case Mix:
		dst = append(dst, TagMix)
		var err error
		if dst, err = AppendBinary(dst, n.A); err != nil {
			return nil, err
		}
		if dst, err = AppendBinary(dst, n.B); err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(n.Factor)), nil

	case nil:
		return nil, errors.New("encode node: nil node")
	default:
		return nil, fmt.Errorf("encode node: unsupported type %T", n)
	}
}

// DecodeBinary decodes one node from the front of b and returns the number
// of bytes consumed.
func DecodeBinary(b []byte) (Node, int, error) {
	d := decoder{buf: b}
	n, err := d.node(1)
	if err != nil {
		return nil, d.off, err
	}
	return n, d.off, nil
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) take(n int) ([]byte, error) {
	if len(d.buf)-d.off < n {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) u8() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) f64() (float64, error) {
	v, err := d.u64()
	return math.Float64frombits(v), err
}

func (d *decoder) function() (int, error) {
	v, err := d.u64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("decode node: function index %d out of range", v)
	}
	return int(v), nil
}

func (d *decoder) node(depth int) (Node, error) {
	if depth > MaxDecodeDepth {
		return nil, ErrTooDeep
	}
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagHome:
		return Home{}, nil

	case TagDiscrete:
		fn, err := d.function()
		if err != nil {
			return nil, err
		}
		v, err := d.f64()
		if err != nil {
			return nil, err
		}
		return Discrete{Function: fn, Value: v}, nil

	case TagDiscreteSet:
		fn, err := d.function()
		if err != nil {
			return nil, err
		}
		l, err := d.u16()
		if err != nil {
			return nil, err
		}
		name, err := d.take(int(l))
		if err != nil {
			return nil, err
		}
		n := DiscreteSet{Function: fn, Set: string(name)}
		has, err := d.u8()
		if err != nil {
			return nil, err
		}
		if has != 0 {
			pos, err := d.f64()
			if err != nil {
				return nil, err
			}
			n.Position = &pos
		}
		return n, nil

	case TagPreset:
		g, err := d.u32()
		if err != nil {
			return nil, err
		}
		p, err := d.u32()
		if err != nil {
			return nil, err
		}
		n := Preset{ID: PresetID{Group: g, Preset: p}}
		has, err := d.u8()
		if err != nil {
			return nil, err
		}
		if has != 0 {
			nanos, err := d.u64()
			if err != nil {
				return nil, err
			}
			off, err := d.f64()
			if err != nil {
				return nil, err
			}
			n.State = &CapturedState{Started: time.Unix(0, int64(nanos)), FixtureOffset: off}
		}
		return n, nil

	case TagMix:
		a, err := d.node(depth + 1)
		if err != nil {
			return nil, err
		}
		b, err := d.node(depth + 1)
		if err != nil {
			return nil, err
		}
		f, err := d.f64()
		if err != nil {
			return nil, err
		}
		return Mix{A: a, B: b, Factor: f}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}
