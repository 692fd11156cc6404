package show

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"lightbrainz/lib/channel"
)

// stateMagic starts every encoded show state.
var stateMagic = [4]byte{'L', 'B', 'Z', '1'}

// ErrBadState is returned when decoding a state that is not in the
// expected format.
var ErrBadState = errors.New("show: malformed state")

// EncodeState returns every fixture's channel trees in the sync encoding:
//
//	magic "LBZ1" u32(fixtures)
//	per fixture: u32(id) u16(channels)
//	per channel: u16(len) name <node>
//
// Channels are written in profile order, nodes with channel.AppendBinary.
func (s *Show) EncodeState() ([]byte, error) {
	fixtures := s.Fixtures.Snapshot()
	ids := fixtures.IDs()

	out := append([]byte(nil), stateMagic[:]...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(ids)))
	for _, id := range ids {
		f := fixtures[id]
		out = binary.BigEndian.AppendUint32(out, id)
		out = binary.BigEndian.AppendUint16(out, uint16(len(f.Profile.Channels)))
		for _, ch := range f.Profile.Channels {
			if len(ch.Name) > math.MaxUint16 {
				return nil, fmt.Errorf("encode state: fixture %d: channel name too long", id)
			}
			n, err := f.Node(ch.Name)
			if err != nil {
				return nil, fmt.Errorf("encode state: %w", err)
			}
			out = binary.BigEndian.AppendUint16(out, uint16(len(ch.Name)))
			out = append(out, ch.Name...)
			if out, err = channel.AppendBinary(out, n); err != nil {
				return nil, fmt.Errorf("encode state: fixture %d channel %q: %w", id, ch.Name, err)
			}
		}
	}
	return out, nil
}

// WriteState writes EncodeState to w.
func (s *Show) WriteState(w io.Writer) error {
	b, err := s.EncodeState()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// DecodeState parses an encoded state into per-fixture channel trees.
func DecodeState(b []byte) (map[uint32]map[string]channel.Node, error) {
	if len(b) < len(stateMagic) || !slices.Equal(b[:len(stateMagic)], stateMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrBadState)
	}
	off := len(stateMagic)
	need := func(n int) error {
		if len(b)-off < n {
			return fmt.Errorf("%w: truncated at byte %d", ErrBadState, off)
		}
		return nil
	}

	if err := need(4); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(b[off:])
	off += 4

	out := make(map[uint32]map[string]channel.Node)
	for range count {
		if err := need(6); err != nil {
			return nil, err
		}
		id := binary.BigEndian.Uint32(b[off:])
		chans := int(binary.BigEndian.Uint16(b[off+4:]))
		off += 6

		values := make(map[string]channel.Node, chans)
		for range chans {
			if err := need(2); err != nil {
				return nil, err
			}
			l := int(binary.BigEndian.Uint16(b[off:]))
			off += 2
			if err := need(l); err != nil {
				return nil, err
			}
			name := string(b[off : off+l])
			off += l

			n, used, err := channel.DecodeBinary(b[off:])
			if err != nil {
				return nil, fmt.Errorf("%w: fixture %d channel %q: %w", ErrBadState, id, name, err)
			}
			off += used
			values[name] = n
		}
		out[id] = values
	}
	if off != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadState, len(b)-off)
	}
	return out, nil
}

// ApplyState replaces the channel trees of every fixture named in the
// encoded state. Fixtures the state leaves out keep their trees.
func (s *Show) ApplyState(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	states, err := DecodeState(b)
	if err != nil {
		return err
	}
	if err := s.Fixtures.Replace(states); err != nil {
		return fmt.Errorf("apply state: %w", err)
	}
	s.logger.Info("state applied", "fixtures", len(states))
	return nil
}
