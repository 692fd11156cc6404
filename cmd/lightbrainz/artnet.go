package main

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"slices"

	"lightbrainz/lib/fixture"
	"lightbrainz/lib/show"
)

// ============================================================================
// Art-Net output
// ============================================================================
// Each tick sends one ArtDMX packet per patched universe to every target.
// Universe numbers are the 15-bit Port-Address (Net, Sub-Net, Universe).
// ============================================================================

// ArtNetSender owns the UDP socket and the ArtDMX sequence counter.
type ArtNetSender struct {
	conn    *net.UDPConn
	targets []*net.UDPAddr
	seq     uint8
	logger  *slog.Logger

	failing bool
}

// NewArtNetSender opens a UDP socket for the given targets. With broadcast
// set, the limited broadcast address is added and SO_BROADCAST enabled.
func NewArtNetSender(targets []string, broadcast bool, logger *slog.Logger) (*ArtNetSender, error) {
	var addrs []*net.UDPAddr
	for _, t := range targets {
		addr, err := artNetAddr(t)
		if err != nil {
			return nil, fmt.Errorf("art-net target: %w", err)
		}
		addrs = append(addrs, addr)
	}
	if broadcast {
		addrs = append(addrs, &net.UDPAddr{IP: net.IPv4bcast, Port: artNetPort})
	}
	if len(addrs) == 0 {
		return nil, errors.New("art-net: no targets")
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("art-net socket: %w", err)
	}
	if broadcast {
		raw, err := conn.SyscallConn()
		if err == nil {
			err = enableBroadcast(raw)
		}
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("art-net: enable broadcast: %w", err)
		}
	}

	logger.Info("art-net output ready", "targets", len(addrs), "broadcast", broadcast)
	return &ArtNetSender{conn: conn, targets: addrs, seq: 1, logger: logger}, nil
}

// WriteFrame sends every universe of f, in ascending order, to every
// target.
func (a *ArtNetSender) WriteFrame(f show.Frame) error {
	var errs []error
	for _, u := range slices.Sorted(maps.Keys(f.Universes)) {
		packet, err := buildArtDMX(a.seq, u, f.Universes[u])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, t := range a.targets {
			if _, err := a.conn.WriteToUDP(packet, t); err != nil {
				errs = append(errs, fmt.Errorf("universe %d to %s: %w", u, t, err))
			}
		}
	}
	a.next()

	err := errors.Join(errs...)
	switch {
	case err != nil && !a.failing:
		a.failing = true
		a.logger.Warn("art-net send failed", "error", err)
	case err == nil && a.failing:
		a.failing = false
		a.logger.Info("art-net send recovered")
	}
	return err
}

// next advances the sequence, skipping 0 which disables reordering on
// receivers.
func (a *ArtNetSender) next() {
	a.seq++
	if a.seq == 0 {
		a.seq = 1
	}
}

func (a *ArtNetSender) Close() error {
	return a.conn.Close()
}

// buildArtDMX constructs an ArtDMX packet for the given universe and payload.
func buildArtDMX(seq uint8, universe uint16, dmx []byte) ([]byte, error) {
	if len(dmx) > fixture.UniverseSize {
		return nil, fmt.Errorf("universe %d: dmx length %d exceeds %d", universe, len(dmx), fixture.UniverseSize)
	}
	if universe > 0x7fff {
		return nil, fmt.Errorf("universe %d: port-address out of range", universe)
	}
	// Payload length must be even.
	n := len(dmx) + len(dmx)%2
	if n < 2 {
		n = 2
	}

	packet := make([]byte, artNetHeaderSz+n)
	copy(packet[0:], "Art-Net\x00")                                 // ID
	packet[8], packet[9] = byte(opArtDMX&0xff), byte(opArtDMX>>8)   // OpCode, little-endian
	packet[10], packet[11] = 0x00, artNetVersion                    // Protocol version, big-endian
	packet[12], packet[13] = seq, 0x00                              // Sequence, physical port
	packet[14], packet[15] = byte(universe&0xff), byte(universe>>8) // SubUni, Net
	packet[16], packet[17] = byte(n>>8), byte(n)                    // Length, big-endian
	copy(packet[artNetHeaderSz:], dmx)
	return packet, nil
}
