package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"lightbrainz/lib/show"
)

// Output receives every tick's frame.
type Output interface {
	WriteFrame(f show.Frame) error
	Close() error
}

// newOutput builds the output selected by cfg.
func newOutput(cfg OutputConfig, logger *slog.Logger) (Output, error) {
	switch cfg.Mode {
	case OutputArtNet:
		a, err := NewArtNetSender(cfg.Targets, cfg.Broadcast, logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	case OutputLog:
		return newLogOutput(logger), nil
	default:
		return nil, fmt.Errorf("unknown output mode %q", cfg.Mode)
	}
}

// logOutput dumps each universe at debug level whenever its contents
// change.
type logOutput struct {
	logger *slog.Logger
	last   map[uint16][]byte
}

func newLogOutput(logger *slog.Logger) *logOutput {
	return &logOutput{logger: logger, last: make(map[uint16][]byte)}
}

func (o *logOutput) WriteFrame(f show.Frame) error {
	for _, u := range slices.Sorted(maps.Keys(f.Universes)) {
		buf := f.Universes[u]
		if prev, ok := o.last[u]; ok && bytes.Equal(prev, buf) {
			continue
		}
		o.last[u] = bytes.Clone(buf)

		used := len(bytes.TrimRight(buf, "\x00"))
		o.logger.Debug("dmx frame",
			"universe", u,
			"slots", used,
			"data", hex.EncodeToString(buf[:used]),
		)
	}
	return nil
}

func (o *logOutput) Close() error { return nil }
