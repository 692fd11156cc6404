package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lightbrainz/lib/show"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The loop is the only goroutine that mutates the show or calls Tick:
//   - Events are applied as they arrive, between ticks.
//   - Each tick resolves every channel, writes the frame to the output and
//     hands the changed channels to the websocket broadcaster.
//
// ============================================================================

// runDaemon runs the event/tick loop until ctx is canceled or events is
// closed. changes may be nil when no broadcaster is running; wd may be nil
// when no watchdog is running.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	s *show.Show,
	out Output,
	changes chan<- []show.Change,
	wd *watchdog,
	updateHz int,
	logger *slog.Logger,
) {
	if s == nil || out == nil {
		logger.Error("daemon needs a show and an output")
		return
	}

	ticker := time.NewTicker(time.Second / time.Duration(updateHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			handleEvent(s, ev, time.Now(), logger)

		case now := <-ticker.C:
			tick(s, out, changes, now, logger)
			if wd != nil {
				wd.Beat(time.Now())
			}
		}
	}
}

// handleEvent applies one event and answers any reply channel it carries.
func handleEvent(s *show.Show, ev Event, now time.Time, logger *slog.Logger) {
	switch e := ev.(type) {
	case RequestStateSnapshot:
		if e.Reply != nil {
			e.Reply <- s.Last()
		}

	case awaitedEvent:
		err := applyEvent(s, e.Event, now, logger)
		if err != nil {
			logger.Warn("event failed", "event", eventName(e.Event), "error", err)
		}
		if e.Reply != nil {
			e.Reply <- err
		}

	default:
		if err := applyEvent(s, ev, now, logger); err != nil {
			logger.Warn("event failed", "event", eventName(ev), "error", err)
		}
	}
}

// tick produces one frame. Output errors are logged by the output and never
// stop the loop.
func tick(s *show.Show, out Output, changes chan<- []show.Change, now time.Time, logger *slog.Logger) {
	frame, changed := s.Tick(now)
	_ = out.WriteFrame(frame)

	if changes == nil || len(changed) == 0 {
		return
	}
	select {
	case changes <- changed:
	default:
		logger.Warn("state broadcast queue full, dropping changes", "channels", len(changed))
	}
}

func eventName(ev Event) string {
	if typ, ok := eventType(ev); ok {
		return typ
	}
	return fmt.Sprintf("%T", ev)
}
