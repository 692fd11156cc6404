package main

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// watchdog notices when the output tick stops completing. It only logs;
// the tick loop itself is never interrupted.
type watchdog struct {
	lastBeat atomic.Int64 // unix nanos of the last completed tick
	stalled  bool
	now      func() time.Time
}

func newWatchdog() *watchdog {
	w := &watchdog{now: time.Now}
	w.lastBeat.Store(w.now().UnixNano())
	return w
}

// Beat records a completed tick.
func (w *watchdog) Beat(at time.Time) {
	w.lastBeat.Store(at.UnixNano())
}

// Since returns how long ago the last tick completed.
func (w *watchdog) Since() time.Duration {
	return w.now().Sub(time.Unix(0, w.lastBeat.Load()))
}

// check logs a transition into or out of the stalled state. It reports
// whether the tick is currently stalled.
func (w *watchdog) check(threshold time.Duration, logger *slog.Logger) bool {
	since := w.Since()
	switch {
	case since > threshold && !w.stalled:
		w.stalled = true
		logger.Error("output tick stalled", "since_last_tick", since.String(), "threshold", threshold.String())
	case since <= threshold && w.stalled:
		w.stalled = false
		logger.Warn("output tick recovered", "since_last_tick", since.String())
	}
	return w.stalled
}

// Run checks the heartbeat every interval until ctx is canceled.
func (w *watchdog) Run(ctx context.Context, interval, threshold time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(threshold, logger)
		}
	}
}
