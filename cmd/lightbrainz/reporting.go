package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"lightbrainz/lib/resolve"
	"lightbrainz/lib/show"
)

const sentryFlushTimeout = 2 * time.Second

// sentryReporter forwards first-seen channel failures to Sentry.
type sentryReporter struct {
	hub    *sentry.Hub
	logger *slog.Logger
}

var _ show.Reporter = (*sentryReporter)(nil)

// newSentryReporter returns nil when no DSN is configured.
func newSentryReporter(cfg ReportingConfig, logger *slog.Logger) (*sentryReporter, error) {
	if cfg.SentryDSN == "" {
		return nil, nil
	}
	return newSentryReporterWithOptions(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     "lightbrainz@" + version,
	}, logger)
}

func newSentryReporterWithOptions(opts sentry.ClientOptions, logger *slog.Logger) (*sentryReporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("sentry client: %w", err)
	}
	logger.Info("error reporting enabled", "environment", opts.Environment)
	return &sentryReporter{
		hub:    sentry.NewHub(client, sentry.NewScope()),
		logger: logger,
	}, nil
}

// ReportFailure captures f with its fixture, channel and class as tags.
func (r *sentryReporter) ReportFailure(f show.Failure) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("fixture_id", strconv.FormatUint(uint64(f.FixtureID), 10))
		scope.SetTag("channel", f.Channel)
		scope.SetTag("class", f.Class.String())
		scope.SetLevel(sentryLevel(f.Class))
		r.hub.CaptureException(f.Err)
	})
}

// Flush waits for queued events to be delivered.
func (r *sentryReporter) Flush() {
	if !r.hub.Flush(sentryFlushTimeout) {
		r.logger.Warn("sentry flush timed out")
	}
}

func sentryLevel(c resolve.Class) sentry.Level {
	if c == resolve.ClassInvariant {
		return sentry.LevelError
	}
	return sentry.LevelWarning
}
