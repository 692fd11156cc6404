package main

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"

	"lightbrainz/lib/resolve"
	"lightbrainz/lib/show"
)

func TestNewSentryReporter_DisabledWithoutDSN(t *testing.T) {
	r, err := newSentryReporter(ReportingConfig{}, discardLogger())
	if err != nil || r != nil {
		t.Fatalf("got %v, %v; want nil reporter", r, err)
	}
}

func TestNewSentryReporter_BadDSN(t *testing.T) {
	if _, err := newSentryReporter(ReportingConfig{SentryDSN: "not a dsn"}, discardLogger()); err == nil {
		t.Fatalf("expected error for malformed DSN")
	}
}

func TestSentryReporter_ReportFailure(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []*sentry.Event
	)
	r, err := newSentryReporterWithOptions(sentry.ClientOptions{
		Dsn: "https://public@example.com/1",
		BeforeSend: func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			sent = append(sent, ev)
			mu.Unlock()
			return nil
		},
	}, discardLogger())
	if err != nil {
		t.Fatalf("reporter: %v", err)
	}

	r.ReportFailure(show.Failure{FixtureID: 7, Channel: "Pan", Class: resolve.ClassInvariant, Err: errors.New("cycle through preset 1.2")})
	r.ReportFailure(show.Failure{FixtureID: 8, Channel: "Tilt", Class: resolve.ClassUnsupported, Err: errors.New("rect wave")})

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 2 {
		t.Fatalf("captured %d events, want 2", len(sent))
	}

	first := sent[0]
	if first.Tags["fixture_id"] != "7" || first.Tags["channel"] != "Pan" || first.Tags["class"] != "invariant" {
		t.Fatalf("tags = %v", first.Tags)
	}
	if first.Level != sentry.LevelError {
		t.Fatalf("level = %q, want error", first.Level)
	}
	if len(first.Exception) == 0 || first.Exception[0].Value != "cycle through preset 1.2" {
		t.Fatalf("exception = %+v", first.Exception)
	}

	// Scope tags do not leak between reports.
	second := sent[1]
	if second.Tags["fixture_id"] != "8" || second.Level != sentry.LevelWarning {
		t.Fatalf("second event tags %v level %q", second.Tags, second.Level)
	}
}
