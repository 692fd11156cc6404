package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lightbrainz.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFile_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
output:
  mode: artnet
  update_hz: 30
  targets: [10.0.0.20, "10.0.0.21:6455"]
show:
  file: shows/club.yaml
  state_file: /var/lib/lightbrainz/state.lbz
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Output.Mode != OutputArtNet || cfg.Output.UpdateHz != 30 || len(cfg.Output.Targets) != 2 {
		t.Fatalf("output = %+v", cfg.Output)
	}
	if want := filepath.Join(filepath.Dir(path), "shows/club.yaml"); cfg.Show.File != want {
		t.Fatalf("show.file = %q, want %q", cfg.Show.File, want)
	}
	if cfg.Show.StateFile != "/var/lib/lightbrainz/state.lbz" {
		t.Fatalf("show.state_file = %q", cfg.Show.StateFile)
	}

	// Untouched sections keep their defaults.
	def := DefaultConfig()
	if cfg.IPC != def.IPC || cfg.StateWS != def.StateWS || cfg.Watchdog != def.Watchdog {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := cfg.TickInterval(); got != time.Second/30 {
		t.Fatalf("tick interval = %v", got)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", "output:\n  mode: log\n  fps: 40\n", "field fps not found"},
		{"trailing document", "output:\n  mode: log\n---\nlogging:\n  level: debug\n", "trailing document"},
		{"bad type", "output:\n  update_hz: fast\n", "decode config yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not contain %q", err, tt.want)
			}
		})
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadConfigFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Show.File = "show.yaml"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"defaults with show", func(*Config) {}, ""},
		{"missing show", func(c *Config) { c.Show.File = "" }, "show.file"},
		{"unknown mode", func(c *Config) { c.Output.Mode = "sacn" }, "output.mode"},
		{"artnet without receivers", func(c *Config) { c.Output.Mode = OutputArtNet }, "neither output.targets"},
		{"artnet broadcast only", func(c *Config) {
			c.Output.Mode = OutputArtNet
			c.Output.Broadcast = true
		}, ""},
		{"artnet bad target", func(c *Config) {
			c.Output.Mode = OutputArtNet
			c.Output.Targets = []string{"10.0.0.1:notaport"}
		}, "output.targets[0]"},
		{"rate zero", func(c *Config) { c.Output.UpdateHz = 0 }, "update_hz"},
		{"rate too high", func(c *Config) { c.Output.UpdateHz = maxUpdateHz + 1 }, "update_hz"},
		{"empty socket", func(c *Config) { c.IPC.SocketPath = "" }, "ipc.socket_path"},
		{"ws bad port", func(c *Config) { c.StateWS.Port = 70000 }, "state_ws.port"},
		{"ws bad path", func(c *Config) { c.StateWS.Path = "ws" }, "state_ws.path"},
		{"ws disabled ignores port", func(c *Config) {
			c.StateWS.Enabled = false
			c.StateWS.Port = 0
		}, ""},
		{"watchdog interval", func(c *Config) { c.Watchdog.IntervalMS = 0 }, "watchdog.interval_ms"},
		{"watchdog threshold", func(c *Config) { c.Watchdog.StallThresholdMS = -1 }, "watchdog.stall_threshold_ms"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	mode := "artnet"
	hz := 60
	off := false
	zero := 0
	level := "warn"

	cfg := validConfig()
	cfg.Output.Targets = []string{"10.0.0.1"}
	FlagOverrides{
		OutputMode:     &mode,
		UpdateHz:       &hz,
		ArtNetTargets:  []string{"10.0.0.2", "10.0.0.3"},
		StateWSEnabled: &off,
		StateWSPort:    &zero,
		LogLevel:       &level,
	}.Apply(&cfg)

	if cfg.Output.Mode != OutputArtNet || cfg.Output.UpdateHz != 60 {
		t.Fatalf("output = %+v", cfg.Output)
	}
	if strings.Join(cfg.Output.Targets, ",") != "10.0.0.2,10.0.0.3" {
		t.Fatalf("targets = %v", cfg.Output.Targets)
	}
	if cfg.StateWS.Enabled || cfg.StateWS.Port != 0 {
		t.Fatalf("state_ws = %+v", cfg.StateWS)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	// Nil pointers leave the rest alone.
	if cfg.IPC.SocketPath != defaultSocketPath || cfg.Show.File != "show.yaml" {
		t.Fatalf("unrelated fields changed: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	FlagOverrides{}.Apply(nil)
}

func TestArtNetAddr_DefaultPort(t *testing.T) {
	addr, err := artNetAddr("127.0.0.1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if addr.Port != artNetPort {
		t.Fatalf("port = %d, want %d", addr.Port, artNetPort)
	}

	addr, err = artNetAddr("127.0.0.1:7000")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if addr.Port != 7000 {
		t.Fatalf("port = %d, want 7000", addr.Port)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/shows/a.yaml"); got != filepath.Join(home, "shows/a.yaml") {
		t.Fatalf("got %q", got)
	}
	if got := ExpandPath("~"); got != home {
		t.Fatalf("got %q", got)
	}
	if got := ExpandPath("rel/a.yaml"); got != "rel/a.yaml" {
		t.Fatalf("got %q", got)
	}
}
