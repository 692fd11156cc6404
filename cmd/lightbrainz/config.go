package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the lightbrainz daemon.
//
// Defaults and validation live here so the rest of the daemon can assume a
// well-formed config. Flags override individual fields on top of the file.
type Config struct {
	// DMX output
	Output OutputConfig `yaml:"output"`

	// Show file and optional state file
	Show ShowConfig `yaml:"show"`

	// IPC configuration (used by lightbrainz-ctl)
	IPC IPCConfig `yaml:"ipc"`

	// State websocket
	StateWS StateWSConfig `yaml:"state_ws"`

	// Tick watchdog
	Watchdog WatchdogConfig `yaml:"watchdog"`

	// Error reporting
	Reporting ReportingConfig `yaml:"reporting"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// OutputMode selects where frames go.
type OutputMode string

const (
	OutputArtNet OutputMode = "artnet"
	OutputLog    OutputMode = "log"
)

type OutputConfig struct {
	Mode     OutputMode `yaml:"mode"`
	UpdateHz int        `yaml:"update_hz"`

	// Targets are host or host:port Art-Net receivers. Port defaults to 6454.
	Targets   []string `yaml:"targets,omitempty"`
	Broadcast bool     `yaml:"broadcast,omitempty"`
}

type ShowConfig struct {
	File string `yaml:"file"`

	// StateFile, when set, is loaded at startup and written on shutdown.
	StateFile string `yaml:"state_file,omitempty"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StateWSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

type WatchdogConfig struct {
	IntervalMS       int `yaml:"interval_ms"`
	StallThresholdMS int `yaml:"stall_threshold_ms"`
}

type ReportingConfig struct {
	SentryDSN   string `yaml:"sentry_dsn,omitempty"`
	Environment string `yaml:"environment,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Output: OutputConfig{
			Mode:     OutputLog,
			UpdateHz: defaultUpdateHz,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		StateWS: StateWSConfig{
			Enabled: true,
			Port:    defaultStateWSPort,
			Path:    defaultStateWSPath,
		},
		Watchdog: WatchdogConfig{
			IntervalMS:       defaultWatchdogIntervalMS,
			StallThresholdMS: defaultStallThresholdMS,
		},
		Reporting: ReportingConfig{
			Environment: "production",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
// Unknown fields are rejected so typos surface at startup. A relative
// show.file or show.state_file is resolved against the config file's
// directory.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	path = ExpandPath(path)
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	dir := filepath.Dir(path)
	cfg.Show.File = relativeTo(dir, cfg.Show.File)
	cfg.Show.StateFile = relativeTo(dir, cfg.Show.StateFile)
	return cfg, nil
}

func relativeTo(dir, p string) string {
	p = ExpandPath(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// FlagOverrides holds pointers to flag values; each non-nil pointer is
// applied over the loaded config, even when it holds a zero value.
type FlagOverrides struct {
	OutputMode    *string
	UpdateHz      *int
	ArtNetTargets []string
	Broadcast     *bool

	ShowFile  *string
	StateFile *string

	IPCSocketPath *string

	StateWSEnabled *bool
	StateWSPort    *int

	StallThresholdMS *int

	SentryDSN *string

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.OutputMode != nil {
		cfg.Output.Mode = OutputMode(*o.OutputMode)
	}
	if o.UpdateHz != nil {
		cfg.Output.UpdateHz = *o.UpdateHz
	}
	if len(o.ArtNetTargets) > 0 {
		cfg.Output.Targets = append([]string(nil), o.ArtNetTargets...)
	}
	if o.Broadcast != nil {
		cfg.Output.Broadcast = *o.Broadcast
	}

	if o.ShowFile != nil {
		cfg.Show.File = ExpandPath(*o.ShowFile)
	}
	if o.StateFile != nil {
		cfg.Show.StateFile = ExpandPath(*o.StateFile)
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.StateWSEnabled != nil {
		cfg.StateWS.Enabled = *o.StateWSEnabled
	}
	if o.StateWSPort != nil {
		cfg.StateWS.Port = *o.StateWSPort
	}

	if o.StallThresholdMS != nil {
		cfg.Watchdog.StallThresholdMS = *o.StallThresholdMS
	}

	if o.SentryDSN != nil {
		cfg.Reporting.SentryDSN = *o.SentryDSN
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	// Output
	switch c.Output.Mode {
	case OutputLog:
	case OutputArtNet:
		if len(c.Output.Targets) == 0 && !c.Output.Broadcast {
			return errors.New("output.mode is artnet but neither output.targets nor output.broadcast is set")
		}
		for i, t := range c.Output.Targets {
			if _, err := artNetAddr(t); err != nil {
				return fmt.Errorf("output.targets[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("output.mode must be %q or %q", OutputArtNet, OutputLog)
	}
	if c.Output.UpdateHz <= 0 || c.Output.UpdateHz > maxUpdateHz {
		return fmt.Errorf("output.update_hz must be between 1 and %d", maxUpdateHz)
	}

	// Show
	if c.Show.File == "" {
		return errors.New("show.file must not be empty")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// State websocket
	if c.StateWS.Enabled {
		if c.StateWS.Port <= 0 || c.StateWS.Port > 65535 {
			return errors.New("state_ws.port must be between 1 and 65535")
		}
		if c.StateWS.Path == "" || c.StateWS.Path[0] != '/' {
			return errors.New("state_ws.path must start with /")
		}
	}

	// Watchdog
	if c.Watchdog.IntervalMS <= 0 {
		return errors.New("watchdog.interval_ms must be > 0")
	}
	if c.Watchdog.StallThresholdMS <= 0 {
		return errors.New("watchdog.stall_threshold_ms must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Output.UpdateHz)
}

func (c *Config) WatchdogInterval() time.Duration {
	return time.Duration(c.Watchdog.IntervalMS) * time.Millisecond
}

func (c *Config) StallThreshold() time.Duration {
	return time.Duration(c.Watchdog.StallThresholdMS) * time.Millisecond
}

// artNetAddr resolves a target, adding the Art-Net port when none is given.
func artNetAddr(target string) (*net.UDPAddr, error) {
	if target == "" {
		return nil, errors.New("empty target")
	}
	if _, _, err := net.SplitHostPort(target); err != nil {
		target = net.JoinHostPort(target, strconv.Itoa(artNetPort))
	}
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", target, err)
	}
	return addr, nil
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
