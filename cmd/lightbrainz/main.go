package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"lightbrainz/lib/show"
)

const version = "0.1.0"

func printVersion() {
	fmt.Printf("lightbrainz v%s\n", version)
	fmt.Println("Lighting control engine with Art-Net output")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  lightbrainz [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Resolves every channel of every patched fixture at a fixed rate and")
	fmt.Println("  sends the result as Art-Net. Presets, effects and speed masters are")
	fmt.Println("  controlled over a Unix socket; channel changes are published on a")
	fmt.Println("  state websocket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file")
	fmt.Println()
	fmt.Println("  -show string")
	fmt.Println("        YAML show file (overrides show.file)")
	fmt.Println()
	fmt.Println("  -state-file string")
	fmt.Println("        Channel state restored at startup and saved on shutdown")
	fmt.Println()
	fmt.Println("  -output string")
	fmt.Println("        Output mode: artnet|log (default \"log\")")
	fmt.Println()
	fmt.Println("  -artnet-target string")
	fmt.Println("        Comma separated Art-Net receivers, host[:port]")
	fmt.Println()
	fmt.Println("  -artnet-broadcast")
	fmt.Println("        Also broadcast Art-Net on 255.255.255.255")
	fmt.Println()
	fmt.Println("  -update-hz int")
	fmt.Printf("        Output frame rate in Hz (default %d)\n", defaultUpdateHz)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultSocketPath)
	fmt.Println()
	fmt.Println("  -state-ws-port int")
	fmt.Printf("        State websocket port (default %d)\n", defaultStateWSPort)
	fmt.Println()
	fmt.Println("  -no-state-ws")
	fmt.Println("        Disable the state websocket")
	fmt.Println()
	fmt.Println("  -stall-threshold-ms int")
	fmt.Printf("        Log when no tick completed for this long (default %d)\n", defaultStallThresholdMS)
	fmt.Println()
	fmt.Println("  -sentry-dsn string")
	fmt.Println("        Report channel failures to Sentry")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Dry run, dump frames to the log")
	fmt.Println("  lightbrainz -show show.yaml -log-level debug")
	fmt.Println()
	fmt.Println("  # Send to a node")
	fmt.Println("  lightbrainz -config /etc/lightbrainz.yaml -output artnet -artnet-target 10.0.0.20")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	fset := flag.NewFlagSet("lightbrainz", flag.ExitOnError)
	fset.Usage = printUsage
	configPath := fset.String("config", "", "YAML config file")
	fset.Bool("version", false, "Print version and exit")
	fset.Bool("help", false, "Print help message")

	var o FlagOverrides
	stringFlag(fset, &o.ShowFile, "show", "YAML show file")
	stringFlag(fset, &o.StateFile, "state-file", "Channel state file")
	stringFlag(fset, &o.OutputMode, "output", "Output mode: artnet|log")
	fset.Func("artnet-target", "Comma separated Art-Net receivers", func(v string) error {
		for t := range strings.SplitSeq(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				o.ArtNetTargets = append(o.ArtNetTargets, t)
			}
		}
		return nil
	})
	boolFlag(fset, &o.Broadcast, "artnet-broadcast", true, "Broadcast Art-Net")
	intFlag(fset, &o.UpdateHz, "update-hz", "Output frame rate in Hz")
	stringFlag(fset, &o.IPCSocketPath, "ipc-socket", "Unix domain socket path for IPC")
	intFlag(fset, &o.StateWSPort, "state-ws-port", "State websocket port")
	boolFlag(fset, &o.StateWSEnabled, "no-state-ws", false, "Disable the state websocket")
	intFlag(fset, &o.StallThresholdMS, "stall-threshold-ms", "Watchdog stall threshold in ms")
	stringFlag(fset, &o.SentryDSN, "sentry-dsn", "Sentry DSN")
	stringFlag(fset, &o.LogLevel, "log-level", "Log level: error, warn, info, debug")

	_ = fset.Parse(os.Args[1:])

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfigFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
	o.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid config:", err)
		os.Exit(1)
	}

	level, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(level)

	if err := run(cfg, logger); err != nil {
		logger.Error("lightbrainz stopped", "error", err)
		os.Exit(1)
	}
}

// stringFlag defines a flag that sets *dst only when given on the command
// line.
func stringFlag(fset *flag.FlagSet, dst **string, name, usage string) {
	fset.Func(name, usage, func(v string) error {
		*dst = &v
		return nil
	})
}

func intFlag(fset *flag.FlagSet, dst **int, name, usage string) {
	fset.Func(name, usage, func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*dst = &n
		return nil
	})
}

// boolFlag sets *dst to value when the flag is present.
func boolFlag(fset *flag.FlagSet, dst **bool, name string, value bool, usage string) {
	fset.BoolFunc(name, usage, func(string) error {
		v := value
		*dst = &v
		return nil
	})
}

// run loads the show and runs the daemon until SIGINT or SIGTERM.
func run(cfg Config, logger *slog.Logger) error {
	var reporter show.Reporter
	sr, err := newSentryReporter(cfg.Reporting, logger)
	if err != nil {
		return err
	}
	if sr != nil {
		reporter = sr
		defer sr.Flush()
	}

	s := show.New(logger, reporter)
	f, err := show.LoadFile(cfg.Show.File)
	if err != nil {
		return err
	}
	if err := s.Load(f); err != nil {
		return fmt.Errorf("load show: %w", err)
	}
	if err := restoreState(s, cfg.Show.StateFile); err != nil {
		return err
	}

	out, err := newOutput(cfg.Output, logger)
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	events := make(chan Event, eventQueueSize)
	wd := newWatchdog()

	var changes chan []show.Change
	if cfg.StateWS.Enabled {
		changes = make(chan []show.Change, eventQueueSize)
		srv := NewServer(logger, events, HubConfig{})
		g.Go(func() error {
			srv.Hub().Run(ctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(ctx, srv.Hub(), changes, logger)
			return nil
		})
		g.Go(func() error {
			return runStateWSServer(ctx, cfg.StateWS.Port, cfg.StateWS.Path, srv, logger)
		})
	}

	g.Go(func() error {
		runDaemon(ctx, events, s, out, changes, wd, cfg.Output.UpdateHz, logger)
		return nil
	})
	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, events, logger)
	})
	g.Go(func() error {
		wd.Run(ctx, cfg.WatchdogInterval(), cfg.StallThreshold(), logger)
		return nil
	})

	logger.Info("listening",
		"show", cfg.Show.File,
		"output", string(cfg.Output.Mode),
		"update_rate_hz", cfg.Output.UpdateHz,
		"ipc", cfg.IPC.SocketPath,
		"state_ws", cfg.StateWS.Enabled,
	)

	err = g.Wait()
	logger.Info("shutting down")

	// The daemon loop has returned, so nothing mutates the show any more.
	if serr := saveState(s, cfg.Show.StateFile); serr != nil {
		err = errors.Join(err, serr)
	}
	return err
}

// restoreState applies path if it exists. A missing file is not an error.
func restoreState(s *show.Show, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer f.Close()
	if err := s.ApplyState(f); err != nil {
		return fmt.Errorf("restore state %s: %w", path, err)
	}
	return nil
}

// saveState writes the show's channel trees to path via a temporary file.
func saveState(s *show.Show, path string) error {
	if path == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := s.WriteState(&buf); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lightbrainz-state-*")
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
