package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"lightbrainz/lib/channel"
	"lightbrainz/lib/feature"
	"lightbrainz/lib/preset"
)

// ============================================================================
// lightbrainz-ctl - Command-line IPC Client
// ============================================================================
// This tool sends events to the lightbrainz daemon via IPC.
//
// Usage:
//   lightbrainz-ctl apply 0.1 1-4
//   lightbrainz-ctl set 3 Dimmer 0.5
//   lightbrainz-ctl tap 0
//   lightbrainz-ctl home-all
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/lightbrainz.sock)
// ============================================================================

// EventEnvelope wraps events for JSON (mirrors the daemon's envelope)
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type setChannel struct {
	FixtureID uint32       `json:"fixture_id"`
	Channel   string       `json:"channel"`
	Value     channel.Tree `json:"value"`
}

type homeChannel struct {
	FixtureID uint32 `json:"fixture_id"`
	Channel   string `json:"channel"`
}

type homeFeature struct {
	FixtureID uint32       `json:"fixture_id"`
	Feature   feature.Type `json:"feature"`
}

type applyPreset struct {
	Preset    channel.PresetID `json:"preset"`
	Selection preset.Selection `json:"selection"`
}

type stopPreset struct {
	Preset channel.PresetID `json:"preset"`
}

type recordPreset struct {
	Preset    channel.PresetID  `json:"preset"`
	Name      string            `json:"name,omitempty"`
	Selection preset.Selection  `json:"selection"`
	Mode      preset.UpdateMode `json:"mode,omitempty"`
}

type speedMaster struct {
	ID  uint32  `json:"id"`
	BPM float64 `json:"bpm,omitempty"`
}

const defaultSocketPath = "/tmp/lightbrainz.sock"

func main() {
	socketPath := defaultSocketPath

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		os.Exit(0)
	}

	env, err := buildEnvelope(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	if err := sendEnvelope(socketPath, env); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

// buildEnvelope turns a command line into the event envelope for the
// daemon.
func buildEnvelope(args []string) (EventEnvelope, error) {
	cmd, rest := args[0], args[1:]
	need := func(n int, usage string) error {
		if len(rest) < n {
			return fmt.Errorf("%s requires %s", cmd, usage)
		}
		return nil
	}

	switch cmd {
	case "set":
		if err := need(3, "<fixture> <channel> <value>"); err != nil {
			return EventEnvelope{}, err
		}
		fid, err := parseFixtureID(rest[0])
		if err != nil {
			return EventEnvelope{}, err
		}
		n, err := parseValue(rest[2])
		if err != nil {
			return EventEnvelope{}, err
		}
		return envelope("set_channel", setChannel{FixtureID: fid, Channel: rest[1], Value: channel.Tree{Node: n}})

	case "home":
		if err := need(2, "<fixture> <channel>"); err != nil {
			return EventEnvelope{}, err
		}
		fid, err := parseFixtureID(rest[0])
		if err != nil {
			return EventEnvelope{}, err
		}
		return envelope("home_channel", homeChannel{FixtureID: fid, Channel: rest[1]})

	case "home-feature":
		if err := need(2, "<fixture> <feature>"); err != nil {
			return EventEnvelope{}, err
		}
		fid, err := parseFixtureID(rest[0])
		if err != nil {
			return EventEnvelope{}, err
		}
		return envelope("home_feature", homeFeature{FixtureID: fid, Feature: feature.Type(rest[1])})

	case "home-all":
		return EventEnvelope{Type: "home_all"}, nil

	case "apply":
		if err := need(2, "<preset> <fixtures> [group_size] [wings]"); err != nil {
			return EventEnvelope{}, err
		}
		id, err := channel.ParsePresetID(rest[0])
		if err != nil {
			return EventEnvelope{}, err
		}
		sel, err := parseSelection(rest[1], rest[2:])
		if err != nil {
			return EventEnvelope{}, err
		}
		return envelope("apply_preset", applyPreset{Preset: id, Selection: sel})

	case "stop":
		if err := need(1, "<preset>"); err != nil {
			return EventEnvelope{}, err
		}
		id, err := channel.ParsePresetID(rest[0])
		if err != nil {
			return EventEnvelope{}, err
		}
		return envelope("stop_preset", stopPreset{Preset: id})

	case "record":
		if err := need(2, "<preset> <fixtures> [name] [merge|override]"); err != nil {
			return EventEnvelope{}, err
		}
		id, err := channel.ParsePresetID(rest[0])
		if err != nil {
			return EventEnvelope{}, err
		}
		sel, err := parseSelection(rest[1], nil)
		if err != nil {
			return EventEnvelope{}, err
		}
		rp := recordPreset{Preset: id, Selection: sel, Mode: preset.UpdateMerge}
		if len(rest) > 2 {
			rp.Name = rest[2]
		}
		if len(rest) > 3 {
			switch m := preset.UpdateMode(rest[3]); m {
			case preset.UpdateMerge, preset.UpdateOverride:
				rp.Mode = m
			default:
				return EventEnvelope{}, fmt.Errorf("invalid record mode %q", rest[3])
			}
		}
		return envelope("record_preset", rp)

	case "tap":
		if err := need(1, "<speed master>"); err != nil {
			return EventEnvelope{}, err
		}
		id, err := parseUint32(rest[0], "speed master")
		if err != nil {
			return EventEnvelope{}, err
		}
		return envelope("tap_speed_master", speedMaster{ID: id})

	case "bpm":
		if err := need(2, "<speed master> <bpm>"); err != nil {
			return EventEnvelope{}, err
		}
		id, err := parseUint32(rest[0], "speed master")
		if err != nil {
			return EventEnvelope{}, err
		}
		bpm, err := strconv.ParseFloat(rest[1], 64)
		if err != nil || bpm <= 0 {
			return EventEnvelope{}, fmt.Errorf("invalid bpm %q", rest[1])
		}
		return envelope("set_speed_master_bpm", speedMaster{ID: id, BPM: bpm})

	default:
		return EventEnvelope{}, fmt.Errorf("unknown command: %s", cmd)
	}
}

func envelope(typ string, v any) (EventEnvelope, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return EventEnvelope{Type: typ, Data: data}, nil
}

func parseUint32(s, what string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return uint32(n), nil
}

func parseFixtureID(s string) (uint32, error) {
	return parseUint32(s, "fixture")
}

// parseFixtures accepts a comma separated list of ids and inclusive
// ranges, e.g. "1-4,7".
func parseFixtures(s string) ([]uint32, error) {
	var out []uint32
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parseFixtureID(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = parseFixtureID(hi); err != nil {
				return nil, err
			}
		}
		if last < first {
			return nil, fmt.Errorf("invalid fixture range %q", part)
		}
		for id := first; id <= last; id++ {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no fixtures selected")
	}
	return out, nil
}

func parseSelection(fixtures string, shape []string) (preset.Selection, error) {
	ids, err := parseFixtures(fixtures)
	if err != nil {
		return preset.Selection{}, err
	}
	sel := preset.NewSelection(ids...)
	if len(shape) > 0 {
		if sel.GroupSize, err = strconv.Atoi(shape[0]); err != nil || sel.GroupSize < 1 {
			return preset.Selection{}, fmt.Errorf("invalid group size %q", shape[0])
		}
	}
	if len(shape) > 1 {
		if sel.Wings, err = strconv.Atoi(shape[1]); err != nil || sel.Wings < 1 {
			return preset.Selection{}, fmt.Errorf("invalid wings %q", shape[1])
		}
	}
	return sel, nil
}

// parseValue reads a bare number as a discrete value on function 0 and
// anything else as a JSON value tree.
func parseValue(s string) (channel.Node, error) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("value %v out of range [0, 1]", v)
		}
		return channel.Discrete{Function: 0, Value: v}, nil
	}
	n, err := channel.UnmarshalNode([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("invalid value tree: %w", err)
	}
	return n, nil
}

func sendEnvelope(socketPath string, env EventEnvelope) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}

	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `lightbrainz-ctl - Control the lightbrainz daemon via IPC

Usage:
  lightbrainz-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: %s)

Commands:
  set <fixture> <channel> <value>          Set a channel (0..1 or JSON tree)
  home <fixture> <channel>                 Send one channel home
  home-feature <fixture> <feature>         Send a feature home (e.g. color_rgb)
  home-all                                 Send every channel home
  apply <preset> <fixtures> [group] [wings]
                                           Apply a preset to fixtures
  stop <preset>                            Release a preset everywhere
  record <preset> <fixtures> [name] [merge|override]
                                           Record current values into a preset
  tap <speed master>                       Tap a speed master
  bpm <speed master> <bpm>                 Set a speed master's tempo
  help, -h, --help                         Show this help message

Fixtures are comma separated ids or ranges: 1-4,7

Examples:
  lightbrainz-ctl apply 0.1 1-8
  lightbrainz-ctl apply 2.3 1-8 2 2
  lightbrainz-ctl set 3 Dimmer 0.75
  lightbrainz-ctl set 3 Dimmer '{"type":"preset","data":{"id":"0.1"}}'
  lightbrainz-ctl -socket /run/lightbrainz.sock tap 0
`, defaultSocketPath)
}
