package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lightbrainz/lib/channel"
)

// shortSocketPath keeps the path under the sun_path limit.
func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "lbz")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "ipc.sock")
}

// startIPC runs the IPC server with a consumer that records events and
// fails any StopPreset.
func startIPC(t *testing.T) (string, <-chan Event) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	path := shortSocketPath(t)
	events := make(chan Event, 4)
	seen := make(chan Event, 16)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				aw, ok := ev.(awaitedEvent)
				if !ok {
					continue
				}
				seen <- aw.Event
				var err error
				if _, stop := aw.Event.(StopPreset); stop {
					err = errors.New("preset 1.1 not found")
				}
				aw.Reply <- err
			}
		}
	}()

	done := make(chan error, 1)
	go func() { done <- runIPCServer(ctx, path, events, discardLogger()) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("ipc server: %v", err)
			}
		case <-time.After(time.Second):
			t.Errorf("timeout waiting for ipc server to stop")
		}
	})

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, "ipc socket not created")
	return path, seen
}

func TestIPC_SendEvent(t *testing.T) {
	path, seen := startIPC(t)

	if err := SendIPCEvent(path, TapSpeedMaster{ID: 4}); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case ev := <-seen:
		if ev != (TapSpeedMaster{ID: 4}) {
			t.Fatalf("got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("event never reached the daemon")
	}

	err := SendIPCEvent(path, StopPreset{Preset: channel.PresetID{Group: 1, Preset: 1}})
	if err == nil || !strings.Contains(err.Error(), "preset 1.1 not found") {
		t.Fatalf("got %v, want daemon error", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o660 {
		t.Fatalf("socket mode = %v, want 0660", perm)
	}
}

func TestIPC_MalformedLineKeepsConnection(t *testing.T) {
	path, _ := startIPC(t)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	r := bufio.NewReader(conn)
	read := func() IPCResponse {
		t.Helper()
		line, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatalf("read response: %v", err)
		}
		var resp IPCResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		return resp
	}

	if _, err := conn.Write([]byte("{not json}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if resp := read(); resp.Status != "error" || !strings.Contains(resp.Error, "parse event") {
		t.Fatalf("got %+v", resp)
	}

	if _, err := conn.Write([]byte(`{"type":"home_all"}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if resp := read(); resp.Status != "ok" {
		t.Fatalf("got %+v", resp)
	}
}

func TestSubmitEvent_QueueFullAndTimeout(t *testing.T) {
	full := make(chan Event)
	if err := submitEvent(context.Background(), full, HomeAll{}, time.Second); err == nil || !strings.Contains(err.Error(), "queue full") {
		t.Fatalf("got %v, want queue full", err)
	}

	stuck := make(chan Event, 1)
	if err := submitEvent(context.Background(), stuck, HomeAll{}, 20*time.Millisecond); err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("got %v, want timeout", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := submitEvent(ctx, make(chan Event, 1), HomeAll{}, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestSendIPCEvent_NoDaemon(t *testing.T) {
	if err := SendIPCEvent(shortSocketPath(t), HomeAll{}); err == nil {
		t.Fatalf("expected connect error")
	}
}
