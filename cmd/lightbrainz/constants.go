package main

import "time"

// Output loop
const (
	defaultUpdateHz = 44 // DMX refresh rate (Hz)
	maxUpdateHz     = 1000
)

// Art-Net
const (
	artNetPort     = 6454
	artNetVersion  = 14
	opArtDMX       = 0x5000
	artNetHeaderSz = 18
)

// Daemon plumbing
const (
	defaultSocketPath  = "/tmp/lightbrainz.sock"
	defaultStateWSPort = 3002
	defaultStateWSPath = "/ws/state"

	eventQueueSize = 64
	maxIPCLine     = 1 << 20

	// ipcReplyTimeout bounds how long an IPC client waits for the daemon to
	// apply its event.
	ipcReplyTimeout = time.Second
)

// Watchdog
const (
	defaultWatchdogIntervalMS = 250
	defaultStallThresholdMS   = 1000
)
