package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"lightbrainz/lib/dmxvalue"
)

// channelUpdate mirrors one entry of the daemon's state messages.
type channelUpdate struct {
	FixtureID uint32         `json:"fixture_id"`
	Channel   string         `json:"channel"`
	Value     dmxvalue.Value `json:"value"`
}

type stateMessage struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data struct {
		Channels []channelUpdate `json:"channels"`
	} `json:"data"`
}

func main() {
	var (
		wsURL   = flag.String("ws", "ws://127.0.0.1:3002/ws/state", "lightbrainz state websocket URL")
		fixture = flag.Uint("fixture", 0, "Only print channels of this fixture (0 = all)")
		raw     = flag.Bool("raw", false, "Print messages as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// The daemon pings every 20s; answer and extend the deadline.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}

			switch messageType {
			case websocket.TextMessage:
				if *raw {
					fmt.Printf("%s\n", message)
					continue
				}
				handleTextMessage(message, uint32(*fixture))
			case websocket.BinaryMessage:
				fmt.Printf("[BINARY] %d bytes\n", len(message))
			}
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleTextMessage prints state_init as a full listing and
// channels_changed one line per channel.
func handleTextMessage(message []byte, only uint32) {
	var msg stateMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	ts := ""
	if msg.Ts != nil {
		ts = msg.Ts.Local().Format("15:04:05.000") + " "
	}

	switch msg.Type {
	case "state_init":
		fmt.Printf("%s[STATE] %d channels\n", ts, len(msg.Data.Channels))
		for _, c := range msg.Data.Channels {
			if only == 0 || c.FixtureID == only {
				fmt.Printf("  %s\n", formatChannel(c))
			}
		}
	case "channels_changed":
		for _, c := range msg.Data.Channels {
			if only == 0 || c.FixtureID == only {
				fmt.Printf("%s[CHANGE] %s\n", ts, formatChannel(c))
			}
		}
	default:
		fmt.Printf("%s[%s] %s\n", ts, msg.Type, string(message))
	}
}

func formatChannel(c channelUpdate) string {
	return fmt.Sprintf("%4d %-12s %6d (%5.1f%%)", c.FixtureID, c.Channel, c.Value.Raw, c.Value.Float()*100)
}
