// wsprobe connects to a running hub, subscribes to channels, and streams
// received envelopes to the console.
//
// Usage:
//
//	go run ./cmd/wsprobe -url ws://localhost:8090/ws -channels platform,market
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	url := flag.String("url", "ws://localhost:8090/ws", "hub websocket URL")
	channels := flag.String("channels", "platform", "comma-separated channels to subscribe")
	pingEvery := flag.Duration("ping", 15*time.Second, "app-level ping interval")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(*url, nil)
	if err != nil {
		logger.Error("dial failed", "url", *url, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	logger.Info("connected", "url", *url)

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				logger.Info("connection closed", "error", err)
				return
			}

			if *verbose {
				fmt.Println(string(data))
				continue
			}

			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				logger.Warn("unparseable frame", "error", err)
				continue
			}
			switch msg["type"] {
			case "batch":
				msgs, _ := msg["messages"].([]any)
				fmt.Printf("batch  channel=%v messages=%d\n", msg["channel"], len(msgs))
			case "pong":
				fmt.Printf("pong   latency=%vms\n", msg["latency"])
			case "error":
				fmt.Printf("error  code=%v message=%v\n", msg["code"], msg["message"])
			default:
				fmt.Printf("%-6v channel=%v\n", msg["type"], msg["channel"])
			}
		}
	}()

	// Subscribe to requested channels
	for _, ch := range strings.Split(*channels, ",") {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			continue
		}
		sub, _ := json.Marshal(map[string]any{"type": "subscribe", "channel": ch})
		if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
			logger.Error("subscribe failed", "channel", ch, "error", err)
			os.Exit(1)
		}
		logger.Info("subscribe sent", "channel", ch)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-sigCh:
			logger.Info("closing")
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case <-ticker.C:
			ping, _ := json.Marshal(map[string]any{
				"type":      "ping",
				"timestamp": time.Now().UnixMilli(),
			})
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				logger.Error("ping failed", "error", err)
				return
			}
		}
	}
}
