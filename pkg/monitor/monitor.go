// Package monitor follows a visionmate server's state stream.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/visionmate/pkg/controller"
)

// StatePath is the websocket route that streams snapshots.
const StatePath = "/ws/state"

// Client reads snapshots from /ws/state.
type Client struct {
	url    string
	logger *slog.Logger
}

// New creates a client for the server at base, e.g. "http://localhost:8080".
func New(base string, logger *slog.Logger) (*Client, error) {
	u, err := StateURL(base)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{url: u, logger: logger.With("component", "monitor")}, nil
}

// StateURL converts an http(s) or ws(s) base URL to the state stream URL.
func StateURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("monitor: parse %q: %w", base, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("monitor: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + StatePath
	return u.String(), nil
}

// Watch calls f for every snapshot until ctx is done or the stream ends.
func (c *Client) Watch(ctx context.Context, f func(controller.Snapshot)) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("monitor connect failed: %w", err)
	}
	defer ws.Close()
	c.logger.Info("connected", "url", c.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.Close()
	}()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("monitor read: %w", err)
		}

		var snap controller.Snapshot
		if err := json.Unmarshal(msg, &snap); err != nil {
			c.logger.Warn("bad snapshot", "error", err)
			continue
		}
		f(snap)
	}
}

// Format renders a snapshot as one line.
func Format(s controller.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %-14s %s", s.Seq, s.State, s.Platform)
	if s.CameraActive {
		b.WriteString(" camera")
	}
	if s.Processing {
		b.WriteString(" processing")
	}
	if s.Narration != "" {
		fmt.Fprintf(&b, " said=%q", s.Narration)
	}
	if s.Caption != "" {
		fmt.Fprintf(&b, " caption=%q", s.Caption)
	}
	return b.String()
}
