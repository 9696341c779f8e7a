package jellyfin

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"jellybridge/internal/logging"
)

// WSConfig configures the server-push socket.
type WSConfig struct {
	BaseURL string // e.g. http://jellyfin:8096
	APIKey  string
}

// WS maintains a websocket connection to the Jellyfin server and invokes
// Handler for every message. The bridge only uses it as a hint that session
// state changed; the poll loop remains the source of truth.
type WS struct {
	Cfg     WSConfig
	conn    *websocket.Conn
	cancel  context.CancelFunc
	Handler func(evt Event)
}

// Event is a raw server-push message.
type Event struct {
	MessageType string          `json:"MessageType"`
	Data        json.RawMessage `json:"Data"`
}

func (w *WS) dial() (*websocket.Conn, *http.Response, error) {
	u, err := url.Parse(w.Cfg.BaseURL)
	if err != nil {
		return nil, nil, err
	}
	scheme := "ws"
	if strings.EqualFold(u.Scheme, "https") {
		scheme = "wss"
	}
	u.Scheme = scheme
	u.Path = "/socket"
	q := u.Query()
	q.Set("api_key", w.Cfg.APIKey)
	q.Set("deviceId", "jellybridge")
	u.RawQuery = q.Encode()

	dialer := &websocket.Dialer{
		HandshakeTimeout:  15 * time.Second,
		EnableCompression: true,
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: true}, // Allow self-signed certs
	}

	header := http.Header{
		"Accept": []string{"application/json"},
	}

	logging.Debug("Dialing Jellyfin socket", "url", u.Host+u.Path)
	return dialer.Dial(u.String(), header)
}

// Start connects in the background and reconnects with backoff until ctx is
// cancelled or Stop is called.
func (w *WS) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go func() {
		defer func() {
			if w.conn != nil {
				w.conn.Close()
			}
		}()

		retry := 2 * time.Second
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			c, _, err := w.dial()
			if err != nil {
				logging.Warn("Jellyfin socket dial failed", "error", err.Error())
				time.Sleep(retry)
				if retry < 30*time.Second {
					retry *= 2
				}
				continue
			}
			w.conn = c
			retry = 2 * time.Second
			logging.Info("Jellyfin socket connected")

			// Subscribe to session updates; the argument is
			// "initialDelayMs,intervalMs" per the server contract.
			_ = c.WriteJSON(map[string]string{
				"MessageType": "SessionsStart",
				"Data":        "0,1500",
			})

			w.readLoop(ctx, c)
			c.Close()
			w.conn = nil
		}
	}()
}

func (w *WS) readLoop(ctx context.Context, c *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = c.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, msg, err := c.ReadMessage()
		if err != nil {
			logging.Warn("Jellyfin socket read failed", "error", err.Error())
			return
		}

		var evt Event
		if err := json.Unmarshal(msg, &evt); err != nil {
			continue
		}

		switch evt.MessageType {
		case "ForceKeepAlive", "KeepAlive":
			_ = c.WriteJSON(map[string]string{"MessageType": "KeepAlive"})
		default:
			if w.Handler != nil {
				w.Handler(evt)
			}
		}
	}
}

// Stop tears the connection down.
func (w *WS) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}
