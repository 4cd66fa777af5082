package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ListenerConfig holds update-stream settings.
type ListenerConfig struct {
	URL                string // websocket endpoint of the gateway
	Token              string
	Peer               string
	ReconnectBaseDelay time.Duration // default 1s
	ReconnectMaxDelay  time.Duration // default 60s
}

// Listener subscribes to the gateway's update stream and invokes a callback
// whenever the watched peer posts new messages. The callback must be cheap
// and non-blocking; trigger coalescing is the guard's job, not ours.
type Listener struct {
	cfg      ListenerConfig
	onUpdate func()
	logger   *slog.Logger
}

// updateWire is the wire format of one stream event.
type updateWire struct {
	Type string `json:"type"`
	Peer string `json:"peer"`
}

// NewListener creates an update-stream listener.
func NewListener(cfg ListenerConfig, onUpdate func(), logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectBaseDelay == 0 {
		cfg.ReconnectBaseDelay = time.Second
	}
	if cfg.ReconnectMaxDelay == 0 {
		cfg.ReconnectMaxDelay = 60 * time.Second
	}
	return &Listener{cfg: cfg, onUpdate: onUpdate, logger: logger}
}

// Run connects and consumes the stream until ctx is cancelled, reconnecting
// with exponential backoff on any connection error.
func (l *Listener) Run(ctx context.Context) error {
	delay := l.cfg.ReconnectBaseDelay

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := l.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.logger.Warn("update stream disconnected",
			"error", err,
			"reconnect_in", delay,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > l.cfg.ReconnectMaxDelay {
			delay = l.cfg.ReconnectMaxDelay
		}
	}
}

// consume dials the stream and reads events until the connection drops.
func (l *Listener) consume(ctx context.Context) error {
	header := http.Header{}
	if l.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+l.cfg.Token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, l.cfg.URL, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	l.logger.Info("update stream connected", "url", l.cfg.URL)

	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var update updateWire
		if err := json.Unmarshal(data, &update); err != nil {
			l.logger.Debug("skipping malformed stream event", "error", err)
			continue
		}

		if update.Type == "message" && update.Peer == l.cfg.Peer {
			l.onUpdate()
		}
	}
}
