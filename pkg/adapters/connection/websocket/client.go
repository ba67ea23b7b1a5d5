package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aescanero/notifeed/pkg/ports"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultEndpoint is the upstream notification endpoint
const DefaultEndpoint = "ws://localhost:8000/ws"

// Client reads notifications from a websocket endpoint
type Client struct {
	endpoint string
	dialer   *websocket.Dialer
	header   http.Header
	logger   *zap.Logger
}

// Config holds client configuration
type Config struct {
	Endpoint         string
	HandshakeTimeout time.Duration

	// Header is sent with the opening handshake, e.g. Origin or cookies
	Header http.Header
	Logger *zap.Logger
}

// NewClient creates a new websocket client
func NewClient(cfg *Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		endpoint: endpoint,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		header: cfg.Header,
		logger: cfg.Logger,
	}
}

// Endpoint returns the upstream endpoint
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Run connects and dispatches lifecycle signals to handler until the
// connection closes or ctx is done. A failed dial returns its error without
// calling the handler; otherwise OnClose is called exactly once and Run
// returns nil.
func (c *Client) Run(ctx context.Context, handler ports.LifecycleHandler) error {
	connID := uuid.New().String()
	logger := c.logger.With(
		zap.String("conn_id", connID),
		zap.String("endpoint", c.endpoint))

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, c.header)
	if err != nil {
		if resp != nil {
			logger.Error("websocket handshake rejected", zap.Int("status", resp.StatusCode))
		}
		return fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}
	defer func() { _ = conn.Close() }()

	handler.OnOpen(ctx)

	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket closed by peer", zap.Error(err))
			}
			handler.OnClose(ctx, err)
			return nil
		}

		switch msgType {
		case websocket.TextMessage, websocket.BinaryMessage:
			handler.OnMessage(ctx, string(data))
		}
	}
}
