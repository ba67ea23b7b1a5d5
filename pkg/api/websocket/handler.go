package websocket

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aescanero/notifeed/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Pages may be served behind any host name
	},
}

// Fragmenter serializes the current rendered entries
type Fragmenter interface {
	Fragment() (string, error)
}

// Handler handles live page WebSocket connections
type Handler struct {
	eventBus ports.EventBus
	page     Fragmenter
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	clients  atomic.Int64
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus ports.EventBus, page Fragmenter, metrics ports.MetricsCollector, logger *zap.Logger) *Handler {
	return &Handler{
		eventBus: eventBus,
		page:     page,
		metrics:  metrics,
		logger:   logger,
	}
}

// Clients returns the number of connected pages
func (h *Handler) Clients() int {
	return int(h.clients.Load())
}

// HandleLive streams history fragments to a page
func (h *Handler) HandleLive(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.metrics.SetLiveClients(int(h.clients.Add(1)))
	defer func() { h.metrics.SetLiveClients(int(h.clients.Add(-1))) }()

	h.logger.Info("live page connected", zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.eventBus.Subscribe(ctx)
	if err != nil {
		h.logger.Error("failed to subscribe to events", zap.Error(err))
		return
	}

	// Pages never send data; reading detects when they go away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if fragment, err := h.page.Fragment(); err != nil {
		h.logger.Error("failed to serialize fragment", zap.Error(err))
	} else if err := h.write(conn, fragment); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("live page disconnected", zap.String("client", c.ClientIP()))
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type != ports.EventTypeHistoryUpdated {
				continue
			}
			if err := h.write(conn, event.Fragment); err != nil {
				return
			}
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, fragment string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(fragment)); err != nil {
		h.logger.Debug("failed to write message", zap.Error(err))
		return err
	}
	return nil
}
