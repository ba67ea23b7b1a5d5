package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/aescanero/notifeed/internal/application/history"
	"github.com/aescanero/notifeed/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLabel prefixes every received payload
const DefaultLabel = "Новое уведомление: "

// Fragmenter serializes the rendered entries for live pages
type Fragmenter interface {
	Fragment() (string, error)
}

// Notifier handles upstream connection lifecycle signals
type Notifier struct {
	history  *history.History
	renderer ports.Renderer
	bus      ports.EventBus
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	label    string

	mu sync.Mutex
}

// Option configures a Notifier
type Option func(*Notifier)

// WithLabel overrides the display label
func WithLabel(label string) Option {
	return func(n *Notifier) {
		n.label = label
	}
}

// WithEventBus publishes a history.updated event after each append
func WithEventBus(bus ports.EventBus) Option {
	return func(n *Notifier) {
		n.bus = bus
	}
}

// New creates a new Notifier
func New(h *history.History, renderer ports.Renderer, metrics ports.MetricsCollector, logger *zap.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		history:  h,
		renderer: renderer,
		metrics:  metrics,
		logger:   logger,
		label:    DefaultLabel,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Format builds the display string for a payload
func Format(label, payload string) string {
	return label + payload
}

// OnOpen renders the stored history
func (n *Notifier) OnOpen(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.metrics.SetConnectionUp(true)
	n.logger.Info("websocket connection established")

	n.render(n.load(ctx))
}

// OnMessage records a notification and re-renders
func (n *Notifier) OnMessage(ctx context.Context, payload string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.metrics.IncNotificationsReceived()
	entry := Format(n.label, payload)

	entries, err := n.history.Append(ctx, entry)
	if err != nil {
		n.metrics.RecordAppend("failed")
		n.logger.Error("failed to append notification",
			zap.String("entry", entry),
			zap.Error(err))
		// Show whatever is still stored.
		entries = n.load(ctx)
	} else {
		n.metrics.RecordAppend("success")
		n.logger.Debug("notification stored",
			zap.String("entry", entry),
			zap.Int("history_size", len(entries)))
	}

	n.render(entries)
	n.publish(ctx, entries)
}

// OnClose logs the lost connection
func (n *Notifier) OnClose(ctx context.Context, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.metrics.SetConnectionUp(false)
	n.logger.Warn("websocket connection lost", zap.Error(err))
}

// Clear empties the stored history, re-renders and publishes the empty
// history. It holds the same lock as OnMessage so an in-flight append cannot
// write back entries read before the clear.
func (n *Notifier) Clear(ctx context.Context) ([]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.history.Clear(ctx); err != nil {
		n.logger.Error("failed to clear history", zap.Error(err))
		return nil, err
	}
	n.logger.Info("history cleared")

	entries := n.load(ctx)
	n.render(entries)
	n.publish(ctx, entries)
	return entries, nil
}

// Refresh re-renders the stored history and publishes it to live pages.
func (n *Notifier) Refresh(ctx context.Context) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	entries := n.load(ctx)
	n.render(entries)
	n.publish(ctx, entries)
	return entries
}

// load reads the history, treating every failure as an empty history
func (n *Notifier) load(ctx context.Context) []string {
	res, err := n.history.Load(ctx)
	if err != nil {
		n.metrics.RecordLoad("read_failed")
		n.logger.Error("failed to load history", zap.Error(err))
		return res.Entries
	}

	n.metrics.RecordLoad(string(res.Status))
	if res.Status == history.StatusDecodeFailed {
		n.logger.Warn("stored history is malformed, treating as empty",
			zap.String("key", n.history.Key()),
			zap.Error(res.Err))
	}
	return res.Entries
}

func (n *Notifier) render(entries []string) {
	n.renderer.Render(entries)
	n.metrics.IncRenders()
}

func (n *Notifier) publish(ctx context.Context, entries []string) {
	if n.bus == nil {
		return
	}

	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      ports.EventTypeHistoryUpdated,
		Timestamp: time.Now().UTC(),
		Entries:   entries,
	}
	if f, ok := n.renderer.(Fragmenter); ok {
		fragment, err := f.Fragment()
		if err != nil {
			n.logger.Error("failed to serialize fragment", zap.Error(err))
		}
		event.Fragment = fragment
	}

	if err := n.bus.Publish(ctx, event); err != nil {
		n.metrics.RecordEventPublished("failed")
		n.logger.Error("failed to publish event",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}
	n.metrics.RecordEventPublished("success")
}
