// Package ports defines the contracts between notifeed's application layer
// and the adapters that back it.
package ports

import (
	"context"
	"time"
)

// KVStore is a persistent string key-value store.
type KVStore interface {
	// Get returns the value stored under key. found is false when the key
	// does not exist; err is reserved for store failures.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error
}

// Renderer rebuilds a display from a history snapshot.
type Renderer interface {
	Render(history []string)
}

// LifecycleHandler receives the lifecycle signals of an upstream connection.
// Implementations are called from a single goroutine and must not block.
type LifecycleHandler interface {
	OnOpen(ctx context.Context)
	OnMessage(ctx context.Context, payload string)
	OnClose(ctx context.Context, err error)
}

// EventType identifies an event published on the bus
type EventType string

const (
	// EventTypeHistoryUpdated is published after every history append.
	EventTypeHistoryUpdated EventType = "history.updated"
)

// Event is a message delivered to live page subscribers
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Fragment  string    `json:"fragment"`
	Entries   []string  `json:"entries"`
}

// EventBus fans history events out to subscribers.
type EventBus interface {
	Publish(ctx context.Context, event Event) error

	// Subscribe returns a channel that receives events until ctx is done.
	Subscribe(ctx context.Context) (<-chan Event, error)

	Close() error
}

// MetricsCollector records notifeed metrics
type MetricsCollector interface {
	IncNotificationsReceived()
	RecordAppend(status string)
	RecordLoad(status string)
	IncRenders()
	SetConnectionUp(up bool)
	SetLiveClients(count int)
	RecordEventPublished(status string)
}
