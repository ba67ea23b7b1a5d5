package memory

import (
	"context"
	"sync"

	"github.com/aescanero/notifeed/pkg/ports"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber channel size
const DefaultBuffer = 16

// Bus implements EventBus by fanning events out to in-process subscribers
type Bus struct {
	subscribers map[int]chan ports.Event
	nextID      int
	buffer      int
	closed      bool
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewBus creates a new in-memory event bus
func NewBus(buffer int, logger *zap.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subscribers: make(map[int]chan ports.Event),
		buffer:      buffer,
		logger:      logger,
	}
}

// Publish delivers event to every subscriber without blocking. Subscribers
// whose buffer is full miss the event.
func (b *Bus) Publish(ctx context.Context, event ports.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("subscriber channel full, dropping event",
				zap.Int("subscriber", id),
				zap.String("event_id", event.ID))
		}
	}

	return nil
}

// Subscribe registers a subscriber until ctx is done
func (b *Bus) Subscribe(ctx context.Context) (<-chan ports.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan ports.Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, nil
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()

	return ch, nil
}

// Subscribers returns the number of active subscribers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers)
}

// Close closes every subscriber channel
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.closed = true
	return nil
}

// unsubscribe removes and closes a subscriber channel
func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}
