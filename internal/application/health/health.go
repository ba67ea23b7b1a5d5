package health

import (
	"context"
	"sync"
	"time"

	"github.com/aescanero/notifeed/pkg/ports"
	"go.uber.org/zap"
)

// Pinger checks that a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor monitors service health
type Monitor struct {
	store    Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu         sync.RWMutex
	running    bool
	stopCh     chan struct{}
	connected  bool
	storeErr   error
	lastCheck  time.Time
	lastChange time.Time
}

// Status represents the health status of the service
type Status struct {
	Healthy        bool      `json:"healthy"`
	Connected      bool      `json:"connected"`
	StoreReachable bool      `json:"store_reachable"`
	StoreError     string    `json:"store_error,omitempty"`
	LastCheck      time.Time `json:"last_check"`
	LastChange     time.Time `json:"last_change"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewMonitor creates a new health monitor
func NewMonitor(store Pinger, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		store:    store,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start checks the store once and then on every interval
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.Check(context.Background())
	go m.run()
}

// Stop stops the health monitor
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
}

// run is the main health monitoring loop
func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Check(context.Background())
		}
	}
}

// Check pings the store and logs the resulting status
func (m *Monitor) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.store.Ping(ctx)

	m.mu.Lock()
	m.storeErr = err
	m.lastCheck = time.Now()
	m.mu.Unlock()

	status := m.Status()
	if status.Healthy {
		m.logger.Debug("health check",
			zap.Bool("connected", status.Connected),
			zap.Bool("store_reachable", status.StoreReachable))
	} else {
		m.logger.Warn("service is unhealthy",
			zap.Bool("connected", status.Connected),
			zap.Bool("store_reachable", status.StoreReachable),
			zap.String("store_error", status.StoreError))
	}

	return status
}

// Status returns the current health status
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := Status{
		Connected:      m.connected,
		StoreReachable: m.storeErr == nil,
		LastCheck:      m.lastCheck,
		LastChange:     m.lastChange,
		Timestamp:      time.Now(),
	}
	if m.storeErr != nil {
		status.StoreError = m.storeErr.Error()
	}
	// The upstream is never reconnected, so a closed connection is reported
	// but does not fail health while the page can still be served.
	status.Healthy = status.StoreReachable

	return status
}

// IsHealthy returns true if the store is reachable
func (m *Monitor) IsHealthy() bool {
	return m.Status().Healthy
}

func (m *Monitor) setConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = connected
	m.lastChange = time.Now()
}

// Track wraps handler so the monitor observes connection open and close
func (m *Monitor) Track(handler ports.LifecycleHandler) ports.LifecycleHandler {
	return &trackedHandler{monitor: m, next: handler}
}

type trackedHandler struct {
	monitor *Monitor
	next    ports.LifecycleHandler
}

func (t *trackedHandler) OnOpen(ctx context.Context) {
	t.monitor.setConnected(true)
	t.next.OnOpen(ctx)
}

func (t *trackedHandler) OnMessage(ctx context.Context, payload string) {
	t.next.OnMessage(ctx, payload)
}

func (t *trackedHandler) OnClose(ctx context.Context, err error) {
	t.monitor.setConnected(false)
	t.next.OnClose(ctx, err)
}
