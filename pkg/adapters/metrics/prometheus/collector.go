package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	notificationsReceived prometheus.Counter
	historyAppends        *prometheus.CounterVec
	historyLoads          *prometheus.CounterVec
	renders               prometheus.Counter
	connectionUp          prometheus.Gauge
	liveClients           prometheus.Gauge
	eventsPublished       *prometheus.CounterVec
}

// NewCollector creates a new Prometheus metrics collector registered on reg.
// A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		notificationsReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "notifeed_notifications_received_total",
				Help: "Total number of notifications received from the upstream connection",
			},
		),
		historyAppends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifeed_history_appends_total",
				Help: "Total number of history appends",
			},
			[]string{"status"},
		),
		historyLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifeed_history_loads_total",
				Help: "Total number of history loads by outcome",
			},
			[]string{"status"},
		),
		renders: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "notifeed_renders_total",
				Help: "Total number of full page renders",
			},
		),
		connectionUp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "notifeed_connection_up",
				Help: "Whether the upstream websocket connection is open",
			},
		),
		liveClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "notifeed_live_clients",
				Help: "Number of browsers subscribed to live updates",
			},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifeed_events_published_total",
				Help: "Total number of history events published",
			},
			[]string{"status"},
		),
	}
}

// IncNotificationsReceived increments the count of received notifications
func (c *Collector) IncNotificationsReceived() {
	c.notificationsReceived.Inc()
}

// RecordAppend records a history append
func (c *Collector) RecordAppend(status string) {
	c.historyAppends.WithLabelValues(status).Inc()
}

// RecordLoad records a history load outcome
func (c *Collector) RecordLoad(status string) {
	c.historyLoads.WithLabelValues(status).Inc()
}

// IncRenders increments the count of renders
func (c *Collector) IncRenders() {
	c.renders.Inc()
}

// SetConnectionUp sets the upstream connection state
func (c *Collector) SetConnectionUp(up bool) {
	if up {
		c.connectionUp.Set(1)
		return
	}
	c.connectionUp.Set(0)
}

// SetLiveClients sets the number of live page subscribers
func (c *Collector) SetLiveClients(count int) {
	c.liveClients.Set(float64(count))
}

// RecordEventPublished records an event publication
func (c *Collector) RecordEventPublished(status string) {
	c.eventsPublished.WithLabelValues(status).Inc()
}
