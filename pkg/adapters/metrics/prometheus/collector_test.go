package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.IncNotificationsReceived()
	c.IncNotificationsReceived()
	c.RecordAppend("success")
	c.RecordAppend("failed")
	c.RecordAppend("success")
	c.RecordLoad("decode_failed")
	c.IncRenders()
	c.SetConnectionUp(true)
	c.SetLiveClients(3)
	c.RecordEventPublished("success")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.notificationsReceived))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.historyAppends.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.historyAppends.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.historyLoads.WithLabelValues("decode_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.renders))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connectionUp))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.liveClients))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsPublished.WithLabelValues("success")))

	c.SetConnectionUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.connectionUp))
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(prometheus.NewRegistry())
		NewCollector(prometheus.NewRegistry())
	})
}
