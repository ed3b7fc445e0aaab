package mqttflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryMetrics(t *testing.T) {
	t.Run("counters accumulate per label set", func(t *testing.T) {
		m := NewMemoryMetrics()

		m.Counter(MetricInboundPublish, MetricLabels{"qos": "1"}).Inc()
		m.Counter(MetricInboundPublish, MetricLabels{"qos": "1"}).Add(2)
		m.Counter(MetricInboundPublish, MetricLabels{"qos": "2"}).Inc()

		assert.Equal(t, float64(3), m.CounterValue(MetricInboundPublish, MetricLabels{"qos": "1"}))
		assert.Equal(t, float64(1), m.CounterValue(MetricInboundPublish, MetricLabels{"qos": "2"}))
		assert.Equal(t, float64(0), m.CounterValue(MetricInboundPublish, MetricLabels{"qos": "0"}))
	})

	t.Run("counters reject negative deltas", func(t *testing.T) {
		m := NewMemoryMetrics()

		c := m.Counter(MetricProtocolErrors, nil)
		c.Add(5)
		c.Add(-3)

		assert.Equal(t, float64(5), c.Value())
	})

	t.Run("gauges move both ways", func(t *testing.T) {
		m := NewMemoryMetrics()

		g := m.Gauge(MetricWindowInFlight, nil)
		g.Set(4)
		g.Inc()
		g.Dec()
		g.Dec()

		assert.Equal(t, float64(3), m.GaugeValue(MetricWindowInFlight, nil))
	})

	t.Run("handler counts through the metrics interface", func(t *testing.T) {
		m := NewMemoryMetrics()

		hm := newHandlerMetrics(m)
		hm.publish[1].Inc()
		hm.protocolErrors.Inc()

		assert.Equal(t, float64(1), m.CounterValue(MetricInboundPublish, MetricLabels{"qos": "1"}))
		assert.Equal(t, float64(1), m.CounterValue(MetricProtocolErrors, nil))
	})
}
