package mqttflow

import (
	"sort"
	"strings"
	"sync"
)

// MemoryMetrics is an in-memory implementation of Metrics, intended for
// tests and for embedding applications that scrape values directly.
type MemoryMetrics struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	gauges   map[string]*memoryGauge
}

// NewMemoryMetrics creates a new in-memory metrics collector.
func NewMemoryMetrics() *MemoryMetrics {
	return &MemoryMetrics{
		counters: make(map[string]*memoryCounter),
		gauges:   make(map[string]*memoryGauge),
	}
}

// Counter returns the counter for the given name and labels, creating it on
// first use.
func (m *MemoryMetrics) Counter(name string, labels MetricLabels) Counter {
	key := metricKey(name, labels)

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok {
		c = &memoryCounter{}
		m.counters[key] = c
	}
	return c
}

// Gauge returns the gauge for the given name and labels, creating it on
// first use.
func (m *MemoryMetrics) Gauge(name string, labels MetricLabels) Gauge {
	key := metricKey(name, labels)

	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.gauges[key]
	if !ok {
		g = &memoryGauge{}
		m.gauges[key] = g
	}
	return g
}

// CounterValue returns the current value of a counter, or 0 if it has never
// been touched.
func (m *MemoryMetrics) CounterValue(name string, labels MetricLabels) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[metricKey(name, labels)]; ok {
		return c.Value()
	}
	return 0
}

// GaugeValue returns the current value of a gauge, or 0 if it has never been
// touched.
func (m *MemoryMetrics) GaugeValue(name string, labels MetricLabels) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[metricKey(name, labels)]; ok {
		return g.Value()
	}
	return 0
}

// metricKey builds a stable map key from a metric name and its labels.
func metricKey(name string, labels MetricLabels) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		sb.WriteByte('{')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(labels[k])
		sb.WriteByte('}')
	}
	return sb.String()
}

type memoryCounter struct {
	mu    sync.Mutex
	value float64
}

func (c *memoryCounter) Inc() { c.Add(1) }

func (c *memoryCounter) Add(delta float64) {
	if delta < 0 {
		return
	}
	c.mu.Lock()
	c.value += delta
	c.mu.Unlock()
}

func (c *memoryCounter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

type memoryGauge struct {
	mu    sync.Mutex
	value float64
}

func (g *memoryGauge) Set(value float64) {
	g.mu.Lock()
	g.value = value
	g.mu.Unlock()
}

func (g *memoryGauge) Inc() {
	g.mu.Lock()
	g.value++
	g.mu.Unlock()
}

func (g *memoryGauge) Dec() {
	g.mu.Lock()
	g.value--
	g.mu.Unlock()
}

func (g *memoryGauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}
