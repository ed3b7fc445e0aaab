package mqttflow

import (
	"golang.org/x/time/rate"
)

// ConnectionConfig is the slice of the client's connection configuration the
// receive path reads at attach time: the Receive Maximum advertised in
// CONNECT and the optional advanced client data holding the interceptors.
type ConnectionConfig struct {
	receiveMaximum uint16
	advanced       *AdvancedConfig
	logger         Logger
	metrics        Metrics
	qos0Limiter    *rate.Limiter
}

// ConnectionOption configures a ConnectionConfig.
type ConnectionOption func(*ConnectionConfig)

// WithReceiveMaximum sets the Receive Maximum the client advertised at
// connect time. Zero means the protocol default of 65535.
func WithReceiveMaximum(maximum uint16) ConnectionOption {
	return func(c *ConnectionConfig) {
		c.receiveMaximum = maximum
	}
}

// WithAdvanced attaches advanced client data holding the incoming QoS
// interceptors.
func WithAdvanced(advanced *AdvancedConfig) ConnectionOption {
	return func(c *ConnectionConfig) {
		c.advanced = advanced
	}
}

// WithLogger sets the logger for the receive path.
func WithLogger(logger Logger) ConnectionOption {
	return func(c *ConnectionConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector for the receive path.
func WithMetrics(metrics Metrics) ConnectionOption {
	return func(c *ConnectionConfig) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithQoS0RateLimit throttles delivery of QoS 0 publishes to the given
// sustained rate and burst. QoS 0 messages over the limit are dropped, never
// queued; the broker offers no redelivery for them anyway.
func WithQoS0RateLimit(limit rate.Limit, burst int) ConnectionOption {
	return func(c *ConnectionConfig) {
		c.qos0Limiter = rate.NewLimiter(limit, burst)
	}
}

// NewConnectionConfig builds a connection configuration.
func NewConnectionConfig(opts ...ConnectionOption) *ConnectionConfig {
	cfg := &ConnectionConfig{
		receiveMaximum: 65535,
		logger:         NewNoOpLogger(),
		metrics:        NewNoOpMetrics(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.receiveMaximum == 0 {
		cfg.receiveMaximum = 65535
	}
	return cfg
}

// ReceiveMaximum returns the negotiated receive maximum.
func (c *ConnectionConfig) ReceiveMaximum() uint16 { return c.receiveMaximum }

// Advanced returns the advanced client data, or nil.
func (c *ConnectionConfig) Advanced() *AdvancedConfig { return c.advanced }

// Logger returns the configured logger.
func (c *ConnectionConfig) Logger() Logger { return c.logger }

// Metrics returns the configured metrics collector.
func (c *ConnectionConfig) Metrics() Metrics { return c.metrics }

// QoS0Limiter returns the QoS 0 delivery rate limiter, or nil.
func (c *ConnectionConfig) QoS0Limiter() *rate.Limiter { return c.qos0Limiter }
