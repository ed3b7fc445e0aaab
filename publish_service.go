package mqttflow

import (
	"sync"

	"golang.org/x/time/rate"
)

// PublishService is the downstream consumer of received publishes. Offer
// hands over a publish together with the receive maximum in force; it
// returns false iff accepting the publish would take the count of
// unacknowledged inbound publishes above the receive maximum. On true the
// publish is owned by the downstream pipeline, which eventually
// acknowledges it back to the handler. Offer must not block.
type PublishService interface {
	Offer(publish *PublishPacket, receiveMaximum uint16) bool
}

// AckSink receives acknowledgment requests from the delivery pipeline.
// Implemented by IncomingQosHandler.
type AckSink interface {
	Ack(publish *PublishPacket)
}

// InboundHandler consumes delivered messages. ack releases the message's
// receive-window slot and triggers the protocol acknowledgment; it may be
// called from any goroutine and is idempotent.
type InboundHandler func(msg *Message, ack func())

// serviceLifecycle is implemented by publish services that want attach and
// detach notifications from the handler.
type serviceLifecycle interface {
	attach(cfg *ConnectionConfig)
	detach()
}

// InProcessPublishService delivers received publishes to an application
// callback on a dedicated goroutine, enforcing the receive window. It owns
// no protocol state: duplicates never reach it, and each publish is offered
// exactly once per new reception.
type InProcessPublishService struct {
	sink     AckSink
	delivery InboundHandler
	fc       *FlowController
	loop     *Loop

	mu       sync.Mutex
	limiter  *rate.Limiter
	logger   Logger
	inFlight Gauge
	closed   bool
}

// NewInProcessPublishService creates a publish service feeding delivery and
// acknowledging back into sink.
func NewInProcessPublishService(sink AckSink, delivery InboundHandler) *InProcessPublishService {
	return &InProcessPublishService{
		sink:     sink,
		delivery: delivery,
		fc:       NewFlowController(0),
		loop:     NewLoop(),
		logger:   NewNoOpLogger(),
		inFlight: NewNoOpMetrics().Gauge(MetricWindowInFlight, nil),
	}
}

func (s *InProcessPublishService) attach(cfg *ConnectionConfig) {
	s.mu.Lock()
	s.limiter = cfg.QoS0Limiter()
	s.logger = cfg.Logger()
	s.inFlight = cfg.Metrics().Gauge(MetricWindowInFlight, nil)
	s.mu.Unlock()

	s.fc.SetReceiveMaximum(cfg.ReceiveMaximum())
}

func (s *InProcessPublishService) detach() {
	s.fc.Reset()
}

// InFlight returns the current receive-window occupancy.
func (s *InProcessPublishService) InFlight() uint16 {
	return s.fc.InFlight()
}

// Close stops the delivery goroutine. Messages already queued are still
// delivered; later offers are rejected.
func (s *InProcessPublishService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.loop.Close()
}

// Offer admits publish into the receive window and queues it for delivery.
//
// QoS 0 publishes currently count against the same window as QoS 1 and 2;
// a separate QoS 0 queue is a known follow-up. Their admission result is
// ignored by the handler either way.
func (s *InProcessPublishService) Offer(publish *PublishPacket, receiveMaximum uint16) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	limiter := s.limiter
	logger := s.logger
	s.mu.Unlock()

	s.fc.SetReceiveMaximum(receiveMaximum)
	if !s.fc.TryAcquire() {
		return false
	}
	s.windowGauge().Set(float64(s.fc.InFlight()))

	if publish.QoS == QoS0 && limiter != nil && !limiter.Allow() {
		// Over the QoS 0 delivery rate: drop. The slot is returned
		// immediately since no ack will ever come.
		s.fc.Release()
		logger.Debug("QoS 0 publish dropped by rate limiter", LogFields{
			LogFieldTopic: publish.Topic,
		})
		return true
	}

	msg := publish.ToMessage()
	ack := s.ackOnce(publish)

	if !s.loop.Submit(func() { s.delivery(msg, ack) }) {
		s.fc.Release()
		return false
	}
	return true
}

func (s *InProcessPublishService) windowGauge() Gauge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// ackOnce builds the single-shot acknowledgment closure for publish.
func (s *InProcessPublishService) ackOnce(publish *PublishPacket) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.fc.Release()
			s.windowGauge().Set(float64(s.fc.InFlight()))
			s.sink.Ack(publish)
		})
	}
}
