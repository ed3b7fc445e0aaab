package mqttflow

import (
	"strconv"
	"sync"
)

// PacketWriter is the transport context the handler emits packets through.
// Implemented by Conn.
type PacketWriter interface {
	// WritePacket queues pkt for writing. done, if non-nil, is invoked with
	// the write result once the packet has been flushed (or failed).
	// Completions fire in write-submission order.
	WritePacket(pkt Packet, done func(error))
}

// DisconnectEvent is the inbound transport-disconnect notification.
type DisconnectEvent struct {
	// Cause is the error that tore the connection down. Delivered to
	// in-flight publish flows when the client is fully disconnected.
	Cause error

	// ClientDisconnected is true when the client as a whole has reached the
	// fully-disconnected state, i.e. no reconnect attempt will follow.
	ClientDisconnected bool
}

// IncomingQosHandler is the receive-side QoS state machine of an MQTT v5.0
// client. It consumes decoded PUBLISH and PUBREL packets, drives the QoS 1
// and QoS 2 acknowledgment handshakes, verifies the broker's protocol
// adherence, and emits PUBACK, PUBREC, PUBCOMP and DISCONNECT packets.
//
// A handler holds per-connection state and serves one transport at a time;
// Attach fails until the previous connection has been torn down. All
// protocol state lives on a single event loop: inbound packets, write
// completions and the transport disconnect event are serialized there, and
// cross-goroutine acknowledgments hop onto it through Ack.
type IncomingQosHandler struct {
	flows   *PublishFlowRegistry
	service PublishService

	mu     sync.Mutex // guards writer and loop across attach/detach
	writer PacketWriter
	loop   *Loop

	onDisconnect func(*DisconnectError)

	// The fields below are confined to the event loop while attached.
	table          *idTable
	cfg            *ConnectionConfig
	receiveMaximum uint16
	logger         Logger
	metrics        *handlerMetrics
	stopped        bool
}

// NewIncomingQosHandler creates a detached handler. Received publishes are
// delivered through an in-process publish service to the given callback.
func NewIncomingQosHandler(flows *PublishFlowRegistry, delivery InboundHandler) *IncomingQosHandler {
	h := newHandler(flows)
	h.service = NewInProcessPublishService(h, delivery)
	return h
}

// NewIncomingQosHandlerWithService creates a detached handler with a custom
// downstream publish service.
func NewIncomingQosHandlerWithService(flows *PublishFlowRegistry, service PublishService) *IncomingQosHandler {
	h := newHandler(flows)
	h.service = service
	return h
}

func newHandler(flows *PublishFlowRegistry) *IncomingQosHandler {
	if flows == nil {
		flows = NewPublishFlowRegistry()
	}
	return &IncomingQosHandler{
		flows:  flows,
		table:  newIDTable(),
		logger: NewNoOpLogger(),
	}
}

// Flows returns the handler's publish flow registry.
func (h *IncomingQosHandler) Flows() *PublishFlowRegistry { return h.flows }

// Service returns the downstream publish service.
func (h *IncomingQosHandler) Service() PublishService { return h.service }

// SetOnDisconnect registers a callback fired whenever the handler initiates a
// client-originated DISCONNECT: after a protocol violation, a Receive Maximum
// violation, or a failing interceptor. Must be set before Attach.
func (h *IncomingQosHandler) SetOnDisconnect(fn func(*DisconnectError)) {
	h.onDisconnect = fn
}

// Attach binds the handler to a transport connection, reading the receive
// maximum and the interceptors from cfg. Returns ErrAlreadyAttached if the
// handler still holds a connection.
func (h *IncomingQosHandler) Attach(writer PacketWriter, cfg *ConnectionConfig) error {
	if cfg == nil {
		cfg = NewConnectionConfig()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.writer != nil {
		return ErrAlreadyAttached
	}

	h.writer = writer
	h.cfg = cfg
	h.receiveMaximum = cfg.ReceiveMaximum()
	h.logger = cfg.Logger()
	h.metrics = newHandlerMetrics(cfg.Metrics())
	h.table.clear()
	h.stopped = false
	h.loop = NewLoop()

	if lc, ok := h.service.(serviceLifecycle); ok {
		lc.attach(cfg)
	}

	return nil
}

// Reusable reports whether the handler can be attached to a transport:
// true only when it holds no transport context.
func (h *IncomingQosHandler) Reusable() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writer == nil
}

// OnPacket feeds a decoded inbound packet to the handler. It consumes
// PUBLISH and PUBREL packets and returns true for them; any other packet is
// left untouched and false is returned so the caller can forward it up the
// pipeline.
func (h *IncomingQosHandler) OnPacket(pkt Packet) bool {
	switch p := pkt.(type) {
	case *PublishPacket:
		h.submit(func() { h.readPublish(p) })
		return true
	case *PubrelPacket:
		h.submit(func() { h.readPubRel(p) })
		return true
	default:
		return false
	}
}

// Ack acknowledges a delivered publish on behalf of the application. Safe to
// call from any goroutine: the work hops onto the event loop and Ack returns
// immediately. After the transport has disconnected, Ack is a no-op.
func (h *IncomingQosHandler) Ack(publish *PublishPacket) {
	h.submit(func() { h.ack(publish) })
}

// OnTransportDisconnect handles the transport teardown event: the state
// table is cleared, the transport context is dropped, and, if the client
// has reached the fully-disconnected state, all in-flight publish flows are
// failed with the event's cause.
func (h *IncomingQosHandler) OnTransportDisconnect(evt DisconnectEvent) {
	h.mu.Lock()
	loop := h.loop
	h.mu.Unlock()

	if loop == nil {
		return
	}
	loop.Submit(func() { h.handleTransportDisconnect(evt) })
	loop.Close()
}

func (h *IncomingQosHandler) submit(fn func()) {
	h.mu.Lock()
	loop := h.loop
	h.mu.Unlock()

	if loop != nil {
		loop.Submit(fn)
	}
}

// --- event-loop side ---

func (h *IncomingQosHandler) readPublish(publish *PublishPacket) {
	if h.stopped {
		return
	}

	h.metrics.publish[publish.QoS].Inc()

	switch publish.QoS {
	case QoS0:
		h.readPublishQos0(publish)
	case QoS1:
		h.readPublishQos1(publish)
	case QoS2:
		h.readPublishQos2(publish)
	}
}

// readPublishQos0 bypasses the state table: QoS 0 has no acknowledgment
// exchange. The admission result is ignored; QoS 0 currently shares the
// receive window with QoS 1 and 2 until it gets a queue of its own.
func (h *IncomingQosHandler) readPublishQos0(publish *PublishPacket) {
	h.service.Offer(publish, h.receiveMaximum)
}

func (h *IncomingQosHandler) readPublishQos1(publish *PublishPacket) {
	prev := h.table.getAndSet(publish.PacketID, qos1PendingState())

	switch prev.kind {
	case stateAbsent: // new message
		h.readNewPublishQos1Or2(publish)

	case stateQos1Pending: // resent message, not yet acked
		h.checkDupFlagSet(publish, prev)

	case stateQos1Acked: // resent message, already acknowledged
		if h.checkDupFlagSet(publish, prev) {
			h.table.put(publish.PacketID, prev)
			h.metrics.duplicate.Inc()
			h.writePubAck(prev.pubAck)
		}

	default: // id is in a QoS 2 exchange
		h.table.put(publish.PacketID, prev) // revert
		h.disconnect(ReasonProtocolError,
			"QoS 1 PUBLISH must not be received with the same packet identifier as a QoS 2 PUBLISH")
	}
}

func (h *IncomingQosHandler) readPublishQos2(publish *PublishPacket) {
	prev := h.table.getAndSet(publish.PacketID, qos2PendingState())

	switch prev.kind {
	case stateAbsent: // new message
		h.readNewPublishQos1Or2(publish)

	case stateQos2Pending: // resent message, not yet acked
		h.checkDupFlagSet(publish, prev)

	case stateQos2Acked: // resent message, PUBREC already sent
		if h.checkDupFlagSet(publish, prev) {
			h.table.put(publish.PacketID, prev)
			h.metrics.duplicate.Inc()
			h.writePubRec(prev.pubRec)
		}

	default: // id is in a QoS 1 exchange
		h.table.put(publish.PacketID, prev) // revert
		h.disconnect(ReasonProtocolError,
			"QoS 2 PUBLISH must not be received with the same packet identifier as a QoS 1 PUBLISH")
	}
}

func (h *IncomingQosHandler) readNewPublishQos1Or2(publish *PublishPacket) {
	if !h.service.Offer(publish, h.receiveMaximum) {
		h.metrics.windowRejections.Inc()
		h.disconnect(ReasonReceiveMaxExceeded,
			"Received more QoS 1 and/or 2 PUBLISHes than allowed by Receive Maximum")
	}
}

// checkDupFlagSet verifies that a resent PUBLISH carries the DUP flag.
// Returns false after reverting the table entry and disconnecting.
func (h *IncomingQosHandler) checkDupFlagSet(publish *PublishPacket, prev idState) bool {
	if !publish.DUP {
		h.table.put(publish.PacketID, prev) // revert
		h.disconnect(ReasonProtocolError,
			"DUP flag must be set for a resent QoS "+strconv.Itoa(int(publish.QoS))+" PUBLISH")
		return false
	}
	if prev.pending() {
		// Resend before the application acked: nothing to retransmit yet.
		h.metrics.duplicate.Inc()
	}
	return true
}

func (h *IncomingQosHandler) ack(publish *PublishPacket) {
	if h.stopped {
		return
	}

	switch publish.QoS {
	case QoS0:
		// No acknowledgment exchange.

	case QoS1:
		pubAck, ok := h.buildPubAck(publish)
		if !ok {
			return
		}
		h.table.put(publish.PacketID, qos1AckedState(pubAck))
		h.writePubAck(pubAck)

	case QoS2:
		pubRec, ok := h.buildPubRec(publish)
		if !ok {
			return
		}
		h.table.put(publish.PacketID, qos2AckedState(pubRec))
		h.writePubRec(pubRec)
	}
}

// writePubAck writes a PUBACK with a completion listener: only a successful
// flush removes the table entry. On failure the cached PUBACK stays valid
// for the broker's resend.
func (h *IncomingQosHandler) writePubAck(pubAck *PubackPacket) {
	packetID := pubAck.PacketID
	h.metrics.acksPuback.Inc()
	h.writePacket(pubAck, func(err error) {
		h.submit(func() { h.onPubAckWritten(packetID, err) })
	})
}

func (h *IncomingQosHandler) onPubAckWritten(packetID uint16, err error) {
	if err != nil {
		h.logger.Warn("PUBACK write failed, keeping cached ack", LogFields{
			LogFieldPacketID: packetID,
			LogFieldError:    err,
		})
		return
	}
	h.table.remove(packetID)
}

// writePubRec writes a PUBREC fire-and-forget; the table entry lives until
// PUBREL arrives.
func (h *IncomingQosHandler) writePubRec(pubRec *PubrecPacket) {
	h.metrics.acksPubrec.Inc()
	h.writePacket(pubRec, nil)
}

func (h *IncomingQosHandler) readPubRel(pubRel *PubrelPacket) {
	if h.stopped {
		return
	}

	prev := h.table.remove(pubRel.PacketID)

	switch prev.kind {
	case stateQos2Acked: // normal case
		if pubComp, ok := h.buildPubComp(pubRel, ReasonSuccess); ok {
			h.writePubComp(pubComp)
		}

	case stateAbsent: // replay after a lost PUBCOMP
		if pubComp, ok := h.buildPubComp(pubRel, ReasonPacketIDNotFound); ok {
			h.writePubComp(pubComp)
		}

	case stateQos2Pending: // PUBREC not sent yet
		h.table.put(pubRel.PacketID, prev) // revert
		h.disconnect(ReasonProtocolError,
			"PUBREL must not be received with the same packet identifier as a QoS 2 PUBLISH when no PUBREC has been sent yet")

	default: // id is in a QoS 1 exchange
		h.table.put(pubRel.PacketID, prev) // revert
		h.disconnect(ReasonProtocolError,
			"PUBREL must not be received with the same packet identifier as a QoS 1 PUBLISH")
	}
}

func (h *IncomingQosHandler) writePubComp(pubComp *PubcompPacket) {
	h.metrics.acksPubcomp.Inc()
	h.writePacket(pubComp, nil)
}

func (h *IncomingQosHandler) writePacket(pkt Packet, done func(error)) {
	h.mu.Lock()
	writer := h.writer
	h.mu.Unlock()

	if writer == nil {
		if done != nil {
			done(ErrNotAttached)
		}
		return
	}
	writer.WritePacket(pkt, done)
}

// buildPubAck runs the QoS 1 interceptor, if any, and builds the PUBACK.
func (h *IncomingQosHandler) buildPubAck(publish *PublishPacket) (*PubackPacket, bool) {
	builder := newPubackBuilder(publish)

	if adv := h.cfg.Advanced(); adv != nil && adv.Qos1 != nil {
		panicked := invokeInterceptor(h.logger, "qos1.onPublish", func() {
			adv.Qos1.OnPublish(h.cfg, publish.ToMessage(), builder)
		})
		if panicked != nil {
			h.disconnect(ReasonImplSpecificError, "incoming QoS 1 interceptor failed")
			return nil, false
		}
	}

	return builder.Build(), true
}

// buildPubRec runs the QoS 2 interceptor, if any, and builds the PUBREC.
func (h *IncomingQosHandler) buildPubRec(publish *PublishPacket) (*PubrecPacket, bool) {
	builder := newPubrecBuilder(publish)

	if adv := h.cfg.Advanced(); adv != nil && adv.Qos2 != nil {
		panicked := invokeInterceptor(h.logger, "qos2.onPublish", func() {
			adv.Qos2.OnPublish(h.cfg, publish.ToMessage(), builder)
		})
		if panicked != nil {
			h.disconnect(ReasonImplSpecificError, "incoming QoS 2 interceptor failed")
			return nil, false
		}
	}

	return builder.Build(), true
}

// buildPubComp runs the QoS 2 interceptor, if any, and builds the PUBCOMP
// answering pubRel, starting from the given reason code.
func (h *IncomingQosHandler) buildPubComp(pubRel *PubrelPacket, code ReasonCode) (*PubcompPacket, bool) {
	builder := newPubcompBuilder(pubRel)
	if code != ReasonSuccess {
		builder.ReasonCode(code)
	}

	if adv := h.cfg.Advanced(); adv != nil && adv.Qos2 != nil {
		panicked := invokeInterceptor(h.logger, "qos2.onPubrel", func() {
			adv.Qos2.OnPubrel(h.cfg, pubRel, builder)
		})
		if panicked != nil {
			h.disconnect(ReasonImplSpecificError, "incoming QoS 2 interceptor failed")
			return nil, false
		}
	}

	return builder.Build(), true
}

// disconnect initiates a client-originated DISCONNECT and stops processing
// further inbound packets on this connection.
func (h *IncomingQosHandler) disconnect(code ReasonCode, reason string) {
	if h.stopped {
		return
	}
	h.stopped = true
	if code == ReasonProtocolError {
		h.metrics.protocolErrors.Inc()
	}

	h.logger.Warn("disconnecting", LogFields{
		LogFieldReasonCode: code,
		LogFieldError:      reason,
	})

	h.writePacket(NewDisconnectPacket(code, reason), nil)

	if h.onDisconnect != nil {
		h.onDisconnect(NewDisconnectError(code, reason, false))
	}
}

func (h *IncomingQosHandler) handleTransportDisconnect(evt DisconnectEvent) {
	h.table.clear()

	h.mu.Lock()
	h.writer = nil
	h.loop = nil
	h.mu.Unlock()

	if lc, ok := h.service.(serviceLifecycle); ok {
		lc.detach()
	}

	if evt.ClientDisconnected {
		cause := evt.Cause
		if cause == nil {
			cause = ErrConnectionLost
		}
		h.flows.Clear(cause)
	}
}

// handlerMetrics caches the counter instances the handler touches per
// packet, so the hot path does no metric lookups.
type handlerMetrics struct {
	publish          [3]Counter
	duplicate        Counter
	acksPuback       Counter
	acksPubrec       Counter
	acksPubcomp      Counter
	protocolErrors   Counter
	windowRejections Counter
}

func newHandlerMetrics(m Metrics) *handlerMetrics {
	return &handlerMetrics{
		publish: [3]Counter{
			m.Counter(MetricInboundPublish, MetricLabels{"qos": "0"}),
			m.Counter(MetricInboundPublish, MetricLabels{"qos": "1"}),
			m.Counter(MetricInboundPublish, MetricLabels{"qos": "2"}),
		},
		duplicate:        m.Counter(MetricInboundDuplicate, nil),
		acksPuback:       m.Counter(MetricAcksWritten, MetricLabels{"type": "puback"}),
		acksPubrec:       m.Counter(MetricAcksWritten, MetricLabels{"type": "pubrec"}),
		acksPubcomp:      m.Counter(MetricAcksWritten, MetricLabels{"type": "pubcomp"}),
		protocolErrors:   m.Counter(MetricProtocolErrors, nil),
		windowRejections: m.Counter(MetricWindowRejections, nil),
	}
}
