// Package mqttflow implements the receive-side QoS machinery of an MQTT v5.0
// client: the packet-identifier state machine that drives the QoS 1 and QoS 2
// acknowledgment handshakes, enforces the broker's adherence to the protocol,
// and flow-controls inbound publishes against the negotiated Receive Maximum.
//
// The entry point is IncomingQosHandler. It is attached to a transport
// connection, fed decoded packets from the read loop, and emits PUBACK,
// PUBREC, PUBCOMP and DISCONNECT packets back to the transport. Application
// code acknowledges delivered publishes through the publish service, from any
// goroutine; the handler serializes all protocol state on a single event
// loop.
package mqttflow
