package mqttflow

import "errors"

// Sentinel errors for protocol issues - check with errors.Is().
var (
	// ErrProtocolError is returned when the broker violates the protocol.
	ErrProtocolError = errors.New("protocol error")

	// ErrReceiveMaxExceeded is returned when the broker sends more
	// unacknowledged QoS 1 and 2 PUBLISHes than the negotiated Receive Maximum.
	ErrReceiveMaxExceeded = errors.New("receive maximum exceeded")

	// ErrConnectionLost is the cause delivered to in-flight publish flows
	// when the transport drops without a client-originated DISCONNECT.
	ErrConnectionLost = errors.New("connection lost")
)

// Sentinel errors for handler lifecycle - check with errors.Is().
var (
	// ErrAlreadyAttached is returned when attaching a handler that already
	// holds a transport context.
	ErrAlreadyAttached = errors.New("handler already attached to a transport")

	// ErrNotAttached is returned when an operation requires an attached
	// transport.
	ErrNotAttached = errors.New("handler not attached to a transport")
)

// DisconnectError describes a connection teardown: the reason code and
// reason string of the DISCONNECT, and whether the remote end originated it.
// Extract with errors.As().
type DisconnectError struct {
	err          error
	ReasonCode   ReasonCode
	ReasonString string
	Remote       bool // true if the broker sent the DISCONNECT
}

func (e *DisconnectError) Error() string {
	msg := "disconnected: " + e.ReasonCode.String()
	if e.Remote {
		msg = "server disconnect: " + e.ReasonCode.String()
	}
	if e.ReasonString != "" {
		msg += ": " + e.ReasonString
	}
	return msg
}

func (e *DisconnectError) Unwrap() error { return e.err }

// NewDisconnectError creates a new DisconnectError. The wrapped sentinel is
// chosen from the reason code so callers can errors.Is() against
// ErrProtocolError or ErrReceiveMaxExceeded.
func NewDisconnectError(code ReasonCode, reason string, remote bool) *DisconnectError {
	baseErr := ErrConnectionLost
	switch code {
	case ReasonProtocolError, ReasonMalformedPacket:
		baseErr = ErrProtocolError
	case ReasonReceiveMaxExceeded:
		baseErr = ErrReceiveMaxExceeded
	}
	return &DisconnectError{
		err:          baseErr,
		ReasonCode:   code,
		ReasonString: reason,
		Remote:       remote,
	}
}
