package mqttflow

import "sync"

// FlowController tracks the inbound receive window: the number of publishes
// the broker has in flight that the application has not yet acknowledged,
// capped by the Receive Maximum the client advertised at connect time.
// MQTT v5.0 spec: Section 4.9
type FlowController struct {
	mu             sync.Mutex
	receiveMaximum uint16
	inFlight       uint16
}

// NewFlowController creates a new flow controller with the given receive
// maximum. Zero means the protocol default of 65535.
func NewFlowController(receiveMaximum uint16) *FlowController {
	if receiveMaximum == 0 {
		receiveMaximum = 65535
	}
	return &FlowController{receiveMaximum: receiveMaximum}
}

// ReceiveMaximum returns the configured receive maximum.
func (f *FlowController) ReceiveMaximum() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receiveMaximum
}

// SetReceiveMaximum updates the receive maximum. Zero means 65535.
func (f *FlowController) SetReceiveMaximum(maximum uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if maximum == 0 {
		maximum = 65535
	}
	f.receiveMaximum = maximum
}

// InFlight returns the current number of unacknowledged inbound publishes.
func (f *FlowController) InFlight() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Available returns the number of open window slots.
func (f *FlowController) Available() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight >= f.receiveMaximum {
		return 0
	}
	return f.receiveMaximum - f.inFlight
}

// TryAcquire claims a window slot. Returns false if the window is full.
func (f *FlowController) TryAcquire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight >= f.receiveMaximum {
		return false
	}
	f.inFlight++
	return true
}

// Release returns a window slot when a publish is acknowledged.
func (f *FlowController) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight > 0 {
		f.inFlight--
	}
}

// Reset empties the window, e.g. after the transport drops.
func (f *FlowController) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = 0
}
