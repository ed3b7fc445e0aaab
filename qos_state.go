package mqttflow

// idStateKind enumerates the states of one packet identifier's inbound
// QoS exchange.
type idStateKind uint8

const (
	// stateAbsent: no exchange in progress for this id.
	stateAbsent idStateKind = iota

	// stateQos1Pending: QoS 1 PUBLISH received, not yet acked by the
	// application.
	stateQos1Pending

	// stateQos2Pending: QoS 2 PUBLISH received, PUBREC not yet sent.
	stateQos2Pending

	// stateQos1Acked: PUBACK built; may still be in the send queue or
	// already flushed.
	stateQos1Acked

	// stateQos2Acked: PUBREC built; awaiting PUBREL.
	stateQos2Acked
)

func (k idStateKind) String() string {
	switch k {
	case stateAbsent:
		return "absent"
	case stateQos1Pending:
		return "qos1-pending"
	case stateQos2Pending:
		return "qos2-pending"
	case stateQos1Acked:
		return "qos1-acked"
	case stateQos2Acked:
		return "qos2-acked"
	default:
		return "invalid"
	}
}

// idState is a tagged value: the kind plus the cached acknowledgment packet
// for the acked states. The zero value is absent.
type idState struct {
	kind   idStateKind
	pubAck *PubackPacket // stateQos1Acked only
	pubRec *PubrecPacket // stateQos2Acked only
}

func qos1PendingState() idState { return idState{kind: stateQos1Pending} }

func qos2PendingState() idState { return idState{kind: stateQos2Pending} }

func qos1AckedState(pubAck *PubackPacket) idState {
	return idState{kind: stateQos1Acked, pubAck: pubAck}
}

func qos2AckedState(pubRec *PubrecPacket) idState {
	return idState{kind: stateQos2Acked, pubRec: pubRec}
}

func (s idState) absent() bool { return s.kind == stateAbsent }

// qos returns the QoS level the state belongs to: 1, 2, or 0 when absent.
func (s idState) qos() byte {
	switch s.kind {
	case stateQos1Pending, stateQos1Acked:
		return 1
	case stateQos2Pending, stateQos2Acked:
		return 2
	default:
		return 0
	}
}

// pending reports whether the state counts against the receive window.
func (s idState) pending() bool {
	return s.kind == stateQos1Pending || s.kind == stateQos2Pending
}

const (
	idTableSegmentBits = 8
	idTableSegmentSize = 1 << idTableSegmentBits
	idTableSegments    = 1 << (16 - idTableSegmentBits)
)

// idTable maps the dense 16-bit packet identifier space (1..65535) to
// idState. Absent ids read as the zero state. Storage is a segmented array
// grown on demand, so a client with a small receive window touches one
// 256-entry segment. Access is single-threaded from the event loop; there is
// no internal locking.
type idTable struct {
	segments [idTableSegments]*[idTableSegmentSize]idState
	occupied int
}

func newIDTable() *idTable {
	return &idTable{}
}

// get returns the state for id without modifying the table.
func (t *idTable) get(id uint16) idState {
	seg := t.segments[id>>idTableSegmentBits]
	if seg == nil {
		return idState{}
	}
	return seg[id&(idTableSegmentSize-1)]
}

// getAndSet atomically substitutes the state for id and returns the
// previous state.
func (t *idTable) getAndSet(id uint16, state idState) idState {
	segIdx := id >> idTableSegmentBits
	seg := t.segments[segIdx]
	if seg == nil {
		seg = &[idTableSegmentSize]idState{}
		t.segments[segIdx] = seg
	}

	slot := &seg[id&(idTableSegmentSize-1)]
	prev := *slot
	*slot = state

	t.adjustOccupied(prev, state)
	return prev
}

// put unconditionally sets the state for id. Used to revert a rejected
// transition back to its pre-state.
func (t *idTable) put(id uint16, state idState) {
	t.getAndSet(id, state)
}

// remove clears the state for id and returns the previous state.
func (t *idTable) remove(id uint16) idState {
	seg := t.segments[id>>idTableSegmentBits]
	if seg == nil {
		return idState{}
	}

	slot := &seg[id&(idTableSegmentSize-1)]
	prev := *slot
	*slot = idState{}

	t.adjustOccupied(prev, idState{})
	return prev
}

// len returns the number of ids holding a non-absent state.
func (t *idTable) len() int {
	return t.occupied
}

// clear resets the table to empty. Called on transport disconnect.
func (t *idTable) clear() {
	for i := range t.segments {
		t.segments[i] = nil
	}
	t.occupied = 0
}

func (t *idTable) adjustOccupied(prev, next idState) {
	switch {
	case prev.absent() && !next.absent():
		t.occupied++
	case !prev.absent() && next.absent():
		t.occupied--
	}
}
