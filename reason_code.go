package mqttflow

// ReasonCode represents an MQTT v5.0 reason code.
// MQTT v5.0 spec: Section 2.4
type ReasonCode byte

// Reason codes used on the client receive path.
const (
	// Success / Normal disconnection
	ReasonSuccess ReasonCode = 0x00
	// No matching subscribers
	ReasonNoMatchingSubscribers ReasonCode = 0x10
	// Unspecified error
	ReasonUnspecifiedError ReasonCode = 0x80
	// Malformed Packet
	ReasonMalformedPacket ReasonCode = 0x81
	// Protocol Error
	ReasonProtocolError ReasonCode = 0x82
	// Implementation specific error
	ReasonImplSpecificError ReasonCode = 0x83
	// Not authorized
	ReasonNotAuthorized ReasonCode = 0x87
	// Server busy
	ReasonServerBusy ReasonCode = 0x89
	// Bad authentication method
	ReasonBadAuthMethod ReasonCode = 0x8C
	// Keep Alive timeout
	ReasonKeepAliveTimeout ReasonCode = 0x8D
	// Session taken over
	ReasonSessionTakenOver ReasonCode = 0x8E
	// Topic Filter invalid
	ReasonTopicFilterInvalid ReasonCode = 0x8F
	// Topic Name invalid
	ReasonTopicNameInvalid ReasonCode = 0x90
	// Packet Identifier in use
	ReasonPacketIDInUse ReasonCode = 0x91
	// Packet Identifier not found
	ReasonPacketIDNotFound ReasonCode = 0x92
	// Receive Maximum exceeded
	ReasonReceiveMaxExceeded ReasonCode = 0x93
	// Topic Alias invalid
	ReasonTopicAliasInvalid ReasonCode = 0x94
	// Packet too large
	ReasonPacketTooLarge ReasonCode = 0x95
	// Message rate too high
	ReasonMessageRateTooHigh ReasonCode = 0x96
	// Quota exceeded
	ReasonQuotaExceeded ReasonCode = 0x97
	// Administrative action
	ReasonAdminAction ReasonCode = 0x98
	// Payload format invalid
	ReasonPayloadFormatInvalid ReasonCode = 0x99
)

var reasonCodeNames = map[ReasonCode]string{
	ReasonSuccess:               "Success",
	ReasonNoMatchingSubscribers: "No matching subscribers",
	ReasonUnspecifiedError:      "Unspecified error",
	ReasonMalformedPacket:       "Malformed Packet",
	ReasonProtocolError:         "Protocol Error",
	ReasonImplSpecificError:     "Implementation specific error",
	ReasonNotAuthorized:         "Not authorized",
	ReasonServerBusy:            "Server busy",
	ReasonBadAuthMethod:         "Bad authentication method",
	ReasonKeepAliveTimeout:      "Keep Alive timeout",
	ReasonSessionTakenOver:      "Session taken over",
	ReasonTopicFilterInvalid:    "Topic Filter invalid",
	ReasonTopicNameInvalid:      "Topic Name invalid",
	ReasonPacketIDInUse:         "Packet Identifier in use",
	ReasonPacketIDNotFound:      "Packet Identifier not found",
	ReasonReceiveMaxExceeded:    "Receive Maximum exceeded",
	ReasonTopicAliasInvalid:     "Topic Alias invalid",
	ReasonPacketTooLarge:        "Packet too large",
	ReasonMessageRateTooHigh:    "Message rate too high",
	ReasonQuotaExceeded:         "Quota exceeded",
	ReasonAdminAction:           "Administrative action",
	ReasonPayloadFormatInvalid:  "Payload format invalid",
}

// String returns the string representation of the reason code.
func (r ReasonCode) String() string {
	if name, ok := reasonCodeNames[r]; ok {
		return name
	}
	return "Unknown"
}

// IsError returns true if the reason code indicates an error.
func (r ReasonCode) IsError() bool {
	return r >= 0x80
}

// ValidForPUBACK returns true if the reason code is valid in a PUBACK packet.
// MQTT v5.0 spec: Section 3.4.2.1
func (r ReasonCode) ValidForPUBACK() bool {
	switch r {
	case ReasonSuccess, ReasonNoMatchingSubscribers, ReasonUnspecifiedError,
		ReasonImplSpecificError, ReasonNotAuthorized, ReasonTopicNameInvalid,
		ReasonPacketIDInUse, ReasonQuotaExceeded, ReasonPayloadFormatInvalid:
		return true
	}
	return false
}

// ValidForPUBREC returns true if the reason code is valid in a PUBREC packet.
// MQTT v5.0 spec: Section 3.5.2.1
func (r ReasonCode) ValidForPUBREC() bool {
	return r.ValidForPUBACK()
}

// ValidForPUBREL returns true if the reason code is valid in a PUBREL packet.
// MQTT v5.0 spec: Section 3.6.2.1
func (r ReasonCode) ValidForPUBREL() bool {
	return r == ReasonSuccess || r == ReasonPacketIDNotFound
}

// ValidForPUBCOMP returns true if the reason code is valid in a PUBCOMP packet.
// MQTT v5.0 spec: Section 3.7.2.1
func (r ReasonCode) ValidForPUBCOMP() bool {
	return r == ReasonSuccess || r == ReasonPacketIDNotFound
}

// ValidForDISCONNECT returns true if the reason code is valid in a DISCONNECT
// packet sent by the client.
// MQTT v5.0 spec: Section 3.14.2.1
func (r ReasonCode) ValidForDISCONNECT() bool {
	switch r {
	case ReasonSuccess, ReasonUnspecifiedError, ReasonMalformedPacket,
		ReasonProtocolError, ReasonImplSpecificError, ReasonTopicNameInvalid,
		ReasonReceiveMaxExceeded, ReasonTopicAliasInvalid, ReasonPacketTooLarge,
		ReasonMessageRateTooHigh, ReasonQuotaExceeded, ReasonAdminAction,
		ReasonPayloadFormatInvalid, ReasonKeepAliveTimeout:
		return true
	}
	return false
}
