package mqttflow

import (
	"bytes"
	"errors"
	"io"
)

// PUBLISH packet errors.
var (
	ErrTopicNameEmpty   = errors.New("topic name cannot be empty")
	ErrInvalidQoS       = errors.New("invalid QoS level")
	ErrPacketIDRequired = errors.New("packet identifier required for QoS > 0")
)

// PublishPacket represents an MQTT PUBLISH packet as received from the
// broker: the stateless application message plus the per-exchange wire state
// (packet identifier, DUP flag).
// MQTT v5.0 spec: Section 3.3
type PublishPacket struct {
	// Topic is the topic name.
	Topic string

	// Payload is the application message.
	Payload []byte

	// QoS is the Quality of Service level (0, 1, or 2).
	QoS byte

	// Retain indicates if the message should be retained.
	Retain bool

	// DUP indicates if this is a retransmission.
	DUP bool

	// PacketID is the packet identifier (only for QoS > 0).
	PacketID uint16

	// Props contains the PUBLISH properties.
	Props Properties
}

// Type returns the packet type.
func (p *PublishPacket) Type() PacketType { return PacketPUBLISH }

// Properties returns a pointer to the packet's properties.
func (p *PublishPacket) Properties() *Properties { return &p.Props }

// flags returns the fixed header flags.
func (p *PublishPacket) flags() byte {
	var flags byte
	if p.DUP {
		flags |= 0x08
	}
	flags |= (p.QoS & 0x03) << 1
	if p.Retain {
		flags |= 0x01
	}
	return flags
}

// Encode writes the packet to the writer.
func (p *PublishPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var buf bytes.Buffer

	if _, err := encodeString(&buf, p.Topic); err != nil {
		return 0, err
	}

	if p.QoS > 0 {
		if _, err := buf.Write([]byte{byte(p.PacketID >> 8), byte(p.PacketID)}); err != nil {
			return 0, err
		}
	}

	if _, err := p.Props.Encode(&buf); err != nil {
		return 0, err
	}

	if _, err := buf.Write(p.Payload); err != nil {
		return 0, err
	}

	header := FixedHeader{
		PacketType:      PacketPUBLISH,
		Flags:           p.flags(),
		RemainingLength: uint32(buf.Len()),
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := w.Write(buf.Bytes())
	return total + n, err
}

// Decode reads the packet from the reader.
func (p *PublishPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPUBLISH {
		return 0, ErrInvalidPacketType
	}

	p.DUP = header.DUP()
	p.QoS = header.QoS()
	p.Retain = header.Retain()

	topic, n, err := decodeString(r)
	if err != nil {
		return n, err
	}
	p.Topic = topic

	if p.QoS > 0 {
		var idBuf [2]byte
		n2, err := io.ReadFull(r, idBuf[:])
		n += n2
		if err != nil {
			return n, err
		}
		p.PacketID = uint16(idBuf[0])<<8 | uint16(idBuf[1])
	}

	n2, err := p.Props.Decode(r)
	n += n2
	if err != nil {
		return n, err
	}
	if err := p.Props.ValidateFor(PropCtxPUBLISH); err != nil {
		return n, err
	}

	payloadLen := int(header.RemainingLength) - n
	if payloadLen > 0 {
		p.Payload = make([]byte, payloadLen)
		n3, err := io.ReadFull(r, p.Payload)
		n += n3
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// Validate validates the packet contents.
func (p *PublishPacket) Validate() error {
	if p.Topic == "" {
		return ErrTopicNameEmpty
	}
	if p.QoS > 2 {
		return ErrInvalidQoS
	}
	if p.QoS > 0 && p.PacketID == 0 {
		return ErrPacketIDRequired
	}
	return nil
}

// ToMessage converts the packet to a stateless application message.
func (p *PublishPacket) ToMessage() *Message {
	msg := &Message{
		Topic:                   p.Topic,
		Payload:                 p.Payload,
		QoS:                     p.QoS,
		Retain:                  p.Retain,
		PayloadFormat:           p.Props.GetByte(PropPayloadFormatIndicator),
		MessageExpiry:           p.Props.GetUint32(PropMessageExpiryInterval),
		ContentType:             p.Props.GetString(PropContentType),
		ResponseTopic:           p.Props.GetString(PropResponseTopic),
		CorrelationData:         p.Props.GetBinary(PropCorrelationData),
		SubscriptionIdentifiers: p.Props.GetAllVarInts(PropSubscriptionIdentifier),
	}

	if pairs := p.Props.GetAllStringPairs(PropUserProperty); len(pairs) > 0 {
		msg.UserProperties = pairs
	}

	return msg
}
