//nolint:dupl // MQTT v5.0 requires separate packet types with same structure
package mqttflow

import "io"

// PubackPacket represents an MQTT PUBACK packet.
// MQTT v5.0 spec: Section 3.4
type PubackPacket struct {
	PacketID   uint16
	ReasonCode ReasonCode
	Props      Properties
}

// Type returns the packet type.
func (p *PubackPacket) Type() PacketType { return PacketPUBACK }

// Properties returns a pointer to the packet's properties.
func (p *PubackPacket) Properties() *Properties { return &p.Props }

// Encode writes the packet to the writer.
func (p *PubackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return encodeAck(w, PacketPUBACK, 0x00, &ackPacket{
		PacketID:   p.PacketID,
		ReasonCode: p.ReasonCode,
		Props:      p.Props,
	})
}

// Decode reads the packet from the reader.
func (p *PubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPUBACK {
		return 0, ErrInvalidPacketType
	}
	var ack ackPacket
	n, err := decodeAck(r, header, &ack)
	p.PacketID = ack.PacketID
	p.ReasonCode = ack.ReasonCode
	p.Props = ack.Props
	return n, err
}

// Validate validates the packet contents.
func (p *PubackPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}
	if !p.ReasonCode.ValidForPUBACK() {
		return ErrInvalidReasonCode
	}
	return nil
}

// PubackBuilder builds the PUBACK answering a received QoS 1 PUBLISH. An
// incoming QoS 1 interceptor may set the reason code, reason string and user
// properties before the packet is built.
type PubackBuilder struct {
	ackBuilder
	publish *PublishPacket
}

func newPubackBuilder(publish *PublishPacket) *PubackBuilder {
	return &PubackBuilder{
		ackBuilder: ackBuilder{reasonCode: ReasonSuccess},
		publish:    publish,
	}
}

// Publish returns the PUBLISH being acknowledged.
func (b *PubackBuilder) Publish() *PublishPacket { return b.publish }

// ReasonCode sets the PUBACK reason code.
func (b *PubackBuilder) ReasonCode(code ReasonCode) *PubackBuilder {
	b.checkMutable()
	b.reasonCode = code
	return b
}

// ReasonString sets the PUBACK reason string.
func (b *PubackBuilder) ReasonString(reason string) *PubackBuilder {
	b.checkMutable()
	b.reasonString = reason
	return b
}

// UserProperty adds a user property to the PUBACK.
func (b *PubackBuilder) UserProperty(key, value string) *PubackBuilder {
	b.checkMutable()
	b.userProps = append(b.userProps, StringPair{Key: key, Value: value})
	return b
}

// Build freezes the builder and returns the PUBACK packet.
func (b *PubackBuilder) Build() *PubackPacket {
	b.checkMutable()
	b.built = true
	return &PubackPacket{
		PacketID:   b.publish.PacketID,
		ReasonCode: b.reasonCode,
		Props:      b.properties(),
	}
}
