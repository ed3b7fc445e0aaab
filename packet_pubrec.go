//nolint:dupl // MQTT v5.0 requires separate packet types with same structure
package mqttflow

import "io"

// PubrecPacket represents an MQTT PUBREC packet.
// MQTT v5.0 spec: Section 3.5
type PubrecPacket struct {
	PacketID   uint16
	ReasonCode ReasonCode
	Props      Properties
}

// Type returns the packet type.
func (p *PubrecPacket) Type() PacketType { return PacketPUBREC }

// Properties returns a pointer to the packet's properties.
func (p *PubrecPacket) Properties() *Properties { return &p.Props }

// Encode writes the packet to the writer.
func (p *PubrecPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return encodeAck(w, PacketPUBREC, 0x00, &ackPacket{
		PacketID:   p.PacketID,
		ReasonCode: p.ReasonCode,
		Props:      p.Props,
	})
}

// Decode reads the packet from the reader.
func (p *PubrecPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPUBREC {
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
func (p *PubrecPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}
	if !p.ReasonCode.ValidForPUBREC() {
		return ErrInvalidReasonCode
	}
	return nil
}

// PubrecBuilder builds the PUBREC answering a received QoS 2 PUBLISH. An
// incoming QoS 2 interceptor may set the reason code, reason string and user
// properties before the packet is built.
type PubrecBuilder struct {
	ackBuilder
	publish *PublishPacket
}

func newPubrecBuilder(publish *PublishPacket) *PubrecBuilder {
	return &PubrecBuilder{
		ackBuilder: ackBuilder{reasonCode: ReasonSuccess},
		publish:    publish,
	}
}

// Publish returns the PUBLISH being acknowledged.
func (b *PubrecBuilder) Publish() *PublishPacket { return b.publish }

// ReasonCode sets the PUBREC reason code.
func (b *PubrecBuilder) ReasonCode(code ReasonCode) *PubrecBuilder {
	b.checkMutable()
	b.reasonCode = code
	return b
}

// ReasonString sets the PUBREC reason string.
func (b *PubrecBuilder) ReasonString(reason string) *PubrecBuilder {
	b.checkMutable()
	b.reasonString = reason
	return b
}

// UserProperty adds a user property to the PUBREC.
func (b *PubrecBuilder) UserProperty(key, value string) *PubrecBuilder {
	b.checkMutable()
	b.userProps = append(b.userProps, StringPair{Key: key, Value: value})
	return b
}

// Build freezes the builder and returns the PUBREC packet.
func (b *PubrecBuilder) Build() *PubrecPacket {
	b.checkMutable()
	b.built = true
	return &PubrecPacket{
		PacketID:   b.publish.PacketID,
		ReasonCode: b.reasonCode,
		Props:      b.properties(),
	}
}
