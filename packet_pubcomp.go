//nolint:dupl // MQTT v5.0 requires separate packet types with same structure
package mqttflow

import "io"

// PubcompPacket represents an MQTT PUBCOMP packet.
// MQTT v5.0 spec: Section 3.7
type PubcompPacket struct {
	PacketID   uint16
	ReasonCode ReasonCode
	Props      Properties
}

// Type returns the packet type.
func (p *PubcompPacket) Type() PacketType { return PacketPUBCOMP }

// Properties returns a pointer to the packet's properties.
func (p *PubcompPacket) Properties() *Properties { return &p.Props }

// Encode writes the packet to the writer.
func (p *PubcompPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return encodeAck(w, PacketPUBCOMP, 0x00, &ackPacket{
		PacketID:   p.PacketID,
		ReasonCode: p.ReasonCode,
		Props:      p.Props,
	})
}

// Decode reads the packet from the reader.
func (p *PubcompPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPUBCOMP {
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
func (p *PubcompPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}
	if !p.ReasonCode.ValidForPUBCOMP() {
		return ErrInvalidReasonCode
	}
	return nil
}

// PubcompBuilder builds the PUBCOMP answering a received PUBREL. An incoming
// QoS 2 interceptor may set the reason code, reason string and user
// properties before the packet is built.
type PubcompBuilder struct {
	ackBuilder
	pubrel *PubrelPacket
}

func newPubcompBuilder(pubrel *PubrelPacket) *PubcompBuilder {
	return &PubcompBuilder{
		ackBuilder: ackBuilder{reasonCode: ReasonSuccess},
		pubrel:     pubrel,
	}
}

// Pubrel returns the PUBREL being answered.
func (b *PubcompBuilder) Pubrel() *PubrelPacket { return b.pubrel }

// ReasonCode sets the PUBCOMP reason code.
func (b *PubcompBuilder) ReasonCode(code ReasonCode) *PubcompBuilder {
	b.checkMutable()
	b.reasonCode = code
	return b
}

// ReasonString sets the PUBCOMP reason string.
func (b *PubcompBuilder) ReasonString(reason string) *PubcompBuilder {
	b.checkMutable()
	b.reasonString = reason
	return b
}

// UserProperty adds a user property to the PUBCOMP.
func (b *PubcompBuilder) UserProperty(key, value string) *PubcompBuilder {
	b.checkMutable()
	b.userProps = append(b.userProps, StringPair{Key: key, Value: value})
	return b
}

// Build freezes the builder and returns the PUBCOMP packet.
func (b *PubcompBuilder) Build() *PubcompPacket {
	b.checkMutable()
	b.built = true
	return &PubcompPacket{
		PacketID:   b.pubrel.PacketID,
		ReasonCode: b.reasonCode,
		Props:      b.properties(),
	}
}
