package mqttflow

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishPacket(t *testing.T) {
	t.Run("round trip QoS 1 with DUP", func(t *testing.T) {
		src := &PublishPacket{
			Topic:    "sensors/temp",
			Payload:  []byte("21.5"),
			QoS:      QoS1,
			DUP:      true,
			PacketID: 42,
		}

		var buf bytes.Buffer
		_, err := src.Encode(&buf)
		require.NoError(t, err)

		var header FixedHeader
		_, err = header.Decode(&buf)
		require.NoError(t, err)

		var dst PublishPacket
		_, err = dst.Decode(&buf, header)
		require.NoError(t, err)

		assert.Equal(t, "sensors/temp", dst.Topic)
		assert.Equal(t, []byte("21.5"), dst.Payload)
		assert.Equal(t, QoS1, dst.QoS)
		assert.True(t, dst.DUP)
		assert.Equal(t, uint16(42), dst.PacketID)
	})

	t.Run("QoS 0 has no packet identifier", func(t *testing.T) {
		src := &PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS0}

		var buf bytes.Buffer
		_, err := src.Encode(&buf)
		require.NoError(t, err)

		var header FixedHeader
		_, err = header.Decode(&buf)
		require.NoError(t, err)

		var dst PublishPacket
		_, err = dst.Decode(&buf, header)
		require.NoError(t, err)
		assert.Equal(t, uint16(0), dst.PacketID)
	})

	t.Run("validate", func(t *testing.T) {
		assert.ErrorIs(t, (&PublishPacket{QoS: QoS1, PacketID: 1}).Validate(), ErrTopicNameEmpty)
		assert.ErrorIs(t, (&PublishPacket{Topic: "t", QoS: 3}).Validate(), ErrInvalidQoS)
		assert.ErrorIs(t, (&PublishPacket{Topic: "t", QoS: QoS2}).Validate(), ErrPacketIDRequired)
	})

	t.Run("to message carries publish properties", func(t *testing.T) {
		pkt := &PublishPacket{
			Topic:    "req/1",
			Payload:  []byte("hi"),
			QoS:      QoS2,
			Retain:   true,
			PacketID: 3,
		}
		pkt.Props.Set(PropContentType, "text/plain")
		pkt.Props.Set(PropResponseTopic, "resp/1")
		pkt.Props.Set(PropMessageExpiryInterval, uint32(30))
		pkt.Props.Add(PropSubscriptionIdentifier, uint32(9))
		pkt.Props.Add(PropUserProperty, StringPair{Key: "k", Value: "v"})

		msg := pkt.ToMessage()
		assert.Equal(t, "req/1", msg.Topic)
		assert.Equal(t, QoS2, msg.QoS)
		assert.True(t, msg.Retain)
		assert.Equal(t, "text/plain", msg.ContentType)
		assert.Equal(t, "resp/1", msg.ResponseTopic)
		assert.Equal(t, uint32(30), msg.MessageExpiry)
		assert.Equal(t, []uint32{9}, msg.SubscriptionIdentifiers)
		require.Len(t, msg.UserProperties, 1)
		assert.Equal(t, "v", msg.UserProperties[0].Value)
	})
}

func TestReadPacket(t *testing.T) {
	t.Run("dispatches the receive-path packets", func(t *testing.T) {
		var buf bytes.Buffer

		_, err := (&PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS1, PacketID: 1}).Encode(&buf)
		require.NoError(t, err)
		_, err = (&PubrelPacket{PacketID: 1, ReasonCode: ReasonSuccess}).Encode(&buf)
		require.NoError(t, err)
		_, err = NewDisconnectPacket(ReasonProtocolError, "bad").Encode(&buf)
		require.NoError(t, err)

		pkt, err := ReadPacket(&buf)
		require.NoError(t, err)
		assert.IsType(t, &PublishPacket{}, pkt)

		pkt, err = ReadPacket(&buf)
		require.NoError(t, err)
		assert.IsType(t, &PubrelPacket{}, pkt)

		pkt, err = ReadPacket(&buf)
		require.NoError(t, err)
		require.IsType(t, &DisconnectPacket{}, pkt)
		assert.Equal(t, "bad", pkt.(*DisconnectPacket).ReasonString())
	})

	t.Run("unrecognized packets come back raw", func(t *testing.T) {
		// PINGRESP: type 13, no body
		buf := bytes.NewBuffer([]byte{0xD0, 0x00})

		pkt, err := ReadPacket(buf)
		require.NoError(t, err)
		raw, ok := pkt.(*RawPacket)
		require.True(t, ok)
		assert.Equal(t, PacketPINGRESP, raw.Type())
		assert.Empty(t, raw.Body)
	})

	t.Run("rejects QoS 3 publish flags", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{0x36, 0x00})

		_, err := ReadPacket(buf)
		assert.ErrorIs(t, err, ErrInvalidPacketFlags)
	})
}

func TestDisconnectPacket(t *testing.T) {
	t.Run("round trip with reason string", func(t *testing.T) {
		src := NewDisconnectPacket(ReasonReceiveMaxExceeded, "window exceeded")

		var buf bytes.Buffer
		_, err := src.Encode(&buf)
		require.NoError(t, err)

		var header FixedHeader
		_, err = header.Decode(&buf)
		require.NoError(t, err)

		var dst DisconnectPacket
		_, err = dst.Decode(&buf, header)
		require.NoError(t, err)

		assert.Equal(t, ReasonReceiveMaxExceeded, dst.ReasonCode)
		assert.Equal(t, "window exceeded", dst.ReasonString())
	})

	t.Run("empty body means normal disconnection", func(t *testing.T) {
		var dst DisconnectPacket
		_, err := dst.Decode(bytes.NewReader(nil), FixedHeader{
			PacketType:      PacketDISCONNECT,
			RemainingLength: 0,
		})
		require.NoError(t, err)
		assert.Equal(t, ReasonSuccess, dst.ReasonCode)
	})
}
