package mqttflow

import (
	"errors"
	"io"
)

// PropertyID represents an MQTT v5.0 property identifier.
type PropertyID byte

// Property identifiers used on the client receive path.
// MQTT v5.0 spec: Section 2.2.2.2
const (
	PropPayloadFormatIndicator PropertyID = 0x01
	PropMessageExpiryInterval  PropertyID = 0x02
	PropContentType            PropertyID = 0x03
	PropResponseTopic          PropertyID = 0x08
	PropCorrelationData        PropertyID = 0x09
	PropSubscriptionIdentifier PropertyID = 0x0B
	PropSessionExpiryInterval  PropertyID = 0x11
	PropServerReference        PropertyID = 0x1C
	PropReasonString           PropertyID = 0x1F
	PropReceiveMaximum         PropertyID = 0x21
	PropTopicAlias             PropertyID = 0x23
	PropUserProperty           PropertyID = 0x26
)

// PropertyType represents the data type of a property value.
type PropertyType byte

const (
	PropTypeByte        PropertyType = 0
	PropTypeTwoByteInt  PropertyType = 1
	PropTypeFourByteInt PropertyType = 2
	PropTypeVarInt      PropertyType = 3
	PropTypeString      PropertyType = 4
	PropTypeBinary      PropertyType = 5
	PropTypeStringPair  PropertyType = 6
)

// propertyTypeMap maps property IDs to their data types.
var propertyTypeMap = map[PropertyID]PropertyType{
	PropPayloadFormatIndicator: PropTypeByte,
	PropMessageExpiryInterval:  PropTypeFourByteInt,
	PropContentType:            PropTypeString,
	PropResponseTopic:          PropTypeString,
	PropCorrelationData:        PropTypeBinary,
	PropSubscriptionIdentifier: PropTypeVarInt,
	PropSessionExpiryInterval:  PropTypeFourByteInt,
	PropServerReference:        PropTypeString,
	PropReasonString:           PropTypeString,
	PropReceiveMaximum:         PropTypeTwoByteInt,
	PropTopicAlias:             PropTypeTwoByteInt,
	PropUserProperty:           PropTypeStringPair,
}

// PropertyContext identifies the packet type a property set belongs to, for
// validity checks during encode/decode.
type PropertyContext int

const (
	PropCtxPUBLISH PropertyContext = iota
	PropCtxAck                     // PUBACK, PUBREC, PUBREL, PUBCOMP
	PropCtxDISCONNECT
)

// validProperties lists the property IDs allowed per context.
// MQTT v5.0 spec: Table 2-4
var validProperties = map[PropertyContext]map[PropertyID]bool{
	PropCtxPUBLISH: {
		PropPayloadFormatIndicator: true,
		PropMessageExpiryInterval:  true,
		PropContentType:            true,
		PropResponseTopic:          true,
		PropCorrelationData:        true,
		PropSubscriptionIdentifier: true,
		PropTopicAlias:             true,
		PropUserProperty:           true,
	},
	PropCtxAck: {
		PropReasonString: true,
		PropUserProperty: true,
	},
	PropCtxDISCONNECT: {
		PropSessionExpiryInterval: true,
		PropReasonString:          true,
		PropServerReference:       true,
		PropUserProperty:          true,
	},
}

// Property errors.
var (
	ErrUnknownPropertyID  = errors.New("unknown property identifier")
	ErrPropertyNotAllowed = errors.New("property not allowed for packet type")
)

// Properties represents a collection of MQTT v5.0 properties.
type Properties struct {
	props []property
}

type property struct {
	id    PropertyID
	value any
}

// Len returns the number of properties in the collection.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.props)
}

// Has returns true if the property with the given ID exists.
func (p *Properties) Has(id PropertyID) bool {
	if p == nil {
		return false
	}
	for i := range p.props {
		if p.props[i].id == id {
			return true
		}
	}
	return false
}

// Get returns the value of the property with the given ID.
// Returns nil if the property does not exist.
func (p *Properties) Get(id PropertyID) any {
	if p == nil {
		return nil
	}
	for i := range p.props {
		if p.props[i].id == id {
			return p.props[i].value
		}
	}
	return nil
}

// Set sets a property value, replacing any existing value.
func (p *Properties) Set(id PropertyID, value any) {
	if p == nil {
		return
	}
	for i := range p.props {
		if p.props[i].id == id {
			p.props[i].value = value
			return
		}
	}
	p.props = append(p.props, property{id: id, value: value})
}

// Add adds a property value. Use this for properties that can appear
// multiple times (User Property, Subscription Identifier).
func (p *Properties) Add(id PropertyID, value any) {
	if p == nil {
		return
	}
	p.props = append(p.props, property{id: id, value: value})
}

// Delete removes all properties with the given ID.
func (p *Properties) Delete(id PropertyID) {
	if p == nil {
		return
	}
	n := 0
	for i := range p.props {
		if p.props[i].id != id {
			p.props[n] = p.props[i]
			n++
		}
	}
	p.props = p.props[:n]
}

// GetByte returns the byte value of a property, or 0 if not found.
func (p *Properties) GetByte(id PropertyID) byte {
	if b, ok := p.Get(id).(byte); ok {
		return b
	}
	return 0
}

// GetUint16 returns the uint16 value of a property, or 0 if not found.
func (p *Properties) GetUint16(id PropertyID) uint16 {
	if u, ok := p.Get(id).(uint16); ok {
		return u
	}
	return 0
}

// GetUint32 returns the uint32 value of a property, or 0 if not found.
func (p *Properties) GetUint32(id PropertyID) uint32 {
	if u, ok := p.Get(id).(uint32); ok {
		return u
	}
	return 0
}

// GetString returns the string value of a property, or "" if not found.
func (p *Properties) GetString(id PropertyID) string {
	if s, ok := p.Get(id).(string); ok {
		return s
	}
	return ""
}

// GetBinary returns the binary value of a property, or nil if not found.
func (p *Properties) GetBinary(id PropertyID) []byte {
	if b, ok := p.Get(id).([]byte); ok {
		return b
	}
	return nil
}

// GetAllStringPairs returns all string pair values for the given property ID.
func (p *Properties) GetAllStringPairs(id PropertyID) []StringPair {
	if p == nil {
		return nil
	}
	var result []StringPair
	for i := range p.props {
		if p.props[i].id == id {
			if sp, ok := p.props[i].value.(StringPair); ok {
				result = append(result, sp)
			}
		}
	}
	return result
}

// GetAllVarInts returns all variable integer values for the given property ID.
func (p *Properties) GetAllVarInts(id PropertyID) []uint32 {
	if p == nil {
		return nil
	}
	var result []uint32
	for i := range p.props {
		if p.props[i].id == id {
			if u, ok := p.props[i].value.(uint32); ok {
				result = append(result, u)
			}
		}
	}
	return result
}

// ValidateFor checks that every property is allowed in the given context.
func (p *Properties) ValidateFor(ctx PropertyContext) error {
	if p == nil {
		return nil
	}
	allowed := validProperties[ctx]
	for i := range p.props {
		if !allowed[p.props[i].id] {
			return ErrPropertyNotAllowed
		}
	}
	return nil
}

// Encode writes the properties to the writer, prefixed with their length as
// a variable byte integer. Returns the number of bytes written.
func (p *Properties) Encode(w io.Writer) (int, error) {
	if p == nil || len(p.props) == 0 {
		return encodeVarint(w, 0)
	}

	n, err := encodeVarint(w, uint32(p.size()))
	if err != nil {
		return n, err
	}

	for i := range p.props {
		n2, err := encodeProperty(w, &p.props[i])
		n += n2
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

func encodeProperty(w io.Writer, prop *property) (int, error) {
	n, err := w.Write([]byte{byte(prop.id)})
	if err != nil {
		return n, err
	}

	var n2 int
	switch propertyTypeMap[prop.id] {
	case PropTypeByte:
		b, _ := prop.value.(byte)
		n2, err = w.Write([]byte{b})

	case PropTypeTwoByteInt:
		v, _ := prop.value.(uint16)
		n2, err = w.Write([]byte{byte(v >> 8), byte(v)})

	case PropTypeFourByteInt:
		v, _ := prop.value.(uint32)
		n2, err = w.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})

	case PropTypeVarInt:
		v, _ := prop.value.(uint32)
		n2, err = encodeVarint(w, v)

	case PropTypeString:
		s, _ := prop.value.(string)
		n2, err = encodeString(w, s)

	case PropTypeBinary:
		b, _ := prop.value.([]byte)
		n2, err = encodeBinary(w, b)

	case PropTypeStringPair:
		sp, _ := prop.value.(StringPair)
		n2, err = encodeStringPair(w, sp)
	}

	return n + n2, err
}

func (p *Properties) size() int {
	if p == nil {
		return 0
	}

	size := 0
	for i := range p.props {
		prop := &p.props[i]
		size++ // property ID

		switch propertyTypeMap[prop.id] {
		case PropTypeByte:
			size++
		case PropTypeTwoByteInt:
			size += 2
		case PropTypeFourByteInt:
			size += 4
		case PropTypeVarInt:
			v, _ := prop.value.(uint32)
			size += varintSize(v)
		case PropTypeString:
			s, _ := prop.value.(string)
			size += 2 + len(s)
		case PropTypeBinary:
			b, _ := prop.value.([]byte)
			size += 2 + len(b)
		case PropTypeStringPair:
			sp, _ := prop.value.(StringPair)
			size += 2 + len(sp.Key) + 2 + len(sp.Value)
		}
	}
	return size
}

// Decode reads properties from the reader.
// Returns the number of bytes read.
func (p *Properties) Decode(r io.Reader) (int, error) {
	length, n, err := decodeVarint(r)
	if err != nil {
		return n, err
	}

	remaining := int(length)
	for remaining > 0 {
		var idBuf [1]byte
		n2, err := io.ReadFull(r, idBuf[:])
		n += n2
		remaining -= n2
		if err != nil {
			return n, err
		}

		id := PropertyID(idBuf[0])
		propType, ok := propertyTypeMap[id]
		if !ok {
			return n, ErrUnknownPropertyID
		}

		var value any
		var n3 int

		switch propType {
		case PropTypeByte:
			var buf [1]byte
			n3, err = io.ReadFull(r, buf[:])
			value = buf[0]

		case PropTypeTwoByteInt:
			var buf [2]byte
			n3, err = io.ReadFull(r, buf[:])
			value = uint16(buf[0])<<8 | uint16(buf[1])

		case PropTypeFourByteInt:
			var buf [4]byte
			n3, err = io.ReadFull(r, buf[:])
			value = uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])

		case PropTypeVarInt:
			var v uint32
			v, n3, err = decodeVarint(r)
			value = v

		case PropTypeString:
			var s string
			s, n3, err = decodeString(r)
			value = s

		case PropTypeBinary:
			var b []byte
			b, n3, err = decodeBinary(r)
			value = b

		case PropTypeStringPair:
			var sp StringPair
			sp, n3, err = decodeStringPair(r)
			value = sp
		}

		n += n3
		remaining -= n3
		if err != nil {
			return n, err
		}

		p.props = append(p.props, property{id: id, value: value})
	}

	return n, nil
}
