package protocol

import (
	"errors"
	"fmt"
)

// Value type tags.
const (
	valueNil    byte = 0x00
	valueString byte = 0x01
	valueInt    byte = 0x02
	valueFloat  byte = 0x03
	valueBool   byte = 0x04
)

// ErrInvalidValue is returned when decoding an unknown value tag.
var ErrInvalidValue = errors.New("protocol: invalid value tag")

// writeValue encodes a prop value. Integers travel as int64 (unsigned values
// above MaxInt64 as strings), floats as float64 and anything else that is not
// a string, bool or nil as its fmt.Sprint form.
func writeValue(e *Encoder, v any) {
	switch val := v.(type) {
	case nil:
		e.WriteByte(valueNil)
	case string:
		e.WriteByte(valueString)
		e.WriteString(val)
	case bool:
		e.WriteByte(valueBool)
		e.WriteBool(val)
	case int:
		writeInt(e, int64(val))
	case int8:
		writeInt(e, int64(val))
	case int16:
		writeInt(e, int64(val))
	case int32:
		writeInt(e, int64(val))
	case int64:
		writeInt(e, val)
	case uint:
		writeUint(e, uint64(val))
	case uint8:
		writeInt(e, int64(val))
	case uint16:
		writeInt(e, int64(val))
	case uint32:
		writeInt(e, int64(val))
	case uint64:
		writeUint(e, val)
	case float32:
		e.WriteByte(valueFloat)
		e.WriteFloat64(float64(val))
	case float64:
		e.WriteByte(valueFloat)
		e.WriteFloat64(val)
	default:
		e.WriteByte(valueString)
		e.WriteString(fmt.Sprint(val))
	}
}

func writeInt(e *Encoder, v int64) {
	e.WriteByte(valueInt)
	e.WriteSvarint(v)
}

func writeUint(e *Encoder, v uint64) {
	if v > 1<<63-1 {
		e.WriteByte(valueString)
		e.WriteString(fmt.Sprint(v))
		return
	}
	writeInt(e, int64(v))
}

func readValue(d *Decoder) (any, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case valueNil:
		return nil, nil
	case valueString:
		return d.ReadString()
	case valueInt:
		return d.ReadSvarint()
	case valueFloat:
		return d.ReadFloat64()
	case valueBool:
		return d.ReadBool()
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidValue, tag)
	}
}
