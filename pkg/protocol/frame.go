package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 5

	// MaxPayloadSize is the largest payload accepted (16MB).
	MaxPayloadSize = 16 << 20
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameSnapshot FrameType = 0x01 // Whole tree for a new viewer
	FramePatches  FrameType = 0x02 // One committed batch
	FrameError    FrameType = 0x05 // Failed render pass
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameSnapshot:
		return "Snapshot"
	case FramePatches:
		return "Patches"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a typed, length-prefixed message.
//
// Wire format (5 bytes header + variable payload):
//
//	┌─────────────┬───────────────────────────────┐
//	│ Frame Type  │ Payload Length                │
//	│ (1 byte)    │ (4 bytes, big-endian)         │
//	└─────────────┴───────────────────────────────┘
type Frame struct {
	Type    FrameType
	Payload []byte
}

// NewFrame creates a frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode returns the frame including its header.
func (f *Frame) Encode() []byte {
	e := &Encoder{buf: make([]byte, 0, FrameHeaderSize+len(f.Payload))}
	e.WriteByte(byte(f.Type))
	e.WriteUint32(uint32(len(f.Payload)))
	e.buf = append(e.buf, f.Payload...)
	return e.buf
}

// DecodeFrame decodes one complete frame. Trailing bytes are an error.
func DecodeFrame(data []byte) (*Frame, error) {
	d := NewDecoder(data)
	f, err := readFrameHeader(d)
	if err != nil {
		return nil, err
	}
	if d.Remaining() != len(f.Payload) {
		if d.Remaining() < len(f.Payload) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, ErrFrameTooLarge
	}
	copy(f.Payload, data[FrameHeaderSize:])
	return f, nil
}

// readFrameHeader reads the header and allocates the payload.
func readFrameHeader(d *Decoder) (*Frame, error) {
	ft, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	length, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if length > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	switch FrameType(ft) {
	case FrameSnapshot, FramePatches, FrameError:
	default:
		return nil, ErrInvalidFrameType
	}
	return &Frame{Type: FrameType(ft), Payload: make([]byte, length)}, nil
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	f, err := readFrameHeader(NewDecoder(header))
	if err != nil {
		return nil, err
	}
	if len(f.Payload) > 0 {
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteFrame writes f to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
