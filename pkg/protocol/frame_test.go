package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameEncodeDecode(t *testing.T) {
	f := NewFrame(FramePatches, []byte{1, 2, 3})
	data := f.Encode()

	want := []byte{0x02, 0, 0, 0, 3, 1, 2, 3}
	if !bytes.Equal(data, want) {
		t.Fatalf("Encode() = %x, want %x", data, want)
	}

	got, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame() error: %v", err)
	}
	if got.Type != FramePatches || !bytes.Equal(got.Payload, f.Payload) {
		t.Errorf("DecodeFrame() = %+v", got)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0x02, 0}, io.ErrUnexpectedEOF},
		{"short payload", []byte{0x02, 0, 0, 0, 4, 1}, io.ErrUnexpectedEOF},
		{"trailing bytes", []byte{0x02, 0, 0, 0, 1, 1, 2}, ErrFrameTooLarge},
		{"unknown type", []byte{0x7f, 0, 0, 0, 0}, ErrInvalidFrameType},
		{"oversized", []byte{0x02, 0xff, 0xff, 0xff, 0xff}, ErrFrameTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrame(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("DecodeFrame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	frames := []*Frame{
		NewFrame(FrameSnapshot, []byte("snap")),
		NewFrame(FramePatches, nil),
		NewFrame(FrameError, []byte("err")),
	}
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame() error: %v", err)
		}
	}
	for i, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame() %d error: %v", i, err)
		}
		if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("frame %d = %+v, want %+v", i, got, want)
		}
	}
	if _, err := ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Errorf("ReadFrame() at end = %v, want io.EOF", err)
	}
}

func TestFrameTypeString(t *testing.T) {
	if FrameSnapshot.String() != "Snapshot" || FrameType(9).String() != "Unknown" {
		t.Error("unexpected FrameType strings")
	}
}
