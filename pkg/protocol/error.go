package protocol

import (
	"fmt"

	fberrors "github.com/vango-dev/fibers/internal/errors"
)

// ErrorMessage reports a failed render pass to viewers.
type ErrorMessage struct {
	Code    string // Error code, e.g. "E010"
	Message string // Human-readable error message
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	if em.Code == "" {
		return em.Message
	}
	return fmt.Sprintf("%s: %s", em.Code, em.Message)
}

// Frame wraps the encoded message in a FrameError frame.
func (em *ErrorMessage) Frame() *Frame {
	return NewFrame(FrameError, EncodeErrorMessage(em))
}

// EncodeErrorMessage encodes an ErrorMessage payload.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteString(em.Code)
	e.WriteString(em.Message)
	return e.Bytes()
}

// DecodeErrorMessage decodes an ErrorMessage payload.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	code, err := d.ReadString()
	if err != nil {
		return nil, fberrors.New("E030").Wrap(err)
	}
	msg, err := d.ReadString()
	if err != nil {
		return nil, fberrors.New("E030").Wrap(err)
	}
	return &ErrorMessage{Code: code, Message: msg}, nil
}

// NewError builds an ErrorMessage from err, keeping the code of coded
// errors. It returns nil for a nil err.
func NewError(err error) *ErrorMessage {
	if err == nil {
		return nil
	}
	return &ErrorMessage{
		Code:    fberrors.FromError(err, "").Code,
		Message: err.Error(),
	}
}
