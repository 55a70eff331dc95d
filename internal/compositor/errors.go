package compositor

import (
	"errors"
	"fmt"
)

// ErrClientDestroyed is returned when operating on a disconnected client
var ErrClientDestroyed = errors.New("client destroyed")

// ProtocolError is a client-visible protocol violation. Posting one sends
// wl_display.error and disconnects the offending client.
type ProtocolError struct {
	Object  uint32
	Code    uint32
	Message string
}

// NewProtocolError formats a protocol error against object.
func NewProtocolError(object, code uint32, format string, args ...any) *ProtocolError {
	return &ProtocolError{
		Object:  object,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %d, code %d: %s", e.Object, e.Code, e.Message)
}
