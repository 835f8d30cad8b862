package game

import (
	"errors"
	"net"
	"os"
)

// Failure kinds. Every error returned by the clients matches exactly one of
// them (or protocol.ErrFormat for a bad IP literal) under errors.Is.
var (
	ErrTimeout   = errors.New("timeout")
	ErrTransport = errors.New("transport error")
	ErrProtocol  = errors.New("protocol error")
)

// Error is a classified client failure.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// classifyNet sorts a socket error into ErrTimeout or ErrTransport.
func classifyNet(err error) *Error {
	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: ErrTimeout, Err: err}
	}

	return &Error{Kind: ErrTransport, Err: err}
}

func protocolError(err error) *Error {
	return &Error{Kind: ErrProtocol, Err: err}
}
