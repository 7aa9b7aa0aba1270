// Package transport implements component A: a byte-stream abstraction
// over the physical link to a controller, with no framing of its own.
// Higher layers (session, xmodem) own line/packet framing.
package transport

import (
	"fmt"
	"io"
	"time"
)

// Transport is a deadline-aware, closable byte stream. It never
// interprets the bytes crossing it.
type Transport interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Error wraps a transport-layer failure with the operation and the
// address/device involved, mirroring spec.md's TransportError taxonomy.
type Error struct {
	Op     string
	Target string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
