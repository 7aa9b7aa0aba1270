package transport

import (
	"net"
	"time"
)

// TCPTransport is a Transport backed by a plain TCP connection, used for
// controllers that expose their serial link over a network bridge.
type TCPTransport struct {
	conn net.Conn
	addr string
}

// DialTCP connects to addr ("host:port") with the given timeout.
func DialTCP(addr string, timeout time.Duration) (*TCPTransport, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, &Error{Op: "dial", Target: addr, Err: err}
	}
	return &TCPTransport{conn: conn, addr: addr}, nil
}

func (t *TCPTransport) Read(b []byte) (int, error) {
	n, err := t.conn.Read(b)
	if err != nil {
		return n, &Error{Op: "read", Target: t.addr, Err: err}
	}
	return n, nil
}

func (t *TCPTransport) Write(b []byte) (int, error) {
	n, err := t.conn.Write(b)
	if err != nil {
		return n, &Error{Op: "write", Target: t.addr, Err: err}
	}
	return n, nil
}

func (t *TCPTransport) Close() error { return t.conn.Close() }

func (t *TCPTransport) SetReadDeadline(tm time.Time) error  { return t.conn.SetReadDeadline(tm) }
func (t *TCPTransport) SetWriteDeadline(tm time.Time) error { return t.conn.SetWriteDeadline(tm) }
