// Package bridge relays a serial link through a websocket server for
// sites that keep the physical controller attached to a different host
// than carverad runs on. Grounded on the teacher's spjs/spjs.go
// (reconnect loop, buffered outgoing channel), simplified from its
// JSON-framed multi-port protocol down to a raw byte relay since
// carverad only ever bridges one controller per process.
package bridge

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a transport.Transport backed by a websocket connection to a
// bridge server. Reconnects automatically on read/write failure.
type Client struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn

	incoming chan []byte
	closed   chan struct{}
	buf      []byte
}

// New dials url and starts the read/reconnect loop.
func New(url string) *Client {
	c := &Client{
		url:      url,
		incoming: make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		default:
		}
		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			time.Sleep(2 * time.Second)
			continue
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			select {
			case c.incoming <- data:
			case <-c.closed:
				return
			}
		}
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}
}

// Read returns bytes relayed from the bridge, blocking until at least
// one message has arrived.
func (c *Client) Read(p []byte) (int, error) {
	if len(c.buf) == 0 {
		select {
		case data := <-c.incoming:
			c.buf = data
		case <-c.closed:
			return 0, errors.New("bridge: closed")
		}
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

// Write relays p to the bridge server as one websocket text message.
func (c *Client) Write(p []byte) (int, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return 0, errors.New("bridge: not connected")
	}
	if err := conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Client) Close() error {
	close(c.closed)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SetReadDeadline and SetWriteDeadline are no-ops: the underlying
// websocket connection has its own ping/pong liveness handling, and a
// bridged link has no serial-style per-call deadline concept.
func (c *Client) SetReadDeadline(t time.Time) error  { return nil }
func (c *Client) SetWriteDeadline(t time.Time) error { return nil }
