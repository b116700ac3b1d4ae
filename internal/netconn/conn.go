// Package netconn wraps a net.Conn with the framing and send-serialization
// every peer-to-peer and primary-worker link in this system needs: reads
// go through internal/wire.ReadFrame, writes are serialized through one
// mutex per connection so two goroutines on the same socket never
// interleave a frame (SPEC_FULL.md §5's "per-socket send-lock").
package netconn

import (
	"net"
	"sync"

	"github.com/relief-render/reliefrender/internal/wire"
)

// Conn is a framed, write-serialized connection. The zero value is not
// usable; construct with New.
type Conn struct {
	raw net.Conn

	sendMu sync.Mutex
}

// New wraps an established connection.
func New(raw net.Conn) *Conn {
	return &Conn{raw: raw}
}

// Send writes one frame, holding the send-lock for the duration. Callers
// must never hold a tile or registry lock when calling Send — the fixed
// lock-acquisition order places the send-lock innermost.
func (c *Conn) Send(t wire.Type, payload []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return wire.WriteFrame(c.raw, t, payload)
}

// ReadFrame reads and validates one frame. Unlike Send, reads are not
// serialized here: each connection is owned by exactly one reader
// goroutine for its lifetime (SPEC_FULL.md §4.4/§4.5).
func (c *Conn) ReadFrame() (wire.Type, []byte, error) {
	return wire.ReadFrame(c.raw)
}

// RemoteAddr returns the peer address of the underlying connection.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}
