// Package exchange implements the peer-to-peer halo exchange link: each
// worker listens for connections from every other worker and answers
// ReqEdge with SendEdge, while also broadcasting its own StatusChange and
// MinMax frames out over the connections it dials.
package exchange

import (
	"net"

	"github.com/pkg/errors"
	"github.com/relief-render/reliefrender/internal/netconn"
	"github.com/relief-render/reliefrender/internal/wire"
)

// Handlers are the callbacks a listener or dialed connection invokes for
// each frame type it reads. Any field left nil silently ignores that
// frame type.
type Handlers struct {
	OnStatusChange func(from *netconn.Conn, msg wire.StatusChange)
	OnReqEdge      func(from *netconn.Conn, msg wire.ReqEdge)
	OnSendEdge     func(from *netconn.Conn, msg wire.SendEdge)
	OnMinMax       func(from *netconn.Conn, msg wire.MinMax)
}

// Server accepts inbound peer connections and dispatches frames on each to
// Handlers, one goroutine per connection for the server's lifetime.
type Server struct {
	ln net.Listener
	h  Handlers
}

// Listen starts accepting peer connections on addr (empty host for any
// interface, ":0" for an ephemeral port in tests).
func Listen(addr string, h Handlers) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "listen for peer exchange")
	}
	return &Server{ln: ln, h: h}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.ln.Close()
}

// Serve runs the accept loop until the listener is closed. Each accepted
// connection gets its own goroutine reading frames until the peer closes
// or sends something malformed.
func (s *Server) Serve() error {
	for {
		raw, err := s.ln.Accept()
		if err != nil {
			return err
		}
		c := netconn.New(raw)
		go ServeConn(c, s.h)
	}
}

// Dial opens an outbound connection to a peer and starts its read loop
// under the same Handlers a listener would use — the halo exchange link
// is symmetric, so either side may originate a ReqEdge.
func Dial(addr string, h Handlers) (*netconn.Conn, error) {
	raw, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial peer %s", addr)
	}
	c := netconn.New(raw)
	go ServeConn(c, h)
	return c, nil
}

// ServeConn reads frames from c until error or EOF, dispatching each to
// the matching Handlers callback. It returns (rather than logs) so the
// caller decides how a dead peer connection is reported.
func ServeConn(c *netconn.Conn, h Handlers) error {
	for {
		typ, payload, err := c.ReadFrame()
		if err != nil {
			return err
		}
		switch typ {
		case wire.TypeStatusChange:
			msg, err := wire.DecodeStatusChange(payload)
			if err != nil {
				return err
			}
			if h.OnStatusChange != nil {
				h.OnStatusChange(c, msg)
			}
		case wire.TypeReqEdge:
			msg, err := wire.DecodeReqEdge(payload)
			if err != nil {
				return err
			}
			if h.OnReqEdge != nil {
				h.OnReqEdge(c, msg)
			}
		case wire.TypeSendEdge:
			msg, err := wire.DecodeSendEdge(payload)
			if err != nil {
				return err
			}
			if h.OnSendEdge != nil {
				h.OnSendEdge(c, msg)
			}
		case wire.TypeMinMax:
			msg, err := wire.DecodeMinMax(payload)
			if err != nil {
				return err
			}
			if h.OnMinMax != nil {
				h.OnMinMax(c, msg)
			}
		default:
			// Frame types outside the peer-exchange set (Init/Nodes/Tiff/
			// Png/UiUpdate) never arrive on this link; ignore rather than
			// fail a connection that might still carry valid frames.
		}
	}
}
