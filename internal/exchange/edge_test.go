package exchange

import (
	"net"
	"testing"
	"time"

	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/netconn"
	"github.com/relief-render/reliefrender/internal/store"
	"github.com/relief-render/reliefrender/internal/wire"
)

func newPairedTiles(t *testing.T) (north, south *store.Tile) {
	t.Helper()
	bounds := geom.Bounds{North: 11, South: 10, East: 21, West: 20}
	northMatrix := store.NewMatrix(4, 4, 2)
	southMatrix := store.NewMatrix(4, 4, 2)
	for i := range northMatrix.Cells {
		northMatrix.Cells[i] = int16(i + 1)
	}
	for i := range southMatrix.Cells {
		southMatrix.Cells[i] = int16(2000 + i)
	}
	north = store.NewTile(0, "north.tif", bounds, 0.01, 0.01, northMatrix)
	south = store.NewTile(1, "south.tif", bounds, 0.01, 0.01, southMatrix)
	return north, south
}

// TestRequestReplyFillsOppositeQuadrant drives a full ReqEdge/SendEdge
// round trip over net.Pipe between a requester that needs its N halo and
// an owner tile sitting to its north, verifying the owner answers with
// its own S band and the requester lands that data in its N slot.
func TestRequestReplyFillsOppositeQuadrant(t *testing.T) {
	requesterTile, ownerTile := newPairedTiles(t)

	requesterSide, ownerSide := net.Pipe()
	defer requesterSide.Close()
	defer ownerSide.Close()

	requesterConn := netconn.New(requesterSide)
	ownerConn := netconn.New(ownerSide)

	filled := make(chan struct{}, 1)
	requesterHandlers := Handlers{
		OnSendEdge: func(_ *netconn.Conn, msg wire.SendEdge) {
			ApplySendEdge(requesterTile, msg)
			filled <- struct{}{}
		},
	}
	ownerHandlers := Handlers{
		OnReqEdge: func(c *netconn.Conn, msg wire.ReqEdge) {
			if err := ReplyEdge(c, ownerTile, msg); err != nil {
				t.Errorf("ReplyEdge: %v", err)
			}
		},
	}
	go ServeConn(requesterConn, requesterHandlers)
	go ServeConn(ownerConn, ownerHandlers)

	requesterTile.SetHalo(wire.QuadrantN, store.HaloRequested)
	if err := RequestEdge(requesterConn, wire.QuadrantN, requesterTile.JobID, ownerTile.JobID); err != nil {
		t.Fatalf("RequestEdge: %v", err)
	}

	select {
	case <-filled:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SendEdge reply")
	}

	if requesterTile.Halo(wire.QuadrantN) != store.HaloFilled {
		t.Fatalf("requester N halo = %v, want Filled", requesterTile.Halo(wire.QuadrantN))
	}

	// owner.ReadEdge(S) is the owner's real source data (its bottom mapFrame
	// rows); it must land in the requester's N halo margin, not its N
	// source edge, which ReadEdge(N) would report and which must stay
	// exactly what it was before the reply arrived.
	want := ownerTile.ReadEdge(wire.QuadrantS)
	requesterTile.WithRLock(func(m *store.Matrix) {
		for row := -2; row < 0; row++ {
			for col := 0; col < 4; col++ {
				if got := m.At(row, col); got != want[(row+2)*4+col] {
					t.Fatalf("requester N halo At(%d,%d) = %d, want owner's S band value %d", row, col, got, want[(row+2)*4+col])
				}
			}
		}
	})
	if gotSource := requesterTile.ReadEdge(wire.QuadrantN); len(gotSource) != len(want) {
		t.Fatalf("requester N source edge length changed: got %d, want %d", len(gotSource), len(want))
	}
}

func TestServerAcceptsAndDispatches(t *testing.T) {
	received := make(chan wire.MinMax, 1)
	srv, err := Listen("127.0.0.1:0", Handlers{
		OnMinMax: func(_ *netconn.Conn, msg wire.MinMax) {
			received <- msg
		},
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()
	go srv.Serve()

	client, err := Dial(srv.Addr().String(), Handlers{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	msg := wire.MinMax{Min: -30, Max: 4200}
	if err := client.Send(wire.TypeMinMax, msg.Encode()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-received:
		if got != msg {
			t.Fatalf("got %+v, want %+v", got, msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched MinMax")
	}
}
