package worker

import (
	"testing"
	"time"

	"github.com/relief-render/reliefrender/internal/exchange"
	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/netconn"
	"github.com/relief-render/reliefrender/internal/store"
	"github.com/relief-render/reliefrender/internal/wire"
)

// TestFillLocalHalosFillsExactCells builds two adjacent local tiles with
// distinct, known source values and checks fillLocalHalos lands the exact
// expected band in each tile's halo: south's N halo must equal north's
// bottom mapFrame source rows, and north's S halo must equal south's top
// mapFrame source rows. Using the same fill pattern on both tiles (as
// TestFillLocalHalosResolvesAdjacentTiles does) can't distinguish a correct
// fill from one that silently reads the wrong rectangle; distinct values
// can.
func TestFillLocalHalosFillsExactCells(t *testing.T) {
	height, width, mapFrame := 4, 4, 2

	southMatrix := store.NewMatrix(height, width, mapFrame)
	northMatrix := store.NewMatrix(height, width, mapFrame)
	for i := range southMatrix.Cells {
		southMatrix.Cells[i] = int16(i + 1)
	}
	for i := range northMatrix.Cells {
		northMatrix.Cells[i] = int16(5000 + i)
	}
	south := store.NewTile(1, "", geom.Bounds{North: 0, South: -1, East: 1, West: 0}, 1, 1, southMatrix)
	north := store.NewTile(2, "", geom.Bounds{North: 1, South: 0, East: 1, West: 0}, 1, 1, northMatrix)
	for _, q := range wire.AllQuadrants {
		south.SetHalo(q, store.HaloUnset)
		north.SetHalo(q, store.HaloUnset)
	}

	o := NewOrchestrator(nil, nil, nullSink{}, "", "")
	o.registry.AddLocal(south)
	o.registry.AddLocal(north)

	o.fillLocalHalos()

	wantSouthHalo := north.ReadEdge(wire.QuadrantS) // north's bottom source rows
	south.WithRLock(func(m *store.Matrix) {
		for row := -mapFrame; row < 0; row++ {
			for col := 0; col < width; col++ {
				if got := m.At(row, col); got != wantSouthHalo[(row+mapFrame)*width+col] {
					t.Errorf("south N halo At(%d,%d) = %d, want %d", row, col, got, wantSouthHalo[(row+mapFrame)*width+col])
				}
			}
		}
	})

	wantNorthHalo := south.ReadEdge(wire.QuadrantN) // south's top source rows
	north.WithRLock(func(m *store.Matrix) {
		for row := 0; row < mapFrame; row++ {
			for col := 0; col < width; col++ {
				if got := m.At(height+row, col); got != wantNorthHalo[row*width+col] {
					t.Errorf("north S halo At(%d,%d) = %d, want %d", height+row, col, got, wantNorthHalo[row*width+col])
				}
			}
		}
	})
}

// TestRequestRemoteHalosFillsFromRealPeer runs a second, real peer listener
// standing in for another worker's orchestrator and confirms
// requestRemoteHalos dials it, sends a ReqEdge, and the peer's SendEdge
// reply lands in the requesting tile via handleSendEdge.
func TestRequestRemoteHalosFillsFromRealPeer(t *testing.T) {
	ownerTile := newOrchTile(7, geom.Bounds{North: 0, South: -1, East: 1, West: 0}) // south of requester
	peerSrv, err := exchange.Listen("127.0.0.1:0", exchange.Handlers{
		OnReqEdge: func(from *netconn.Conn, msg wire.ReqEdge) {
			_ = exchange.ReplyEdge(from, ownerTile, msg)
		},
	})
	if err != nil {
		t.Fatalf("peer listen: %v", err)
	}
	defer peerSrv.Close()
	go peerSrv.Serve()

	o := NewOrchestrator(nil, nil, nullSink{}, "", "")
	o.peerAddrs = []string{peerSrv.Addr().String()}

	requester := newOrchTile(9, geom.Bounds{North: 1, South: 0, East: 1, West: 0})
	o.registry.AddLocal(requester)
	o.registry.SetRemote(store.RemoteKey{WorkerIndex: 0, JobID: 7}, ownerTile.Bounds, wire.StatusLoaded)

	if err := o.requestRemoteHalos(); err != nil {
		t.Fatalf("requestRemoteHalos: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for requester.Halo(wire.QuadrantS) != store.HaloFilled {
		if time.Now().After(deadline) {
			t.Fatalf("requester S quadrant never filled, state=%v", requester.Halo(wire.QuadrantS))
		}
		time.Sleep(time.Millisecond)
	}

	want := ownerTile.ReadEdge(wire.QuadrantN)
	got := requester.ReadEdge(wire.QuadrantS)
	if len(got) != len(want) {
		t.Fatalf("filled cell count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cell %d = %d, want %d", i, got[i], want[i])
		}
	}
}
