package exchange

import (
	"github.com/relief-render/reliefrender/internal/netconn"
	"github.com/relief-render/reliefrender/internal/store"
	"github.com/relief-render/reliefrender/internal/wire"
)

// RequestEdge asks a peer for quadrant q of its tile requestedJobID, on
// behalf of the local tile requestingJobID. The caller must have already
// marked that quadrant HaloRequested before calling, per spec.md §8's
// monotone halo-state rule (Unset -> Requested happens once, under the
// tile's own lock, before the request is sent).
func RequestEdge(conn *netconn.Conn, q wire.Quadrant, requestingJobID, requestedJobID uint16) error {
	msg := wire.ReqEdge{
		Quadrant:        q,
		RequestingJobID: requestingJobID,
		RequestedJobID:  requestedJobID,
	}
	return conn.Send(wire.TypeReqEdge, msg.Encode())
}

// ReplyEdge answers a ReqEdge by reading the requested quadrant off the
// owning tile and sending it back as a SendEdge. req.Quadrant names the
// requester's own halo slot (e.g. "my N edge is missing"); geographically
// that data lives on the owner's opposite-facing band (the owner's S band,
// if the owner sits north of the requester), so the owner reads
// req.Quadrant.Opposite() off its own matrix. msg.Quadrant is echoed back
// unchanged so the requester can match the reply straight to its own slot.
func ReplyEdge(conn *netconn.Conn, owner *store.Tile, req wire.ReqEdge) error {
	cells := owner.ReadEdge(req.Quadrant.Opposite())
	msg := wire.SendEdge{
		Quadrant:        req.Quadrant,
		RequestingJobID: req.RequestingJobID,
		RequestedJobID:  req.RequestedJobID,
		Cells:           cells,
	}
	return conn.Send(wire.TypeSendEdge, msg.Encode())
}

// ApplySendEdge fills the requesting tile's halo quadrant from a peer's
// reply. msg.Quadrant is the requester's own slot (echoed unchanged by
// ReplyEdge), so it is used as-is, not flipped. It is idempotent: a
// duplicate or late reply for an already-Filled quadrant is silently
// dropped (store.Tile.FillEdge).
func ApplySendEdge(requester *store.Tile, msg wire.SendEdge) {
	requester.FillEdge(msg.Quadrant, msg.Cells)
}
