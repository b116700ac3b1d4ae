package worker

import (
	"github.com/relief-render/reliefrender/internal/exchange"
	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/netconn"
	"github.com/relief-render/reliefrender/internal/rerr"
	"github.com/relief-render/reliefrender/internal/store"
	"github.com/relief-render/reliefrender/internal/wire"
)

// fillLocalHalos runs the adjacency resolver against every local tile's
// local siblings and fills any quadrant a local neighbor supplies directly,
// with no network round trip (spec.md §4.6 step 6).
func (o *Orchestrator) fillLocalHalos() {
	tiles := o.registry.LocalTiles()
	for i, t := range tiles {
		matches := geom.Resolve(t.Bounds, o.geoNeighbors(i))
		for _, q := range wire.AllQuadrants {
			if t.Halo(q).Resolved() {
				continue
			}
			n := matches[q]
			if n == nil {
				continue
			}
			if localIdx, ok := n.ID.(int); ok {
				owner := o.registry.Local(localIdx)
				if owner == nil {
					continue
				}
				t.FillEdge(q, owner.ReadEdge(q.Opposite()))
				continue
			}
			// A RemoteKey match here means a remote tile's bounds happen to
			// satisfy the probe before any ReqEdge round trip; leave it for
			// the remote pass, which owns issuing the request.
		}
	}
}

// requestRemoteHalos resolves each local tile's still-unresolved quadrants
// against the remote directory and issues a ReqEdge to whichever peer owns
// the matching tile, dialing that peer's exchange listener lazily if this
// is the first request sent to it (spec.md §4.6 step 7).
func (o *Orchestrator) requestRemoteHalos() error {
	tiles := o.registry.LocalTiles()
	for i, t := range tiles {
		matches := geom.Resolve(t.Bounds, o.geoNeighbors(i))
		for _, q := range wire.AllQuadrants {
			if t.Halo(q).Resolved() {
				continue
			}
			n := matches[q]
			if n == nil {
				t.SetHalo(q, store.HaloNone)
				continue
			}
			key, ok := n.ID.(store.RemoteKey)
			if !ok {
				// Resolved by a local neighbor in fillLocalHalos; nothing left
				// to do here.
				continue
			}
			conn, err := o.peerConn(key.WorkerIndex)
			if err != nil {
				return err
			}
			t.SetHalo(q, store.HaloRequested)
			if err := exchange.RequestEdge(conn, q, t.JobID, key.JobID); err != nil {
				return err
			}
		}
	}
	return nil
}

// peerConn returns the dialed connection to worker index idx, opening one
// on first use. Peer connections are symmetric: once dialed, this
// connection's read loop answers ReqEdge frames the peer sends back the
// other way, same as an inbound listener connection would.
func (o *Orchestrator) peerConn(idx int) (*netconn.Conn, error) {
	o.peerMu.Lock()
	defer o.peerMu.Unlock()
	if c, ok := o.peers[idx]; ok {
		return c, nil
	}
	if idx < 0 || idx >= len(o.peerAddrs) {
		return nil, rerr.Newf(rerr.ConnectFailure, "peer index %d out of range", idx)
	}
	c, err := exchange.Dial(o.peerAddrs[idx], exchange.Handlers{
		OnReqEdge:      o.handleReqEdge,
		OnSendEdge:     o.handleSendEdge,
		OnStatusChange: o.handleStatusChange,
		OnMinMax:       o.handleMinMax,
	})
	if err != nil {
		return nil, err
	}
	o.peers[idx] = c
	return c, nil
}

// broadcastToPeers sends the same frame to every peer this worker has
// already dialed. Peers it has not yet talked to learn this worker's
// status and elevation extent lazily, the next time they dial in to
// request a halo edge (they read StatusChange/MinMax on that connection's
// other direction too, since exchange links are symmetric).
func (o *Orchestrator) broadcastToPeers(t wire.Type, payload []byte) error {
	o.peerMu.Lock()
	conns := make([]*netconn.Conn, 0, len(o.peers))
	for _, c := range o.peers {
		conns = append(conns, c)
	}
	o.peerMu.Unlock()

	for _, c := range conns {
		if err := c.Send(t, payload); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) handleReqEdge(from *netconn.Conn, msg wire.ReqEdge) {
	owner := o.registry.ByJobID(msg.RequestedJobID)
	if owner == nil {
		return
	}
	_ = exchange.ReplyEdge(from, owner, msg)
}

func (o *Orchestrator) handleSendEdge(_ *netconn.Conn, msg wire.SendEdge) {
	requester := o.registry.ByJobID(msg.RequestingJobID)
	if requester == nil {
		return
	}
	exchange.ApplySendEdge(requester, msg)
}

func (o *Orchestrator) handleStatusChange(_ *netconn.Conn, msg wire.StatusChange) {
	if msg.JobID == wire.GlobalJobID {
		return
	}
	o.registry.SetRemote(
		store.RemoteKey{WorkerIndex: senderIndex(msg.SenderID), JobID: msg.JobID},
		geom.Bounds{North: msg.Top, South: msg.Bottom, East: msg.Right, West: msg.Left},
		msg.Status,
	)
}

func (o *Orchestrator) handleMinMax(_ *netconn.Conn, msg wire.MinMax) {
	o.extent.Observe(msg.Min, msg.Max)
}

func senderIndex(senderID uint16) int {
	return int(senderID)
}
