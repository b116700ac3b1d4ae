package store

import (
	"sync"

	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/wire"
)

// RemoteKey identifies a tile owned by another worker: that worker's index
// (its position in the Nodes frame) and the tile's job id.
type RemoteKey struct {
	WorkerIndex int
	JobID       uint16
}

// RemoteTile is what a worker knows about a peer-owned tile before it has
// any of that tile's cells: just enough to run the adjacency resolver and
// to address a ReqEdge frame at the right peer.
type RemoteTile struct {
	Bounds geom.Bounds
	Status wire.Status
}

// Registry is a worker's index over every tile it knows about: the tiles
// it owns (with full elevation data) and the directory of remote tiles
// other workers own (bounds and status only, for adjacency resolution and
// addressing ReqEdge frames). One lock covers both; it is distinct from,
// and always acquired before, any individual tile's own lock (SPEC_FULL.md
// §5's fixed acquisition order).
type Registry struct {
	mu     sync.RWMutex
	local  []*Tile
	remote map[RemoteKey]*RemoteTile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		remote: make(map[RemoteKey]*RemoteTile),
	}
}

// AddLocal registers a newly decoded owned tile and returns its index.
func (r *Registry) AddLocal(t *Tile) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local = append(r.local, t)
	return len(r.local) - 1
}

// Local returns the tile at index i, or nil if out of range.
func (r *Registry) Local(i int) *Tile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.local) {
		return nil
	}
	return r.local[i]
}

// LocalTiles returns a snapshot of every owned tile, in registration order.
func (r *Registry) LocalTiles() []*Tile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tile, len(r.local))
	copy(out, r.local)
	return out
}

// ByJobID finds an owned tile by its job id, or nil if none matches. Used
// by the exchange handlers to route a SendEdge/ReqEdge back to the right
// local tile without a second index to keep in sync.
func (r *Registry) ByJobID(jobID uint16) *Tile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.local {
		if t.JobID == jobID {
			return t
		}
	}
	return nil
}

// SetRemote records or updates what is known about a peer-owned tile.
func (r *Registry) SetRemote(key RemoteKey, bounds geom.Bounds, status wire.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.remote[key]
	if !ok {
		rt = &RemoteTile{}
		r.remote[key] = rt
	}
	rt.Bounds = bounds
	rt.Status = status
}

// Remote looks up what is known about a peer-owned tile.
func (r *Registry) Remote(key RemoteKey) (RemoteTile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.remote[key]
	if !ok {
		return RemoteTile{}, false
	}
	return *rt, true
}

// RemoteKeys returns every remote key currently known, for adjacency scans.
func (r *Registry) RemoteKeys() []RemoteKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RemoteKey, 0, len(r.remote))
	for k := range r.remote {
		out = append(out, k)
	}
	return out
}

// Neighbors builds the candidate list the adjacency resolver scans for a
// given local tile: every other local tile plus every known remote tile,
// local tiles first so a same-worker neighbor always wins ties over a
// remote one (deterministic, and avoids a needless network round trip).
func (r *Registry) Neighbors(excludeLocalIndex int) []geom.Neighbor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]geom.Neighbor, 0, len(r.local)+len(r.remote))
	for i, t := range r.local {
		if i == excludeLocalIndex {
			continue
		}
		out = append(out, geom.Neighbor{Bounds: t.Bounds, ID: i})
	}
	for k, rt := range r.remote {
		out = append(out, geom.Neighbor{Bounds: rt.Bounds, ID: k})
	}
	return out
}
