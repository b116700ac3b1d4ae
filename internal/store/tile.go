package store

import (
	"sync"

	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/wire"
)

// Tile is one worker's in-memory record for a single job: its elevation
// matrix, halo fill state per quadrant, and dispatch status. A Tile's own
// lock is the tile-file lock in the fixed acquisition order documented in
// SPEC_FULL.md §5 (worker-state -> tile-list -> tile-file -> send-lock);
// only a connection's send-lock comes after it.
type Tile struct {
	JobID      uint16
	SourcePath string // GeoTIFF this tile was decoded from
	FilePath   string // on-disk tile store file (internal/store/file.go)

	Bounds        geom.Bounds
	PixelScaleX   float64
	PixelScaleY   float64

	mu     sync.RWMutex
	cond   *sync.Cond
	matrix *Matrix
	halo   [8]HaloState
	status wire.Status
}

// NewTile creates a tile record around an already-decoded matrix. Halo
// quadrants start Unset; the caller resolves and fills them separately.
func NewTile(jobID uint16, sourcePath string, bounds geom.Bounds, pixelScaleX, pixelScaleY float64, m *Matrix) *Tile {
	t := &Tile{
		JobID:       jobID,
		SourcePath:  sourcePath,
		Bounds:      bounds,
		PixelScaleX: pixelScaleX,
		PixelScaleY: pixelScaleY,
		matrix:      m,
		status:      wire.StatusPending,
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Matrix returns the tile's elevation matrix. Callers must hold the tile's
// lock (via WithRLock/WithLock) for any concurrent access.
func (t *Tile) Matrix() *Matrix {
	return t.matrix
}

// Status returns the tile's current dispatch status.
func (t *Tile) Status() wire.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// SetStatus updates the tile's dispatch status.
func (t *Tile) SetStatus(s wire.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
}

// Halo returns quadrant q's current fill state.
func (t *Tile) Halo(q wire.Quadrant) HaloState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.halo[q]
}

// SetHalo advances quadrant q's fill state. Per spec.md §8, halo state only
// moves forward: Unset -> Requested -> Filled, or Unset -> None.
func (t *Tile) SetHalo(q wire.Quadrant, s HaloState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halo[q] = s
	if s.Resolved() {
		t.cond.Broadcast()
	}
}

// ReadyToRender reports whether every halo quadrant is resolved (Filled or
// None), the rendering-readiness invariant of spec.md §8.
func (t *Tile) ReadyToRender() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.halo {
		if !s.Resolved() {
			return false
		}
	}
	return true
}

// WaitReady blocks until every halo quadrant is resolved (Filled or None),
// woken by SetHalo/FillEdge as replies and local fills land. Used by the
// render pass, which must not colorize a tile until its full halo is in.
func (t *Tile) WaitReady() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for !t.allResolvedLocked() {
		t.cond.Wait()
	}
}

func (t *Tile) allResolvedLocked() bool {
	for _, s := range t.halo {
		if !s.Resolved() {
			return false
		}
	}
	return true
}

// FillEdge writes a peer's reply into this tile's own quadrant-q halo
// margin and marks it Filled. q is the tile's own slot, not flipped: a
// reply answering this tile's N request fills q=N. A reply for an
// already-Filled quadrant (a duplicate or late-arriving reply) is a
// no-op: fill is idempotent.
func (t *Tile) FillEdge(q wire.Quadrant, cells []int16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.halo[q] == HaloFilled {
		return
	}
	t.matrix.WriteEdge(q, cells)
	t.halo[q] = HaloFilled
	t.cond.Broadcast()
}

// ReadEdge extracts the cells this tile supplies for a peer's request of
// quadrant q, read-locked against concurrent local writers.
func (t *Tile) ReadEdge(q wire.Quadrant) []int16 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.matrix.ReadEdge(q)
}

// WithRLock runs fn with the tile's matrix held under a read lock, for
// render/stitch passes that only inspect cells.
func (t *Tile) WithRLock(fn func(m *Matrix)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn(t.matrix)
}

// WithLock runs fn with the tile's matrix held under a write lock, for the
// render pass that colorizes the matrix in place.
func (t *Tile) WithLock(fn func(m *Matrix)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.matrix)
}
