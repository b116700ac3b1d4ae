package primary

import (
	"sync"

	"github.com/relief-render/reliefrender/internal/geom"
)

// FinalTile is the primary's record of one returned, rendered tile: where
// its PNG lives, its pixel dimensions, and its geographic bounds. Pixel
// extents within the final stitched image are computed by the stitcher on
// its own tile records, not stored here.
type FinalTile struct {
	JobID  uint16
	Path   string
	Width  int
	Height int
	Bounds geom.Bounds

	// Not set anywhere: internal/stitch keeps its own per-tile offsets,
	// so these stay zero.
	OffsetX int
	OffsetY int
}

// Catalog collects FinalTiles under one mutex as PNGs arrive from workers,
// released to the stitcher once every job has a tile (spec.md §4.7).
type Catalog struct {
	mu    sync.Mutex
	tiles map[uint16]*FinalTile
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tiles: make(map[uint16]*FinalTile)}
}

// Add records (or replaces) the tile for a job id. Replacing is
// last-writer-wins, matching the idempotent-duplicate-status rule this
// system applies uniformly (spec.md §4.8).
func (c *Catalog) Add(t *FinalTile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiles[t.JobID] = t
}

// Len reports how many tiles have been ingested.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tiles)
}

// Tiles returns a snapshot of every ingested tile, in no particular
// order; the stitcher sorts by geography itself.
func (c *Catalog) Tiles() []*FinalTile {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*FinalTile, 0, len(c.tiles))
	for _, t := range c.tiles {
		out = append(out, t)
	}
	return out
}
