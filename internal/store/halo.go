package store

import "github.com/relief-render/reliefrender/internal/wire"

// HaloState is one quadrant's fill status. It advances monotonically
// Unset -> Requested -> Filled, or Unset -> None when the adjacency
// resolver finds no neighbor (spec.md §4.4, §8: "no backtracking").
type HaloState uint8

const (
	HaloUnset HaloState = iota
	HaloRequested
	HaloFilled
	HaloNone // resolved permanently unset: no neighbor overlaps the probe
)

// Resolved reports whether this quadrant no longer blocks rendering.
func (s HaloState) Resolved() bool {
	return s == HaloFilled || s == HaloNone
}

// edgeRect describes, in raw (halo-inclusive) matrix cell coordinates, one
// quadrant's rectangle. sourceEdgeRect and haloRect each produce a
// different edgeRect for the same quadrant: one names real source pixels,
// the other names the empty halo margin around them (spec.md §4.4, §8).
type edgeRect struct {
	RowStart, RowEnd, ColStart, ColEnd int
}

// sourceEdgeRect returns the band of this tile's own real source pixels
// that sits closest to quadrant q's side, in raw matrix-cell coordinates.
// This is what a tile hands a neighbor when it owns the data the neighbor
// is missing: e.g. sourceEdgeRect(S) is this tile's bottom mapFrame source
// rows, matching original_source/src/distranax.c's sendMapFrame, which
// reads the south band at rows [height, height+MAPFRAME).
func sourceEdgeRect(q wire.Quadrant, height, width, mapFrame int) edgeRect {
	switch q {
	case wire.QuadrantN:
		return edgeRect{mapFrame, 2 * mapFrame, mapFrame, mapFrame + width}
	case wire.QuadrantS:
		return edgeRect{height, mapFrame + height, mapFrame, mapFrame + width}
	case wire.QuadrantE:
		return edgeRect{mapFrame, mapFrame + height, width, mapFrame + width}
	case wire.QuadrantW:
		return edgeRect{mapFrame, mapFrame + height, mapFrame, 2 * mapFrame}
	case wire.QuadrantNE:
		return edgeRect{mapFrame, 2 * mapFrame, width, mapFrame + width}
	case wire.QuadrantNW:
		return edgeRect{mapFrame, 2 * mapFrame, mapFrame, 2 * mapFrame}
	case wire.QuadrantSE:
		return edgeRect{height, mapFrame + height, width, mapFrame + width}
	case wire.QuadrantSW:
		return edgeRect{height, mapFrame + height, mapFrame, 2 * mapFrame}
	default:
		return edgeRect{}
	}
}

// haloRect returns the empty halo margin at quadrant q, in raw
// matrix-cell coordinates: where a peer's reply for q gets written once it
// arrives. haloRect(N) is rows [0,mapFrame), matching getMapFrame's rule
// that a SOUTH reply lands in the requester's north halo.
func haloRect(q wire.Quadrant, height, width, mapFrame int) edgeRect {
	switch q {
	case wire.QuadrantN:
		return edgeRect{0, mapFrame, mapFrame, mapFrame + width}
	case wire.QuadrantS:
		return edgeRect{mapFrame + height, 2*mapFrame + height, mapFrame, mapFrame + width}
	case wire.QuadrantE:
		return edgeRect{mapFrame, mapFrame + height, mapFrame + width, 2*mapFrame + width}
	case wire.QuadrantW:
		return edgeRect{mapFrame, mapFrame + height, 0, mapFrame}
	case wire.QuadrantNE:
		return edgeRect{0, mapFrame, mapFrame + width, 2*mapFrame + width}
	case wire.QuadrantNW:
		return edgeRect{0, mapFrame, 0, mapFrame}
	case wire.QuadrantSE:
		return edgeRect{mapFrame + height, 2*mapFrame + height, mapFrame + width, 2*mapFrame + width}
	case wire.QuadrantSW:
		return edgeRect{mapFrame + height, 2*mapFrame + height, 0, mapFrame}
	default:
		return edgeRect{}
	}
}

// ReadEdge extracts this matrix's own source pixels nearest quadrant q: the
// band it hands to a neighbor that asked for this side. Always reads real
// source data, never the (possibly still-empty) halo margin.
func (m *Matrix) ReadEdge(q wire.Quadrant) []int16 {
	r := sourceEdgeRect(q, m.Height, m.Width, m.MapFrame)
	return m.Slice(r.RowStart, r.RowEnd, r.ColStart, r.ColEnd)
}

// WriteEdge writes cells into this matrix's own quadrant-q halo margin.
// The exchange layer (internal/exchange) decides which q to pass — always
// the receiving tile's own slot, never flipped — so this method always
// targets the halo, never the source region.
func (m *Matrix) WriteEdge(q wire.Quadrant, cells []int16) {
	r := haloRect(q, m.Height, m.Width, m.MapFrame)
	m.PasteInto(r.RowStart, r.RowEnd, r.ColStart, r.ColEnd, cells)
}
