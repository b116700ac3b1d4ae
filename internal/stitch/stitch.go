// Package stitch assembles the primary's collected per-job PNG tiles into
// one combined image (spec.md §4.7): it walks tiles by coincident
// geographic edges to compute each tile's pixel offset in the final image,
// then encodes the result by streaming rows out of the source tiles rather
// than ever holding the full combined image in memory.
package stitch

import (
	"bufio"
	"image"
	"image/color"
	"image/png"
	"os"
	"sort"

	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/rerr"
)

// edgeEpsilon is the coincidence tolerance used to decide that two tiles'
// edges abut, matching the adjacency resolver's own probe tolerance
// (internal/geom.ProbeEpsilon) since both are testing the same kind of
// "this boundary is shared" condition.
const edgeEpsilon = geom.ProbeEpsilon

// Tile is one returned, rendered job ready to be placed in the final
// image: its PNG path, pixel dimensions, and geographic bounds.
type Tile struct {
	Path   string
	Width  int
	Height int
	Bounds geom.Bounds
}

type placedTile struct {
	Tile
	OffsetX int
	OffsetY int
}

// Write computes the combined pixel extents of tiles and writes the
// stitched PNG to outPath, encoding row by row without ever holding more
// than the currently-intersecting tiles' decoded images in memory.
func Write(tiles []Tile, outPath string) error {
	if len(tiles) == 0 {
		return rerr.New(rerr.BadFrame, "stitch: no tiles to combine")
	}

	placed, width, height := placeTiles(tiles)

	f, err := os.Create(outPath)
	if err != nil {
		return rerr.Wrapf(rerr.MissingFile, err, "create output PNG %s", outPath)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	img := newStitchedImage(width, height, placed)
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(bw, img); err != nil {
		return rerr.Wrap(rerr.PngEncodeFailure, err, "encode stitched PNG")
	}
	return bw.Flush()
}

// placeTiles implements spec.md §4.7 steps 1-3: group tiles into
// coincident-edge row bands (south to north) and column bands (west to
// east), then assign each tile the cumulative pixel offset of its row and
// column band. Row bands are walked north-most first so band 0 lands at
// image row 0, the top of the output PNG.
func placeTiles(tiles []Tile) (placed []placedTile, width, height int) {
	rows := bandRows(tiles)
	cols := bandCols(tiles)

	y := 0
	rowOffset := make(map[int]int, len(rows))
	for _, r := range rows {
		rowOffset[r.index] = y
		y += r.height
	}
	height = y

	x := 0
	colOffset := make(map[int]int, len(cols))
	for _, c := range cols {
		colOffset[c.index] = x
		x += c.width
	}
	width = x

	placed = make([]placedTile, len(tiles))
	for i, t := range tiles {
		placed[i] = placedTile{
			Tile:    t,
			OffsetX: colOffset[findBand(cols, t.Bounds.West)],
			OffsetY: rowOffset[findBand(rows, t.Bounds.South)],
		}
	}
	return placed, width, height
}

type band struct {
	index  int
	edge   float64 // south edge for a row band, west edge for a column band
	height int     // row band pixel height; unused for column bands
	width  int     // column band pixel width; unused for row bands
}

// bandRows groups tiles by coincident south edge, one band per distinct
// latitude, ordered north-most (highest North) first so the first band
// lands at pixel row 0.
func bandRows(tiles []Tile) []band {
	var bands []band
	for _, t := range tiles {
		if i := findBand(bands, t.Bounds.South); i >= 0 {
			if t.Height > bands[i].height {
				bands[i].height = t.Height
			}
			continue
		}
		bands = append(bands, band{edge: t.Bounds.South, height: t.Height})
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].edge > bands[j].edge })
	for i := range bands {
		bands[i].index = i
	}
	return bands
}

// bandCols groups tiles by coincident west edge, one band per distinct
// longitude, ordered west-most (lowest West) first.
func bandCols(tiles []Tile) []band {
	var bands []band
	for _, t := range tiles {
		if i := findBand(bands, t.Bounds.West); i >= 0 {
			if t.Width > bands[i].width {
				bands[i].width = t.Width
			}
			continue
		}
		bands = append(bands, band{edge: t.Bounds.West, width: t.Width})
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].edge < bands[j].edge })
	for i := range bands {
		bands[i].index = i
	}
	return bands
}

func findBand(bands []band, edge float64) int {
	for i, b := range bands {
		if approxEqual(b.edge, edge) {
			return i
		}
	}
	return -1
}

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= edgeEpsilon
}

// stitchedImage implements image.Image by reading pixels out of whichever
// source tile covers (x, y), decoding each tile's PNG lazily on first
// touch and discarding it once every row it contributes to has been read.
// png.Encode visits pixels in row-major order for any image.Image that
// isn't one of its fast-path concrete types, so this keeps at most the
// current row band's tiles decoded at once instead of the whole combined
// image.
type stitchedImage struct {
	width, height int
	placed        []placedTile

	cache   map[string]image.Image
	bottoms map[string]int
}

func newStitchedImage(width, height int, placed []placedTile) *stitchedImage {
	bottoms := make(map[string]int, len(placed))
	for _, p := range placed {
		bottoms[p.Path] = p.OffsetY + p.Height
	}
	return &stitchedImage{
		width:   width,
		height:  height,
		placed:  placed,
		cache:   make(map[string]image.Image),
		bottoms: bottoms,
	}
}

func (s *stitchedImage) ColorModel() color.Model { return color.NRGBAModel }

func (s *stitchedImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

func (s *stitchedImage) At(x, y int) color.Color {
	s.evictAboveRow(y)
	for _, p := range s.placed {
		if x < p.OffsetX || x >= p.OffsetX+p.Width || y < p.OffsetY || y >= p.OffsetY+p.Height {
			continue
		}
		img := s.tileImage(p.Path)
		if img == nil {
			return color.NRGBA{}
		}
		return img.At(x-p.OffsetX, y-p.OffsetY)
	}
	return color.NRGBA{} // horizontal/vertical gap: transparent
}

func (s *stitchedImage) tileImage(path string) image.Image {
	if img, ok := s.cache[path]; ok {
		return img
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil
	}
	s.cache[path] = img
	return img
}

func (s *stitchedImage) evictAboveRow(y int) {
	for path, bottom := range s.bottoms {
		if bottom <= y {
			delete(s.cache, path)
			delete(s.bottoms, path)
		}
	}
}
