package stitch

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/relief-render/reliefrender/internal/geom"
)

func writeSolidPNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// TestPlaceTiles2x2Grid checks offsets for a 2x2 grid of 4x4-pixel tiles
// whose geographic edges coincide exactly.
func TestPlaceTiles2x2Grid(t *testing.T) {
	tiles := []Tile{
		{Path: "nw", Width: 4, Height: 4, Bounds: geom.Bounds{North: 2, South: 1, West: 10, East: 11}},
		{Path: "ne", Width: 4, Height: 4, Bounds: geom.Bounds{North: 2, South: 1, West: 11, East: 12}},
		{Path: "sw", Width: 4, Height: 4, Bounds: geom.Bounds{North: 1, South: 0, West: 10, East: 11}},
		{Path: "se", Width: 4, Height: 4, Bounds: geom.Bounds{North: 1, South: 0, West: 11, East: 12}},
	}

	placed, width, height := placeTiles(tiles)
	if width != 8 || height != 8 {
		t.Fatalf("combined size = %dx%d, want 8x8", width, height)
	}

	want := map[string][2]int{
		"nw": {0, 0},
		"ne": {4, 0},
		"sw": {0, 4},
		"se": {4, 4},
	}
	for _, p := range placed {
		w := want[p.Path]
		if p.OffsetX != w[0] || p.OffsetY != w[1] {
			t.Errorf("%s offset = (%d,%d), want (%d,%d)", p.Path, p.OffsetX, p.OffsetY, w[0], w[1])
		}
	}
}

// TestWriteStitchesAndFillsGaps places three tiles of a 2x2 grid (the
// fourth, bottom-right position has no returned tile, standing in for a
// LOST worker's job per spec.md's no-reassignment non-goal) and checks
// that the covered corners carry the right pixels while the uncovered
// grid position decodes as transparent.
func TestWriteStitchesAndFillsGaps(t *testing.T) {
	dir := t.TempDir()
	nwPath := filepath.Join(dir, "nw.png")
	nePath := filepath.Join(dir, "ne.png")
	swPath := filepath.Join(dir, "sw.png")
	writeSolidPNG(t, nwPath, 2, 2, color.NRGBA{R: 255, A: 255})
	writeSolidPNG(t, nePath, 2, 2, color.NRGBA{B: 255, A: 255})
	writeSolidPNG(t, swPath, 2, 2, color.NRGBA{G: 255, A: 255})

	tiles := []Tile{
		{Path: nwPath, Width: 2, Height: 2, Bounds: geom.Bounds{North: 2, South: 1, West: 0, East: 1}},
		{Path: nePath, Width: 2, Height: 2, Bounds: geom.Bounds{North: 2, South: 1, West: 1, East: 2}},
		{Path: swPath, Width: 2, Height: 2, Bounds: geom.Bounds{North: 1, South: 0, West: 0, East: 1}},
		// bottom-right deliberately missing.
	}

	outPath := filepath.Join(dir, "out.png")
	if err := Write(tiles, outPath); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("output size = %dx%d, want 4x4", b.Dx(), b.Dy())
	}

	r, g, bl, a := img.At(0, 0).RGBA()
	if r>>8 != 255 || a>>8 != 255 {
		t.Errorf("nw pixel = (%d,%d,%d,%d), want red opaque", r>>8, g>>8, bl>>8, a>>8)
	}
	r, g, bl, a = img.At(3, 0).RGBA()
	if bl>>8 != 255 || a>>8 != 255 {
		t.Errorf("ne pixel = (%d,%d,%d,%d), want blue opaque", r>>8, g>>8, bl>>8, a>>8)
	}
	r, g, bl, a = img.At(0, 3).RGBA()
	if g>>8 != 255 || a>>8 != 255 {
		t.Errorf("sw pixel = (%d,%d,%d,%d), want green opaque", r>>8, g>>8, bl>>8, a>>8)
	}
	r, g, bl, a = img.At(3, 3).RGBA()
	if a != 0 {
		t.Errorf("missing se pixel = (%d,%d,%d,%d), want fully transparent", r>>8, g>>8, bl>>8, a>>8)
	}
}

func TestWriteNoTiles(t *testing.T) {
	if err := Write(nil, filepath.Join(t.TempDir(), "out.png")); err == nil {
		t.Fatal("expected error stitching zero tiles")
	}
}
