package worker

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/relief-render/reliefrender/internal/relief"
	"github.com/relief-render/reliefrender/internal/rerr"
	"github.com/relief-render/reliefrender/internal/store"
)

// Render colorizes a tile's (non-halo) pixels into a PNG, applying water
// detection and relief shading first when requested — the pixel-kernel
// pipeline spec.md treats as an external collaborator, implemented here
// as pure functions over the tile's matrix.
func Render(m *store.Matrix, scheme relief.Scheme, applyWater, applyRelief bool) ([]byte, error) {
	var water []bool
	if applyWater {
		water = relief.DetectWater(m)
	}

	var reliefCells []int
	if applyRelief {
		reliefCells = combineDirections(m)
	}

	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	stride := m.Stride()
	for row := 0; row < m.Height; row++ {
		for col := 0; col < m.Width; col++ {
			idx := (row+m.MapFrame)*stride + (col + m.MapFrame)
			elevation := int32(m.Cells[idx])
			isWater := applyWater && water[idx]
			reliefValue := 0
			if applyRelief {
				reliefValue = reliefCells[idx]
			}
			r, g, b := scheme.Colorize(elevation, isWater, reliefValue)
			img.Set(col, row, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, rerr.Wrap(rerr.PngEncodeFailure, err, "encode tile PNG")
	}
	return buf.Bytes(), nil
}

// combineDirections accumulates relief intensity from all four cardinal
// light directions, matching the original's practice of running the
// shading pass once per direction and summing the results.
func combineDirections(m *store.Matrix) []int {
	total := make([]int, len(m.Cells))
	for _, dir := range []relief.Direction{relief.North, relief.South, relief.East, relief.West} {
		pass := relief.ReliefShade(m, dir)
		for i, v := range pass {
			total[i] += v
		}
	}
	return total
}
