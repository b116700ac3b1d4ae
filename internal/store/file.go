package store

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/relief-render/reliefrender/internal/rerr"
)

// WriteFile persists m to path in the tile store file format (spec.md §6):
// u32 height, width, max_elevation, min_elevation; f64 vertical_scale,
// horizontal_scale; then the row-major i16 halo-inclusive cell grid.
// The write lands via a temp file renamed into place so a reader never
// observes a partially written tile.
func WriteFile(path string, m *Matrix) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tile-*.tmp")
	if err != nil {
		return rerr.Wrap(rerr.RasterReadFailure, err, "create temp tile file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := writeMatrix(tmp, m); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return rerr.Wrap(rerr.RasterReadFailure, err, "sync temp tile file")
	}
	if err := tmp.Close(); err != nil {
		return rerr.Wrap(rerr.RasterReadFailure, err, "close temp tile file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return rerr.Wrap(rerr.RasterReadFailure, err, "rename temp tile file into place")
	}
	return nil
}

func writeMatrix(w io.Writer, m *Matrix) error {
	var header [16]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(m.Height))
	binary.LittleEndian.PutUint32(header[4:8], uint32(m.Width))
	binary.LittleEndian.PutUint32(header[8:12], uint32(m.MaxElevation))
	binary.LittleEndian.PutUint32(header[12:16], uint32(m.MinElevation))
	if _, err := w.Write(header[:]); err != nil {
		return rerr.Wrap(rerr.RasterReadFailure, err, "write tile header")
	}

	var scales [16]byte
	binary.LittleEndian.PutUint64(scales[0:8], math.Float64bits(m.VerticalScale))
	binary.LittleEndian.PutUint64(scales[8:16], math.Float64bits(m.HorizontalScale))
	if _, err := w.Write(scales[:]); err != nil {
		return rerr.Wrap(rerr.RasterReadFailure, err, "write tile scales")
	}

	cellBytes := make([]byte, len(m.Cells)*2)
	for i, c := range m.Cells {
		binary.LittleEndian.PutUint16(cellBytes[i*2:i*2+2], uint16(c))
	}
	if _, err := w.Write(cellBytes); err != nil {
		return rerr.Wrap(rerr.RasterReadFailure, err, "write tile cells")
	}
	return nil
}

// ReadFile loads a matrix previously written by WriteFile, using mapFrame
// to reconstruct Height/Width from the stored halo-inclusive grid.
func ReadFile(path string, mapFrame int) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rerr.Wrapf(rerr.MissingFile, err, "open tile file %s", path)
	}
	defer f.Close()

	var header [16]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, rerr.Wrap(rerr.RasterReadFailure, err, "read tile header")
	}
	height := int(binary.LittleEndian.Uint32(header[0:4]))
	width := int(binary.LittleEndian.Uint32(header[4:8]))
	maxElev := int32(binary.LittleEndian.Uint32(header[8:12]))
	minElev := int32(binary.LittleEndian.Uint32(header[12:16]))

	var scales [16]byte
	if _, err := io.ReadFull(f, scales[:]); err != nil {
		return nil, rerr.Wrap(rerr.RasterReadFailure, err, "read tile scales")
	}
	vScale := math.Float64frombits(binary.LittleEndian.Uint64(scales[0:8]))
	hScale := math.Float64frombits(binary.LittleEndian.Uint64(scales[8:16]))

	m := NewMatrix(height, width, mapFrame)
	m.MaxElevation = maxElev
	m.MinElevation = minElev
	m.VerticalScale = vScale
	m.HorizontalScale = hScale

	cellBytes := make([]byte, len(m.Cells)*2)
	if _, err := io.ReadFull(f, cellBytes); err != nil {
		return nil, rerr.Wrap(rerr.RasterReadFailure, err, "read tile cells")
	}
	for i := range m.Cells {
		m.Cells[i] = int16(binary.LittleEndian.Uint16(cellBytes[i*2 : i*2+2]))
	}
	return m, nil
}
