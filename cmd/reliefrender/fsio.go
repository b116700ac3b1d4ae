package main

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/relief-render/reliefrender/internal/rerr"
)

// fileSource backs primary.SourceOpener with the local filesystem.
type fileSource struct{}

func (fileSource) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (fileSource) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// filePNGWriter backs primary.PNGWriter, writing each returned tile's PNG
// bytes under dir as tile-<jobID>.png.
type filePNGWriter struct {
	dir string
}

func newFilePNGWriter(dir string) (*filePNGWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, rerr.Wrapf(rerr.MissingFile, err, "create tile output directory %s", dir)
	}
	return &filePNGWriter{dir: dir}, nil
}

func (w *filePNGWriter) WritePNG(jobID uint16, data []byte) (string, error) {
	path := filepath.Join(w.dir, "tile-"+strconv.Itoa(int(jobID))+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", rerr.Wrapf(rerr.PngEncodeFailure, err, "write tile PNG %s", path)
	}
	return path, nil
}
