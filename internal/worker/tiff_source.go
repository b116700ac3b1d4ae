package worker

import (
	"io"
	"net/http"
	"os"

	"github.com/relief-render/reliefrender/internal/rerr"
	"github.com/relief-render/reliefrender/internal/wire"
)

// MaterializeTiff resolves one Tiff frame's payload into a local file
// path ready for decoding: inline data is spooled to a temp file, a URL
// is fetched into one. Callers own the returned file and must remove it
// once decoding is done.
func MaterializeTiff(msg wire.Tiff, tmpDir string) (string, error) {
	switch msg.Contents {
	case wire.TiffData:
		f, err := os.CreateTemp(tmpDir, "job-*.tif")
		if err != nil {
			return "", rerr.Wrap(rerr.RasterReadFailure, err, "create temp file for inline tiff")
		}
		defer f.Close()
		if _, err := f.Write(msg.Data); err != nil {
			return "", rerr.Wrap(rerr.RasterReadFailure, err, "write inline tiff to temp file")
		}
		return f.Name(), nil

	case wire.TiffURL:
		resp, err := http.Get(msg.Name)
		if err != nil {
			return "", rerr.Wrapf(rerr.ConnectFailure, err, "fetch tiff from %s", msg.Name)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", rerr.Newf(rerr.ConnectFailure, "fetching %s: status %s", msg.Name, resp.Status)
		}
		f, err := os.CreateTemp(tmpDir, "job-*.tif")
		if err != nil {
			return "", rerr.Wrap(rerr.RasterReadFailure, err, "create temp file for fetched tiff")
		}
		defer f.Close()
		if _, err := io.Copy(f, resp.Body); err != nil {
			return "", rerr.Wrapf(rerr.ConnectFailure, err, "download tiff from %s", msg.Name)
		}
		return f.Name(), nil

	default:
		return "", rerr.Newf(rerr.BadFrame, "MaterializeTiff called on Contents=%d", msg.Contents)
	}
}
