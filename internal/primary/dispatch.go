package primary

import (
	"io"

	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/netconn"
	"github.com/relief-render/reliefrender/internal/rerr"
	"github.com/relief-render/reliefrender/internal/uisink"
	"github.com/relief-render/reliefrender/internal/wire"
)

// SourceOpener resolves a job's local-file source into its size and
// bytes. Kept as an interface so tests can substitute an in-memory
// source without touching the filesystem; the real CLI backs it with
// os.Stat/os.Open.
type SourceOpener interface {
	Size(path string) (int64, error)
	Open(path string) (io.ReadCloser, error)
}

// PNGWriter persists a returned PNG's bytes for job jobID and reports
// where it landed, for the FinalTile record and the eventual stitch pass.
type PNGWriter interface {
	WritePNG(jobID uint16, data []byte) (path string, err error)
}

// DispatchWorker drives one worker connection end to end: the
// assign-a-job/push-tiff/read-status loop (spec.md §4.5 steps 2, 4, 5),
// then, once the dispatcher has no more jobs for this worker, the
// terminator push and output-drain phase (steps 3, 6). It returns once
// every job ever assigned to w has produced a FinalTile, or a fatal
// connection error occurs — at which point the caller treats w as LOST
// per spec.md §4.8 without disturbing other workers.
func DispatchWorker(ctx *Context, w *WorkerHandle, src SourceOpener, png PNGWriter, sink uisink.UISink) error {
	total := ctx.tilesNeeded // every job in the run, fixed at NewContext
	for {
		job, terminate := w.WaitForWork()
		if terminate {
			if err := sendTiffTerminator(w.Conn); err != nil {
				return err
			}
			break
		}
		if err := sendJobTiff(w.Conn, job, src); err != nil {
			return err
		}
		status, err := readStatusChange(w.Conn)
		if err != nil {
			return err
		}
		bounds := geom.Bounds{North: status.Top, South: status.Bottom, East: status.Right, West: status.Left}
		job.SetLoaded(bounds)
		sink.Update(job.ID, wire.StatusLoaded, total)
		w.MarkIdle()
		ctx.NotifyChange()
	}
	return drainWorkerOutput(ctx, w, png, sink, total)
}

func sendJobTiff(conn *netconn.Conn, job *Job, src SourceOpener) error {
	if job.IsURL {
		msg := wire.Tiff{Contents: wire.TiffURL, Name: job.Source, JobID: job.ID}
		return conn.Send(wire.TypeTiff, msg.Encode())
	}

	size, err := src.Size(job.Source)
	if err != nil {
		return rerr.Wrapf(rerr.MissingFile, err, "stat job source %s", job.Source)
	}
	rc, err := src.Open(job.Source)
	if err != nil {
		return rerr.Wrapf(rerr.MissingFile, err, "open job source %s", job.Source)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return rerr.Wrapf(rerr.MissingFile, err, "read job source %s", job.Source)
	}

	msg := wire.Tiff{
		Contents: wire.TiffData,
		Name:     job.Source,
		FileSize: uint32(size),
		JobID:    job.ID,
		Data:     data,
	}
	return conn.Send(wire.TypeTiff, msg.Encode())
}

func sendTiffTerminator(conn *netconn.Conn) error {
	msg := wire.Tiff{Contents: wire.TiffEmpty}
	return conn.Send(wire.TypeTiff, msg.Encode())
}

func readStatusChange(conn *netconn.Conn) (wire.StatusChange, error) {
	typ, payload, err := conn.ReadFrame()
	if err != nil {
		return wire.StatusChange{}, err
	}
	if typ != wire.TypeStatusChange {
		return wire.StatusChange{}, rerr.Newf(rerr.BadFrame, "expected StatusChange, got %v", typ)
	}
	return wire.DecodeStatusChange(payload)
}

// drainWorkerOutput reads frames from w until one PNG has arrived for
// every job ever assigned to it (spec.md §4.5 step 6).
func drainWorkerOutput(ctx *Context, w *WorkerHandle, png PNGWriter, sink uisink.UISink, total int) error {
	owned := w.OwnedJobs()
	byID := make(map[uint16]*Job, len(owned))
	for _, j := range owned {
		byID[j.ID] = j
	}
	need := len(owned)
	got := 0

	for got < need {
		typ, payload, err := w.Conn.ReadFrame()
		if err != nil {
			return err
		}
		switch typ {
		case wire.TypeStatusChange:
			msg, err := wire.DecodeStatusChange(payload)
			if err != nil {
				return err
			}
			sink.Update(msg.JobID, msg.Status, total)
			ctx.NotifyChange()

		case wire.TypeUiUpdate:
			msg, err := wire.DecodeUiUpdate(payload)
			if err != nil {
				return err
			}
			sink.Update(msg.JobID, msg.Status, total)

		case wire.TypePng:
			msg, err := wire.DecodePng(payload)
			if err != nil {
				return err
			}
			path, err := png.WritePNG(msg.JobID, msg.Data)
			if err != nil {
				return err
			}
			tile := &FinalTile{
				JobID:  msg.JobID,
				Path:   path,
				Width:  int(msg.ImgWidth),
				Height: int(msg.ImgHeight),
				Bounds: geom.Bounds{North: msg.Top, South: msg.Bottom, East: msg.Right, West: msg.Left},
			}
			ctx.Catalog.Add(tile)
			if j, ok := byID[msg.JobID]; ok {
				j.Complete(path)
			}
			sink.Update(msg.JobID, wire.StatusComplete, total)
			got++
			ctx.NotifyTileReceived()

		default:
			return rerr.Newf(rerr.BadFrame, "unexpected frame %v while draining worker output", typ)
		}
	}
	return nil
}
