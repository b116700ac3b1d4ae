package primary

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/relief-render/reliefrender/internal/netconn"
	"github.com/relief-render/reliefrender/internal/relief"
	"github.com/relief-render/reliefrender/internal/uisink"
	"github.com/relief-render/reliefrender/internal/wire"
)

// Options carries the settings broadcast to every worker inside the Init
// frame (spec.md §4.5 step 1).
type Options struct {
	Scheme     relief.Scheme
	Scale      float64
	Relief     bool
	Projection bool
}

// Run sends each worker its Init and Nodes frames, then drives the
// assignment loop and every worker's dispatch goroutine concurrently
// under one errgroup, mirroring the teacher's use of a supervised
// goroutine group so a fatal error on one worker's connection does not
// leak goroutines or wedge the others. It returns once every job has
// produced a catalog entry, or the first fatal per-worker error.
func Run(ctx *Context, opts Options, src SourceOpener, png PNGWriter, sink uisink.UISink) error {
	addrs := make([]string, len(ctx.Workers))
	for i, w := range ctx.Workers {
		addrs[i] = w.Addr
	}

	for _, w := range ctx.Workers {
		if err := sendInit(w.Conn, opts, uint8(w.Index)); err != nil {
			return err
		}
		if err := sendNodes(w.Conn, addrs); err != nil {
			return err
		}
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, w := range ctx.Workers {
		w := w
		g.Go(func() error {
			return DispatchWorker(ctx, w, src, png, sink)
		})
	}

	g.Go(func() error {
		runAssignmentLoop(ctx)
		return nil
	})

	return g.Wait()
}

// runAssignmentLoop is the dispatcher's main loop (spec.md §4.5 steps
// 2-3): whenever a worker is idle, hand it the next pending job; once the
// queue is empty, terminate every idle worker. It exits once every job's
// tile has been received.
func runAssignmentLoop(ctx *Context) {
	for !ctx.Done() {
		progressed := false
		for _, w := range ctx.Workers {
			if w.State() != NoJob {
				continue
			}
			if ctx.AssignNext(w) {
				progressed = true
				continue
			}
			w.Terminate()
		}
		if !progressed {
			ctx.Wait()
		}
	}
}

func sendInit(conn *netconn.Conn, opts Options, workerIndex uint8) error {
	msg := wire.Init{
		IsAbsolute:  opts.Scheme.IsAbsolute,
		ShowWater:   opts.Scheme.WaterColor != nil,
		WorkerIndex: workerIndex,
		Relief:      opts.Relief,
		Projection:  opts.Projection,
		Scale:       opts.Scale,
		Colors:      opts.Scheme.Records(),
	}
	if opts.Scheme.WaterColor != nil {
		rec := opts.Scheme.WaterColor.Record()
		msg.WaterColor = &rec
	}
	return conn.Send(wire.TypeInit, msg.Encode())
}

func sendNodes(conn *netconn.Conn, addrs []string) error {
	msg := wire.Nodes{Addresses: addrs}
	return conn.Send(wire.TypeNodes, msg.Encode())
}
