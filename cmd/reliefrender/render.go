package main

import (
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/relief-render/reliefrender/internal/netconn"
	"github.com/relief-render/reliefrender/internal/primary"
	"github.com/relief-render/reliefrender/internal/relief"
	"github.com/relief-render/reliefrender/internal/rerr"
	"github.com/relief-render/reliefrender/internal/stitch"
	"github.com/relief-render/reliefrender/internal/telemetry"
	"github.com/relief-render/reliefrender/internal/uisink"
)

type renderFlags struct {
	colors      string
	dest        string
	out         string
	scale       float64
	projection  bool
	relief      bool
	water       bool
	quiet       bool
	metricsAddr string
}

func newRenderCmd() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render <sources...>",
		Short: "Run as the primary: dispatch sources to workers and stitch the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(args, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.colors, "colors", "", "color scheme file (required)")
	flags.StringVar(&f.dest, "dest", "", "destination list file: one worker address per line (required)")
	flags.StringVar(&f.out, "out", "out.png", "stitched output PNG path")
	flags.Float64Var(&f.scale, "scale", 1.0, "scale factor sent to workers in the Init frame (the relief shading pass does not use it)")
	flags.BoolVar(&f.projection, "projection", false, "resample projected-CRS sources onto a WGS84 degree grid")
	flags.BoolVar(&f.relief, "relief", true, "apply relief shading on top of elevation coloring")
	flags.BoolVar(&f.water, "water", false, "detect and flat-color water bodies")
	flags.BoolVar(&f.quiet, "quiet", false, "suppress the terminal progress bar")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics at this address (disabled if empty)")

	cmd.MarkFlagRequired("colors")
	cmd.MarkFlagRequired("dest")

	return cmd
}

func runRender(sources []string, f renderFlags) error {
	schemeFile, err := os.Open(f.colors)
	if err != nil {
		return rerr.Wrapf(rerr.MissingFile, err, "open color scheme %s", f.colors)
	}
	scheme, err := relief.Parse(schemeFile, f.water)
	schemeFile.Close()
	if err != nil {
		return err
	}

	addrs, err := readDestList(f.dest)
	if err != nil {
		return err
	}

	workers := make([]*primary.WorkerHandle, len(addrs))
	for i, addr := range addrs {
		raw, err := net.DialTimeout("tcp", addr, 10*time.Second)
		if err != nil {
			return rerr.Wrapf(rerr.ConnectFailure, err, "dial worker %s", addr)
		}
		workers[i] = primary.NewWorkerHandle(i, addr, netconn.New(raw))
	}

	jobs := make([]*primary.Job, len(sources))
	for i, src := range sources {
		isURL := strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
		jobs[i] = primary.NewJob(uint16(i), src, isURL)
	}
	queue := primary.NewQueue(jobs)
	catalog := primary.NewCatalog()
	ctx := primary.NewContext(queue, workers, catalog, len(jobs))

	tileDir, err := os.MkdirTemp("", "reliefrender-tiles-")
	if err != nil {
		return rerr.Wrap(rerr.MissingFile, err, "create tile output directory")
	}
	defer os.RemoveAll(tileDir)
	pngWriter, err := newFilePNGWriter(tileDir)
	if err != nil {
		return err
	}

	var sink uisink.Fanout
	if !f.quiet {
		term := uisink.NewTerminal("render")
		defer term.Finish()
		sink = append(sink, term)
	}
	if f.metricsAddr != "" {
		metrics := telemetry.NewSink("reliefrender_primary")
		sink = append(sink, metrics)
		go func() {
			if err := metrics.ListenAndServe(f.metricsAddr); err != nil {
				log.Printf("metrics server on %s stopped: %v", f.metricsAddr, err)
			}
		}()
	}

	opts := primary.Options{Scheme: scheme, Scale: f.scale, Relief: f.relief, Projection: f.projection}
	if err := primary.Run(ctx, opts, fileSource{}, pngWriter, sink); err != nil {
		return err
	}

	tiles := catalog.Tiles()
	stitchTiles := make([]stitch.Tile, len(tiles))
	for i, t := range tiles {
		stitchTiles[i] = stitch.Tile{Path: t.Path, Width: t.Width, Height: t.Height, Bounds: t.Bounds}
	}
	if err := stitch.Write(stitchTiles, f.out); err != nil {
		return err
	}

	if !f.quiet {
		log.Printf("wrote %s (%d tiles)", f.out, len(stitchTiles))
	}
	return nil
}
