package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relief-render/reliefrender/internal/cog"
	"github.com/relief-render/reliefrender/internal/netconn"
	"github.com/relief-render/reliefrender/internal/rerr"
	"github.com/relief-render/reliefrender/internal/telemetry"
	"github.com/relief-render/reliefrender/internal/uisink"
	"github.com/relief-render/reliefrender/internal/wire"
	"github.com/relief-render/reliefrender/internal/worker"
)

type workerFlags struct {
	listen      string
	peerListen  string
	dataDir     string
	metricsAddr string
}

func newWorkerCmd() *cobra.Command {
	var f workerFlags

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run as a worker: accept one primary connection and render assigned tiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.listen, "listen", fmt.Sprintf(":%d", wire.PrimaryWorkerPort), "address to accept the primary's connection on")
	flags.StringVar(&f.peerListen, "peer-listen", fmt.Sprintf(":%d", wire.PeerExchangePort), "address to accept peer-exchange connections on")
	flags.StringVar(&f.dataDir, "data-dir", "", "directory for temp TIFF payloads and tile-store cache files (required)")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics at this address (disabled if empty)")

	cmd.MarkFlagRequired("data-dir")

	return cmd
}

func runWorker(f workerFlags) error {
	tmpDir := filepath.Join(f.dataDir, "tmp")
	cacheDir := filepath.Join(f.dataDir, "cache")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return rerr.Wrapf(rerr.MissingFile, err, "create temp directory %s", tmpDir)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return rerr.Wrapf(rerr.MissingFile, err, "create cache directory %s", cacheDir)
	}

	ln, err := net.Listen("tcp", f.listen)
	if err != nil {
		return rerr.Wrapf(rerr.ConnectFailure, err, "listen on %s", f.listen)
	}
	log.Printf("waiting for primary on %s", f.listen)

	conn, err := ln.Accept()
	if err != nil {
		return rerr.Wrapf(rerr.ConnectFailure, err, "accept primary connection on %s", f.listen)
	}
	ln.Close()
	log.Printf("primary connected from %s", conn.RemoteAddr())

	var sink uisink.Fanout
	if f.metricsAddr != "" {
		metrics := telemetry.NewSink("reliefrender_worker")
		sink = append(sink, metrics)
		go func() {
			if err := metrics.ListenAndServe(f.metricsAddr); err != nil {
				log.Printf("metrics server on %s stopped: %v", f.metricsAddr, err)
			}
		}()
	}

	orch := worker.NewOrchestrator(netconn.New(conn), cog.Decoder{}, sink, tmpDir, cacheDir)
	orch.PeerListenAddr = f.peerListen

	if err := orch.Run(); err != nil {
		return err
	}
	log.Printf("render complete, exiting")
	return nil
}
