// Package worker implements the per-worker orchestrator: the state
// machine that reads the init packet and job stream from the primary,
// drives local load, halo exchange with peers, and render, and returns
// finished tiles (spec.md §4.6).
package worker

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/relief-render/reliefrender/internal/coord"
	"github.com/relief-render/reliefrender/internal/exchange"
	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/netconn"
	"github.com/relief-render/reliefrender/internal/relief"
	"github.com/relief-render/reliefrender/internal/rerr"
	"github.com/relief-render/reliefrender/internal/store"
	"github.com/relief-render/reliefrender/internal/uisink"
	"github.com/relief-render/reliefrender/internal/wire"
)

// Orchestrator drives one worker process's full lifecycle against a
// single primary connection.
type Orchestrator struct {
	Primary  *netconn.Conn
	Decoder  Decoder
	Sink     uisink.UISink
	TmpDir   string
	CacheDir string

	// PeerListenAddr is the address the peer-exchange server binds to.
	// Empty selects an ephemeral port (the default in tests); cmd/reliefrender
	// sets this from the worker's --peer-listen flag so peer addresses are
	// dialable by address, not just discoverable after the fact.
	PeerListenAddr string

	index      uint8
	scheme     relief.Scheme
	scale      float64
	relief     bool
	projection bool

	peerAddrs []string
	registry  *store.Registry
	extent    *exchange.Extent
	listener  *exchange.Server

	peerMu sync.Mutex
	peers  map[int]*netconn.Conn
}

// NewOrchestrator wires an orchestrator around an established primary
// connection and a raster decoder.
func NewOrchestrator(primary *netconn.Conn, decoder Decoder, sink uisink.UISink, tmpDir, cacheDir string) *Orchestrator {
	return &Orchestrator{
		Primary:  primary,
		Decoder:  decoder,
		Sink:     sink,
		TmpDir:   tmpDir,
		CacheDir: cacheDir,
		registry: store.NewRegistry(),
		extent:   exchange.NewExtent(),
		peers:    make(map[int]*netconn.Conn),
	}
}

// Run executes the full sequence of spec.md §4.6 and returns once the
// primary's terminator frame has been received.
func (o *Orchestrator) Run() error {
	if err := o.readInit(); err != nil {
		return err
	}
	if err := o.readNodes(); err != nil {
		return err
	}
	if err := o.startListener(); err != nil {
		return err
	}
	defer o.listener.Close()

	if err := o.loadJobs(); err != nil {
		return err
	}

	if err := o.broadcastRenderingStarted(); err != nil {
		return err
	}

	o.fillLocalHalos()
	if err := o.requestRemoteHalos(); err != nil {
		return err
	}

	if err := o.renderReadyTiles(); err != nil {
		return err
	}

	return o.waitForEnd()
}

func (o *Orchestrator) readInit() error {
	typ, payload, err := o.Primary.ReadFrame()
	if err != nil {
		return err
	}
	if typ != wire.TypeInit {
		return rerr.Newf(rerr.BadFrame, "expected Init, got %v", typ)
	}
	msg, err := wire.DecodeInit(payload)
	if err != nil {
		return err
	}
	o.index = msg.WorkerIndex
	o.scale = msg.Scale
	o.relief = msg.Relief
	o.projection = msg.Projection
	o.scheme = relief.FromInit(msg)
	return nil
}

func (o *Orchestrator) readNodes() error {
	typ, payload, err := o.Primary.ReadFrame()
	if err != nil {
		return err
	}
	if typ != wire.TypeNodes {
		return rerr.Newf(rerr.BadFrame, "expected Nodes, got %v", typ)
	}
	msg, err := wire.DecodeNodes(payload)
	if err != nil {
		return err
	}
	o.peerAddrs = msg.Addresses
	return nil
}

func (o *Orchestrator) startListener() error {
	addr := o.PeerListenAddr
	if addr == "" {
		addr = ":0"
	}
	srv, err := exchange.Listen(addr, exchange.Handlers{
		OnReqEdge:      o.handleReqEdge,
		OnSendEdge:     o.handleSendEdge,
		OnStatusChange: o.handleStatusChange,
		OnMinMax:       o.handleMinMax,
	})
	if err != nil {
		return err
	}
	o.listener = srv
	go srv.Serve()
	return nil
}

// loadJobs reads Tiff frames until the terminator, decoding, persisting,
// and broadcasting LOADED for each (spec.md §4.6 step 4).
func (o *Orchestrator) loadJobs() error {
	for {
		typ, payload, err := o.Primary.ReadFrame()
		if err != nil {
			return err
		}
		if typ != wire.TypeTiff {
			return rerr.Newf(rerr.BadFrame, "expected Tiff, got %v", typ)
		}
		msg, err := wire.DecodeTiff(payload)
		if err != nil {
			return err
		}
		if msg.Contents == wire.TiffEmpty {
			return nil
		}
		if err := o.loadOneJob(msg); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) loadOneJob(msg wire.Tiff) error {
	path, err := MaterializeTiff(msg, o.TmpDir)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	decoded, err := o.Decoder.Decode(path, store.DefaultMapFrame)
	if err != nil {
		return err
	}

	if o.projection && decoded.SourceEPSG != 0 {
		matrix, bounds, err := coord.ResampleToGeographic(decoded.Matrix, decoded.SourceEPSG,
			decoded.OriginX, decoded.OriginY, decoded.NativeScaleX, decoded.NativeScaleY, store.DefaultMapFrame)
		if err != nil {
			return err
		}
		decoded.Matrix = matrix
		decoded.Bounds = bounds
		decoded.PixelScaleX = matrix.HorizontalScale
		decoded.PixelScaleY = matrix.VerticalScale
	}

	o.extent.Observe(decoded.Matrix.MinElevation, decoded.Matrix.MaxElevation)

	tile := store.NewTile(msg.JobID, path, decoded.Bounds, decoded.PixelScaleX, decoded.PixelScaleY, decoded.Matrix)
	tile.FilePath = o.cachePath(msg.JobID)
	if err := store.WriteFile(tile.FilePath, decoded.Matrix); err != nil {
		return err
	}
	tile.SetStatus(wire.StatusLoaded)

	o.registry.AddLocal(tile)

	o.Sink.Update(msg.JobID, wire.StatusLoaded, 0)

	status := wire.StatusChange{
		Status:   wire.StatusLoaded,
		JobID:    msg.JobID,
		SenderID: uint16(o.index),
		Top:      decoded.Bounds.North,
		Bottom:   decoded.Bounds.South,
		Left:     decoded.Bounds.West,
		Right:    decoded.Bounds.East,
	}
	if err := o.Primary.Send(wire.TypeStatusChange, status.Encode()); err != nil {
		return err
	}
	return o.broadcastToPeers(wire.TypeStatusChange, status.Encode())
}

func (o *Orchestrator) cachePath(jobID uint16) string {
	return filepath.Join(o.CacheDir, "tile-"+strconv.Itoa(int(jobID))+".bin")
}

func (o *Orchestrator) broadcastRenderingStarted() error {
	status := wire.StatusChange{Status: wire.StatusRendering, JobID: wire.GlobalJobID, SenderID: uint16(o.index)}
	if err := o.broadcastToPeers(wire.TypeStatusChange, status.Encode()); err != nil {
		return err
	}
	min, max, ok := o.extent.Range()
	if !ok {
		return nil
	}
	mm := wire.MinMax{Min: min, Max: max}
	return o.broadcastToPeers(wire.TypeMinMax, mm.Encode())
}

// geoNeighbors returns the bounds of every registered neighbor (local and
// remote) for the adjacency resolver, excluding the tile being resolved.
func (o *Orchestrator) geoNeighbors(excludeLocalIndex int) []geom.Neighbor {
	return o.registry.Neighbors(excludeLocalIndex)
}
