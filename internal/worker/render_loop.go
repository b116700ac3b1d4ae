package worker

import (
	"github.com/relief-render/reliefrender/internal/rerr"
	"github.com/relief-render/reliefrender/internal/store"
	"github.com/relief-render/reliefrender/internal/wire"
)

// renderReadyTiles resolves the scheme's relative elevations against the
// fully-observed global extent, then renders and ships every local tile,
// blocking each in turn on its own halo completion (spec.md §4.6 step 8).
// Per spec.md §8, a tile only reaches colorize once every one of its eight
// quadrants is Filled or None.
func (o *Orchestrator) renderReadyTiles() error {
	if min, max, ok := o.extent.Range(); ok {
		o.scheme.Resolve(min, max)
	}

	for _, t := range o.registry.LocalTiles() {
		if err := o.renderOneTile(t.JobID); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) renderOneTile(jobID uint16) error {
	t := o.registry.ByJobID(jobID)
	if t == nil {
		return rerr.Newf(rerr.ResolveFailure, "renderOneTile: unknown job %d", jobID)
	}
	t.WaitReady()

	var data []byte
	var err error
	var height, width int
	t.WithRLock(func(m *store.Matrix) {
		height, width = m.Height, m.Width
		data, err = Render(m, o.scheme, o.scheme.WaterColor != nil, o.relief)
	})
	if err != nil {
		return err
	}

	t.SetStatus(wire.StatusComplete)
	o.Sink.Update(jobID, wire.StatusComplete, 0)

	bounds := t.Bounds
	png := wire.Png{
		JobID:     jobID,
		ImgHeight: uint32(height),
		ImgWidth:  uint32(width),
		Top:       bounds.North,
		Bottom:    bounds.South,
		Left:      bounds.West,
		Right:     bounds.East,
		Data:      data,
	}
	if err := o.Primary.Send(wire.TypePng, png.Encode()); err != nil {
		return err
	}

	status := wire.StatusChange{
		Status:   wire.StatusComplete,
		JobID:    jobID,
		SenderID: uint16(o.index),
		Top:      bounds.North,
		Bottom:   bounds.South,
		Left:     bounds.West,
		Right:    bounds.East,
	}
	return o.Primary.Send(wire.TypeStatusChange, status.Encode())
}

// waitForEnd blocks until the primary sends its terminator frame, after
// which this worker's connection-handling goroutines are torn down by the
// caller (spec.md §4.6 step 9).
func (o *Orchestrator) waitForEnd() error {
	for {
		typ, _, err := o.Primary.ReadFrame()
		if err != nil {
			return err
		}
		if typ == wire.TypeEnd {
			return nil
		}
	}
}
