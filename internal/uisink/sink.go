// Package uisink defines the narrow notification interface the primary's
// dispatcher and each worker's orchestrator push state transitions
// through, and two implementations: a terminal progress bar and (in
// internal/telemetry) a Prometheus-backed sink.
package uisink

import "github.com/relief-render/reliefrender/internal/wire"

// UISink receives one notification per job status transition. jobID is
// the job or tile in question; status is its new state; total is the
// number of jobs the caller expects overall, so a sink can render a
// fraction without tracking job count itself. A caller that does not know
// the count passes 0 (the worker orchestrator does).
type UISink interface {
	Update(jobID uint16, status wire.Status, total int)
}

// Fanout broadcasts every Update call to each of its sinks in order. A nil
// sink in the slice is skipped, so callers can build the slice
// conditionally without filtering it themselves.
type Fanout []UISink

// Update implements UISink by forwarding to every non-nil member.
func (f Fanout) Update(jobID uint16, status wire.Status, total int) {
	for _, s := range f {
		if s != nil {
			s.Update(jobID, status, total)
		}
	}
}
