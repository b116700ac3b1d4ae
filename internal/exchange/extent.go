package exchange

import "sync"

// Extent tracks the running global elevation minimum and maximum across
// every MinMax frame a worker has seen (its own local extent plus every
// peer's broadcast), used to resolve Relative color schemes to absolute
// elevations. Safe for concurrent use.
type Extent struct {
	mu  sync.Mutex
	min int32
	max int32
	set bool
}

// NewExtent returns an Extent with no observations yet.
func NewExtent() *Extent {
	return &Extent{}
}

// Observe folds in one (min, max) pair, the same shape as a MinMax frame.
func (e *Extent) Observe(min, max int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		e.min, e.max, e.set = min, max, true
		return
	}
	if min < e.min {
		e.min = min
	}
	if max > e.max {
		e.max = max
	}
}

// Range returns the current (min, max) and whether any observation has
// been folded in yet.
func (e *Extent) Range() (min, max int32, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.min, e.max, e.set
}
