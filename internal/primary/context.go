package primary

import "sync"

// Context is the shared state every per-worker dispatch goroutine reads
// and the main dispatch loop blocks on: the job queue, the set of worker
// handles, and one condition signalled whenever any worker's state
// changes or a PNG tile arrives (spec.md §4.5, §5's "shared condition").
type Context struct {
	Queue   *Queue
	Workers []*WorkerHandle
	Catalog *Catalog

	mu          sync.Mutex
	cond        *sync.Cond
	tilesNeeded int
	tilesDone   int
}

// NewContext wires a queue, worker set, and catalog into a shared
// dispatch context. tilesNeeded is the total job count: the dispatch loop
// exits once that many PNGs have been ingested (spec.md §4.5's exit
// condition).
func NewContext(queue *Queue, workers []*WorkerHandle, catalog *Catalog, tilesNeeded int) *Context {
	c := &Context{Queue: queue, Workers: workers, Catalog: catalog, tilesNeeded: tilesNeeded}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// NotifyChange wakes the dispatch loop to re-scan worker states. Called
// by a per-worker goroutine after it transitions that worker's state.
func (c *Context) NotifyChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cond.Signal()
}

// NotifyTileReceived records that one more PNG has been ingested and
// wakes the dispatch loop, which exits once every job has a tile.
func (c *Context) NotifyTileReceived() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tilesDone++
	c.cond.Signal()
}

// Done reports whether every job's tile has been received.
func (c *Context) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tilesDone >= c.tilesNeeded
}

// Wait blocks until NotifyChange or NotifyTileReceived is called, or the
// context is already Done.
func (c *Context) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tilesDone >= c.tilesNeeded {
		return
	}
	c.cond.Wait()
}

// AssignNext pops the next pending job (if any) and assigns it to w,
// returning whether a job was assigned.
func (c *Context) AssignNext(w *WorkerHandle) bool {
	j := c.Queue.Pop()
	if j == nil {
		return false
	}
	w.Assign(j)
	return true
}
