package primary

import (
	"sync"

	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/wire"
)

// Job is one source raster the primary must get rendered: a dense id
// assigned at startup, its source reference, and the status the job
// advances through as its assigned worker makes progress.
type Job struct {
	ID         uint16
	Source     string // local file path or URL
	IsURL      bool

	mu       sync.Mutex
	worker   int // assigned worker index, -1 if unassigned
	status   wire.Status
	bounds   geom.Bounds
	pngPath  string
}

// NewJob creates a job in PENDING status with no worker assigned.
func NewJob(id uint16, source string, isURL bool) *Job {
	return &Job{ID: id, Source: source, IsURL: isURL, worker: -1, status: wire.StatusPending}
}

// Assign records which worker owns this job and advances it to IN_PROGRESS.
func (j *Job) Assign(workerIndex int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.worker = workerIndex
	j.status = wire.StatusInProgress
}

// Worker returns the assigned worker index, or -1 if unassigned.
func (j *Job) Worker() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.worker
}

// Status returns the job's current status.
func (j *Job) Status() wire.Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// SetLoaded records a job's bounding box (set once, after LOADED per
// spec.md §3) and advances its status to LOADED.
func (j *Job) SetLoaded(bounds geom.Bounds) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.bounds = bounds
	j.status = wire.StatusLoaded
}

// Bounds returns the job's bounding box, valid once Status is at least
// LOADED.
func (j *Job) Bounds() geom.Bounds {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.bounds
}

// Complete records the job's output PNG path and advances it to COMPLETE.
// Idempotent: a duplicate completion for an already-complete job is a
// last-writer-wins update of pngPath, matching spec.md §4.8's "duplicate
// status updates are idempotent".
func (j *Job) Complete(pngPath string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pngPath = pngPath
	j.status = wire.StatusComplete
}

// PNGPath returns the job's output PNG path, valid once Status is COMPLETE.
func (j *Job) PNGPath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pngPath
}

// Queue is the primary's pending-job list: a simple FIFO, safe for
// concurrent Pop calls from each worker's dispatch goroutine.
type Queue struct {
	mu    sync.Mutex
	items []*Job
}

// NewQueue creates a queue seeded with jobs in dispatch order.
func NewQueue(jobs []*Job) *Queue {
	items := make([]*Job, len(jobs))
	copy(items, jobs)
	return &Queue{items: items}
}

// Pop removes and returns the next pending job, or nil if the queue is
// empty.
func (q *Queue) Pop() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	j := q.items[0]
	q.items = q.items[1:]
	return j
}

// Len reports how many jobs remain unpopped.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
