package primary

import (
	"sync"

	"github.com/relief-render/reliefrender/internal/netconn"
)

// DispatchState is a worker's assignment state as seen by the primary
// (spec.md §3's Worker.dispatch_state).
type DispatchState int

const (
	NoJob DispatchState = iota
	InProgress
	Complete
)

// WorkerHandle is the primary's view of one connected worker: its
// connection, the jobs it has been assigned, and the ready/complete
// signalling pair its dispatch goroutine blocks on (spec.md §5's
// "per-worker condition variable").
type WorkerHandle struct {
	Index int
	Addr  string
	Conn  *netconn.Conn

	mu         sync.Mutex
	cond       *sync.Cond
	state      DispatchState
	pending    *Job // job just assigned, awaiting pickup by the dispatch goroutine
	terminate  bool
	owned      []*Job
}

// NewWorkerHandle wraps an established primary-worker connection.
func NewWorkerHandle(index int, addr string, conn *netconn.Conn) *WorkerHandle {
	w := &WorkerHandle{Index: index, Addr: addr, Conn: conn, state: NoJob}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Assign hands the worker a job to push and wakes its dispatch goroutine.
func (w *WorkerHandle) Assign(j *Job) {
	w.mu.Lock()
	defer w.mu.Unlock()
	j.Assign(w.Index)
	w.pending = j
	w.owned = append(w.owned, j)
	w.state = InProgress
	w.cond.Signal()
}

// Terminate flags that no more jobs remain for this worker and wakes its
// dispatch goroutine so it can send the end-of-stream marker. Advances
// the dispatch state to Complete so the assignment loop stops
// reconsidering this worker.
func (w *WorkerHandle) Terminate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.terminate = true
	w.state = Complete
	w.cond.Signal()
}

// WaitForWork blocks until a job is assigned or the worker is told to
// terminate, returning the job (nil on terminate) and whether to
// terminate.
func (w *WorkerHandle) WaitForWork() (job *Job, terminate bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.pending == nil && !w.terminate {
		w.cond.Wait()
	}
	if w.pending != nil {
		j := w.pending
		w.pending = nil
		return j, false
	}
	return nil, true
}

// MarkIdle returns the worker to NO_JOB so the dispatcher may assign it
// another job (spec.md §4.5 step 5).
func (w *WorkerHandle) MarkIdle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = NoJob
}

// State returns the worker's current dispatch state.
func (w *WorkerHandle) State() DispatchState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// OwnedJobs returns a snapshot of every job ever assigned to this worker.
func (w *WorkerHandle) OwnedJobs() []*Job {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Job, len(w.owned))
	copy(out, w.owned)
	return out
}
