package uisink

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relief-render/reliefrender/internal/wire"
)

// Terminal renders an in-place progress bar counting jobs that have
// reached StatusComplete, refreshed on a ticker and safe for concurrent
// Update calls from multiple dispatch/orchestrator goroutines. Direct
// adaptation of the teacher's zoom-level progress bar, generalized from
// "tiles processed at this zoom" to "jobs at COMPLETE".
type Terminal struct {
	label     string
	barWidth  int
	start     time.Time
	done      chan struct{}
	closeOnce sync.Once

	total     atomic.Int64
	completed atomic.Int64

	mu            sync.Mutex
	completedJobs map[uint16]bool // guarded by mu
}

// NewTerminal starts a terminal progress sink labeled label.
func NewTerminal(label string) *Terminal {
	t := &Terminal{
		label:    label,
		barWidth: 30,
		start:    time.Now(),
		done:     make(chan struct{}),
	}
	go t.run()
	return t
}

// Update records a job's status transition. Only StatusComplete advances
// the bar, and a repeated COMPLETE for the same job counts once;
// intermediate statuses are tracked only to size the total.
func (t *Terminal) Update(jobID uint16, status wire.Status, total int) {
	if int64(total) > t.total.Load() {
		t.total.Store(int64(total))
	}
	if status == wire.StatusComplete {
		t.mu.Lock()
		if t.completedJobs == nil {
			t.completedJobs = make(map[uint16]bool)
		}
		if !t.completedJobs[jobID] {
			t.completedJobs[jobID] = true
			t.completed.Add(1)
		}
		t.mu.Unlock()
	}
}

// Finish stops the refresh loop and prints the final bar state with a
// trailing newline.
func (t *Terminal) Finish() {
	t.closeOnce.Do(func() { close(t.done) })
	t.draw()
	fmt.Fprint(os.Stderr, "\n")
}

func (t *Terminal) run() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.draw()
		}
	}
}

func (t *Terminal) draw() {
	t.mu.Lock()
	defer t.mu.Unlock()

	completed := t.completed.Load()
	total := t.total.Load()

	var frac float64
	if total > 0 {
		frac = float64(completed) / float64(total)
	}
	if frac > 1 {
		frac = 1
	}

	filled := int(float64(t.barWidth) * frac)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", t.barWidth-filled)

	elapsed := time.Since(t.start)
	rate := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(completed) / secs
	}

	fmt.Fprintf(os.Stderr, "\r%s [%s] %3.0f%%  %d/%d jobs  %.1f/s  %s\033[K",
		t.label, bar, frac*100, completed, total, rate, formatDuration(elapsed))
}

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}
