package evaluation

import (
	"sync"

	"ai-judge/internal/schemas"
)

// RunHandle observes a run started with Orchestrator.Start.
type RunHandle struct {
	mu       sync.Mutex
	progress schemas.Progress
	err      error
	done     chan struct{}
}

func newRunHandle() *RunHandle {
	return &RunHandle{done: make(chan struct{})}
}

// Progress returns a snapshot of the counters.
func (h *RunHandle) Progress() schemas.Progress {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.progress
}

// Wait blocks until the run has settled.
func (h *RunHandle) Wait() (schemas.Progress, error) {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.progress, h.err
}

func (h *RunHandle) set(p schemas.Progress) {
	h.mu.Lock()
	h.progress = p
	h.mu.Unlock()
}

func (h *RunHandle) finish(p schemas.Progress, err error) {
	h.mu.Lock()
	h.progress = p
	h.err = err
	h.mu.Unlock()
	close(h.done)
}
