package memory

import (
	"context"
	"sync"
)

// hub wakes watchers after a change. Each change closes the current channel
// and replaces it, so a watcher never misses a change that happened between
// taking its snapshot and blocking.
type hub struct {
	mu      sync.Mutex
	changed chan struct{}
}

func newHub() *hub {
	return &hub{changed: make(chan struct{})}
}

func (h *hub) current() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.changed
}

func (h *hub) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	close(h.changed)
	h.changed = make(chan struct{})
}

// watch calls emit once and again after every change until ctx is done.
func (h *hub) watch(ctx context.Context, emit func()) error {
	for {
		ch := h.current()
		emit()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
