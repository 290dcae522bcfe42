package listing

import (
	"context"
	"sync"
)

// StreamRegistry tracks cancel functions for open live subscriptions so the
// server can end them before the store client shuts down.
type StreamRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{
		cancels: make(map[string]context.CancelFunc),
	}
}

// Register stores a cancel function for a stream.
func (sr *StreamRegistry) Register(id string, cancel context.CancelFunc) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.cancels[id] = cancel
}

// Cancel ends one stream. Returns true if the stream was registered.
func (sr *StreamRegistry) Cancel(id string) bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if cancel, ok := sr.cancels[id]; ok {
		cancel()
		delete(sr.cancels, id)
		return true
	}
	return false
}

// Unregister removes a stream without cancelling it.
// Call it when the subscriber disconnects on its own.
func (sr *StreamRegistry) Unregister(id string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	delete(sr.cancels, id)
}

// CancelAll ends every registered stream and returns how many were open.
func (sr *StreamRegistry) CancelAll() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	n := len(sr.cancels)
	for id, cancel := range sr.cancels {
		cancel()
		delete(sr.cancels, id)
	}
	return n
}

// Active returns the number of open streams.
func (sr *StreamRegistry) Active() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return len(sr.cancels)
}
