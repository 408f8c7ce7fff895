// Package ratelimit implements the per-key fixed-window counter behind
// the image-generation quota. State is process-local and resets on
// restart; a multi-instance deployment substitutes a shared-counter
// implementation behind the same Allow signature.
package ratelimit

import (
	"sync"
	"time"
)

type entry struct {
	start time.Time
	count int
}

// Window counts events per key over a fixed window.
type Window struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	entries map[string]*entry
}

func NewWindow(limit int, window time.Duration) *Window {
	return &Window{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Allow counts one event for key and reports whether it fits the
// window. A rejected event is not counted.
func (w *Window) Allow(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	e, ok := w.entries[key]
	if !ok || now.Sub(e.start) >= w.window {
		w.entries[key] = &entry{start: now, count: 1}
		return true
	}

	if e.count >= w.limit {
		return false
	}
	e.count++
	return true
}
