package restart

import "sync"

// Watcher remembers the newest restart a viewer already reacted to and accepts
// only strictly newer timestamps.
type Watcher struct {
	mu   sync.Mutex
	last int64
}

// NewWatcher creates a watcher that has already acted on initial.
func NewWatcher(initial int64) *Watcher {
	return &Watcher{last: initial}
}

// Accept reports whether ts is newer than anything seen so far and, if so,
// remembers it.
func (w *Watcher) Accept(ts int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ts <= w.last {
		return false
	}
	w.last = ts
	return true
}

// Check observes cameraID and accepts the result.
func (w *Watcher) Check(obs Observer, cameraID string) (int64, bool) {
	ts := obs.Observe(cameraID)
	return ts, w.Accept(ts)
}

// Last returns the newest accepted timestamp.
func (w *Watcher) Last() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
