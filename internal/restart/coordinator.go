package restart

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/camview/internal/events"
)

// Observer reports the newest restart affecting a camera.
type Observer interface {
	Observe(cameraID string) int64
}

// Coordinator reads and writes the shared restart record and broadcasts restarts
// to viewers in this process.
type Coordinator struct {
	store  Store
	bus    *events.Bus
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	local Record // writes that may not have reached the store
	seen  Record // last record reported by the store watcher

	stopWatch func() error
}

// NewCoordinator creates a coordinator. bus may be nil when no viewers run in
// this process (for example the restart CLI command).
func NewCoordinator(store Store, bus *events.Bus, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:  store,
		bus:    bus,
		logger: logger,
		now:    time.Now,
		local:  Record{},
		seen:   Record{},
	}
}

// Observe returns max(record[cameraID], record["0"]). Storage failures count as
// no restart observed, apart from restarts recorded by this process.
func (c *Coordinator) Observe(cameraID string) int64 {
	return c.snapshot().Latest(cameraID)
}

// Record stores a restart time for cameraID (and the all-cameras entry). The
// in-memory copy is always updated; the returned error only reports whether the
// shared store was reached.
func (c *Coordinator) Record(cameraID string, at int64) error {
	c.mu.Lock()
	c.local.Set(cameraID, at)
	c.mu.Unlock()

	if err := c.store.Update(func(r Record) { r.Set(cameraID, at) }); err != nil {
		c.logger.Debug("Restart record not persisted, keeping it in memory", "camera_id", cameraID, "error", err)
		return err
	}
	return nil
}

// Restart records a restart at the current time and notifies viewers in this
// process. It returns the recorded timestamp.
func (c *Coordinator) Restart(cameraID string) (int64, error) {
	at := c.now().UnixMilli()
	err := c.Record(cameraID, at)
	c.publish(cameraID, at)
	c.logger.Info("Camera restart recorded", "camera_id", cameraID, "at", at)
	return at, err
}

// Snapshot returns the merged record (store plus in-memory writes).
func (c *Coordinator) Snapshot() Record {
	return c.snapshot()
}

// StartWatching broadcasts restarts written to the store by other processes.
// Stores that cannot be watched are left to the viewers' polling.
func (c *Coordinator) StartWatching() error {
	w, ok := c.store.(Watchable)
	if !ok || c.bus == nil {
		return nil
	}

	c.mu.Lock()
	c.seen = c.loadStore()
	c.mu.Unlock()

	stop, err := w.Watch(c.logger, c.handleStoreChange)
	if err != nil {
		c.logger.Warn("Restart record watch unavailable, relying on polling", "error", err)
		return err
	}

	c.mu.Lock()
	c.stopWatch = stop
	c.mu.Unlock()
	return nil
}

// StopWatching stops the store watch. Safe to call more than once.
func (c *Coordinator) StopWatching() {
	c.mu.Lock()
	stop := c.stopWatch
	c.stopWatch = nil
	c.mu.Unlock()

	if stop != nil {
		if err := stop(); err != nil {
			c.logger.Debug("Error stopping restart record watch", "error", err)
		}
	}
}

func (c *Coordinator) handleStoreChange(rec Record) {
	c.mu.Lock()
	changed := rec.Changed(c.seen)
	c.seen.Merge(rec)
	c.mu.Unlock()

	// Publish the all-cameras entry last so per-camera events are not shadowed.
	slices.SortFunc(changed, func(a, b string) int {
		switch {
		case a == AllCameras:
			return 1
		case b == AllCameras:
			return -1
		}
		return compareIDs(a, b)
	})
	for _, id := range changed {
		c.logger.Debug("Restart record changed", "camera_id", id, "at", rec[id])
		c.publish(id, rec[id])
	}
}

func (c *Coordinator) publish(cameraID string, at int64) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.CameraRestartedEvent{
		CameraID:  cameraID,
		At:        at,
		Timestamp: time.UnixMilli(at).UTC().Format(time.RFC3339),
	})
}

func (c *Coordinator) snapshot() Record {
	rec := c.loadStore()
	c.mu.Lock()
	rec.Merge(c.local)
	c.mu.Unlock()
	return rec
}

func (c *Coordinator) loadStore() Record {
	rec, err := c.store.Load()
	if err != nil {
		c.logger.Debug("Restart record unreadable, treating as empty", "error", err)
		return Record{}
	}
	return rec
}

func compareIDs(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
