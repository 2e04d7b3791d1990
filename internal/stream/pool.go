package stream

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrCameraNotFound is returned for camera ids the pool does not manage.
var ErrCameraNotFound = errors.New("camera not found")

// ErrNoFrame is returned when a camera has no displayable frame yet.
var ErrNoFrame = errors.New("no frame available")

// Pool manages one viewer per camera id.
type Pool interface {
	// Start starts a viewer for the camera. Returns error if already running.
	Start(cameraID string) error

	// Stop stops the camera's viewer and waits for its teardown.
	Stop(cameraID string) error

	// Reconnect forces the camera's viewer onto a new session.
	Reconnect(cameraID string) error

	// GetStatus returns the camera's current snapshot.
	GetStatus(cameraID string) (Snapshot, error)

	// Viewer returns the camera's viewer.
	Viewer(cameraID string) (*Viewer, bool)

	// Frame returns a copy of the camera's current displayable frame.
	Frame(cameraID string) ([]byte, FrameInfo, error)

	// List returns a snapshot for every managed camera, ordered by id.
	List() []Snapshot

	// Sync starts and stops viewers so exactly cameraIDs are managed.
	Sync(cameraIDs []string) (added, removed []string)

	// StopAll stops every viewer concurrently.
	StopAll()
}

// managedViewer tracks a viewer within the pool.
type managedViewer struct {
	viewer *Viewer
	mu     sync.Mutex
	state  State
}

// pool implements the Pool interface.
type pool struct {
	opts    PoolOptions
	logger  *slog.Logger
	mu      sync.RWMutex
	viewers map[string]*managedViewer
}

// NewPool creates a new viewer pool.
func NewPool(opts *PoolOptions) Pool {
	if opts == nil || opts.ConfigProvider == nil {
		panic("PoolOptions with ConfigProvider is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &pool{
		opts:    *opts,
		logger:  logger,
		viewers: make(map[string]*managedViewer),
	}
}

// Start starts a viewer for cameraID.
func (p *pool) Start(cameraID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.viewers[cameraID]; exists {
		return fmt.Errorf("camera %s already running", cameraID)
	}

	cfg, err := p.opts.ConfigProvider(cameraID)
	if err != nil {
		return fmt.Errorf("failed to configure viewer: %w", err)
	}
	cfg.CameraID = cameraID

	mv := &managedViewer{state: StateIdle}
	userHook := cfg.Hooks.State
	cfg.Hooks.State = func(s Snapshot) {
		if userHook != nil {
			userHook(s)
		}
		p.observeState(mv, s)
	}
	mv.viewer = NewViewer(cfg)
	p.viewers[cameraID] = mv

	p.logger.Info("Starting camera viewer", "camera_id", cameraID)
	mv.viewer.Start()
	return nil
}

func (p *pool) observeState(mv *managedViewer, s Snapshot) {
	mv.mu.Lock()
	old := mv.state
	mv.state = s.State
	mv.mu.Unlock()

	if old != s.State && p.opts.OnStateChange != nil {
		p.opts.OnStateChange(s.CameraID, old, s.State, s)
	}
}

// Stop stops the viewer for cameraID. Unknown ids are ignored.
func (p *pool) Stop(cameraID string) error {
	p.mu.Lock()
	mv, exists := p.viewers[cameraID]
	delete(p.viewers, cameraID)
	p.mu.Unlock()

	if !exists {
		return nil
	}

	p.logger.Info("Stopping camera viewer", "camera_id", cameraID)
	mv.viewer.Stop()
	return nil
}

// Reconnect forces a new session for cameraID.
func (p *pool) Reconnect(cameraID string) error {
	v, ok := p.Viewer(cameraID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}
	v.Reconnect()
	return nil
}

// GetStatus returns the snapshot for cameraID.
func (p *pool) GetStatus(cameraID string) (Snapshot, error) {
	v, ok := p.Viewer(cameraID)
	if !ok {
		return Snapshot{CameraID: cameraID, State: StateIdle}, fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}
	return v.Snapshot(), nil
}

// Viewer returns the viewer for cameraID.
func (p *pool) Viewer(cameraID string) (*Viewer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	mv, ok := p.viewers[cameraID]
	if !ok {
		return nil, false
	}
	return mv.viewer, true
}

// Frame copies the current frame of cameraID while holding its read lock.
func (p *pool) Frame(cameraID string) ([]byte, FrameInfo, error) {
	v, ok := p.Viewer(cameraID)
	if !ok {
		return nil, FrameInfo{}, fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}

	var (
		data []byte
		info FrameInfo
	)
	v.View(func(h *Handle) {
		if !h.Displayable() {
			return
		}
		data = bytes.Clone(h.Bytes())
		info = h.Info()
	})
	if data == nil {
		return nil, FrameInfo{}, fmt.Errorf("%w: %s", ErrNoFrame, cameraID)
	}
	return data, info, nil
}

// List returns snapshots of all viewers.
func (p *pool) List() []Snapshot {
	ids := p.ids()
	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		if v, ok := p.Viewer(id); ok {
			out = append(out, v.Snapshot())
		}
	}
	return out
}

// Sync reconciles the running viewers with cameraIDs.
func (p *pool) Sync(cameraIDs []string) (added, removed []string) {
	for _, id := range p.ids() {
		if !slices.Contains(cameraIDs, id) {
			_ = p.Stop(id)
			removed = append(removed, id)
		}
	}
	for _, id := range cameraIDs {
		if _, ok := p.Viewer(id); ok {
			continue
		}
		if err := p.Start(id); err != nil {
			p.logger.Error("Failed to start camera viewer", "camera_id", id, "error", err)
			continue
		}
		added = append(added, id)
	}
	return added, removed
}

// StopAll stops every viewer.
func (p *pool) StopAll() {
	p.logger.Info("Stopping all camera viewers")

	var g errgroup.Group
	for _, id := range p.ids() {
		g.Go(func() error {
			return p.Stop(id)
		})
	}
	_ = g.Wait()

	p.logger.Info("All camera viewers stopped")
}

func (p *pool) ids() []string {
	p.mu.RLock()
	ids := make([]string, 0, len(p.viewers))
	for id := range p.viewers {
		ids = append(ids, id)
	}
	p.mu.RUnlock()

	slices.SortFunc(ids, compareCameraIDs)
	return ids
}

// compareCameraIDs orders numeric ids numerically and others lexically.
func compareCameraIDs(a, b string) int {
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
