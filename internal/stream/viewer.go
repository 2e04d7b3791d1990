package stream

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/camview/internal/camera"
	"github.com/smazurov/camview/internal/events"
	"github.com/smazurov/camview/internal/restart"
)

// DefaultRestartPoll is how often a viewer re-reads the restart record.
const DefaultRestartPoll = 5 * time.Second

// ViewerConfig configures a Viewer.
type ViewerConfig struct {
	CameraID string

	Opener   camera.Opener
	Tokens   camera.TokenSource
	Restarts restart.Observer // nil disables restart tracking
	Bus      *events.Bus      // nil disables in-process restart events and publishing

	Policy         Policy
	PollInterval   time.Duration // zero means DefaultRestartPoll
	FPSInterval    time.Duration
	ReadBufferSize int
	Allocator      Allocator
	Now            func() time.Time

	// Hooks only see updates from the viewer's current session.
	Hooks Hooks
	// OnReconnect is called whenever a session replaces an earlier one.
	OnReconnect func(cameraID string, trigger Trigger, key int64)

	Logger *slog.Logger
}

// sessionResult is what a finished session reports to the control loop.
type sessionResult struct {
	key int64
	err error
}

// Viewer keeps one camera connected. A single control goroutine owns session
// replacement: it reacts to session failures, the reconnect timer, restart
// record changes and Stop.
type Viewer struct {
	cfg    ViewerConfig
	logger *slog.Logger
	keys   KeySource

	currentKey atomic.Int64
	reconnects atomic.Uint64

	mu      sync.RWMutex
	session *Session
	last    Snapshot
	stopped bool

	manual    chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
	done      chan struct{}
}

// NewViewer creates a viewer. Call Start to begin streaming.
func NewViewer(cfg ViewerConfig) *Viewer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultRestartPoll
	}
	if cfg.Allocator == nil {
		cfg.Allocator = NewPoolAllocator()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Viewer{
		cfg:    cfg,
		logger: cfg.Logger.With("camera_id", cfg.CameraID),
		last:   Snapshot{CameraID: cfg.CameraID, State: StateIdle},
		manual: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// CameraID returns the viewed camera.
func (v *Viewer) CameraID() string { return v.cfg.CameraID }

// Start launches the control goroutine. Further calls do nothing.
func (v *Viewer) Start() {
	v.startOnce.Do(func() {
		go v.run()
	})
}

// Stop cancels the current session and waits for its teardown. Safe to call
// more than once, and before Start.
func (v *Viewer) Stop() {
	v.stopOnce.Do(func() {
		close(v.stop)
	})
	v.startOnce.Do(func() { close(v.done) })
	<-v.done
}

// Done is closed once the viewer has stopped.
func (v *Viewer) Done() <-chan struct{} {
	return v.done
}

// Reconnect replaces the current session immediately.
func (v *Viewer) Reconnect() {
	select {
	case v.manual <- struct{}{}:
	default:
	}
}

// Snapshot returns the state of the current session.
func (v *Viewer) Snapshot() Snapshot {
	v.mu.RLock()
	sess, last, stopped := v.session, v.last, v.stopped
	v.mu.RUnlock()

	snap := last
	if sess != nil && !stopped {
		snap = sess.Snapshot()
	}
	snap.Reconnects = v.reconnects.Load()
	return snap
}

// View calls fn with the current frame handle, if any.
func (v *Viewer) View(fn func(*Handle)) bool {
	v.mu.RLock()
	sess := v.session
	v.mu.RUnlock()
	if sess == nil {
		return false
	}
	return sess.View(fn)
}

func (v *Viewer) run() {
	defer close(v.done)

	var restarts chan events.CameraRestartedEvent
	if v.cfg.Bus != nil {
		restarts = make(chan events.CameraRestartedEvent, 16)
		unsub := events.SubscribeTyped(v.cfg.Bus, restarts)
		defer unsub()
	}

	// Catch restarts that happened while no viewer existed: the first key is
	// at least the recorded restart time.
	var (
		watcher *restart.Watcher
		initial int64
	)
	if v.cfg.Restarts != nil {
		initial = v.cfg.Restarts.Observe(v.cfg.CameraID)
		watcher = restart.NewWatcher(initial)
	}

	poll := time.NewTicker(v.cfg.PollInterval)
	defer poll.Stop()

	c := &control{v: v, results: make(chan sessionResult, 1)}
	c.start(v.keys.Next(initial))

	for {
		select {
		case <-v.stop:
			c.teardown()
			v.finish()
			return

		case res := <-c.results:
			if c.cancel != nil {
				c.cancel()
				c.cancel = nil
			}
			if res.err == nil || res.key != v.currentKey.Load() {
				continue
			}
			if delay, ok := v.cfg.Policy.Decide(TriggerError, v.state()); ok {
				v.logger.Debug("Scheduling reconnect", "delay", delay, "error", res.err)
				c.scheduleRetry(delay)
			}

		case <-c.retryC:
			c.retryC = nil
			c.replace(TriggerError, v.currentKey.Load()+1)

		case ev := <-restarts:
			if watcher == nil || !ev.AppliesTo(v.cfg.CameraID) || !watcher.Accept(ev.At) {
				continue
			}
			v.logger.Info("Camera restart signalled", "at", ev.At)
			c.replace(TriggerRestart, ev.At)

		case <-poll.C:
			if watcher == nil {
				continue
			}
			if ts, ok := watcher.Check(v.cfg.Restarts, v.cfg.CameraID); ok {
				v.logger.Info("Camera restart observed", "at", ts)
				c.replace(TriggerRestart, ts)
			}

		case <-v.manual:
			c.replace(TriggerManual, v.cfg.Now().UnixMilli())
		}
	}
}

// control holds the control goroutine's session bookkeeping. It is only used
// from that goroutine.
type control struct {
	v       *Viewer
	cancel  context.CancelFunc
	results chan sessionResult
	retry   *time.Timer
	retryC  <-chan time.Time
}

func (c *control) start(key int64) {
	sess := c.v.newSession(key)
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.v.mu.Lock()
	c.v.session = sess
	c.v.mu.Unlock()
	c.v.currentKey.Store(key)

	go func() {
		c.results <- sessionResult{key: key, err: sess.Run(ctx)}
	}()
}

// teardown cancels the running session, if any, and waits until it has
// released everything, so sessions never overlap.
func (c *control) teardown() {
	if c.retry != nil {
		c.retry.Stop()
		c.retryC = nil
	}
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	<-c.results
}

func (c *control) scheduleRetry(delay time.Duration) {
	if c.retry == nil {
		c.retry = time.NewTimer(delay)
	} else {
		c.retry.Reset(delay)
	}
	c.retryC = c.retry.C
}

// replace starts a session with a key of at least candidate.
func (c *control) replace(trigger Trigger, candidate int64) {
	if _, ok := c.v.cfg.Policy.Decide(trigger, c.v.state()); !ok {
		return
	}
	c.teardown()

	key := c.v.keys.Next(candidate)
	c.v.reconnects.Add(1)
	c.v.logger.Info("Reconnecting stream", "trigger", trigger.String(), "key", key)
	if c.v.cfg.OnReconnect != nil {
		c.v.cfg.OnReconnect(c.v.cfg.CameraID, trigger, key)
	}
	c.start(key)
}

// state is the current session's state, or closed once stopped.
func (v *Viewer) state() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.stopped {
		return StateClosed
	}
	if v.session == nil {
		return StateIdle
	}
	return v.session.State()
}

func (v *Viewer) finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session != nil {
		v.last = v.session.Snapshot()
	}
	v.last.State = StateClosed
	v.last.Connected = false
	v.last.FPS = 0
	v.last.Frame = nil
	v.stopped = true
	v.session = nil
	v.logger.Info("Viewer stopped")
}

// newSession builds a session whose updates are dropped once a newer key
// has been selected.
func (v *Viewer) newSession(key int64) *Session {
	current := func() bool { return v.currentKey.Load() == key }
	hooks := v.cfg.Hooks
	bus := v.cfg.Bus

	return NewSession(SessionConfig{
		CameraID:       v.cfg.CameraID,
		Key:            key,
		Opener:         v.cfg.Opener,
		Tokens:         v.cfg.Tokens,
		Allocator:      v.cfg.Allocator,
		ReadBufferSize: v.cfg.ReadBufferSize,
		FPSInterval:    v.cfg.FPSInterval,
		Now:            v.cfg.Now,
		Logger:         v.cfg.Logger,
		Hooks: Hooks{
			State: func(s Snapshot) {
				if !current() {
					return
				}
				s.Reconnects = v.reconnects.Load()
				if hooks.State != nil {
					hooks.State(s)
				}
				if bus != nil {
					bus.Publish(events.StreamStateChangedEvent{
						CameraID:  s.CameraID,
						Key:       s.Key,
						State:     string(s.State),
						Connected: s.Connected,
						Error:     s.LastError,
						Timestamp: v.cfg.Now().UTC().Format(time.RFC3339),
					})
				}
			},
			FPS: func(cameraID string, key int64, fps int) {
				if !current() {
					return
				}
				if hooks.FPS != nil {
					hooks.FPS(cameraID, key, fps)
				}
				if bus != nil {
					bus.Publish(events.StreamFPSEvent{
						CameraID:  cameraID,
						Key:       key,
						FPS:       fps,
						Timestamp: v.cfg.Now().UTC().Format(time.RFC3339),
					})
				}
			},
			Frame: func(cameraID string, key int64, info FrameInfo) {
				if !current() {
					return
				}
				if hooks.Frame != nil {
					hooks.Frame(cameraID, key, info)
				}
				if bus != nil {
					bus.Publish(events.StreamFrameEvent{
						CameraID: cameraID,
						Key:      key,
						Seq:      info.Seq,
						Size:     info.Size,
					})
				}
			},
		},
	})
}
