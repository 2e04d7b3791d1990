package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/camview/internal/camera"
	"github.com/smazurov/camview/internal/mjpeg"
)

// ErrStreamEnded is recorded when the camera closes the stream body. A live
// stream never ends on its own, so this counts as a connection failure.
var ErrStreamEnded = errors.New("stream ended by remote")

// DefaultReadBufferSize is the size of each network read.
const DefaultReadBufferSize = 32 * 1024

// Hooks receive session updates. All fields are optional and are called from
// the session's goroutines.
type Hooks struct {
	State func(s Snapshot)
	FPS   func(cameraID string, key int64, fps int)
	Frame func(cameraID string, key int64, info FrameInfo)
}

// SessionConfig configures one session.
type SessionConfig struct {
	CameraID string
	Key      int64

	Opener camera.Opener
	Tokens camera.TokenSource // nil means unauthenticated

	Allocator      Allocator // nil means a private PoolAllocator
	ReadBufferSize int
	FPSInterval    time.Duration // zero means FPSWindow
	Now            func() time.Time

	Hooks  Hooks
	Logger *slog.Logger
}

// Session is a single connection attempt for one session key.
type Session struct {
	cfg    SessionConfig
	id     string
	logger *slog.Logger

	demux   *mjpeg.Demuxer
	meter   *Meter
	handles *Handles
	ran     atomic.Bool

	mu        sync.RWMutex
	state     State
	connected bool
	lastErr   error
	frames    uint64
	startedAt time.Time
}

// NewSession creates an idle session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Allocator == nil {
		cfg.Allocator = NewPoolAllocator()
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if cfg.FPSInterval <= 0 {
		cfg.FPSInterval = FPSWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	id := uuid.NewString()
	demux := mjpeg.NewDemuxer()
	demux.NewBuffer = cfg.Allocator.Alloc

	return &Session{
		cfg:     cfg,
		id:      id,
		logger:  cfg.Logger.With("camera_id", cfg.CameraID, "key", cfg.Key, "session_id", id),
		demux:   demux,
		meter:   NewMeter(),
		handles: NewHandles(cfg.Allocator),
		state:   StateIdle,
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Key returns the session key.
func (s *Session) Key() int64 { return s.cfg.Key }

// Run connects and streams until the connection fails or ctx is cancelled.
// Cancellation ends in StateClosed and returns nil; any other end leaves the
// session in StateError and returns the cause. Buffers, the current frame and
// the fps ticker are released before Run returns. A session runs only once.
func (s *Session) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return fmt.Errorf("session %s already ran", s.id)
	}

	s.mu.Lock()
	s.startedAt = s.cfg.Now()
	s.mu.Unlock()
	s.transition(StateConnecting, false, nil)

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	err := s.stream(runCtx, &wg)

	cancel()
	wg.Wait()
	s.demux.Reset()
	s.handles.Close()
	s.meter.Reset()

	if ctx.Err() != nil {
		s.logger.Debug("Stream session closed")
		s.transition(StateClosed, false, nil)
		return nil
	}

	s.logger.Warn("Stream session failed", "error", err)
	s.transition(StateError, false, err)
	return err
}

func (s *Session) stream(ctx context.Context, wg *sync.WaitGroup) error {
	req := camera.Request{CameraID: s.cfg.CameraID, Key: s.cfg.Key}
	if s.cfg.Tokens != nil {
		token, err := s.cfg.Tokens.Token()
		if err != nil {
			return err
		}
		req.Token = token
	}

	body, err := s.cfg.Opener.Open(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runMeter(ctx, s.meter, s.cfg.FPSInterval, s.cfg.Now, func(fps int) {
			if s.cfg.Hooks.FPS != nil {
				s.cfg.Hooks.FPS(s.cfg.CameraID, s.cfg.Key, fps)
			}
		})
	}()

	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if s.State() == StateConnecting {
				s.logger.Info("Stream connected")
				s.transition(StateStreaming, true, nil)
			}
			for _, f := range s.demux.Write(buf[:n], s.cfg.Now()) {
				s.deliver(f)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return ErrStreamEnded
			}
			return readErr
		}
	}
}

// deliver feeds a frame to the meter and then the handle holder.
func (s *Session) deliver(f mjpeg.Frame) {
	s.meter.Observe(f.At)
	h := s.handles.Publish(f)
	if h == nil {
		return
	}

	s.mu.Lock()
	s.frames++
	s.mu.Unlock()

	if !h.Displayable() {
		s.logger.Debug("Frame header not decodable", "size", h.info.Size)
	}
	if s.cfg.Hooks.Frame != nil {
		s.cfg.Hooks.Frame(s.cfg.CameraID, s.cfg.Key, h.Info())
	}
}

func (s *Session) transition(state State, connected bool, err error) {
	s.mu.Lock()
	s.state = state
	s.connected = connected
	if err != nil {
		s.lastErr = err
	}
	s.mu.Unlock()

	if s.cfg.Hooks.State != nil {
		s.cfg.Hooks.State(s.Snapshot())
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the error that ended the session, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Snapshot returns the session's observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		CameraID:    s.cfg.CameraID,
		SessionID:   s.id,
		Key:         s.cfg.Key,
		State:       s.state,
		Connected:   s.connected,
		FramesTotal: s.frames,
		StartedAt:   s.startedAt,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	s.mu.RUnlock()

	snap.FPS = s.meter.FPS()
	if info, ok := s.handles.Current(); ok {
		snap.Frame = &info
	}
	return snap
}

// View calls fn with the current frame handle, see Handles.View.
func (s *Session) View(fn func(*Handle)) bool {
	return s.handles.View(fn)
}

// Handles exposes the session's handle holder.
func (s *Session) Handles() *Handles {
	return s.handles
}
