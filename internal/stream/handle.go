package stream

import (
	"bytes"
	"image/jpeg"
	"sync"
	"sync/atomic"

	"github.com/smazurov/camview/internal/mjpeg"
)

// Allocator provides frame buffers. Every buffer handed out by Alloc is given
// back through Release exactly once.
type Allocator interface {
	Alloc(n int) []byte
	Release(b []byte)
}

// PoolAllocator recycles frame buffers through a sync.Pool.
type PoolAllocator struct {
	pool sync.Pool
}

// NewPoolAllocator creates an allocator backed by a sync.Pool.
func NewPoolAllocator() *PoolAllocator {
	return &PoolAllocator{}
}

// Alloc returns a buffer of length n.
func (a *PoolAllocator) Alloc(n int) []byte {
	if bp, ok := a.pool.Get().(*[]byte); ok && cap(*bp) >= n {
		return (*bp)[:n]
	}
	return make([]byte, n)
}

// Release returns b to the pool.
func (a *PoolAllocator) Release(b []byte) {
	if cap(b) == 0 {
		return
	}
	b = b[:0]
	a.pool.Put(&b)
}

// Handle is the displayable resource for one frame. Its bytes stay valid until
// the handle is replaced or the owning Handles is closed, so readers must only
// use it inside Handles.View.
type Handle struct {
	info FrameInfo
	data []byte
}

// Bytes returns the JPEG data.
func (h *Handle) Bytes() []byte { return h.data }

// Info returns the frame metadata.
func (h *Handle) Info() FrameInfo { return h.info }

// Displayable reports whether the JPEG header decoded.
func (h *Handle) Displayable() bool { return h.info.Displayable }

// Handles keeps at most one live frame handle, releasing the previous one
// whenever a new frame is published.
type Handles struct {
	alloc Allocator

	mu      sync.RWMutex
	current *Handle
	seq     uint64
	closed  bool

	created  atomic.Uint64
	released atomic.Uint64
}

// NewHandles creates an empty handle holder. The frames it receives must have
// been allocated from alloc.
func NewHandles(alloc Allocator) *Handles {
	return &Handles{alloc: alloc}
}

// Publish turns f into the current handle, taking ownership of f.Data, and
// releases the handle it replaces. After Close the frame is released
// immediately and nil is returned.
func (h *Handles) Publish(f mjpeg.Frame) *Handle {
	next := newHandle(f)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.created.Add(1)
		h.release(next)
		return nil
	}
	h.seq++
	next.info.Seq = h.seq
	prev := h.current
	h.current = next
	h.created.Add(1)
	h.mu.Unlock()

	if prev != nil {
		h.release(prev)
	}
	return next
}

// Close releases the current handle. Further calls do nothing.
func (h *Handles) Close() {
	h.mu.Lock()
	prev := h.current
	h.current = nil
	h.closed = true
	h.mu.Unlock()

	if prev != nil {
		h.release(prev)
	}
}

// View calls fn with the current handle while holding it alive. It returns
// false when there is no current handle.
func (h *Handles) View(fn func(*Handle)) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return false
	}
	fn(h.current)
	return true
}

// Current returns the metadata of the current handle.
func (h *Handles) Current() (FrameInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return FrameInfo{}, false
	}
	return h.current.info, true
}

// Counts returns how many handles were created and released.
func (h *Handles) Counts() (created, released uint64) {
	return h.created.Load(), h.released.Load()
}

// release recycles the buffer of a handle that is no longer current. Taking
// the write lock waits out View calls that still hold it. Callers must not
// hold mu.
func (h *Handles) release(old *Handle) {
	h.mu.Lock()
	data := old.data
	old.data = nil
	h.mu.Unlock()

	h.alloc.Release(data)
	h.released.Add(1)
}

func newHandle(f mjpeg.Frame) *Handle {
	info := FrameInfo{Size: len(f.Data), At: f.At}
	if cfg, err := jpeg.DecodeConfig(bytes.NewReader(f.Data)); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
		info.Displayable = cfg.Width > 0 && cfg.Height > 0
	}
	return &Handle{info: info, data: f.Data}
}
