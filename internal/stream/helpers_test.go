package stream

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/camview/internal/camera"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// encodeJPEG returns a real, decodable JPEG of the given size.
func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	img.Set(0, 0, color.Gray{Y: 200})

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeConn is one stream opened through fakeOpener.
type fakeConn struct {
	req camera.Request
	w   *io.PipeWriter
}

func (c *fakeConn) send(t *testing.T, chunks ...[]byte) {
	t.Helper()
	for _, chunk := range chunks {
		if _, err := c.w.Write(chunk); err != nil {
			t.Fatalf("write to stream %d: %v", c.req.Key, err)
		}
	}
}

func (c *fakeConn) fail(err error) {
	_ = c.w.CloseWithError(err)
}

// fakeOpener hands every opened stream to the test through conns. Stream
// bodies fail once the request context is cancelled, like HTTP bodies do.
type fakeOpener struct {
	conns   chan *fakeConn
	openErr func(req camera.Request) error
	opened  atomic.Int32
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{conns: make(chan *fakeConn, 16)}
}

func (o *fakeOpener) Open(ctx context.Context, req camera.Request) (io.ReadCloser, error) {
	o.opened.Add(1)
	if o.openErr != nil {
		if err := o.openErr(req); err != nil {
			return nil, err
		}
	}
	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		_ = pw.CloseWithError(ctx.Err())
	}()
	o.conns <- &fakeConn{req: req, w: pw}
	return pr, nil
}

func (o *fakeOpener) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-o.conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for stream to be opened")
		return nil
	}
}

func (o *fakeOpener) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case c := <-o.conns:
		t.Fatalf("unexpected stream opened with key %d", c.req.Key)
	case <-time.After(wait):
	}
}

// countingAllocator checks that every buffer handed out is released.
type countingAllocator struct {
	allocs   atomic.Int64
	releases atomic.Int64
}

func (a *countingAllocator) Alloc(n int) []byte {
	a.allocs.Add(1)
	return make([]byte, n)
}

func (a *countingAllocator) Release([]byte) {
	a.releases.Add(1)
}

func (a *countingAllocator) balanced() bool {
	return a.allocs.Load() == a.releases.Load()
}

// stateLog records state transitions reported through hooks.
type stateLog struct {
	mu     sync.Mutex
	states []Snapshot
	ch     chan Snapshot
}

func newStateLog() *stateLog {
	return &stateLog{ch: make(chan Snapshot, 64)}
}

func (l *stateLog) hook(s Snapshot) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
	l.ch <- s
}

// waitState blocks until a snapshot in state arrives.
func (l *stateLog) waitState(t *testing.T, state State) Snapshot {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-l.ch:
			if s.State == state {
				return s
			}
		case <-deadline:
			t.Fatalf("timeout waiting for state %s", state)
		}
	}
}

func (l *stateLog) sequence() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]State, len(l.states))
	for i, s := range l.states {
		out[i] = s.State
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
