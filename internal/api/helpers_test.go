package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/camview/internal/events"
	"github.com/smazurov/camview/internal/restart"
	"github.com/smazurov/camview/internal/stream"
)

// fakeCameras is an in-memory CameraService.
type fakeCameras struct {
	mu         sync.Mutex
	snaps      map[string]stream.Snapshot
	frames     map[string][]byte
	infos      map[string]stream.FrameInfo
	reconnects []string
}

func newFakeCameras(ids ...string) *fakeCameras {
	f := &fakeCameras{
		snaps:  make(map[string]stream.Snapshot),
		frames: make(map[string][]byte),
		infos:  make(map[string]stream.FrameInfo),
	}
	for _, id := range ids {
		f.snaps[id] = stream.Snapshot{CameraID: id, Key: 1000, State: stream.StateConnecting}
	}
	return f
}

func (f *fakeCameras) List() []stream.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stream.Snapshot, 0, len(f.snaps))
	for _, id := range []string{"1", "2", "3"} {
		if s, ok := f.snaps[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeCameras) GetStatus(id string) (stream.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[id]
	if !ok {
		return stream.Snapshot{CameraID: id, State: stream.StateIdle}, fmt.Errorf("%w: %s", stream.ErrCameraNotFound, id)
	}
	return s, nil
}

func (f *fakeCameras) Reconnect(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[id]
	if !ok {
		return fmt.Errorf("%w: %s", stream.ErrCameraNotFound, id)
	}
	f.reconnects = append(f.reconnects, id)
	s.Key++
	s.Reconnects++
	f.snaps[id] = s
	return nil
}

func (f *fakeCameras) Frame(id string) ([]byte, stream.FrameInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snaps[id]; !ok {
		return nil, stream.FrameInfo{}, fmt.Errorf("%w: %s", stream.ErrCameraNotFound, id)
	}
	data, ok := f.frames[id]
	if !ok {
		return nil, stream.FrameInfo{}, fmt.Errorf("%w: %s", stream.ErrNoFrame, id)
	}
	return append([]byte(nil), data...), f.infos[id], nil
}

// setFrame makes data the camera's current frame and marks it streaming.
func (f *fakeCameras) setFrame(id string, data []byte) stream.FrameInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := stream.FrameInfo{
		Seq:         f.infos[id].Seq + 1,
		Size:        len(data),
		Width:       640,
		Height:      480,
		Displayable: true,
		At:          time.Now(),
	}
	f.frames[id] = data
	f.infos[id] = info

	s := f.snaps[id]
	s.State = stream.StateStreaming
	s.Connected = true
	s.FramesTotal++
	s.Frame = &info
	f.snaps[id] = s
	return info
}

type testEnv struct {
	server   *Server
	ts       *httptest.Server
	cameras  *fakeCameras
	restarts *restart.Coordinator
	bus      *events.Bus
}

func newTestEnv(t *testing.T, opts Options, ids ...string) *testEnv {
	t.Helper()

	bus := events.New()
	cameras := newFakeCameras(ids...)
	coord := restart.NewCoordinator(restart.NewMemoryStore(), bus, nil)

	opts.Cameras = cameras
	opts.Restarts = coord
	opts.EventBus = bus
	server := NewServer(&opts)

	ts := httptest.NewServer(server.GetMux())
	t.Cleanup(ts.Close)

	return &testEnv{server: server, ts: ts, cameras: cameras, restarts: coord, bus: bus}
}

func (e *testEnv) do(t *testing.T, method, path string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, e.ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(string(b))
}
