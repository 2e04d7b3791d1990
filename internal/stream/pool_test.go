package stream

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func newTestPool(t *testing.T, opener *fakeOpener, onChange StateChangeCallback) Pool {
	t.Helper()
	p := NewPool(&PoolOptions{
		ConfigProvider: func(string) (ViewerConfig, error) {
			return ViewerConfig{Opener: opener, Logger: testLogger()}, nil
		},
		OnStateChange: onChange,
		Logger:        testLogger(),
	})
	t.Cleanup(p.StopAll)
	return p
}

func TestPool_StartStop(t *testing.T) {
	opener := newFakeOpener()
	p := newTestPool(t, opener, nil)

	if err := p.Start("1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	conn := opener.next(t)
	conn.send(t, []byte{0})
	waitFor(t, "streaming", func() bool {
		s, _ := p.GetStatus("1")
		return s.State == StateStreaming
	})

	if err := p.Start("1"); err == nil {
		t.Error("expected error starting a running camera")
	}

	if err := p.Stop("1"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, err := p.GetStatus("1"); !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("GetStatus after stop: %v", err)
	}
	if err := p.Stop("1"); err != nil {
		t.Errorf("stopping an unknown camera: %v", err)
	}
}

func TestPool_UnknownCamera(t *testing.T) {
	p := newTestPool(t, newFakeOpener(), nil)

	if err := p.Reconnect("9"); !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("Reconnect: %v", err)
	}
	snap, err := p.GetStatus("9")
	if !errors.Is(err, ErrCameraNotFound) || snap.State != StateIdle {
		t.Errorf("GetStatus = %+v, %v", snap, err)
	}
}

func TestPool_ConfigProviderError(t *testing.T) {
	p := NewPool(&PoolOptions{
		ConfigProvider: func(string) (ViewerConfig, error) {
			return ViewerConfig{}, errors.New("no daemon")
		},
		Logger: testLogger(),
	})
	if err := p.Start("1"); err == nil {
		t.Error("expected provider error")
	}
	if len(p.List()) != 0 {
		t.Error("failed start left a viewer behind")
	}
}

func TestPool_StateChangeCallback(t *testing.T) {
	opener := newFakeOpener()

	var (
		mu          sync.Mutex
		transitions [][2]State
	)
	p := newTestPool(t, opener, func(id string, old, next State, snap Snapshot) {
		if id != "4" || snap.CameraID != "4" {
			t.Errorf("callback for unexpected camera %s", id)
		}
		mu.Lock()
		transitions = append(transitions, [2]State{old, next})
		mu.Unlock()
	})

	if err := p.Start("4"); err != nil {
		t.Fatal(err)
	}
	opener.next(t).send(t, []byte{0})
	waitFor(t, "streaming", func() bool {
		s, _ := p.GetStatus("4")
		return s.State == StateStreaming
	})
	_ = p.Stop("4")

	mu.Lock()
	defer mu.Unlock()
	want := [][2]State{
		{StateIdle, StateConnecting},
		{StateConnecting, StateStreaming},
		{StateStreaming, StateClosed},
	}
	if !slices.Equal(transitions, want) {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestPool_SyncAndList(t *testing.T) {
	opener := newFakeOpener()
	p := newTestPool(t, opener, nil)

	added, removed := p.Sync([]string{"10", "2", "1"})
	slices.Sort(added)
	if !slices.Equal(added, []string{"1", "10", "2"}) || len(removed) != 0 {
		t.Fatalf("first Sync = %v, %v", added, removed)
	}

	ids := func() []string {
		var out []string
		for _, s := range p.List() {
			out = append(out, s.CameraID)
		}
		return out
	}
	if got := ids(); !slices.Equal(got, []string{"1", "2", "10"}) {
		t.Errorf("List order = %v", got)
	}

	added, removed = p.Sync([]string{"2", "3"})
	if !slices.Equal(added, []string{"3"}) {
		t.Errorf("added = %v", added)
	}
	slices.Sort(removed)
	if !slices.Equal(removed, []string{"1", "10"}) {
		t.Errorf("removed = %v", removed)
	}
	if got := ids(); !slices.Equal(got, []string{"2", "3"}) {
		t.Errorf("List after sync = %v", got)
	}
}

func TestPool_Reconnect(t *testing.T) {
	opener := newFakeOpener()
	p := newTestPool(t, opener, nil)

	_ = p.Start("1")
	first := opener.next(t)
	if err := p.Reconnect("1"); err != nil {
		t.Fatal(err)
	}
	if second := opener.next(t); second.req.Key <= first.req.Key {
		t.Errorf("reconnect key %d not greater than %d", second.req.Key, first.req.Key)
	}
}

func TestPool_StopAll(t *testing.T) {
	opener := newFakeOpener()
	p := newTestPool(t, opener, nil)

	for _, id := range []string{"1", "2", "3"} {
		if err := p.Start(id); err != nil {
			t.Fatal(err)
		}
	}
	for range 3 {
		opener.next(t)
	}

	done := make(chan struct{})
	go func() {
		p.StopAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("StopAll did not return")
	}
	if len(p.List()) != 0 {
		t.Error("viewers left after StopAll")
	}
}

func TestPool_Frame(t *testing.T) {
	opener := newFakeOpener()
	p := newTestPool(t, opener, nil)

	if _, _, err := p.Frame("1"); !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("Frame for unknown camera: %v", err)
	}

	_ = p.Start("1")
	conn := opener.next(t)
	conn.send(t, []byte{0x00})
	waitFor(t, "streaming", func() bool {
		s, _ := p.GetStatus("1")
		return s.State == StateStreaming
	})
	if _, _, err := p.Frame("1"); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Frame before first image: %v", err)
	}

	img := encodeJPEG(t, 8, 6)
	conn.send(t, img)
	waitFor(t, "frame", func() bool {
		_, _, err := p.Frame("1")
		return err == nil
	})

	data, info, err := p.Frame("1")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(data, img) {
		t.Error("frame bytes differ from the sent image")
	}
	if info.Width != 8 || info.Height != 6 {
		t.Errorf("expected 8x6, got %dx%d", info.Width, info.Height)
	}
}
