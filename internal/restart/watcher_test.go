package restart

import "testing"

type fixedObserver map[string]int64

func (f fixedObserver) Observe(id string) int64 { return f[id] }

func TestWatcher_StrictlyGreater(t *testing.T) {
	w := NewWatcher(100)

	tests := []struct {
		ts   int64
		want bool
	}{
		{50, false},
		{100, false},
		{101, true},
		{101, false},
		{500, true},
		{400, false},
	}
	for _, tt := range tests {
		if got := w.Accept(tt.ts); got != tt.want {
			t.Errorf("Accept(%d) = %v, want %v", tt.ts, got, tt.want)
		}
	}
	if w.Last() != 500 {
		t.Errorf("Last = %d, want 500", w.Last())
	}
}

func TestWatcher_CheckDoesNotRetrigger(t *testing.T) {
	c := NewCoordinator(NewMemoryStore(), nil, testLogger())
	w := NewWatcher(c.Observe("5"))

	_ = c.Record("5", 1000)

	if ts, ok := w.Check(c, "5"); !ok || ts != 1000 {
		t.Fatalf("first Check = (%d, %v), want (1000, true)", ts, ok)
	}
	// Polling the same record again must not fire a second time.
	if _, ok := w.Check(c, "5"); ok {
		t.Error("stale timestamp re-triggered the watcher")
	}
}

func TestWatcher_CheckUsesAllCameras(t *testing.T) {
	w := NewWatcher(0)
	obs := fixedObserver{"7": 10}

	if _, ok := w.Check(obs, "7"); !ok {
		t.Error("expected first observation to fire")
	}
	if _, ok := w.Check(obs, "7"); ok {
		t.Error("expected repeated observation to be ignored")
	}
}
