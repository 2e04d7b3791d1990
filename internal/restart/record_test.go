package restart

import (
	"slices"
	"testing"

	"github.com/smazurov/camview/internal/events"
)

func TestRecord_SetUpdatesAllCameras(t *testing.T) {
	r := Record{}
	r.Set("5", 100)

	if r["5"] != 100 {
		t.Errorf("record[5] = %d, want 100", r["5"])
	}
	if r[AllCameras] != 100 {
		t.Errorf("record[0] = %d, want 100", r[AllCameras])
	}
}

func TestRecord_SetAllCamerasOnly(t *testing.T) {
	r := Record{}
	r.Set(AllCameras, 100)

	if len(r) != 1 || r[AllCameras] != 100 {
		t.Errorf("unexpected record %v", r)
	}
}

func TestRecord_SetNeverMovesBackwards(t *testing.T) {
	r := Record{}
	r.Set("5", 200)
	r.Set("5", 150)

	if r["5"] != 200 || r[AllCameras] != 200 {
		t.Errorf("record went backwards: %v", r)
	}
}

func TestRecord_Latest(t *testing.T) {
	r := Record{"5": 100, "7": 300, AllCameras: 200}

	tests := []struct {
		camera string
		want   int64
	}{
		{"5", 200},
		{"7", 300},
		{"9", 200},
		{AllCameras, 200},
	}
	for _, tt := range tests {
		if got := r.Latest(tt.camera); got != tt.want {
			t.Errorf("Latest(%q) = %d, want %d", tt.camera, got, tt.want)
		}
	}
}

func TestRecord_MergeAndChanged(t *testing.T) {
	prev := Record{"1": 10, "2": 20}
	next := Record{"1": 10, "2": 25, "3": 5}

	changed := next.Changed(prev)
	slices.Sort(changed)
	if !slices.Equal(changed, []string{"2", "3"}) {
		t.Errorf("Changed = %v, want [2 3]", changed)
	}

	prev.Merge(next)
	if prev["2"] != 25 || prev["3"] != 5 || prev["1"] != 10 {
		t.Errorf("unexpected merge result %v", prev)
	}
}

func TestRecord_CloneNil(t *testing.T) {
	var r Record
	c := r.Clone()
	c["1"] = 1 // must not panic
}

func TestRecord_AllCamerasMatchesRestartEvents(t *testing.T) {
	rec := Record{}
	rec.Set(AllCameras, 500)

	ev := events.CameraRestartedEvent{CameraID: AllCameras, At: 500}
	for _, id := range []string{"1", "7"} {
		if !ev.AppliesTo(id) {
			t.Errorf("restart event for %q should reach camera %s", AllCameras, id)
		}
		if got := rec.Latest(id); got != 500 {
			t.Errorf("camera %s: expected 500, got %d", id, got)
		}
	}
}
