package restart

import (
	"maps"
	"strconv"

	"github.com/smazurov/camview/internal/events"
)

// AllCameras is the record key that applies to every camera.
const AllCameras = events.AllCameras

// Record maps camera ids to their last restart time in epoch milliseconds.
type Record map[string]int64

// Latest returns the newest restart that affects cameraID, taking the
// all-cameras entry into account.
func (r Record) Latest(cameraID string) int64 {
	ts := r[cameraID]
	if cameraID != AllCameras {
		ts = max(ts, r[AllCameras])
	}
	return ts
}

// Set records a restart. A specific camera also updates the all-cameras entry.
// Entries never move backwards.
func (r Record) Set(cameraID string, at int64) {
	r[cameraID] = max(r[cameraID], at)
	if cameraID != AllCameras {
		r[AllCameras] = max(r[AllCameras], at)
	}
}

// Merge folds other into r keeping the newer timestamp per key.
func (r Record) Merge(other Record) {
	for id, ts := range other {
		r[id] = max(r[id], ts)
	}
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// Changed returns the ids whose timestamps in r are newer than in prev.
func (r Record) Changed(prev Record) []string {
	var ids []string
	for id, ts := range r {
		if ts > prev[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// CameraKey formats a numeric camera id the way the record stores it.
func CameraKey(id int) string {
	return strconv.Itoa(id)
}
