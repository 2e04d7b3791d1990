// Package metrics provides Prometheus metrics for camera stream sessions.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camview",
		Subsystem: "stream",
		Name:      "fps",
		Help:      "Frames received during the last second",
	}, []string{"camera_id"})

	streamConnected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camview",
		Subsystem: "stream",
		Name:      "connected",
		Help:      "1 while stream bytes are being received",
	}, []string{"camera_id"})

	streamFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camview",
		Subsystem: "stream",
		Name:      "frames_total",
		Help:      "Frames demultiplexed from the stream",
	}, []string{"camera_id"})

	streamBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camview",
		Subsystem: "stream",
		Name:      "frame_bytes_total",
		Help:      "JPEG bytes received in complete frames",
	}, []string{"camera_id"})

	streamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camview",
		Subsystem: "stream",
		Name:      "errors_total",
		Help:      "Sessions that ended with a connection error",
	}, []string{"camera_id"})

	streamReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camview",
		Subsystem: "stream",
		Name:      "reconnects_total",
		Help:      "Sessions replaced, by trigger",
	}, []string{"camera_id", "trigger"})

	// Local cache for API access.
	streamCache   = make(map[string]*StreamMetrics)
	streamCacheMu sync.RWMutex
)

// StreamMetrics holds current metric values for a camera.
type StreamMetrics struct {
	FPS        int    `json:"fps"`
	Connected  bool   `json:"connected"`
	Frames     uint64 `json:"frames"`
	Bytes      uint64 `json:"bytes"`
	Errors     uint64 `json:"errors"`
	Reconnects uint64 `json:"reconnects"`
}

// SetFPS sets the measured frame rate for a camera.
func SetFPS(cameraID string, fps int) {
	streamFPS.WithLabelValues(cameraID).Set(float64(fps))
	updateCache(cameraID, func(m *StreamMetrics) { m.FPS = fps })
}

// SetConnected records whether the camera is receiving bytes.
func SetConnected(cameraID string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	streamConnected.WithLabelValues(cameraID).Set(v)
	updateCache(cameraID, func(m *StreamMetrics) { m.Connected = connected })
}

// RecordFrame counts one received frame of size bytes.
func RecordFrame(cameraID string, size int) {
	streamFrames.WithLabelValues(cameraID).Inc()
	streamBytes.WithLabelValues(cameraID).Add(float64(size))
	updateCache(cameraID, func(m *StreamMetrics) {
		m.Frames++
		m.Bytes += uint64(size)
	})
}

// RecordError counts a failed session.
func RecordError(cameraID string) {
	streamErrors.WithLabelValues(cameraID).Inc()
	updateCache(cameraID, func(m *StreamMetrics) { m.Errors++ })
}

// RecordReconnect counts a replaced session.
func RecordReconnect(cameraID, trigger string) {
	streamReconnects.WithLabelValues(cameraID, trigger).Inc()
	updateCache(cameraID, func(m *StreamMetrics) { m.Reconnects++ })
}

// DeleteCamera removes all metrics for a camera.
func DeleteCamera(cameraID string) {
	streamFPS.DeleteLabelValues(cameraID)
	streamConnected.DeleteLabelValues(cameraID)
	streamFrames.DeleteLabelValues(cameraID)
	streamBytes.DeleteLabelValues(cameraID)
	streamErrors.DeleteLabelValues(cameraID)
	streamReconnects.DeletePartialMatch(prometheus.Labels{"camera_id": cameraID})

	streamCacheMu.Lock()
	delete(streamCache, cameraID)
	streamCacheMu.Unlock()
}

// GetStreamMetrics returns a copy of the camera's metrics, or nil.
func GetStreamMetrics(cameraID string) *StreamMetrics {
	streamCacheMu.RLock()
	defer streamCacheMu.RUnlock()
	if m, ok := streamCache[cameraID]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllStreamMetrics returns copies of every camera's metrics.
func GetAllStreamMetrics() map[string]*StreamMetrics {
	streamCacheMu.RLock()
	defer streamCacheMu.RUnlock()
	result := make(map[string]*StreamMetrics, len(streamCache))
	for id, m := range streamCache {
		dup := *m
		result[id] = &dup
	}
	return result
}

func updateCache(cameraID string, update func(*StreamMetrics)) {
	streamCacheMu.Lock()
	defer streamCacheMu.Unlock()
	m, ok := streamCache[cameraID]
	if !ok {
		m = &StreamMetrics{}
		streamCache[cameraID] = m
	}
	update(m)
}
