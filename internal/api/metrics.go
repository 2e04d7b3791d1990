package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camview/internal/api/models"
	"github.com/smazurov/camview/internal/metrics"
)

// registerMetricsRoutes exposes the lifetime stream counters as JSON for
// clients that do not scrape Prometheus.
func (s *Server) registerMetricsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-stream-metrics",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Stream Metrics",
		Description: "Per-camera frame, byte, error and reconnect totals since startup",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StreamMetricsResponse, error) {
		all := metrics.GetAllStreamMetrics()
		out := make(map[string]models.StreamMetricsData, len(all))
		for id, m := range all {
			out[id] = models.StreamMetricsData{
				FPS:        m.FPS,
				Connected:  m.Connected,
				Frames:     m.Frames,
				Bytes:      m.Bytes,
				Errors:     m.Errors,
				Reconnects: m.Reconnects,
			}
		}
		return &models.StreamMetricsResponse{Body: models.StreamMetricsListData{Cameras: out}}, nil
	})
}
