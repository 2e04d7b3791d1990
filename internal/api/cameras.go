package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camview/internal/api/models"
	"github.com/smazurov/camview/internal/restart"
	"github.com/smazurov/camview/internal/stream"
)

func (s *Server) registerCameraRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-cameras",
		Method:      http.MethodGet,
		Path:        "/api/cameras",
		Summary:     "List Cameras",
		Description: "Stream state of every managed camera",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.CameraListResponse, error) {
		snaps := s.cameras.List()
		cameras := make([]models.CameraData, 0, len(snaps))
		for _, snap := range snaps {
			cameras = append(cameras, domainToAPICamera(snap))
		}
		return &models.CameraListResponse{
			Body: models.CameraListData{Cameras: cameras, Count: len(cameras)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{id}",
		Summary:     "Get Camera",
		Description: "Stream state of one camera",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.CameraIDInput) (*models.CameraResponse, error) {
		snap, err := s.cameras.GetStatus(input.ID)
		if err != nil {
			return nil, cameraError(err)
		}
		return &models.CameraResponse{Body: domainToAPICamera(snap)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera-frame",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{id}/frame",
		Summary:     "Latest Frame",
		Description: "Most recent displayable JPEG frame received from the camera",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.CameraIDInput) (*models.FrameResponse, error) {
		data, info, err := s.cameras.Frame(input.ID)
		if err != nil {
			return nil, cameraError(err)
		}
		return &models.FrameResponse{
			ContentType:  "image/jpeg",
			CacheControl: "no-store",
			FrameSeq:     strconv.FormatUint(info.Seq, 10),
			Body:         data,
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reconnect-camera",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{id}/reconnect",
		Summary:     "Reconnect Camera",
		Description: "Drop the current connection and open a new session with a fresh key",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.CameraIDInput) (*models.CameraResponse, error) {
		if err := s.cameras.Reconnect(input.ID); err != nil {
			return nil, cameraError(err)
		}
		snap, err := s.cameras.GetStatus(input.ID)
		if err != nil {
			return nil, cameraError(err)
		}
		return &models.CameraResponse{Body: domainToAPICamera(snap)}, nil
	})
}

func (s *Server) registerRestartRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "restart-camera",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{id}/restart",
		Summary:     "Record Restart",
		Description: "Record a camera restart in the shared restart record; every viewer of the camera reconnects. Camera 0 restarts all cameras.",
		Tags:        []string{"restarts"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.RestartInput) (*models.RestartResponse, error) {
		if input.ID != restart.AllCameras {
			if _, err := s.cameras.GetStatus(input.ID); err != nil {
				return nil, cameraError(err)
			}
		}

		at, err := s.restarts.Restart(input.ID)
		if err != nil {
			s.logger.Warn("Restart kept in memory only", "camera_id", input.ID, "error", err)
		}
		return &models.RestartResponse{
			Body: models.RestartData{CameraID: input.ID, At: at, Persisted: err == nil},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-restarts",
		Method:      http.MethodGet,
		Path:        "/api/restarts",
		Summary:     "Restart Record",
		Description: "Last recorded restart per camera",
		Tags:        []string{"restarts"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.RestartRecordResponse, error) {
		return &models.RestartRecordResponse{
			Body: models.RestartRecordData{Restarts: s.restarts.Snapshot()},
		}, nil
	})
}

// cameraError maps pool errors to HTTP errors.
func cameraError(err error) error {
	switch {
	case errors.Is(err, stream.ErrCameraNotFound):
		return huma.Error404NotFound("Camera not found", err)
	case errors.Is(err, stream.ErrNoFrame):
		return huma.Error404NotFound("No frame received yet", err)
	default:
		return huma.Error500InternalServerError("Camera request failed", err)
	}
}

func domainToAPICamera(snap stream.Snapshot) models.CameraData {
	data := models.CameraData{
		CameraID:    snap.CameraID,
		SessionID:   snap.SessionID,
		Key:         snap.Key,
		State:       string(snap.State),
		Connected:   snap.Connected,
		FPS:         snap.FPS,
		LastError:   snap.LastError,
		FramesTotal: snap.FramesTotal,
		Reconnects:  snap.Reconnects,
	}
	if !snap.StartedAt.IsZero() {
		started := snap.StartedAt
		data.StartedAt = &started
	}
	if f := snap.Frame; f != nil {
		data.Frame = &models.FrameData{
			Seq:         f.Seq,
			Size:        f.Size,
			Width:       f.Width,
			Height:      f.Height,
			Displayable: f.Displayable,
			ReceivedAt:  f.At,
		}
	}
	return data
}
