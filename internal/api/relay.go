package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/smazurov/camview/internal/events"
	"github.com/smazurov/camview/internal/stream"
	"golang.org/x/time/rate"
)

// registerRelayRoutes serves each camera's live frames as a
// multipart/x-mixed-replace stream that browsers render in an <img> tag.
func (s *Server) registerRelayRoutes() {
	s.mux.HandleFunc("GET /cameras/{id}/mjpeg", withRequestLogging(s.requireAuth(s.handleRelay)))
}

func (s *Server) relayLimiter() *rate.Limiter {
	if s.options.RelayMaxFPS <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(s.options.RelayMaxFPS), 1)
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	cameraID := r.PathValue("id")
	if _, err := s.cameras.GetStatus(cameraID); err != nil {
		http.Error(w, "camera not found", http.StatusNotFound)
		return
	}

	frames := make(chan events.StreamFrameEvent, 8)
	unsub := events.SubscribeTyped(s.eventBus, frames)
	defer unsub()

	removed := make(chan events.CameraRemovedEvent, 4)
	unsubRemoved := events.SubscribeTyped(s.eventBus, removed)
	defer unsubRemoved()

	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return
	}

	var last stream.FrameInfo
	send := func() bool {
		data, info, err := s.cameras.Frame(cameraID)
		if err != nil {
			// keep waiting through reconnects, give up once the camera is gone
			return errors.Is(err, stream.ErrNoFrame)
		}
		if info.Seq == last.Seq && info.At.Equal(last.At) {
			return true
		}
		last = info

		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(len(data))},
		})
		if err != nil {
			return false
		}
		if _, err := part.Write(data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send() {
		return
	}

	// Frames arriving faster than the limit collapse into the newest one
	limiter := s.relayLimiter()
	var pending <-chan time.Time
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-removed:
			if ev.CameraID == cameraID {
				return
			}
		case ev := <-frames:
			if ev.CameraID != cameraID || pending != nil {
				continue
			}
			if delay := limiter.Reserve().Delay(); delay > 0 {
				pending = time.After(delay)
				continue
			}
			if !send() {
				return
			}
		case <-pending:
			pending = nil
			if !send() {
				return
			}
		}
	}
}
