package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/camview/internal/api/models"
	"github.com/smazurov/camview/internal/restart"
	"github.com/smazurov/camview/internal/stream"
)

func TestStackViewerConfig(t *testing.T) {
	d := Daemon{URL: "http://cams.local", Token: "t", ReconnectDelay: 3 * time.Second, RestartPoll: time.Second}
	stack, err := d.Connect(nil)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := stack.ViewerConfig("4")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CameraID != "4" || cfg.Policy.Delay != 3*time.Second || cfg.PollInterval != time.Second {
		t.Errorf("unexpected viewer config %+v", cfg)
	}
	if tok, _ := cfg.Tokens.Token(); tok != "t" {
		t.Errorf("unexpected token %q", tok)
	}

	if _, err := stack.ViewerConfig(restart.AllCameras); err == nil {
		t.Error("expected the all-cameras id to be rejected")
	}
}

func TestConnectRejectsBadURL(t *testing.T) {
	if _, err := (Daemon{URL: "ftp://cams"}).Connect(nil); err == nil {
		t.Error("expected error for non-HTTP daemon URL")
	}
}

func TestRestartCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restarts.json")
	env := &Env{Daemon: Daemon{URL: "http://cams.local", RecordFile: path}}

	cmd := CreateRestartCmd(env)
	cmd.SetArgs([]string{"3"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	rec, err := restart.NewFileStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if rec["3"] == 0 || rec["0"] != rec["3"] {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestRestartCmdRequiresRecordFile(t *testing.T) {
	cmd := CreateRestartCmd(&Env{})
	cmd.SetArgs([]string{"1"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Error("expected error without a record file")
	}
}

func TestFetchCameras(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(models.CameraListData{
			Cameras: []models.CameraData{
				{CameraID: "1", State: string(stream.StateStreaming), FPS: 12, FramesTotal: 40,
					Frame: &models.FrameData{Width: 640, Height: 480}},
				{CameraID: "2", State: string(stream.StateError), LastError: "stream ended by remote", Reconnects: 3},
			},
			Count: 2,
		})
	}))
	defer srv.Close()

	if _, err := fetchCameras(context.Background(), srv.URL, "admin", "nope"); err == nil {
		t.Error("expected error for rejected credentials")
	}

	list, err := fetchCameras(context.Background(), srv.URL+"/", "admin", "pw")
	if err != nil {
		t.Fatal(err)
	}
	out := renderCameraTable(list)
	for _, want := range []string{"streaming", "640x480", "stream ended by remote", "Reconnects"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCameraTableEmpty(t *testing.T) {
	if got := renderCameraTable(&models.CameraListData{}); got != "No cameras configured" {
		t.Errorf("got %q", got)
	}
}

func TestSnapshotFromStream(t *testing.T) {
	img := sampleJPEG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/5/mjpg/stream" || r.URL.Query().Get("token") != "secret" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		flusher := w.(http.Flusher)
		for {
			if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
				return
			}
			_, _ = w.Write(img)
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(20 * time.Millisecond):
			}
		}
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "snap.jpg")
	cmd := CreateSnapshotCmd(&Env{Daemon: Daemon{URL: srv.URL, Token: "secret"}})
	cmd.SetArgs([]string{"5", "-o", out, "-t", "5s"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(img) {
		t.Errorf("snapshot differs from the streamed image (%d vs %d bytes)", len(got), len(img))
	}
}

func TestSnapshotTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	_, err := captureFrame(Daemon{URL: srv.URL}, "1", 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 12))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 3)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
