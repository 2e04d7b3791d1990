package camera

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStreamURL(t *testing.T) {
	c, err := NewClient("http://daemon.local:8080/motion/")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		req  Request
		want string
	}{
		{
			Request{CameraID: "3", Key: 1700000000000, Token: "abc"},
			"http://daemon.local:8080/motion/3/mjpg/stream?_k=1700000000000&token=abc",
		},
		{
			Request{CameraID: "3", Key: 1700000000001},
			"http://daemon.local:8080/motion/3/mjpg/stream?_k=1700000000001",
		},
		{
			Request{CameraID: "1", Key: 0, Token: "a b&c"},
			"http://daemon.local:8080/motion/1/mjpg/stream?_k=0&token=a+b%26c",
		},
	}
	for _, tt := range tests {
		if got := c.StreamURL(tt.req); got != tt.want {
			t.Errorf("StreamURL(%+v) = %s, want %s", tt.req, got, tt.want)
		}
	}
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://x", "://"} {
		if _, err := NewClient(raw); err == nil {
			t.Errorf("NewClient(%q) succeeded", raw)
		}
	}
}

func TestOpen_StreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/5/mjpg/stream" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("token") != "secret" || r.URL.Query().Get("_k") != "42" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=BoundaryString")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	body, err := c.Open(context.Background(), Request{CameraID: "5", Key: 42, Token: "secret"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 5 {
		t.Errorf("read %d bytes, want 5", len(data))
	}
}

func TestOpen_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	_, err := c.Open(context.Background(), Request{CameraID: "1", Key: 1})

	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusForbidden {
		t.Errorf("expected StatusError with 403, got %v", err)
	}
}

func TestOpen_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := NewClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())

	body, err := c.Open(ctx, Request{CameraID: "1", Key: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer body.Close()

	done := make(chan error, 1)
	go func() {
		_, err := body.Read(make([]byte, 16))
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected read error after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read did not unblock after cancel")
	}
}

func TestPing(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	c, _ := NewClient(up.URL)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping on 401 server: %v", err)
	}
	c, _ = NewClient(down.URL)
	if err := c.Ping(context.Background()); !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("Ping on 502 server: %v", err)
	}
}

func TestTokenSources(t *testing.T) {
	if tok, _ := NewTokenSource("abc", "").Token(); tok != "abc" {
		t.Errorf("static token = %q", tok)
	}

	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("first\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	src := NewTokenSource("ignored", path)
	if tok, err := src.Token(); err != nil || tok != "first" {
		t.Errorf("file token = %q, %v", tok, err)
	}

	// Rotation is visible on the next call.
	if err := os.WriteFile(path, []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}
	if tok, _ := src.Token(); tok != "second" {
		t.Errorf("rotated token = %q", tok)
	}

	if _, err := (FileToken{Path: filepath.Join(t.TempDir(), "missing")}).Token(); err == nil {
		t.Error("expected error for missing token file")
	}
}
