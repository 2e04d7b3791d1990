package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/camview/internal/logging"
	"github.com/smazurov/camview/internal/version"
)

// ErrUnexpectedStatus matches every *StatusError.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// StatusError reports a non-2xx response to a stream request.
type StatusError struct {
	CameraID string
	Code     int
	Status   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("camera %s: %s: %s", e.CameraID, ErrUnexpectedStatus, e.Status)
}

// Is makes errors.Is(err, ErrUnexpectedStatus) true for status errors.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Request identifies one stream connection. Key is the session key sent as the
// _k cache-buster so a reconnect is never served from a cache.
type Request struct {
	CameraID string
	Key      int64
	Token    string
}

// Opener opens a live byte stream for a camera.
type Opener interface {
	Open(ctx context.Context, req Request) (io.ReadCloser, error)
}

// Client is an HTTP client for the camera daemon.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. It must not set an overall timeout,
// since stream bodies stay open indefinitely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the daemon at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid daemon url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid daemon url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				ResponseHeaderTimeout: 10 * time.Second,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		logger: logging.GetLogger("camera"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StreamURL builds {base}/{camera}/mjpg/stream?token=..&_k=key.
func (c *Client) StreamURL(req Request) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + url.PathEscape(req.CameraID) + "/mjpg/stream"

	q := url.Values{}
	if req.Token != "" {
		q.Set("token", req.Token)
	}
	q.Set("_k", strconv.FormatInt(req.Key, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// Open issues the stream request. The returned body delivers raw multipart
// bytes until ctx is cancelled or the connection fails; the caller closes it.
func (c *Client) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StreamURL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	httpReq.Header.Set("Accept", "multipart/x-mixed-replace, image/jpeg")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	c.logger.Debug("Opening camera stream", "camera_id", req.CameraID, "key", req.Key)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("camera %s: stream request failed: %w", req.CameraID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		_ = resp.Body.Close()
		return nil, &StatusError{CameraID: req.CameraID, Code: resp.StatusCode, Status: resp.Status}
	}
	return resp.Body, nil
}

// Ping checks that the daemon answers HTTP at all. Any response below 500
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String()+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("camera daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &StatusError{CameraID: "-", Code: resp.StatusCode, Status: resp.Status}
	}
	return nil
}
