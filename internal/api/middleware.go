package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camview/internal/logging"
)

// requestInfo is what gets logged for every HTTP request.
type requestInfo struct {
	method     string
	path       string
	query      string
	userAgent  string
	remoteAddr string
}

// HTTPLoggingMiddleware logs HTTP requests with appropriate log levels based on status codes.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	info := requestInfo{
		method:     ctx.Method(),
		path:       ctx.URL().Path,
		query:      ctx.URL().RawQuery,
		userAgent:  ctx.Header("User-Agent"),
		remoteAddr: ctx.RemoteAddr(),
	}

	next(ctx)

	logRequest(ctx.Context(), info, ctx.Status(), time.Since(start))
}

// statusRecorder captures the status code written by a plain handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the flusher underneath.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRequestLogging applies the API request log to handlers registered
// directly on the mux.
func withRequestLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next(rec, r)
		logRequest(r.Context(), requestInfo{
			method:     r.Method,
			path:       r.URL.Path,
			query:      r.URL.RawQuery,
			userAgent:  r.UserAgent(),
			remoteAddr: r.RemoteAddr,
		}, rec.status, time.Since(start))
	}
}

func logRequest(ctx context.Context, info requestInfo, status int, duration time.Duration) {
	logger := logging.GetLogger("http")

	attrs := []slog.Attr{
		slog.String("method", info.method),
		slog.String("path", info.path),
		slog.String("remote_addr", info.remoteAddr),
	}
	if info.query != "" {
		attrs = append(attrs, slog.String("query", redactAuth(info.query)))
	}
	if info.userAgent != "" {
		attrs = append(attrs, slog.String("user_agent", info.userAgent))
	}
	attrs = append(attrs,
		slog.Int("status", status),
		slog.Duration("duration", duration),
	)

	level := slog.LevelInfo
	switch {
	case info.method == http.MethodOptions:
		level = slog.LevelDebug
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	logger.LogAttrs(ctx, level, "HTTP request completed", attrs...)
}

// redactAuth hides the credentials carried in the auth query parameter.
func redactAuth(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil || !values.Has("auth") {
		return rawQuery
	}
	values.Set("auth", "REDACTED")
	return values.Encode()
}
