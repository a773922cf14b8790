package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"frontporch/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the slow_request threshold when none is configured.
const DefaultSlowRequestMs = 200

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the ID Timing assigned to the request, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// statusWriter remembers the status code a handler wrote.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader records code before passing it on.
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

var statusWriters = sync.Pool{New: func() any { return new(statusWriter) }}

// Timing assigns every request an ID (reusing an inbound X-Request-ID),
// logs its duration and records it in collector when one is given.
// Requests at or over slowMs log slow_request at WARN; others log at DEBUG.
// /static/ requests pass straight through.
// PRE: slowMs <= 0 selects DefaultSlowRequestMs
// POST: Every non-static response carries X-Request-ID
func Timing(collector *perf.Collector, slowMs int) func(http.Handler) http.Handler {
	if slowMs <= 0 {
		slowMs = DefaultSlowRequestMs
	}
	threshold := float64(slowMs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

			sw := statusWriters.Get().(*statusWriter)
			sw.ResponseWriter, sw.status = w, http.StatusOK
			defer func() {
				elapsed := float64(time.Since(start).Microseconds()) / 1000.0
				route := r.Method + " " + r.URL.Path

				level, msg := slog.LevelDebug, "request"
				if elapsed >= threshold {
					level, msg = slog.LevelWarn, "slow_request"
				}
				slog.Log(r.Context(), level, msg,
					"request_id", id,
					"route", route,
					"status", sw.status,
					"duration_ms", elapsed,
				)
				if collector != nil {
					collector.Record(perf.Entry{
						Kind:       perf.KindRequest,
						Path:       route,
						StatusCode: sw.status,
						DurationMs: elapsed,
						Timestamp:  start,
					})
				}

				sw.ResponseWriter = nil
				statusWriters.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
