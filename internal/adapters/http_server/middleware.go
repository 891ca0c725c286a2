package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"wanderlust/internal/adapters/observability"
)

const timeoutBody = `{"type":"about:blank","title":"Service Unavailable","status":503,"detail":"request timed out"}`

// Timeout bounds a whole request, uploads included. On expiry the client gets a
// 503 problem document.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		th := http.TimeoutHandler(next, d, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			th.ServeHTTP(&timeoutWriter{ResponseWriter: w}, r)
		})
	}
}

// timeoutWriter labels the bare 503 that http.TimeoutHandler writes on expiry.
type timeoutWriter struct{ http.ResponseWriter }

func (w *timeoutWriter) WriteHeader(code int) {
	if code == http.StatusServiceUnavailable && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/problem+json")
	}
	w.ResponseWriter.WriteHeader(code)
}

// routeOf returns the matched chi pattern, so /v1/listings/{id} is one series.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func wrap(w http.ResponseWriter, r *http.Request) chimw.WrapResponseWriter {
	return chimw.NewWrapResponseWriter(w, r.ProtoMajor)
}

func status(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := wrap(w, r)
		next.ServeHTTP(ww, r)
		observability.ObserveHTTP(routeOf(r), r.Method, status(ww), time.Since(start))
	})
}

// Logger writes one line per request; 5xx responses are logged at error level.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrap(w, r)
			next.ServeHTTP(ww, r)

			code := status(ww)
			ev := l.Info()
			if code >= http.StatusInternalServerError {
				ev = l.Error()
			}
			ev.Str("request_id", chimw.GetReqID(r.Context())).
				Str("route", routeOf(r)).
				Str("method", r.Method).
				Int("status", code).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Str("user", r.Header.Get(ownerHeader)).
				Msg("http_request")
		})
	}
}
