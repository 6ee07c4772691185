package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger attaches a logger carrying the request ID and caller to the request
// context, then logs one line per request. Handlers reach it with zerolog.Ctx.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lc := logger.With().Str("request_id", chimiddleware.GetReqID(r.Context()))
			if actor := r.Header.Get("X-Actor"); actor != "" {
				lc = lc.Str("actor", actor)
			}
			if key := r.Header.Get("Idempotency-Key"); key != "" {
				lc = lc.Str("idempotency_key", key)
			}
			l := lc.Logger()

			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(l.WithContext(r.Context())))

			ev := l.Info()
			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				ev = l.Error()
			case wrapped.statusCode >= http.StatusBadRequest:
				ev = l.Warn()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", wrapped.statusCode).
				Int("bytes", wrapped.bytes).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("request completed")
		})
	}
}

// statusRecorder keeps the first status written and counts body bytes.
type statusRecorder struct {
	http.ResponseWriter

	statusCode int
	bytes      int
	wrote      bool
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	if !r.wrote {
		r.statusCode = statusCode
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}
