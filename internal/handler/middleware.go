package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/metrics"
)

// Logging logs one line per request and records its latency by route
// pattern.
func Logging(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.ObserveRequest(route, r.Method, status, elapsed)

			lvl := zerolog.DebugLevel
			if status >= http.StatusInternalServerError {
				lvl = zerolog.ErrorLevel
			} else if status >= http.StatusBadRequest {
				lvl = zerolog.InfoLevel
			}
			log.WithLevel(lvl).
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("route", route).
				Int("status", status).
				Dur("elapsed", elapsed).
				Msg("http request")
		})
	}
}
