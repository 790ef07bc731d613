package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/nhalm/canonlog"
)

// RequestLogger emits one canonical log entry per request: request id,
// method, path, resolved route pattern, status, and duration. Panics are
// captured into the entry and answered with a structured 500.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := canonlog.NewContext(r.Context())
		start := time.Now()

		requestID := uuid.NewString()
		canonlog.InfoAddMany(ctx, map[string]any{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
		})

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Header().Set("X-Request-Id", requestID)
		r = r.WithContext(ctx)

		defer func() {
			if rec := recover(); rec != nil {
				canonlog.ErrorAdd(ctx, fmt.Errorf("panic: %v", rec))
				if ww.BytesWritten() == 0 {
					WriteJSON(ww, http.StatusInternalServerError, errorResponse{Error: ErrInternal})
				}
			}

			route := r.URL.Path
			if rctx := chi.RouteContext(ctx); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			canonlog.InfoAddMany(ctx, map[string]any{
				"route":       route,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			canonlog.Flush(ctx)
		}()

		next.ServeHTTP(ww, r)
	})
}
