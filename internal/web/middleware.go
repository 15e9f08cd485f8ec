package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/recruitsite/recruit/internal/log"
	"github.com/recruitsite/recruit/internal/tracing"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID assigns each request an id, reusing a valid incoming one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// withAccessLog logs one line per request.
func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &tracing.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status,
			"duration", time.Since(start),
			"request_id", RequestID(r.Context()),
		}
		switch {
		case rec.Status >= http.StatusInternalServerError:
			log.Error(log.CatHTTP, "request failed", fields...)
		case rec.Status >= http.StatusBadRequest:
			log.Warn(log.CatHTTP, "request rejected", fields...)
		default:
			log.Info(log.CatHTTP, "request", fields...)
		}
	})
}
