// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/internal/logging"
)

var tracer = otel.Tracer("estatehub/web")

// Metrics receives request and guard observations.
type Metrics interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
	RecordAuthRejection(reason string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, string, int, time.Duration) {}
func (nopMetrics) RecordAuthRejection(string)                        {}

// statusRecorder captures the status written by a handler.
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
	return r.ResponseWriter.Write(b) //nolint:wrapcheck // passthrough
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRequestID tags the request context with X-Request-ID, minting one
// when the client sent none.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = ulid.Make().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// route wraps a handler registered under pattern with a span, metrics, the
// access log and panic recovery.
func (s *Server) route(pattern string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := tracer.Start(r.Context(), pattern,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", pattern),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w}
		r = r.WithContext(ctx)

		defer func() {
			if p := recover(); p != nil {
				err := oops.Code("HANDLER_PANIC").With("route", pattern).Errorf("panic: %v", p)
				span.RecordError(err)
				if rec.status == 0 {
					s.writeError(rec, r, err)
				} else {
					s.logger.ErrorContext(ctx, "panic after response started", "error", err)
				}
			}

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			s.metrics.ObserveRequest(pattern, r.Method, status, elapsed)
			s.logger.InfoContext(r.Context(), "request",
				"route", pattern,
				"method", r.Method,
				"status", status,
				"duration_ms", elapsed.Milliseconds(),
			)
		}()

		h(rec, r)
	})
}

// requireAuth runs the session guard. The authenticated ID is attached to
// the request context for handlers and for the log handler.
func (s *Server) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.guard.Authenticate(sessionToken(r))
		if err != nil {
			reason := auth.RejectionReason(err)
			s.metrics.RecordAuthRejection(reason)
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("auth.rejection", reason))
			s.logger.InfoContext(r.Context(), "session rejected", "reason", reason)
			s.writeError(w, r, err)
			return
		}

		ctx := auth.WithIdentity(r.Context(), id)
		ctx = logging.WithUserID(ctx, id.String())
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("user.id", id.String()))
		h(w, r.WithContext(ctx))
	}
}

// actor returns the identity attached by requireAuth.
func actor(ctx context.Context) ulid.ULID {
	id, _ := auth.IdentityFromContext(ctx)
	return id
}
