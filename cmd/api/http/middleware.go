package http

import (
	"context"
	"net/http"
	"time"

	"github.com/books-search/cmd/api/book"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	ContextRequestID contextKey = "request.id"
	RequestIDHeader  string     = "X-Request-Id"
)

// MiddlewareFunc wraps a handler with extra behavior.
type MiddlewareFunc func(http.Handler) http.Handler

// Middlewares is a stack of middleware functions used to build a single chain.
type Middlewares []MiddlewareFunc

// Chain wraps h so that the first middleware of the list runs first.
func (m Middlewares) Chain(h http.Handler) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// RequestID returns the id stored in ctx by RequestIDMiddleware, or an empty string.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextRequestID).(string)
	return id
}

// RequestIDMiddleware generates a unique id, stores it in the request context
// and echoes it back in the response headers.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), ContextRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs each request once it completes, with its status and duration.
func LoggingMiddleware(logger *zap.Logger) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info(
				"request",
				zap.String("request.id", RequestID(r.Context())),
				zap.String("request.method", r.Method),
				zap.String("request.path", r.URL.Path),
				zap.Int("response.status", rec.status),
				zap.Duration("request.duration", time.Since(start)),
			)
		})
	}
}

// PanicRecoveryMiddleware catches any panic during the request lifecycle, logs it
// and answers with the internal server error payload.
func PanicRecoveryMiddleware(logger *zap.Logger) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic occurred", zap.String("request.id", RequestID(r.Context())), zap.Any("error", err))
					responseJSON(w, http.StatusInternalServerError, book.ErrResponseInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
