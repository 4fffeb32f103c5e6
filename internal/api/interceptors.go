package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/signalsfoundry/surface-survey/internal/logging"
)

const (
	requestIDMetadataKey = "x-request-id"
	requestIDHeader      = "X-Request-ID"
)

// RequestIDUnaryServerInterceptor ensures a request_id is present on the
// context, sourcing it from inbound metadata if provided, and attaches a
// per-request logger annotated with request_id and method.
func RequestIDUnaryServerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = logging.Noop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if incoming := firstHeader(md, requestIDMetadataKey); incoming != "" {
				ctx = logging.ContextWithRequestID(ctx, incoming)
			}
		}

		method := ""
		if info != nil {
			method = info.FullMethod
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, base.With(logging.String("method", method)))
		ctx = logging.ContextWithLogger(ctx, reqLog)

		return handler(ctx, req)
	}
}

func firstHeader(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// RequestLogger is the HTTP counterpart of RequestIDUnaryServerInterceptor.
// It honours an inbound X-Request-ID, echoes the id in the response and
// logs each request at debug level once it completes.
func RequestLogger(base logging.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = logging.Noop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if incoming := r.Header.Get(requestIDHeader); incoming != "" {
				ctx = logging.ContextWithRequestID(ctx, incoming)
			}
			ctx, reqLog := logging.WithRequestLogger(ctx, base.With(
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
			))
			ctx = logging.ContextWithLogger(ctx, reqLog)
			w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))
			reqLog.Debug(ctx, "http request served",
				logging.Int("status", ww.Status()),
				logging.Int("bytes", ww.BytesWritten()),
				logging.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			)
		})
	}
}

func requestIDFrom(r *http.Request) string {
	return logging.RequestIDFromContext(r.Context())
}
