package logging

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger stores a request-scoped logger carrying the request ID and,
// when a project is configured, Cloud Trace correlation fields.
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimiddleware.GetReqID(r.Context())
			tc, ok := parseTrace(r.Header)
			projectID := resolveProjectID()

			fields := make([]zap.Field, 0, 4)
			traceID := reqID
			if ok && projectID != "" {
				fields = append(fields, tc.fields(projectID)...)
				traceID = tc.resource(projectID)
			}
			if reqID != "" {
				fields = append(fields, zap.String("requestId", reqID))
			}

			logger := Logger()
			if len(fields) > 0 {
				logger = logger.With(fields...)
			}
			next.ServeHTTP(w, r.WithContext(withRequestScope(r.Context(), logger, traceID)))
		})
	}
}

// AccessLogger writes one structured summary per request using the request-scoped logger.
func AccessLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			LoggerFromContext(r.Context()).Info(
				"request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
