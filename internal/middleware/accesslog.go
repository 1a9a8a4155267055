package middleware

import (
	"net/http"
	"time"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/util"
)

// AccessLog returns a middleware that logs one line per completed
// request.
func AccessLog(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := util.NewStatusCapturingResponseWriter(w)

			next.ServeHTTP(rw, r)

			logger.Info("request",
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.Int("status", rw.StatusCode),
				observability.Duration("duration", time.Since(start)),
				observability.String("requestId", observability.RequestIDFromContext(r.Context())),
			)
		})
	}
}
