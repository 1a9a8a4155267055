package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/util"
)

// Recovery returns a middleware that recovers from panics anywhere below
// it in the chain. A panic in the instrumentation path must never take
// the whole request down with it.
func Recovery(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						observability.String("path", r.URL.Path),
						observability.String("method", r.Method),
						observability.Any("error", err),
						observability.String("stack", string(debug.Stack())),
					)

					util.WriteJSON(w, http.StatusInternalServerError, util.ErrorResponse{
						Success: false,
						Error:   "INTERNAL_ERROR",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
