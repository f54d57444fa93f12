package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "fieldslots/pkg/errors"
	httputil "fieldslots/pkg/http"
	"fieldslots/pkg/logger"
)

func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				value, stack := rec, debug.Stack()
				if hp, ok := rec.(handlerPanic); ok {
					value, stack = hp.value, hp.stack
				}
				if err, ok := value.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(value)
				}

				log.Error("Panic recovered",
					"request_id", RequestID(r.Context()),
					"panic", value,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(stack),
				)

				appErr := apperrors.Internal("Internal server error", fmt.Errorf("panic: %v", value))
				if err := httputil.WriteError(w, appErr); err != nil {
					log.Error("failed to write error response", "handler", "Recovery", "operation", "WriteError", "error", err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
