package middleware

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	apperrors "fieldslots/pkg/errors"
	httputil "fieldslots/pkg/http"
	"fieldslots/pkg/logger"
)

// handlerPanic carries a panic out of the handler goroutine so Recovery,
// which runs on the serving goroutine, still sees it with its original stack.
type handlerPanic struct {
	value any
	stack []byte
}

// deadlineWriter keeps the handler's headers private until it commits a
// status. Once the deadline fires nothing the handler writes reaches the
// client.
type deadlineWriter struct {
	w      http.ResponseWriter
	header http.Header

	mu        sync.Mutex
	expired   bool
	committed bool
}

func newDeadlineWriter(w http.ResponseWriter) *deadlineWriter {
	return &deadlineWriter{w: w, header: make(http.Header)}
}

func (dw *deadlineWriter) Header() http.Header {
	return dw.header
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	dw.commitLocked(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.expired {
		return 0, http.ErrHandlerTimeout
	}
	dw.commitLocked(http.StatusOK)
	return dw.w.Write(b)
}

func (dw *deadlineWriter) commitLocked(code int) {
	if dw.expired || dw.committed {
		return
	}
	dw.committed = true
	dst := dw.w.Header()
	for k, v := range dw.header {
		dst[k] = v
	}
	dw.w.WriteHeader(code)
}

// expire reports whether the handler had already started its response.
func (dw *deadlineWriter) expire() (committed bool) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if !dw.committed {
		dw.expired = true
	}
	return dw.committed
}

// RequestTimeout bounds each request with a deadline. A handler that has not
// responded by then is answered with a TIMEOUT error; one that already began
// writing is allowed to finish.
func RequestTimeout(timeout time.Duration, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			r = r.WithContext(ctx)

			dw := newDeadlineWriter(w)
			done := make(chan struct{})
			panicked := make(chan handlerPanic, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- handlerPanic{value: p, stack: debug.Stack()}
						return
					}
					close(done)
				}()
				next.ServeHTTP(dw, r)
			}()

			select {
			case <-done:
			case p := <-panicked:
				panic(p)
			case <-ctx.Done():
				if dw.expire() {
					select {
					case <-done:
					case p := <-panicked:
						panic(p)
					}
					return
				}
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					// client went away
					return
				}

				log.Warn("Request timed out",
					"request_id", RequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"timeout", timeout.String(),
				)
				if err := httputil.WriteError(w, apperrors.Timeout("Request timed out")); err != nil {
					log.Error("failed to write timeout response", "error", err)
				}
			}
		})
	}
}
