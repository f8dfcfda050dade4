package router

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"toolgate/internal/transport"
	"toolgate/pkg/logging"

	"github.com/felixge/httpsnoop"
)

// handlerFunc adapts a handler that may fail before writing a response.
type handlerFunc func(http.ResponseWriter, *http.Request) error

func (f handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tw, written := trackWrites(w)
	if err := f(tw, r); err != nil {
		writeInternalError(w, r, written(), err)
	}
}

// Recover turns panics in next into the fallback 500 response. Once the
// response has started only a log line is produced.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw, written := trackWrites(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			writeInternalError(w, r, written(), fmt.Errorf("panic: %v", rec))
		}()
		next.ServeHTTP(tw, r)
	})
}

func writeInternalError(w http.ResponseWriter, r *http.Request, written bool, err error) {
	if written {
		logging.Warn("Router", "Error after response started for %s %s: %v", r.Method, r.URL.Path, err)
		return
	}
	logging.Error("Router", err, "Request %s %s failed", r.Method, r.URL.Path)
	transport.WriteError(w, http.StatusInternalServerError, transport.CodeInternalError, "Internal server error")
}

// trackWrites wraps w and reports whether anything reached the client.
func trackWrites(w http.ResponseWriter) (http.ResponseWriter, func() bool) {
	var wrote atomic.Bool
	hooks := httpsnoop.Hooks{
		WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(code int) {
				wrote.Store(true)
				next(code)
			}
		},
		Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(b []byte) (int, error) {
				wrote.Store(true)
				return next(b)
			}
		},
		ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				wrote.Store(true)
				return next(src)
			}
		},
		Flush: func(next httpsnoop.FlushFunc) httpsnoop.FlushFunc {
			return func() {
				wrote.Store(true)
				next()
			}
		},
	}
	return httpsnoop.Wrap(w, hooks), wrote.Load
}
