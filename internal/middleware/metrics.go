package middleware

import "net/http"

// requestRecorder is satisfied by *metrics.Metrics; declared locally to
// avoid an import cycle between middleware and metrics.
type requestRecorder interface {
	RecordError()
}

// Recover wraps next with a panic recovery handler that logs nothing on
// its own (the Logger middleware ahead of it records the resulting 500)
// but converts a panic into a 500 response instead of crashing the
// listener goroutine, and tallies it on recorder.
func Recover(recorder requestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					recorder.RecordError()
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
