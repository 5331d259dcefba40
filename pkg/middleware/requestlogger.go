package middleware

import (
	"net/http"
	"time"

	chi_middleware "github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"
)

// RequestLogFields returns the structured fields every handler attaches
// to its log entries.
func RequestLogFields(r *http.Request) log.Fields {
	return log.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"remoteAddr": r.RemoteAddr,
	}
}

// RequestLogger logs one line per completed request.
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chi_middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(RequestLogFields(r)).WithFields(log.Fields{
				"status":     ww.Status(),
				"durationMs": time.Since(start).Milliseconds(),
			}).Infof("%s %s", r.Method, r.URL.Path)
		}
		return http.HandlerFunc(fn)
	}
}
