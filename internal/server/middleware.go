package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/handlers"
)

// routeOther labels requests that matched no registered route
const routeOther = "other"

// withMiddleware wraps the router. The first entry runs outermost.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		s.requestIDMiddleware,
		s.instrumentMiddleware,
		s.corsMiddleware,
		s.recoveryMiddleware,
	}
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return handler
}

// requestIDMiddleware keeps an incoming X-Request-ID or assigns one, and echoes it back
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(handlers.RequestIDHeader)
		if id == "" {
			id = common.NewRequestID()
			r.Header.Set(handlers.RequestIDHeader, id)
		}
		w.Header().Set(handlers.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// instrumentMiddleware logs each request and records it in the metrics registry
func (s *Server) instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		route := routeOther
		if _, pattern := s.router.Handler(r); pattern != "" {
			route = pattern
		}
		s.app.Metrics.ObserveHTTP(route, r.Method, rw.status, elapsed)

		event := s.app.Logger.Debug()
		if rw.status >= http.StatusInternalServerError {
			event = s.app.Logger.Warn()
		}
		event.
			Str("request_id", r.Header.Get(handlers.RequestIDHeader)).
			Str("method", r.Method).
			Str("route", route).
			Int("status", rw.status).
			Str("duration", elapsed.String()).
			Msg("HTTP request")
	})
}

// corsMiddleware applies server.allowed_origins and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowAny := false
	allowed := make(map[string]bool)
	for _, origin := range s.app.Config.Server.AllowedOrigins {
		if origin == "*" {
			allowAny = true
		}
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAny:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+handlers.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware turns a handler panic into a JSON 500
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.app.Logger.Error().
					Str("panic", fmt.Sprint(rec)).
					Str("request_id", r.Header.Get(handlers.RequestIDHeader)).
					Str("path", r.URL.Path).
					Msg("Handler panicked")
				handlers.WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
