package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.app.StatusHandler.HealthHandler)
	mux.Handle("/metrics", s.app.Metrics.Handler())

	// API routes - answering
	mux.HandleFunc("/api/ask", s.app.AskHandler.AskHandler) // POST

	// API routes - knowledge
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)                   // GET
	mux.HandleFunc("/api/refresh", s.app.RefreshHandler.RefreshHandler)                   // POST ?collection=
	mux.HandleFunc("/api/faq/search", s.app.SearchHandler.SearchFaqHandler)               // GET ?q=&category=&limit=
	mux.HandleFunc("/api/procedures/search", s.app.SearchHandler.SearchProceduresHandler) // GET ?q=&limit=

	return mux
}
