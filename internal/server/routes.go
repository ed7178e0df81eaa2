package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (log and event streaming)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Jobs
	mux.HandleFunc("/api/v1/jobs", s.app.JobHandler.SubmitJobHandler) // POST - submit crawl job
	mux.HandleFunc("/api/v1/jobs/", s.handleJobRoutes)                // Handles /api/v1/jobs/{id}/...

	// API routes - System
	mux.HandleFunc("/api/v1/health", s.app.HealthHandler.HealthCheckHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.notFoundHandler)

	return mux
}

// handleJobRoutes routes /api/v1/jobs/{id} subpaths to the appropriate
// handler.
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case strings.HasSuffix(path, "/status"):
		s.app.JobHandler.JobStatusHandler(w, r)
	case strings.HasSuffix(path, "/cancel"):
		s.app.JobHandler.CancelJobHandler(w, r)
	case strings.HasSuffix(path, "/logs"):
		s.app.JobHandler.JobLogsHandler(w, r)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not found", http.StatusNotFound)
}
