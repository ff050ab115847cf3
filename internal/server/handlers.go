// Package server provides the HTTP server and routing for Quanta.
package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleRoot handles service info requests
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"service": "quanta",
		"message": "Hybrid quantum-classical orchestration service",
		"endpoints": []string{
			"POST /api/hybrid/solve",
			"GET /api/hybrid/jobs/{jobID}",
			"GET /api/hybrid/jobs/{jobID}/stream",
			"GET /api/events/stream",
			"GET /api/queue/stats",
			"GET /api/system/status",
			"GET /health",
		},
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "quanta",
		"uptime":  time.Since(s.startedAt).String(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
