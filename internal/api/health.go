package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Scheduler string `json:"scheduler"`
	Archive   string `json:"archive"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	schedStatus := "stopped"
	if s.scheduler != nil && s.scheduler.Running() {
		schedStatus = "running"
	}

	archiveStatus := "disabled"
	if s.db != nil {
		archiveStatus = "connected"
		if err := s.db.Ping(r.Context()); err != nil {
			archiveStatus = "disconnected"
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Scheduler: schedStatus, Archive: archiveStatus},
	})
}
