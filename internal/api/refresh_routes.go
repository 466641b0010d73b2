package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/kjannette/rate-tracker/internal/scheduler"
	"github.com/kjannette/rate-tracker/internal/tracker"
)

type statusResponse struct {
	Running         bool                 `json:"running"`
	InFlight        bool                 `json:"inFlight"`
	IntervalSeconds int                  `json:"intervalSeconds"`
	Tracked         int                  `json:"tracked"`
	ArchiveEnabled  bool                 `json:"archiveEnabled"`
	Clients         int                  `json:"clients"`
	LastPass        *tracker.PassSummary `json:"lastPass"`
	NextPassAfter   *time.Time           `json:"nextPassAfter,omitempty"`
}

// handleRefresh queues a pass and returns at once. With ?wait=true it runs
// the pass on the request and returns the summary, or 409 if one is
// already running.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") == "true" {
		// a pass can outlast the server's write timeout
		if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
			log.Debugf("clear write deadline: %v", err)
		}
		summary, err := s.scheduler.RefreshNow(r.Context())
		if errors.Is(err, scheduler.ErrPassInFlight) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	queued := s.scheduler.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Running:         s.scheduler.Running(),
		InFlight:        s.scheduler.InFlight(),
		IntervalSeconds: int(s.scheduler.Interval().Seconds()),
		Tracked:         len(s.tracker.Snapshot()),
		ArchiveEnabled:  s.archive != nil,
	}
	if s.hub != nil {
		resp.Clients = s.hub.ClientCount()
	}
	if last, ok := s.scheduler.LastPass(); ok {
		resp.LastPass = &last
		next := last.CompletedAt.Add(s.scheduler.Interval())
		resp.NextPassAfter = &next
	}
	writeJSON(w, http.StatusOK, resp)
}
