package api

import (
	"net/http"
	"strings"
)

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive disabled")
		return
	}
	code := strings.ToLower(r.PathValue("code"))
	if !validateCode(code) {
		writeError(w, http.StatusBadRequest, "invalid currency code")
		return
	}

	samples, err := s.archive.GetByCode(r.Context(), code, parseLimit(r, 100))
	if err != nil {
		log.Errorf("fetch archive for %s: %v", code, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch archive")
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleArchiveLatest(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive disabled")
		return
	}
	code := strings.ToLower(r.PathValue("code"))
	if !validateCode(code) {
		writeError(w, http.StatusBadRequest, "invalid currency code")
		return
	}

	sample, err := s.archive.GetLatest(r.Context(), code)
	if err != nil {
		log.Errorf("fetch latest archived sample for %s: %v", code, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch archive")
		return
	}
	if sample == nil {
		writeError(w, http.StatusNotFound, "no archived samples for "+code)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}
