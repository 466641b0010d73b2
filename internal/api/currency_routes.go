package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kjannette/rate-tracker/internal/models"
)

type priceJSON struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

type currencyJSON struct {
	models.CurrencyEntry
	Change *models.Change `json:"change,omitempty"`
}

type addCurrencyRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func toCurrencyJSON(e models.CurrencyEntry) currencyJSON {
	out := currencyJSON{CurrencyEntry: e}
	if ch, ok := e.Change(); ok {
		out.Change = &ch
	}
	return out
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	entries := s.tracker.Snapshot()
	out := make([]currencyJSON, len(entries))
	for i, e := range entries {
		out[i] = toCurrencyJSON(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddCurrency(w http.ResponseWriter, r *http.Request) {
	var req addCurrencyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeError(w, http.StatusBadRequest, models.ErrEmptyCode.Error())
		return
	}
	if !validateCode(code) {
		writeError(w, http.StatusBadRequest, "invalid currency code, expected 2-10 letters")
		return
	}

	entry, err := s.tracker.Add(code, req.Name)
	switch {
	case errors.Is(err, models.ErrDuplicateEntry):
		writeError(w, http.StatusConflict, "currency already tracked: "+strings.ToLower(code))
		return
	case err != nil:
		log.Errorf("add currency %s: %v", code, err)
		writeError(w, http.StatusInternalServerError, "failed to add currency")
		return
	}

	writeJSON(w, http.StatusCreated, toCurrencyJSON(entry))
}

func (s *Server) handleRemoveCurrency(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	removed, err := s.tracker.Remove(code)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "currency not tracked: "+code)
		return
	}
	if err != nil {
		log.Errorf("remove currency %s: %v", code, err)
		writeError(w, http.StatusInternalServerError, "failed to remove currency")
		return
	}

	if s.metrics != nil {
		s.metrics.Forget(removed.Code)
	}
	if s.hub != nil {
		s.hub.BroadcastRemoved(removed.Code)
	}
	writeJSON(w, http.StatusOK, toCurrencyJSON(removed))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	code := strings.ToLower(r.PathValue("code"))
	if _, ok := s.tracker.Entry(code); !ok {
		writeError(w, http.StatusNotFound, "currency not tracked: "+code)
		return
	}

	samples := s.tracker.History(code)
	writeJSON(w, http.StatusOK, toPriceJSON(samples))
}

func toPriceJSON(samples []models.PriceSample) []priceJSON {
	out := make([]priceJSON, len(samples))
	for i, p := range samples {
		out[i] = priceJSON{T: p.Timestamp.UnixMilli(), P: p.Price}
	}
	return out
}
