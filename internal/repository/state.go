package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kjannette/rate-tracker/internal/models"
)

/*
State file layout (UTF-8, indented):

	{
	  "currencies": [
	    {"code": "usd", "name": "US Dollar", "last_price": 41.1, "current_price": 41.25}
	  ]
	}

History is never written here. Any problem with the file resets the whole
set to DefaultEntries; there is no partial recovery.
*/

var log = logrus.WithField("component", "state")

type stateFile struct {
	Currencies []models.CurrencyEntry `json:"currencies"`
}

// rawEntry distinguishes a missing field from a zero value.
type rawEntry struct {
	Code         *string  `json:"code"`
	Name         *string  `json:"name"`
	LastPrice    *float64 `json:"last_price"`
	CurrentPrice *float64 `json:"current_price"`
}

type StateRepo struct {
	path string
	mu   sync.Mutex
}

func NewStateRepo(path string) *StateRepo {
	return &StateRepo{path: path}
}

func (r *StateRepo) Path() string { return r.path }

// DefaultEntries is the safe set used when no valid state exists.
func DefaultEntries() []models.CurrencyEntry {
	return []models.CurrencyEntry{{Code: "usd", Name: "US Dollar"}}
}

// Load returns the persisted entries, or DefaultEntries when the file is
// absent or fails validation. It never fails.
func (r *StateRepo) Load() []models.CurrencyEntry {
	entries, err := r.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Infof("no state file at %s, starting with defaults", r.path)
		} else {
			log.Warnf("%v, using defaults", err)
		}
		return DefaultEntries()
	}
	return entries
}

// Read loads the file strictly. Every failure wraps models.ErrValidation.
func (r *StateRepo) Read() ([]models.CurrencyEntry, error) {
	r.mu.Lock()
	data, err := os.ReadFile(r.path)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", models.ErrValidation, r.path, err)
	}
	return decodeState(data)
}

func decodeState(data []byte) ([]models.CurrencyEntry, error) {
	var raw struct {
		Currencies []rawEntry `json:"currencies"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", models.ErrValidation, err)
	}
	if len(raw.Currencies) == 0 {
		return nil, fmt.Errorf("%w: no currencies", models.ErrValidation)
	}

	seen := make(map[string]bool, len(raw.Currencies))
	out := make([]models.CurrencyEntry, 0, len(raw.Currencies))
	for i, e := range raw.Currencies {
		if e.Code == nil || strings.TrimSpace(*e.Code) == "" {
			return nil, fmt.Errorf("%w: entry %d has no code", models.ErrValidation, i)
		}
		if e.Name == nil || *e.Name == "" {
			return nil, fmt.Errorf("%w: entry %d (%s) has no name", models.ErrValidation, i, *e.Code)
		}
		key := strings.ToLower(strings.TrimSpace(*e.Code))
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate code %s", models.ErrValidation, key)
		}
		seen[key] = true
		out = append(out, models.CurrencyEntry{
			Code:         strings.TrimSpace(*e.Code),
			Name:         *e.Name,
			LastPrice:    e.LastPrice,
			CurrentPrice: e.CurrentPrice,
		})
	}
	return out, nil
}

// Save writes entries atomically (temp file + rename).
func (r *StateRepo) Save(entries []models.CurrencyEntry) error {
	if entries == nil {
		entries = []models.CurrencyEntry{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stateFile{Currencies: entries}); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return atomicWrite(r.path, buf.Bytes())
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
