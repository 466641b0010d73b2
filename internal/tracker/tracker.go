// Package tracker owns the tracked currency set and runs refresh passes
// over it.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kjannette/rate-tracker/internal/history"
	"github.com/kjannette/rate-tracker/internal/models"
	"github.com/kjannette/rate-tracker/internal/scraper"
)

var log = logrus.WithField("component", "tracker")

type PageFetcher interface {
	FetchPage(ctx context.Context, code string) (string, error)
}

type Extractor interface {
	Extract(page string) (scraper.Match, bool)
}

type StateStore interface {
	Load() []models.CurrencyEntry
	Save(entries []models.CurrencyEntry) error
}

// Archive optionally keeps every accepted sample outside the process.
type Archive interface {
	Record(ctx context.Context, code string, s models.PriceSample) (*models.ArchivedSample, error)
}

// DefaultArchiveTimeout bounds each archive write so a stalled database
// cannot hold up a pass.
const DefaultArchiveTimeout = 5 * time.Second

type Options struct {
	History        *history.Store
	Archive        Archive
	ArchiveTimeout time.Duration
	Now            func() time.Time
}

var knownNames = map[string]string{
	"usd": "US Dollar",
	"eur": "Euro",
	"gbp": "Pound Sterling",
	"pln": "Polish Zloty",
	"chf": "Swiss Franc",
	"cad": "Canadian Dollar",
	"jpy": "Japanese Yen",
	"cny": "Chinese Yuan",
	"uah": "Ukrainian Hryvnia",
}

// DisplayName returns the known name for code, or the upper-cased code.
func DisplayName(code string) string {
	code = strings.ToLower(code)
	if n, ok := knownNames[code]; ok {
		return n
	}
	return strings.ToUpper(code)
}

type Tracker struct {
	store     StateStore
	fetcher   PageFetcher
	extractor Extractor
	history   *history.Store
	archive   Archive
	archiveTO time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	entries  []models.CurrencyEntry
	lastPass *PassSummary

	passMu sync.Mutex

	obsMu     sync.RWMutex
	observers []Observer
}

// New loads the persisted state from store.
func New(store StateStore, fetcher PageFetcher, extractor Extractor, opts Options) *Tracker {
	if opts.History == nil {
		opts.History = history.NewStore(history.DefaultCapacity)
	}
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = DefaultArchiveTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	t := &Tracker{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		history:   opts.History,
		archive:   opts.Archive,
		archiveTO: opts.ArchiveTimeout,
		now:       opts.Now,
	}
	t.entries = cloneEntries(store.Load())
	log.Infof("loaded %d tracked currencies", len(t.entries))
	return t
}

func (t *Tracker) Subscribe(o Observer) {
	t.obsMu.Lock()
	t.observers = append(t.observers, o)
	t.obsMu.Unlock()
}

// Snapshot returns a copy of the tracked entries in display order.
func (t *Tracker) Snapshot() []models.CurrencyEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneEntries(t.entries)
}

func (t *Tracker) Entry(code string) (models.CurrencyEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexOf(code); i >= 0 {
		return t.entries[i].Clone(), true
	}
	return models.CurrencyEntry{}, false
}

// History returns code's live sample series, oldest first.
func (t *Tracker) History(code string) []models.PriceSample {
	return t.history.Series(strings.ToLower(code))
}

func (t *Tracker) LastPass() (PassSummary, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastPass == nil {
		return PassSummary{}, false
	}
	return *t.lastPass, true
}

// Add starts tracking code. An empty name resolves via DisplayName.
func (t *Tracker) Add(code, name string) (models.CurrencyEntry, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return models.CurrencyEntry{}, models.ErrEmptyCode
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DisplayName(code)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.indexOf(code) >= 0 {
		return models.CurrencyEntry{}, fmt.Errorf("%w: %s", models.ErrDuplicateEntry, code)
	}

	entry := models.CurrencyEntry{Code: code, Name: name}
	t.entries = append(t.entries, entry)
	t.persistLocked()
	log.Infof("added %s (%s)", code, name)
	return entry, nil
}

// Remove stops tracking code and drops its history.
func (t *Tracker) Remove(code string) (models.CurrencyEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(code)
	if i < 0 {
		return models.CurrencyEntry{}, fmt.Errorf("%w: %s", models.ErrNotFound, code)
	}
	return t.removeLocked(i), nil
}

// RemoveAt removes the entry at position index, preserving the order of
// the others. Positions shift after removal; prefer Remove.
func (t *Tracker) RemoveAt(index int) (models.CurrencyEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.entries) {
		return models.CurrencyEntry{}, fmt.Errorf("%w: %d of %d", models.ErrIndexOutOfRange, index, len(t.entries))
	}
	return t.removeLocked(index), nil
}

func (t *Tracker) removeLocked(i int) models.CurrencyEntry {
	removed := t.entries[i]
	t.entries = append(t.entries[:i:i], t.entries[i+1:]...)
	t.history.Drop(strings.ToLower(removed.Code))
	t.persistLocked()
	log.Infof("removed %s", removed.Code)
	return removed
}

// indexOf matches codes case-insensitively. Callers hold mu.
func (t *Tracker) indexOf(code string) int {
	code = strings.TrimSpace(code)
	for i, e := range t.entries {
		if strings.EqualFold(e.Code, code) {
			return i
		}
	}
	return -1
}

func (t *Tracker) persistLocked() bool {
	if err := t.store.Save(cloneEntries(t.entries)); err != nil {
		log.Errorf("save state: %v", err)
		return false
	}
	return true
}

func cloneEntries(in []models.CurrencyEntry) []models.CurrencyEntry {
	out := make([]models.CurrencyEntry, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
