package tracker

import (
	"time"

	"github.com/kjannette/rate-tracker/internal/models"
)

// Progress is emitted after each entry of a pass, successful or not.
type Progress struct {
	PassID   string  `json:"passId"`
	Done     int     `json:"done"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
}

// EntryUpdate is emitted when an entry received a new price.
type EntryUpdate struct {
	PassID   string               `json:"passId"`
	Index    int                  `json:"index"`
	Entry    models.CurrencyEntry `json:"entry"`
	Sample   models.PriceSample   `json:"sample"`
	Strategy string               `json:"strategy"`
	History  []models.PriceSample `json:"history"`
}

// Failure reasons recorded in PassSummary.Failures.
const (
	ReasonNetwork   = "network"
	ReasonParseMiss = "parse_miss"
)

// PassSummary is emitted once a pass has persisted state.
type PassSummary struct {
	ID          string            `json:"id"`
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt time.Time         `json:"completedAt"`
	Total       int               `json:"total"`
	Updated     int               `json:"updated"`
	Skipped     int               `json:"skipped"`
	Failures    map[string]string `json:"failures"`
	Persisted   bool              `json:"persisted"`
	// Moves holds the change of every updated entry that has a previous price.
	Moves map[string]models.Change `json:"moves"`
}

func (s PassSummary) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}

// Observer receives pass events synchronously on the pass goroutine, in
// the order entries were processed. Implementations must not block for long.
type Observer interface {
	OnProgress(Progress)
	OnEntryUpdated(EntryUpdate)
	OnPassComplete(PassSummary)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Progress     func(Progress)
	EntryUpdated func(EntryUpdate)
	PassComplete func(PassSummary)
}

func (o ObserverFuncs) OnProgress(p Progress) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

func (o ObserverFuncs) OnEntryUpdated(u EntryUpdate) {
	if o.EntryUpdated != nil {
		o.EntryUpdated(u)
	}
}

func (o ObserverFuncs) OnPassComplete(s PassSummary) {
	if o.PassComplete != nil {
		o.PassComplete(s)
	}
}
