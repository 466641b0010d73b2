package tracker

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kjannette/rate-tracker/internal/models"
)

// Refresh runs one pass, waiting for any pass already in flight.
func (t *Tracker) Refresh(ctx context.Context) PassSummary {
	t.passMu.Lock()
	defer t.passMu.Unlock()
	return t.runPass(ctx)
}

// TryRefresh runs a pass only if none is in flight.
func (t *Tracker) TryRefresh(ctx context.Context) (PassSummary, bool) {
	if !t.passMu.TryLock() {
		return PassSummary{}, false
	}
	defer t.passMu.Unlock()
	return t.runPass(ctx), true
}

// runPass walks the codes tracked at pass start, one at a time. Entries
// removed meanwhile are skipped; entries added meanwhile wait for the next
// pass. A failing entry never stops the pass. Callers hold passMu.
func (t *Tracker) runPass(ctx context.Context) PassSummary {
	summary := PassSummary{
		ID:        uuid.New().String(),
		StartedAt: t.now(),
		Failures:  map[string]string{},
		Moves:     map[string]models.Change{},
	}

	codes := t.snapshotCodes()
	summary.Total = len(codes)
	plog := log.WithField("pass", summary.ID)
	plog.Infof("refreshing %d currencies", len(codes))

	for i, code := range codes {
		t.refreshEntry(ctx, summary.ID, code, &summary)

		t.emitProgress(Progress{
			PassID:   summary.ID,
			Done:     i + 1,
			Total:    len(codes),
			Fraction: float64(i+1) / float64(len(codes)),
		})
	}

	t.mu.Lock()
	summary.Persisted = t.persistLocked()
	summary.CompletedAt = t.now()
	last := summary
	t.lastPass = &last
	t.mu.Unlock()

	plog.Infof("pass complete: %d updated, %d failed, %d skipped in %s",
		summary.Updated, len(summary.Failures), summary.Skipped, summary.Duration())

	t.emitComplete(summary)
	return summary
}

func (t *Tracker) refreshEntry(ctx context.Context, passID, code string, summary *PassSummary) {
	elog := log.WithFields(logrus.Fields{"pass": passID, "code": code})

	page, err := t.fetcher.FetchPage(ctx, code)
	if err != nil {
		summary.Failures[code] = failureReason(err)
		elog.Warnf("no update: %v", err)
		return
	}

	match, ok := t.extractor.Extract(page)
	if !ok {
		summary.Failures[code] = ReasonParseMiss
		elog.Warnf("no update: %v", models.ErrParseMiss)
		return
	}

	sample := models.PriceSample{Timestamp: t.now(), Price: match.Price}
	key := strings.ToLower(code)

	t.mu.Lock()
	idx := t.indexOf(code)
	if idx < 0 {
		t.mu.Unlock()
		summary.Skipped++
		elog.Info("removed during pass, discarding price")
		return
	}
	t.entries[idx].ApplyPrice(match.Price)
	entry := t.entries[idx].Clone()
	t.history.Append(key, sample)
	tail := t.history.Series(key)
	t.mu.Unlock()

	summary.Updated++
	if ch, ok := entry.Change(); ok {
		summary.Moves[entry.Code] = ch
	}
	elog.Debugf("rate %.4f via %s", match.Price, match.Strategy)

	if t.archive != nil {
		actx, cancel := context.WithTimeout(ctx, t.archiveTO)
		if _, err := t.archive.Record(actx, key, sample); err != nil {
			elog.Warnf("archive sample: %v", err)
		}
		cancel()
	}

	t.emitEntry(EntryUpdate{
		PassID:   passID,
		Index:    idx,
		Entry:    entry,
		Sample:   sample,
		Strategy: match.Strategy,
		History:  tail,
	})
}

func failureReason(err error) string {
	if errors.Is(err, models.ErrParseMiss) {
		return ReasonParseMiss
	}
	// transport errors, timeouts, non-2xx and cancellation all mean no data
	return ReasonNetwork
}

func (t *Tracker) snapshotCodes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	codes := make([]string, len(t.entries))
	for i, e := range t.entries {
		codes[i] = e.Code
	}
	return codes
}

func (t *Tracker) subscribers() []Observer {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	return append([]Observer(nil), t.observers...)
}

func (t *Tracker) emitProgress(p Progress) {
	for _, o := range t.subscribers() {
		o.OnProgress(p)
	}
}

func (t *Tracker) emitEntry(u EntryUpdate) {
	for _, o := range t.subscribers() {
		o.OnEntryUpdated(u)
	}
}

func (t *Tracker) emitComplete(s PassSummary) {
	for _, o := range t.subscribers() {
		o.OnPassComplete(s)
	}
}
