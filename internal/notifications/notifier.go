package notifications

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kjannette/rate-tracker/internal/tracker"
)

// Notifier is a tracker observer that reports a pass when something is
// worth a look: a currency failed to refresh, or one moved by at least
// the alert threshold.
type Notifier struct {
	sender       *Sender
	alertPercent float64

	wg sync.WaitGroup
}

func NewNotifier(sender *Sender, alertPercent float64) *Notifier {
	return &Notifier{sender: sender, alertPercent: alertPercent}
}

func (n *Notifier) OnProgress(tracker.Progress) {}

func (n *Notifier) OnEntryUpdated(tracker.EntryUpdate) {}

// OnPassComplete sends off the pass goroutine so webhook retries never
// delay the next entry or pass.
func (n *Notifier) OnPassComplete(s tracker.PassSummary) {
	msg, ok := n.Message(s)
	if !ok {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		_ = n.sender.Send(msg)
	}()
}

// Wait blocks until queued messages have been delivered or given up on.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Message builds the pass report. ok is false when the pass was clean and
// no move reached the threshold.
func (n *Notifier) Message(s tracker.PassSummary) (string, bool) {
	var alerts []string
	for _, code := range sortedKeys(s.Moves) {
		ch := s.Moves[code]
		if n.alertPercent > 0 && math.Abs(ch.Percent) >= n.alertPercent {
			alerts = append(alerts, fmt.Sprintf("%s %s %+.2f%%", strings.ToUpper(code), ch.Direction, ch.Percent))
		}
	}

	var failed []string
	for _, code := range sortedKeys(s.Failures) {
		failed = append(failed, fmt.Sprintf("%s (%s)", strings.ToUpper(code), s.Failures[code]))
	}

	if len(alerts) == 0 && len(failed) == 0 {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Refresh %d/%d updated", s.Updated, s.Total)
	if len(alerts) > 0 {
		fmt.Fprintf(&b, " | moves: %s", strings.Join(alerts, ", "))
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, " | no data: %s", strings.Join(failed, ", "))
	}
	if !s.Persisted {
		b.WriteString(" | state NOT saved")
	}
	return b.String(), true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
