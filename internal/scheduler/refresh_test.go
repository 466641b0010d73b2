package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjannette/rate-tracker/internal/models"
	"github.com/kjannette/rate-tracker/internal/repository"
	"github.com/kjannette/rate-tracker/internal/scheduler"
	"github.com/kjannette/rate-tracker/internal/scraper"
	"github.com/kjannette/rate-tracker/internal/testutil"
	"github.com/kjannette/rate-tracker/internal/tracker"
)

// fakeRefresher counts passes and optionally blocks each one on gate.
type fakeRefresher struct {
	passes  atomic.Int32
	started chan struct{}
	gate    chan struct{}

	mu   sync.Mutex
	busy sync.Mutex
	last *tracker.PassSummary
}

func (f *fakeRefresher) Refresh(ctx context.Context) tracker.PassSummary {
	f.busy.Lock()
	defer f.busy.Unlock()
	return f.run()
}

func (f *fakeRefresher) TryRefresh(ctx context.Context) (tracker.PassSummary, bool) {
	if !f.busy.TryLock() {
		return tracker.PassSummary{}, false
	}
	defer f.busy.Unlock()
	return f.run(), true
}

func (f *fakeRefresher) run() tracker.PassSummary {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		<-f.gate
	}
	n := f.passes.Add(1)
	s := tracker.PassSummary{ID: fmt.Sprintf("pass-%d", n), Total: int(n)}
	f.mu.Lock()
	f.last = &s
	f.mu.Unlock()
	return s
}

func (f *fakeRefresher) LastPass() (tracker.PassSummary, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return tracker.PassSummary{}, false
	}
	return *f.last, true
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStart_RunsImmediatelyAndOnInterval(t *testing.T) {
	f := &fakeRefresher{}
	s := scheduler.NewRefreshScheduler(f, scheduler.RefreshSchedulerConfig{Interval: 20 * time.Millisecond})

	s.Start()
	if !s.Running() {
		t.Fatal("should be running")
	}
	waitFor(t, "three passes", func() bool { return f.passes.Load() >= 3 })
	s.Stop()

	if s.Running() {
		t.Fatal("should be stopped")
	}
	after := f.passes.Load()
	time.Sleep(60 * time.Millisecond)
	if f.passes.Load() != after {
		t.Fatal("passes continued after Stop")
	}
	if _, ok := s.LastPass(); !ok {
		t.Fatal("LastPass should be set")
	}
	t.Logf("passes before stop: %d", after)
}

func TestDefaultInterval(t *testing.T) {
	s := scheduler.NewRefreshScheduler(&fakeRefresher{}, scheduler.RefreshSchedulerConfig{})
	if s.Interval() != 5*time.Minute {
		t.Fatalf("expected 5m default, got %s", s.Interval())
	}
}

func TestTrigger_Coalesces(t *testing.T) {
	f := &fakeRefresher{started: make(chan struct{}, 1), gate: make(chan struct{})}
	s := scheduler.NewRefreshScheduler(f, scheduler.RefreshSchedulerConfig{Interval: time.Hour})
	s.Start()
	defer s.Stop()

	// startup pass is blocked on the gate
	<-f.started
	if !s.InFlight() {
		t.Fatal("startup pass should be in flight")
	}

	if !s.Trigger() {
		t.Fatal("first trigger should queue")
	}
	if s.Trigger() || s.Trigger() {
		t.Fatal("further triggers should coalesce into the pending one")
	}

	close(f.gate)
	waitFor(t, "queued pass", func() bool { return f.passes.Load() == 2 })
	time.Sleep(30 * time.Millisecond)
	if n := f.passes.Load(); n != 2 {
		t.Fatalf("expected exactly 2 passes, got %d", n)
	}
}

func TestRefreshNow_RejectsWhileInFlight(t *testing.T) {
	f := &fakeRefresher{started: make(chan struct{}, 1), gate: make(chan struct{})}
	s := scheduler.NewRefreshScheduler(f, scheduler.RefreshSchedulerConfig{Interval: time.Hour})
	s.Start()
	defer s.Stop()

	<-f.started
	if _, err := s.RefreshNow(context.Background()); !errors.Is(err, scheduler.ErrPassInFlight) {
		t.Fatalf("expected ErrPassInFlight, got %v", err)
	}

	close(f.gate)
	waitFor(t, "startup pass", func() bool { return !s.InFlight() })

	summary, err := s.RefreshNow(context.Background())
	if err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("expected second pass, got %+v", summary)
	}
}

func TestScheduler_WithTracker(t *testing.T) {
	store := repository.NewStateRepo(filepath.Join(t.TempDir(), "currencies.json"))
	fetcher := testutil.NewPageFetcher()
	fetcher.SetRate("usd", 41.25)
	tr := tracker.New(store, fetcher, scraper.DefaultChain(), tracker.Options{})

	s := scheduler.NewRefreshScheduler(tr, scheduler.RefreshSchedulerConfig{Interval: time.Hour})
	s.Start()
	waitFor(t, "startup pass", func() bool {
		_, ok := s.LastPass()
		return ok
	})
	s.Stop()

	persisted, err := store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if persisted[0].CurrentPrice == nil || *persisted[0].CurrentPrice != 41.25 {
		t.Fatalf("expected persisted price, got %+v", persisted[0])
	}
	if e, _ := tr.Entry("usd"); !e.Equal(persisted[0]) {
		t.Fatalf("memory and file disagree: %+v vs %+v", e, persisted[0])
	}
}

func TestTrigger_NotRunning(t *testing.T) {
	f := &fakeRefresher{}
	s := scheduler.NewRefreshScheduler(f, scheduler.RefreshSchedulerConfig{Interval: time.Hour})

	if s.Trigger() {
		t.Fatal("trigger should not queue while stopped")
	}

	s.Start()
	waitFor(t, "startup pass", func() bool { return f.passes.Load() == 1 })
	s.Stop()

	// nothing held over from before Start
	time.Sleep(30 * time.Millisecond)
	if n := f.passes.Load(); n != 1 {
		t.Fatalf("expected only the startup pass, got %d", n)
	}
}

func TestRefreshNow_CallerCancelDoesNotStopPass(t *testing.T) {
	store := repository.NewStateRepo(filepath.Join(t.TempDir(), "currencies.json"))
	if err := store.Save([]models.CurrencyEntry{
		{Code: "usd", Name: "US Dollar"},
		{Code: "eur", Name: "Euro"},
		{Code: "gbp", Name: "Pound Sterling"},
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	fetcher := testutil.NewPageFetcher()
	fetcher.SetRate("usd", 41.25)
	fetcher.SetRate("eur", 44.10)
	fetcher.SetRate("gbp", 52.70)
	tr := tracker.New(store, fetcher, scraper.DefaultChain(), tracker.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var once sync.Once
	tr.Subscribe(tracker.ObserverFuncs{Progress: func(tracker.Progress) {
		once.Do(cancel)
	}})

	s := scheduler.NewRefreshScheduler(tr, scheduler.RefreshSchedulerConfig{Interval: time.Hour})
	summary, err := s.RefreshNow(ctx)
	if err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("caller context should have been cancelled during the pass")
	}
	if summary.Updated != summary.Total || summary.Total != 3 || len(summary.Failures) != 0 {
		t.Fatalf("pass should complete despite cancellation: %+v", summary)
	}
}
