package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kjannette/rate-tracker/internal/tracker"
)

var log = logrus.WithField("component", "scheduler")

// ErrPassInFlight is returned by RefreshNow while another pass runs.
var ErrPassInFlight = errors.New("refresh pass already in flight")

const DefaultInterval = 5 * time.Minute

// Refresher is the part of *tracker.Tracker the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context) tracker.PassSummary
	TryRefresh(ctx context.Context) (tracker.PassSummary, bool)
	LastPass() (tracker.PassSummary, bool)
}

type RefreshSchedulerConfig struct {
	Interval time.Duration
}

// RefreshScheduler runs passes on a fixed interval and on demand. Scheduled
// and triggered passes share one worker loop, so they never overlap.
type RefreshScheduler struct {
	refresher Refresher
	cfg       RefreshSchedulerConfig

	triggerCh chan struct{}
	inFlight  atomic.Int32

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefreshScheduler(refresher Refresher, cfg RefreshSchedulerConfig) *RefreshScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &RefreshScheduler{
		refresher: refresher,
		cfg:       cfg,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start runs a pass immediately, then one per interval, until Stop.
func (s *RefreshScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn("already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.loop(stopCh, doneCh)

	log.Infof("started (every %s)", s.cfg.Interval)
}

func (s *RefreshScheduler) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.runPass("startup")
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.runPass("interval")
		case <-s.triggerCh:
			s.runPass("trigger")
		}
	}
}

func (s *RefreshScheduler) runPass(reason string) {
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	summary := s.refresher.Refresh(context.Background())
	log.WithField("pass", summary.ID).Debugf("%s pass done in %s", reason, summary.Duration())
}

// Trigger asks the worker loop for a pass without waiting for it. At most
// one request is held; it reports false when one was already pending or
// the scheduler is not running.
func (s *RefreshScheduler) Trigger() bool {
	if !s.Running() {
		log.Warn("manual refresh ignored, scheduler not running")
		return false
	}
	select {
	case s.triggerCh <- struct{}{}:
		log.Info("manual refresh queued")
		return true
	default:
		log.Debug("manual refresh already pending")
		return false
	}
}

// RefreshNow runs a pass on the caller's goroutine, or returns
// ErrPassInFlight if one is already running. Cancelling ctx does not stop
// the pass; passes always run to completion.
func (s *RefreshScheduler) RefreshNow(ctx context.Context) (tracker.PassSummary, error) {
	if s.inFlight.Load() > 0 {
		return tracker.PassSummary{}, ErrPassInFlight
	}
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	summary, ran := s.refresher.TryRefresh(context.WithoutCancel(ctx))
	if !ran {
		return tracker.PassSummary{}, ErrPassInFlight
	}
	return summary, nil
}

// Stop halts the ticker and waits for a pass in flight to finish, so the
// last state is persisted before the process exits.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	log.Info("stopped")
}

func (s *RefreshScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *RefreshScheduler) InFlight() bool {
	return s.inFlight.Load() > 0
}

func (s *RefreshScheduler) Interval() time.Duration {
	return s.cfg.Interval
}

func (s *RefreshScheduler) LastPass() (tracker.PassSummary, bool) {
	return s.refresher.LastPass()
}
