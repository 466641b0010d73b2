package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kjannette/rate-tracker/internal/tracker"
)

const namespace = "rate_tracker"

// RefreshMetrics records pass outcomes. It is a tracker observer.
type RefreshMetrics struct {
	PassesTotal       prometheus.Counter
	PassDuration      prometheus.Histogram
	EntriesUpdated    prometheus.Counter
	EntriesSkipped    prometheus.Counter
	FetchFailures     *prometheus.CounterVec
	Rate              *prometheus.GaugeVec
	HistoryLength     *prometheus.GaugeVec
	LastPassTimestamp prometheus.Gauge
	PassProgress      prometheus.Gauge
	StateSaveFailures prometheus.Counter
}

// New registers the refresh metrics on reg.
func New(reg prometheus.Registerer) *RefreshMetrics {
	f := promauto.With(reg)
	return &RefreshMetrics{
		PassesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Completed refresh passes",
		}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a refresh pass",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms .. ~2m
		}),
		EntriesUpdated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_updated_total",
			Help:      "Entries that received a new price",
		}),
		EntriesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_skipped_total",
			Help:      "Entries removed while their pass was running",
		}),
		FetchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Entries left without an update, by reason",
		}, []string{"code", "reason"}),
		Rate: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate",
			Help:      "Latest accepted rate per currency",
		}, []string{"code"}),
		HistoryLength: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_samples",
			Help:      "Samples held in the live history series",
		}, []string{"code"}),
		LastPassTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time the last pass completed",
		}),
		PassProgress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_progress_ratio",
			Help:      "Fraction of the current pass processed",
		}),
		StateSaveFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_save_failures_total",
			Help:      "Passes whose state could not be persisted",
		}),
	}
}

func (m *RefreshMetrics) OnProgress(p tracker.Progress) {
	m.PassProgress.Set(p.Fraction)
}

func (m *RefreshMetrics) OnEntryUpdated(u tracker.EntryUpdate) {
	m.EntriesUpdated.Inc()
	m.Rate.WithLabelValues(u.Entry.Code).Set(u.Sample.Price)
	m.HistoryLength.WithLabelValues(u.Entry.Code).Set(float64(len(u.History)))
}

func (m *RefreshMetrics) OnPassComplete(s tracker.PassSummary) {
	m.PassesTotal.Inc()
	m.PassDuration.Observe(s.Duration().Seconds())
	m.EntriesSkipped.Add(float64(s.Skipped))
	for code, reason := range s.Failures {
		m.FetchFailures.WithLabelValues(code, reason).Inc()
	}
	if !s.Persisted {
		m.StateSaveFailures.Inc()
	}
	m.LastPassTimestamp.Set(float64(s.CompletedAt.Unix()))
}

// Forget drops per-currency series for a code no longer tracked.
func (m *RefreshMetrics) Forget(code string) {
	m.Rate.DeleteLabelValues(code)
	m.HistoryLength.DeleteLabelValues(code)
	m.FetchFailures.DeletePartialMatch(prometheus.Labels{"code": code})
}
