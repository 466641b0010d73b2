package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/kjannette/rate-tracker/internal/api"
	"github.com/kjannette/rate-tracker/internal/config"
	"github.com/kjannette/rate-tracker/internal/db"
	"github.com/kjannette/rate-tracker/internal/external"
	"github.com/kjannette/rate-tracker/internal/history"
	"github.com/kjannette/rate-tracker/internal/metrics"
	"github.com/kjannette/rate-tracker/internal/notifications"
	"github.com/kjannette/rate-tracker/internal/publisher"
	"github.com/kjannette/rate-tracker/internal/repository"
	"github.com/kjannette/rate-tracker/internal/scheduler"
	"github.com/kjannette/rate-tracker/internal/scraper"
	"github.com/kjannette/rate-tracker/internal/tracker"
)

const banner = `
╔══════════════════════════════════════╗
║     Currency Rate Tracker v0.3       ║
║                                      ║
╚══════════════════════════════════════╝
`

var log = logrus.WithField("component", "main")

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel, cfg.LogFormat)
	cfg.Print()

	// Archive (optional)
	var archive *repository.SampleRepo
	var pinger api.Pinger
	if cfg.ArchiveEnabled {
		log.Infof("connecting to %s:%d/%s ...", cfg.DBHost, cfg.DBPort, cfg.DBName)
		pool, err := db.Connect(cfg.DSN())
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer func() {
			pool.Close()
			log.Info("connection pool closed")
		}()

		if err := db.TestConnection(pool); err != nil {
			log.Fatalf("test query failed: %v", err)
		}
		schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.EnsureSchema(schemaCtx, pool); err != nil {
			cancel()
			log.Fatalf("ensure schema: %v", err)
		}
		cancel()

		archive = repository.NewSampleRepo(pool, "")
		pinger = pool
	}

	// Tracker
	fetcher := external.NewRateFetcher(external.FetcherOptions{
		BaseURL:   cfg.RateProviderURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	opts := tracker.Options{History: history.NewStore(cfg.HistoryCapacity)}
	if archive != nil {
		opts.Archive = archive
	}
	tr := tracker.New(repository.NewStateRepo(cfg.StateFile), fetcher, scraper.DefaultChain(), opts)

	// Observers
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	refreshMetrics := metrics.New(reg)
	tr.Subscribe(refreshMetrics)

	hub := api.NewHub(tr.Snapshot)
	tr.Subscribe(hub)

	notifier := notifications.NewNotifier(notifications.NewSender(cfg.WebhookURL, cfg.NotifyName), cfg.AlertChangePercent)
	tr.Subscribe(notifier)

	var kafkaPub *publisher.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		tr.Subscribe(kafkaPub)
		log.Infof("publishing rates to kafka topic %s", cfg.KafkaTopic)
	}

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewRefreshScheduler(tr, scheduler.RefreshSchedulerConfig{Interval: cfg.RefreshInterval()})

	// 1. API server
	deps := api.Deps{
		Tracker:   tr,
		Scheduler: sched,
		Hub:       hub,
		DB:        pinger,
		Metrics:   refreshMetrics,
		Gatherer:  reg,
	}
	if archive != nil {
		deps.Archive = archive
	}
	srv := api.NewServer(deps, cfg.APIPort, cfg.APIKey, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// 2. Refresh scheduler
	sched.Start()

	log.Info("all services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("shutting down gracefully...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown error: %v", err)
	}
	log.Info("server closed")

	notifier.Wait()
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			log.Errorf("kafka close: %v", err)
		}
	}
	log.Info("shutdown complete")
}

func setupLogging(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("unknown LOG_LEVEL %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
}
