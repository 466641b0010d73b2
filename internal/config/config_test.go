package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STATE_FILE", "RATE_PROVIDER_URL", "REFRESH_INTERVAL_SECONDS", "HISTORY_CAPACITY", "KAFKA_BROKERS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StateFile != "currencies.json" {
		t.Fatalf("state file: got %s", cfg.StateFile)
	}
	if cfg.RefreshInterval() != 5*time.Minute {
		t.Fatalf("refresh interval: got %s", cfg.RefreshInterval())
	}
	if cfg.FetchTimeout() != 10*time.Second {
		t.Fatalf("fetch timeout: got %s", cfg.FetchTimeout())
	}
	if cfg.HistoryCapacity != 50 {
		t.Fatalf("history capacity: got %d", cfg.HistoryCapacity)
	}
	if cfg.KafkaBrokers != nil {
		t.Fatalf("expected no kafka brokers, got %v", cfg.KafkaBrokers)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RATE_PROVIDER_URL", "http://localhost:9999/")
	t.Setenv("REFRESH_INTERVAL_SECONDS", "60")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ARCHIVE_ENABLED", "yes")

	cfg, _ := Load()
	if cfg.RateProviderURL != "http://localhost:9999" {
		t.Fatalf("trailing slash not trimmed: %s", cfg.RateProviderURL)
	}
	if cfg.RefreshInterval() != time.Minute {
		t.Fatalf("interval: got %s", cfg.RefreshInterval())
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers: got %v", cfg.KafkaBrokers)
	}
	if !cfg.ArchiveEnabled {
		t.Fatal("expected archive enabled")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		StateFile:              "currencies.json",
		RateProviderURL:        "https://minfin.com.ua",
		FetchTimeoutSeconds:    10,
		RefreshIntervalSeconds: 300,
		HistoryCapacity:        50,
		APIKey:                 "k",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg.RefreshIntervalSeconds = 0
	cfg.RateProviderURL = "ftp://nope"
	cfg.ArchiveEnabled = true
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"REFRESH_INTERVAL_SECONDS", "RATE_PROVIDER_URL", "DB_USER"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error should mention %s: %v", want, err)
		}
	}
}
