package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

type Config struct {
	// Tracker
	StateFile              string
	RateProviderURL        string
	UserAgent              string
	FetchTimeoutSeconds    int
	RefreshIntervalSeconds int
	HistoryCapacity        int

	// API
	APIPort         int
	APIKey          string
	CORSAllowOrigin string

	// Notifications
	WebhookURL         string
	NotifyName         string
	AlertChangePercent float64

	// Archive (optional Postgres)
	ArchiveEnabled bool
	DBHost         string
	DBPort         int
	DBName         string
	DBUser         string
	DBPassword     string

	// Kafka (optional)
	KafkaBrokers []string
	KafkaTopic   string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StateFile:              envStr("STATE_FILE", "currencies.json"),
		RateProviderURL:        strings.TrimRight(envStr("RATE_PROVIDER_URL", "https://minfin.com.ua"), "/"),
		UserAgent:              envStr("USER_AGENT", defaultUserAgent),
		FetchTimeoutSeconds:    envInt("FETCH_TIMEOUT_SECONDS", 10),
		RefreshIntervalSeconds: envInt("REFRESH_INTERVAL_SECONDS", 300),
		HistoryCapacity:        envInt("HISTORY_CAPACITY", 50),

		APIPort:         envInt("API_PORT", 3001),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		WebhookURL:         envStr("WEBHOOK_URL", ""),
		NotifyName:         envStr("NOTIFY_NAME", "RateTracker"),
		AlertChangePercent: envFloat("ALERT_CHANGE_PERCENT", 1.0),

		ArchiveEnabled: envBool("ARCHIVE_ENABLED", false),
		DBHost:         envStr("DB_HOST", "localhost"),
		DBPort:         envInt("DB_PORT", 5432),
		DBName:         envStr("DB_NAME", "rate_tracker"),
		DBUser:         envStr("DB_USER", ""),
		DBPassword:     envStr("DB_PASSWORD", ""),

		KafkaBrokers: envList("KAFKA_BROKERS"),
		KafkaTopic:   envStr("KAFKA_TOPIC", "currency-rates"),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "text"),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.StateFile == "" {
		errs = append(errs, "STATE_FILE must not be empty")
	}
	if !strings.HasPrefix(c.RateProviderURL, "http://") && !strings.HasPrefix(c.RateProviderURL, "https://") {
		errs = append(errs, "RATE_PROVIDER_URL must be an http(s) URL")
	}
	if c.FetchTimeoutSeconds <= 0 {
		errs = append(errs, "FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.RefreshIntervalSeconds <= 0 {
		errs = append(errs, "REFRESH_INTERVAL_SECONDS must be positive")
	}
	if c.HistoryCapacity <= 0 {
		errs = append(errs, "HISTORY_CAPACITY must be positive")
	}
	if c.ArchiveEnabled && c.DBUser == "" {
		errs = append(errs, "DB_USER is required when ARCHIVE_ENABLED is set")
	}
	if c.APIKey == "" {
		logrus.Warn("API_KEY not set, REST API has no authentication")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Currency Rate Tracker Configuration ===")
	fmt.Printf("State file: %s\n", c.StateFile)
	fmt.Printf("Rate provider: %s/currency/<code>/\n", c.RateProviderURL)
	fmt.Printf("Fetch timeout: %ds\n", c.FetchTimeoutSeconds)
	fmt.Printf("Refresh interval: %s\n", c.RefreshInterval())
	fmt.Printf("History capacity: %d samples per currency\n", c.HistoryCapacity)
	fmt.Println("--------------------------------------")
	fmt.Printf("API port: %d\n", c.APIPort)
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set (console only)"))
	fmt.Printf("Alert threshold: %.2f%%\n", c.AlertChangePercent)
	fmt.Printf("Archive: %s\n", boolLabel(c.ArchiveEnabled, fmt.Sprintf("postgres %s:%d/%s", c.DBHost, c.DBPort, c.DBName), "disabled"))
	fmt.Printf("Kafka: %s\n", boolLabel(len(c.KafkaBrokers) > 0, strings.Join(c.KafkaBrokers, ",")+" -> "+c.KafkaTopic, "disabled"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
