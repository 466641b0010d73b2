package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kjannette/rate-tracker/internal/httputil"
)

var log = logrus.WithField("component", "notify")

const DefaultName = "RateTracker"

// Sender posts messages to a Slack or Discord webhook. With no URL it only
// logs.
type Sender struct {
	webhookURL string
	name       string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewSender(webhookURL, name string) *Sender {
	if name == "" {
		name = DefaultName
	}
	return &Sender{
		webhookURL: webhookURL,
		name:       name,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

// Send delivers msg, retrying transient failures. Errors are logged and
// returned; callers on the refresh path ignore them.
func (s *Sender) Send(msg string) error {
	formatted := fmt.Sprintf("[%s] %s", s.name, msg)
	log.Info(formatted)

	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		log.Errorf("webhook delivery failed: %v", err)
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if !httputil.IsSuccess(resp) {
		err := httputil.StatusError(resp)
		log.Errorf("webhook rejected message: %v", err)
		return err
	}
	return nil
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.name,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.name,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
