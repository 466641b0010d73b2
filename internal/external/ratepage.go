package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjannette/rate-tracker/internal/httputil"
	"github.com/kjannette/rate-tracker/internal/models"
)

const (
	DefaultBaseURL   = "https://minfin.com.ua"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultTimeout   = 10 * time.Second

	maxPageBytes = 4 << 20
)

// RateFetcher downloads the provider's per-currency HTML page.
type RateFetcher struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

type FetcherOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

func NewRateFetcher(opts FetcherOptions) *RateFetcher {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &RateFetcher{
		baseURL:    base,
		userAgent:  ua,
		httpClient: &http.Client{Timeout: timeout},
		// the next scheduled pass is the retry
		retry: httputil.NoRetry,
	}
}

func (f *RateFetcher) PageURL(code string) string {
	return fmt.Sprintf("%s/currency/%s/", f.baseURL, url.PathEscape(strings.ToLower(code)))
}

// FetchPage issues one GET for code. Every failure wraps models.ErrNetworkFailure.
func (f *RateFetcher) FetchPage(ctx context.Context, code string) (string, error) {
	pageURL := f.PageURL(code)

	resp, err := httputil.Do(ctx, f.httpClient, f.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %v", models.ErrNetworkFailure, code, err)
	}
	defer resp.Body.Close()

	if !httputil.IsSuccess(resp) {
		return "", fmt.Errorf("%w: fetch %s: %v", models.ErrNetworkFailure, code, httputil.StatusError(resp))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", models.ErrNetworkFailure, code, err)
	}
	return string(body), nil
}
