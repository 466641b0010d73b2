package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/kjannette/rate-tracker/internal/models"
)

// PageFetcher serves canned pages per currency code.
type PageFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string

	// Block, when set, is received from before each fetch returns.
	Block chan struct{}
}

func NewPageFetcher() *PageFetcher {
	return &PageFetcher{pages: map[string]string{}, errs: map[string]error{}}
}

// SetRate serves a minimal page carrying price for code.
func (f *PageFetcher) SetRate(code string, price float64) {
	f.SetPage(code, fmt.Sprintf(`<html><body><div data-currency="%s">%.2f</div></body></html>`, code, price))
}

func (f *PageFetcher) SetPage(code, page string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[code] = page
	delete(f.errs, code)
}

// Fail makes fetches for code return err wrapped in ErrNetworkFailure.
func (f *PageFetcher) Fail(code string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[code] = fmt.Errorf("%w: %v", models.ErrNetworkFailure, err)
}

func (f *PageFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *PageFetcher) FetchPage(ctx context.Context, code string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, code)
	page, hasPage := f.pages[code]
	err := f.errs[code]
	block := f.Block
	f.mu.Unlock()

	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %v", models.ErrNetworkFailure, ctx.Err())
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if !hasPage {
		return "", fmt.Errorf("%w: no page for %s", models.ErrNetworkFailure, code)
	}
	return page, nil
}
