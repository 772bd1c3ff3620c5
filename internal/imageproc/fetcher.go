package imageproc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Source scans sit behind hotlink protection, so fetches pretend to be
// a browser on the source's own site.
const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	fetchAttempts    = 3
)

// maxImageBytes caps downloads; tender scans are single-page documents.
const maxImageBytes = 20 << 20

// Fetcher downloads image bytes, falling back through an ordered list
// of CORS proxies when the direct fetch is blocked.
type Fetcher struct {
	client  *http.Client
	proxies []string
	referer string

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher with the given proxy fallback chain.
func NewFetcher(proxies []string, timeout time.Duration, referer string) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		proxies: proxies,
		referer: referer,
		sleep:   sleepCtx,
	}
}

// Fetch retrieves the image at imageURL. Attempt 1 goes direct; later
// attempts walk the proxy list. Backoff between attempts increases
// linearly (2s, 4s).
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	strategies := f.strategies(imageURL)

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, time.Duration(attempt)*2*time.Second); err != nil {
				return nil, err
			}
		}

		target := strategies[attempt%len(strategies)]
		data, err := f.fetchOnce(ctx, target)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("image fetch failed after %d attempts: %w", fetchAttempts, lastErr)
}

// strategies is the ordered list of URLs to try: direct first, then
// each configured proxy wrapping the target.
func (f *Fetcher) strategies(imageURL string) []string {
	out := []string{imageURL}
	for _, p := range f.proxies {
		out = append(out, p+url.QueryEscape(imageURL))
	}
	return out
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "image/gif,image/jpeg,image/png,*/*")
	req.Header.Set("Cache-Control", "no-cache")
	if f.referer != "" {
		req.Header.Set("Referer", f.referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body", target)
	}
	return data, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
