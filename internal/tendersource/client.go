// Package tendersource is the HTTP client for the upstream tender
// listing API.
package tendersource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tenderspro/backend/internal/config"
)

// Common source errors.
var (
	// ErrUnavailable covers network failures and 5xx answers from the
	// upstream API. Callers treat it as transient.
	ErrUnavailable = errors.New("tender source unavailable")

	// ErrUnauthorized means the configured Basic auth credentials were
	// rejected. Retrying will not help.
	ErrUnauthorized = errors.New("tender source rejected credentials")

	// ErrNotFound is returned by FindTender when the record is not on
	// any searched page.
	ErrNotFound = errors.New("tender not found at source")
)

const userAgent = "TendersPro/1.0"

// findMaxPages bounds the listing scan performed by FindTender.
const findMaxPages = 10

// Client fetches listing pages from the upstream API with Basic auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
}

// NewClient creates a source client from configuration.
func NewClient(cfg config.SourceConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
	}
}

// FetchPage retrieves one listing page. Pages are 1-based.
func (c *Client) FetchPage(ctx context.Context, page int) (*Page, error) {
	url := fmt.Sprintf("%s/tenders/?format=json&page=%d", c.baseURL, page)

	var result Page
	if err := c.getJSON(ctx, url, &result); err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	return &result, nil
}

// FetchDetail retrieves a single record by upstream id. Detail
// payloads carry fields the listing omits (tender number,
// qualifications, full description, announcer).
func (c *Client) FetchDetail(ctx context.Context, tenderID int64) (*Tender, error) {
	url := fmt.Sprintf("%s/tenders/%d/?format=json", c.baseURL, tenderID)

	var result Tender
	if err := c.getJSON(ctx, url, &result); err != nil {
		return nil, fmt.Errorf("fetch detail %d: %w", tenderID, err)
	}
	return &result, nil
}

// FindTender scans listing pages for a record by upstream id. The
// upstream API has no reliable detail endpoint for older records, so
// the scan is bounded to the first few pages.
func (c *Client) FindTender(ctx context.Context, tenderID int64) (*Tender, error) {
	for page := 1; page <= findMaxPages; page++ {
		p, err := c.FetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		for i := range p.Results {
			if p.Results[i].ID == tenderID {
				return &p.Results[i], nil
			}
		}

		if !p.HasMore() {
			break
		}
	}

	return nil, fmt.Errorf("tender %d: %w", tenderID, ErrNotFound)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// TotalPages derives the page count from a listing page's total record
// count, rounding up for a partial final page.
func TotalPages(totalCount, pageSize int) int {
	if totalCount <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}
