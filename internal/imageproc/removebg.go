package imageproc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrQuotaExceeded means the removal vendor rejected the call for lack
// of credits. Batch callers stop on it instead of burning through the
// rest of the batch.
var ErrQuotaExceeded = errors.New("watermark removal quota exceeded")

// Remover cleans source-side watermarks off scans through a remote
// removal vendor.
type Remover struct {
	client *http.Client
	apiURL string
	apiKey string
}

// NewRemover creates a vendor client. An empty apiKey disables the
// step; Remove will fail fast.
func NewRemover(apiURL, apiKey string) *Remover {
	return &Remover{
		client: &http.Client{Timeout: 60 * time.Second},
		apiURL: apiURL,
		apiKey: apiKey,
	}
}

// Enabled reports whether a vendor key is configured.
func (r *Remover) Enabled() bool {
	return r.apiKey != ""
}

type removeRequest struct {
	ImageURL string `json:"image_url"`
	Size     string `json:"size"`
	Format   string `json:"format"`
	Type     string `json:"type"`
}

// Remove submits the image URL to the vendor and returns the cleaned
// image bytes.
func (r *Remover) Remove(ctx context.Context, imageURL string) ([]byte, error) {
	if !r.Enabled() {
		return nil, fmt.Errorf("removal vendor key not configured")
	}

	body, err := json.Marshal(removeRequest{
		ImageURL: imageURL,
		Size:     "auto",
		Format:   "auto",
		Type:     "document",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("removal request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if isQuotaError(resp.StatusCode, string(msg)) {
			return nil, ErrQuotaExceeded
		}
		return nil, fmt.Errorf("removal vendor status %d: %s", resp.StatusCode, msg)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read removal result: %w", err)
	}
	return data, nil
}

// isQuotaError recognizes the vendor's credit-exhaustion signal, which
// arrives as 402 or as an error body mentioning credits.
func isQuotaError(status int, body string) bool {
	if status == http.StatusPaymentRequired {
		return true
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "insufficient credits") ||
		strings.Contains(lower, "credit limit")
}
