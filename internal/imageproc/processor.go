package imageproc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/model"
)

// Processor errors.
var (
	// ErrAlreadyProcessing means another invocation holds the row lock
	// for this tender. The caller should report and move on, not wait.
	ErrAlreadyProcessing = errors.New("tender image is already being processed")

	// ErrNoImage means the tender has no source image to work from.
	ErrNoImage = errors.New("tender has no source image")
)

// TenderImageStore is the persistence surface for image processing.
type TenderImageStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tender, error)
	ListUnprocessed(ctx context.Context, limit int) ([]model.Tender, error)

	// TryLockProcessing claims the row for this invocation; it returns
	// false when another invocation already holds it.
	TryLockProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	UnlockProcessing(ctx context.Context, id uuid.UUID) error

	SetOriginalImageURL(ctx context.Context, id uuid.UUID, url string) error
	SetPNGImageURL(ctx context.Context, id uuid.UUID, url string) error
	SetProcessedImageURL(ctx context.Context, id uuid.UUID, url string) error
	SetWatermarkedImageURL(ctx context.Context, id uuid.UUID, url string, processedAt time.Time) error
	SetImageError(ctx context.Context, id uuid.UUID, message string) error
}

// Uploader persists result bytes and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Processor runs the per-tender image steps: acquire bytes, normalize,
// optionally clean the source watermark, brand, and persist.
type Processor struct {
	store         TenderImageStore
	fetcher       *Fetcher
	remover       *Remover
	uploader      Uploader
	logger        *slog.Logger
	watermarkText string
	staticOrigin  string

	now func() time.Time
}

// NewProcessor wires the image pipeline.
func NewProcessor(store TenderImageStore, fetcher *Fetcher, remover *Remover, uploader Uploader, watermarkText, staticOrigin string, logger *slog.Logger) *Processor {
	return &Processor{
		store:         store,
		fetcher:       fetcher,
		remover:       remover,
		uploader:      uploader,
		logger:        logger,
		watermarkText: watermarkText,
		staticOrigin:  staticOrigin,
		now:           time.Now,
	}
}

// Brand fetches the tender's image, applies the brand watermark, and
// stores the result as the tender's watermarked image. This is the full
// per-tender flow used by batch mode and the manual endpoint.
// Process runs the richest flow available: vendor cleaning plus
// branding when a vendor key is configured, branding alone otherwise.
func (p *Processor) Process(ctx context.Context, tenderID uuid.UUID) (string, error) {
	if p.remover != nil && p.remover.Enabled() {
		return p.CleanAndBrand(ctx, tenderID)
	}
	return p.Brand(ctx, tenderID)
}

// Reprocess releases any stale processing claim and runs the pipeline
// again, overwriting earlier outputs.
func (p *Processor) Reprocess(ctx context.Context, tenderID uuid.UUID) (string, error) {
	if err := p.store.UnlockProcessing(ctx, tenderID); err != nil {
		return "", fmt.Errorf("release processing claim: %w", err)
	}
	return p.Process(ctx, tenderID)
}

func (p *Processor) Brand(ctx context.Context, tenderID uuid.UUID) (string, error) {
	tender, err := p.store.GetByID(ctx, tenderID)
	if err != nil {
		return "", fmt.Errorf("load tender: %w", err)
	}

	srcURL := p.sourceURL(tender)
	if srcURL == "" {
		return "", ErrNoImage
	}

	unlock, err := p.lock(ctx, tenderID)
	if err != nil {
		return "", err
	}
	defer unlock()

	// Backfill the original URL the first time through so reprocessing
	// always has the pristine source.
	if tender.OriginalImageURL == nil || *tender.OriginalImageURL == "" {
		if err := p.store.SetOriginalImageURL(ctx, tenderID, srcURL); err != nil {
			p.logger.Warn("failed to backfill original image url",
				slog.String("tender_id", tenderID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	data, err := p.fetcher.Fetch(ctx, srcURL)
	if err != nil {
		return "", fmt.Errorf("acquire image: %w", err)
	}

	branded, err := ApplyWatermark(data, p.watermarkText)
	if err != nil {
		return "", fmt.Errorf("apply watermark: %w", err)
	}

	url, err := p.upload(ctx, tenderID, branded, FormatJPEG)
	if err != nil {
		return "", err
	}

	if err := p.store.SetWatermarkedImageURL(ctx, tenderID, url, p.now()); err != nil {
		return "", fmt.Errorf("record watermarked url: %w", err)
	}
	return url, nil
}

// CleanAndBrand additionally routes the image through the removal
// vendor before branding. A quota rejection propagates untouched so
// batch mode can stop.
func (p *Processor) CleanAndBrand(ctx context.Context, tenderID uuid.UUID) (string, error) {
	tender, err := p.store.GetByID(ctx, tenderID)
	if err != nil {
		return "", fmt.Errorf("load tender: %w", err)
	}

	srcURL := p.sourceURL(tender)
	if srcURL == "" {
		return "", ErrNoImage
	}

	unlock, err := p.lock(ctx, tenderID)
	if err != nil {
		return "", err
	}
	defer unlock()

	cleaned, err := p.remover.Remove(ctx, srcURL)
	if err != nil {
		return "", err
	}

	cleanURL, err := p.upload(ctx, tenderID, cleaned, FormatPNG)
	if err != nil {
		return "", err
	}
	if err := p.store.SetProcessedImageURL(ctx, tenderID, cleanURL); err != nil {
		return "", fmt.Errorf("record processed url: %w", err)
	}

	branded, err := ApplyWatermark(cleaned, p.watermarkText)
	if err != nil {
		return "", fmt.Errorf("apply watermark: %w", err)
	}

	url, err := p.upload(ctx, tenderID, branded, FormatJPEG)
	if err != nil {
		return "", err
	}
	if err := p.store.SetWatermarkedImageURL(ctx, tenderID, url, p.now()); err != nil {
		return "", fmt.Errorf("record watermarked url: %w", err)
	}
	return url, nil
}

// ConvertPNG fetches the tender's image and stores a normalized static
// PNG copy. Already-converted tenders return the stored URL untouched.
func (p *Processor) ConvertPNG(ctx context.Context, tenderID uuid.UUID) (string, error) {
	tender, err := p.store.GetByID(ctx, tenderID)
	if err != nil {
		return "", fmt.Errorf("load tender: %w", err)
	}

	if tender.PNGImageURL != nil && *tender.PNGImageURL != "" {
		return *tender.PNGImageURL, nil
	}

	srcURL := p.sourceURL(tender)
	if srcURL == "" {
		return "", ErrNoImage
	}

	unlock, err := p.lock(ctx, tenderID)
	if err != nil {
		return "", err
	}
	defer unlock()

	data, err := p.fetcher.Fetch(ctx, srcURL)
	if err != nil {
		return "", fmt.Errorf("acquire image: %w", err)
	}

	converted, err := ToPNG(data)
	if err != nil {
		return "", fmt.Errorf("convert: %w", err)
	}

	url, err := p.upload(ctx, tenderID, converted, FormatPNG)
	if err != nil {
		return "", err
	}

	if err := p.store.SetPNGImageURL(ctx, tenderID, url); err != nil {
		return "", fmt.Errorf("record png url: %w", err)
	}
	return url, nil
}

// lock claims the tender row and returns the matching unlock func.
func (p *Processor) lock(ctx context.Context, tenderID uuid.UUID) (func(), error) {
	ok, err := p.store.TryLockProcessing(ctx, tenderID)
	if err != nil {
		return nil, fmt.Errorf("claim processing lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyProcessing
	}

	return func() {
		// Release with a fresh context so cancellation of the work
		// does not leave the row locked.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.store.UnlockProcessing(unlockCtx, tenderID); err != nil {
			p.logger.Error("failed to release processing lock",
				slog.String("tender_id", tenderID.String()),
				slog.String("error", err.Error()),
			)
		}
	}, nil
}

func (p *Processor) upload(ctx context.Context, tenderID uuid.UUID, data []byte, format Format) (string, error) {
	filename := fmt.Sprintf("%s-processed-%d.%s", tenderID, p.now().UnixMilli(), format.Extension())
	url, err := p.uploader.Upload(ctx, filename, format.ContentType(), data)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	return url, nil
}

// sourceURL picks the best source image URL for the tender, resolving
// source-relative paths against the static origin.
func (p *Processor) sourceURL(t *model.Tender) string {
	candidate := ""
	switch {
	case t.ImageURL != nil && *t.ImageURL != "":
		candidate = *t.ImageURL
	case t.OriginalImageURL != nil && *t.OriginalImageURL != "":
		candidate = *t.OriginalImageURL
	}
	if candidate == "" {
		return ""
	}
	if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
		return candidate
	}
	return strings.TrimSuffix(p.staticOrigin, "/") + "/" + strings.TrimPrefix(candidate, "/")
}
