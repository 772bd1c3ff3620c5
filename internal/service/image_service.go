package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/imageproc"
)

// ImageService exposes the image pipeline operations behind the API.
type ImageService struct {
	processor *imageproc.Processor
	batchSize int
	logger    *slog.Logger
}

func NewImageService(processor *imageproc.Processor, batchSize int, logger *slog.Logger) *ImageService {
	return &ImageService{
		processor: processor,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Process runs the full pipeline on one tender: background cleanup
// when the vendor is configured, then watermarking.
func (s *ImageService) Process(ctx context.Context, tenderID uuid.UUID) (string, error) {
	return s.processor.Process(ctx, tenderID)
}

// Watermark brands the tender's source image without the cleanup step.
func (s *ImageService) Watermark(ctx context.Context, tenderID uuid.UUID) (string, error) {
	return s.processor.Brand(ctx, tenderID)
}

// ConvertPNG produces the PNG working copy of the source image.
func (s *ImageService) ConvertPNG(ctx context.Context, tenderID uuid.UUID) (string, error) {
	return s.processor.ConvertPNG(ctx, tenderID)
}

// Reprocess clears a previous failure and runs the pipeline again.
func (s *ImageService) Reprocess(ctx context.Context, tenderID uuid.UUID) (string, error) {
	return s.processor.Reprocess(ctx, tenderID)
}

// ProcessAll runs the pipeline over the unprocessed backlog. limit <= 0
// uses the configured batch size.
func (s *ImageService) ProcessAll(ctx context.Context, limit int) (*imageproc.BatchSummary, error) {
	if limit <= 0 {
		limit = s.batchSize
	}
	summary, err := s.processor.RunBatch(ctx, limit)
	if err != nil {
		return summary, err
	}
	s.logger.Info("image batch finished",
		"processed", summary.Processed,
		"errors", summary.Errors,
		"stopped", summary.Stopped)
	return summary, nil
}
