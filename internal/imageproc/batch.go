package imageproc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// BatchResult is the outcome for one tender in a batch run.
type BatchResult struct {
	TenderID uuid.UUID `json:"tenderId"`
	Success  bool      `json:"success"`
	URL      string    `json:"url,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Processed int           `json:"processed"`
	Errors    int           `json:"errors"`
	Stopped   bool          `json:"stopped"` // vendor quota fired mid-batch
	Results   []BatchResult `json:"results"`
}

// RunBatch processes up to limit unprocessed tenders sequentially.
// Per-tender failures are recorded on the row and in the summary; a
// vendor quota rejection stops the batch immediately, leaving the
// remaining tenders untouched for the next run.
func (p *Processor) RunBatch(ctx context.Context, limit int) (*BatchSummary, error) {
	tenders, err := p.store.ListUnprocessed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed tenders: %w", err)
	}

	p.logger.Info("image batch starting", slog.Int("tenders", len(tenders)))

	summary := &BatchSummary{}
	for i := range tenders {
		if ctx.Err() != nil {
			summary.Stopped = true
			break
		}

		id := tenders[i].ID
		url, err := p.Process(ctx, id)
		if err != nil {
			if errors.Is(err, ErrQuotaExceeded) {
				p.logger.Warn("removal quota exhausted, stopping batch",
					slog.Int("remaining", len(tenders)-i),
				)
				summary.Stopped = true
				summary.Results = append(summary.Results, BatchResult{
					TenderID: id, Success: false, Error: err.Error(),
				})
				summary.Errors++
				break
			}

			summary.Errors++
			summary.Results = append(summary.Results, BatchResult{
				TenderID: id, Success: false, Error: err.Error(),
			})
			if serr := p.store.SetImageError(ctx, id, err.Error()); serr != nil {
				p.logger.Error("failed to record image error",
					slog.String("tender_id", id.String()),
					slog.String("error", serr.Error()),
				)
			}
			continue
		}

		summary.Processed++
		summary.Results = append(summary.Results, BatchResult{
			TenderID: id, Success: true, URL: url,
		})
	}

	p.logger.Info("image batch finished",
		slog.Int("processed", summary.Processed),
		slog.Int("errors", summary.Errors),
		slog.Bool("stopped", summary.Stopped),
	)
	return summary, nil
}

