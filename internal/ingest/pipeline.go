// Package ingest runs the tender ingestion pipeline and the
// incremental checker against the upstream listing API.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tenderspro/backend/internal/model"
	"github.com/tenderspro/backend/internal/tendersource"
)

// Source is the slice of the upstream client the pipeline needs.
type Source interface {
	FetchPage(ctx context.Context, page int) (*tendersource.Page, error)
	FetchDetail(ctx context.Context, tenderID int64) (*tendersource.Tender, error)
}

// TenderStore is the persistence surface for ingested tenders.
type TenderStore interface {
	ExistsByTenderID(ctx context.Context, tenderID string) (bool, error)
	Insert(ctx context.Context, t *model.Tender) error
	Upsert(ctx context.Context, t *model.Tender) error
	LatestPublicationDate(ctx context.Context) (*time.Time, error)
}

// Progress receives a snapshot after every processed page.
type Progress func(s State)

// Pipeline walks listing pages in increasing order, inserting tenders
// not yet known locally. Records already present by tender_id are
// skipped untouched; the checker handles corrections. A single
// Pipeline value allows one run at a time.
type Pipeline struct {
	source       Source
	store        TenderStore
	limiter      *Limiter
	retry        RetryConfig
	logger       *slog.Logger
	staticOrigin string
	onProgress   Progress

	mu    sync.Mutex
	state State
}

// NewPipeline constructs an idle pipeline.
func NewPipeline(source Source, store TenderStore, limiter *Limiter, staticOrigin string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source:       source,
		store:        store,
		limiter:      limiter,
		retry:        DefaultRetryConfig(),
		logger:       logger,
		staticOrigin: staticOrigin,
		state:        Idle(),
	}
}

// OnProgress registers a per-page progress callback. Call before Run.
func (p *Pipeline) OnProgress(fn Progress) {
	p.onProgress = fn
}

// State returns the current run snapshot.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run executes one ingestion pass starting at startPage and blocks
// until it reaches a terminal state. To resume after a failure, call
// again with the failed state's LastPage.
func (p *Pipeline) Run(ctx context.Context, startPage int) (State, error) {
	p.mu.Lock()
	next, err := p.state.Start(startPage)
	if err != nil {
		p.mu.Unlock()
		return p.state, err
	}
	p.state = next
	p.mu.Unlock()

	final := p.run(ctx, startPage)

	p.mu.Lock()
	p.state = final
	p.mu.Unlock()

	if final.Phase == PhaseFailed {
		return final, fmt.Errorf("ingestion failed at page %d: %s", final.LastPage, final.Error)
	}
	return final, nil
}

func (p *Pipeline) run(ctx context.Context, startPage int) State {
	state, _ := Idle().Start(startPage)

	for {
		if ctx.Err() != nil {
			state, _ = state.Stop()
			return state
		}

		page, err := p.fetchPage(ctx, state.Page)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				state, _ = state.Stop()
				return state
			}
			p.logger.Error("page fetch failed",
				slog.Int("page", state.Page),
				slog.String("error", err.Error()),
			)
			state, _ = state.Fail(err)
			return state
		}

		if state.TotalPages == 0 && len(page.Results) > 0 {
			state = state.WithTotalPages(tendersource.TotalPages(page.Count, len(page.Results)))
		}

		inserted, errored := p.processPage(ctx, page)

		// A page where every tender failed signals something
		// systemic, not bad individual records.
		if len(page.Results) > 0 && errored == len(page.Results) {
			state, _ = state.Fail(fmt.Errorf("all %d tenders on page %d failed", errored, state.Page))
			return state
		}

		state, _ = state.PageDone(inserted, errored)
		p.setState(state)
		p.logger.Info("page processed",
			slog.Int("page", state.LastPage),
			slog.Int("inserted", state.Inserted),
			slog.Int("errored", state.Errored),
			slog.Int("total_pages", state.TotalPages),
		)
		if p.onProgress != nil {
			p.onProgress(state)
		}

		if !page.HasMore() || (state.TotalPages > 0 && state.Page > state.TotalPages) {
			state, _ = state.Complete()
			return state
		}
	}
}

func (p *Pipeline) fetchPage(ctx context.Context, page int) (*tendersource.Page, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result *tendersource.Page
	err := WithRetry(ctx, p.retry, p.logger, func() error {
		var err error
		result, err = p.source.FetchPage(ctx, page)
		return err
	})
	return result, err
}

// processPage inserts the page's unknown tenders sequentially in source
// order. Per-tender failures are counted, logged, and skipped.
func (p *Pipeline) processPage(ctx context.Context, page *tendersource.Page) (inserted, errored int) {
	for i := range page.Results {
		raw := &page.Results[i]

		if ctx.Err() != nil {
			return inserted, errored
		}

		ok, err := p.ingestOne(ctx, raw)
		if err != nil {
			errored++
			p.logger.Warn("tender ingest failed",
				slog.Int64("tender_id", raw.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			inserted++
		}
	}
	return inserted, errored
}

// ingestOne persists one listing record if it is not already known.
// Returns false with no error for the skip case.
func (p *Pipeline) ingestOne(ctx context.Context, raw *tendersource.Tender) (bool, error) {
	exists, err := p.store.ExistsByTenderID(ctx, fmt.Sprintf("%d", raw.ID))
	if err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	if exists {
		return false, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return false, err
	}

	record := raw
	if detail, err := p.source.FetchDetail(ctx, raw.ID); err == nil {
		record = merge(raw, detail)
	} else {
		// Listing data is enough for a usable row; detail fields
		// get corrected later by the checker.
		p.logger.Warn("detail fetch failed, using listing record",
			slog.Int64("tender_id", raw.ID),
			slog.String("error", err.Error()),
		)
	}

	t := tendersource.MapTender(record, p.staticOrigin)
	if err := p.store.Insert(ctx, &t); err != nil {
		return false, fmt.Errorf("insert: %w", err)
	}
	return true, nil
}

// merge overlays the detail payload's extra fields onto the listing
// record. Listing fields win where both are set, since listings are
// fresher for mutable fields.
func merge(listing, detail *tendersource.Tender) *tendersource.Tender {
	m := *listing
	if m.TenderNumber == "" {
		m.TenderNumber = detail.TenderNumber
	}
	if m.QualificationRequired == "" {
		m.QualificationRequired = detail.QualificationRequired
	}
	if m.QualificationDetails == "" {
		m.QualificationDetails = detail.QualificationDetails
	}
	if m.Description == "" {
		m.Description = detail.Description
	}
	if m.Organization == nil {
		m.Organization = detail.Organization
	}
	if m.Status == "" {
		m.Status = detail.Status
	}
	return &m
}
