package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tenderspro/backend/internal/config"
	"github.com/tenderspro/backend/internal/ingest"
	"github.com/tenderspro/backend/internal/model"
	"github.com/tenderspro/backend/internal/tendersource"
)

// Matcher turns a freshly stored tender into alert match records.
type Matcher interface {
	MatchAndNotify(ctx context.Context, tender *model.Tender) (int, error)
}

// matchingStore decorates a TenderStore so every tender that lands in
// the database is immediately matched against saved alerts. Matching
// failures never fail the ingest write.
type matchingStore struct {
	ingest.TenderStore
	matcher Matcher
	logger  *slog.Logger
}

func (s *matchingStore) Insert(ctx context.Context, t *model.Tender) error {
	if err := s.TenderStore.Insert(ctx, t); err != nil {
		return err
	}
	s.match(ctx, t)
	return nil
}

func (s *matchingStore) Upsert(ctx context.Context, t *model.Tender) error {
	if err := s.TenderStore.Upsert(ctx, t); err != nil {
		return err
	}
	// Both timestamps come from the same statement, so they are equal
	// exactly when the upsert inserted a fresh row. Conflict updates
	// must not re-notify.
	if t.CreatedAt.Equal(t.UpdatedAt) {
		s.match(ctx, t)
	}
	return nil
}

func (s *matchingStore) match(ctx context.Context, t *model.Tender) {
	matched, err := s.matcher.MatchAndNotify(ctx, t)
	if err != nil {
		s.logger.Error("alert matching failed", "tender_id", t.TenderID, "error", err)
		return
	}
	if matched > 0 {
		s.logger.Info("tender matched alerts", "tender_id", t.TenderID, "matches", matched)
	}
}

// IngestService runs the full ingestion pipeline and the incremental
// checker, and exposes run status for the API.
type IngestService struct {
	pipeline *ingest.Pipeline
	checker  *ingest.Checker
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewIngestService(
	client *tendersource.Client,
	store ingest.TenderStore,
	matcher Matcher,
	cfg config.SourceConfig,
	logger *slog.Logger,
) *IngestService {
	wrapped := &matchingStore{TenderStore: store, matcher: matcher, logger: logger}
	limiter := ingest.NewLimiter(cfg.RequestsPerSecond, 1)

	return &IngestService{
		pipeline: ingest.NewPipeline(client, wrapped, limiter, cfg.StaticOrigin, logger),
		checker:  ingest.NewChecker(client, wrapped, limiter, cfg.StaticOrigin, logger),
		logger:   logger,
	}
}

// StartIngestion launches a full ingestion run in the background.
// Returns ingest.ErrAlreadyRunning when a run is in flight.
func (s *IngestService) StartIngestion(startPage int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline.State().Phase == ingest.PhaseRunning {
		return ingest.ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		defer cancel()
		final, err := s.pipeline.Run(ctx, startPage)
		if err != nil {
			s.logger.Error("ingestion run ended with error",
				"phase", string(final.Phase),
				"last_page", final.LastPage,
				"error", err)
			return
		}
		s.logger.Info("ingestion run finished",
			"phase", string(final.Phase),
			"inserted", final.Inserted,
			"errored", final.Errored)
	}()
	return nil
}

// StopIngestion cancels the in-flight run, if any.
func (s *IngestService) StopIngestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Status returns the current pipeline snapshot.
func (s *IngestService) Status() ingest.State {
	return s.pipeline.State()
}

// CheckNew runs one incremental pass and returns how many tenders it
// stored.
func (s *IngestService) CheckNew(ctx context.Context) (int, error) {
	return s.checker.Run(ctx)
}
