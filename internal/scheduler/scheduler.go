// Package scheduler provides cron-based scheduling for the incremental
// tender check and the image processing batch.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tenderspro/backend/internal/imageproc"
)

// Config holds the scheduler configuration
type Config struct {
	// CheckerSchedule is a cron expression for the incremental tender
	// check (e.g., "*/30 * * * *" for every 30 minutes)
	CheckerSchedule string
	// ImageSchedule is a cron expression for the image batch
	ImageSchedule string
	// ImageBatchSize bounds one image batch run
	ImageBatchSize int
	// Timeout is the maximum duration for one job run
	Timeout time.Duration
	// Enabled determines if the scheduler should run
	Enabled bool
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		CheckerSchedule: "*/30 * * * *",
		ImageSchedule:   "15 * * * *",
		ImageBatchSize:  10,
		Timeout:         5 * time.Minute,
		Enabled:         true,
	}
}

// Checker runs one incremental pass and reports how many tenders it
// stored.
type Checker interface {
	CheckNew(ctx context.Context) (int, error)
}

// ImageBatcher processes a batch of unprocessed tender images.
type ImageBatcher interface {
	ProcessAll(ctx context.Context, limit int) (*imageproc.BatchSummary, error)
}

// Scheduler manages the recurring background jobs
type Scheduler struct {
	cron    *cron.Cron
	checker Checker
	images  ImageBatcher
	config  Config
	logger  *slog.Logger
}

// New creates a new Scheduler instance
func New(cfg Config, checker Checker, images ImageBatcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		checker: checker,
		images:  images,
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled, skipping start")
		return nil
	}

	// Convert standard cron (5 fields) to cron with seconds (6 fields)
	// Add "0" at the beginning for seconds
	if _, err := s.cron.AddFunc("0 "+s.config.CheckerSchedule, s.runCheckJob); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 "+s.config.ImageSchedule, s.runImageJob); err != nil {
		return err
	}

	s.cron.Start()

	s.logger.Info("Scheduler started",
		slog.String("checker_schedule", s.config.CheckerSchedule),
		slog.String("image_schedule", s.config.ImageSchedule),
		slog.Duration("timeout", s.config.Timeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping scheduler...")
	return s.cron.Stop()
}

// RunCheckNow triggers an immediate incremental check
func (s *Scheduler) RunCheckNow() {
	go s.runCheckJob()
}

// runCheckJob executes one incremental tender check
func (s *Scheduler) runCheckJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Info("Starting scheduled tender check")

	stored, err := s.checker.CheckNew(ctx)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Tender check failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return
	}

	s.logger.Info("Tender check completed",
		slog.Int("tenders_stored", stored),
		slog.Duration("duration", duration),
	)
}

// runImageJob executes one image processing batch
func (s *Scheduler) runImageJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Info("Starting scheduled image batch")

	summary, err := s.images.ProcessAll(ctx, s.config.ImageBatchSize)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Image batch failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return
	}

	s.logger.Info("Image batch completed",
		slog.Int("processed", summary.Processed),
		slog.Int("errors", summary.Errors),
		slog.Bool("stopped", summary.Stopped),
		slog.Duration("duration", duration),
	)
}
