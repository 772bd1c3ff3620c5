package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tenderspro/backend/internal/config"
	"github.com/tenderspro/backend/internal/db"
	"github.com/tenderspro/backend/internal/ingest"
	"github.com/tenderspro/backend/internal/logger"
	"github.com/tenderspro/backend/internal/repository"
	"github.com/tenderspro/backend/internal/tendersource"
)

func main() {
	// Flags
	page := flag.Int("page", 1, "Page to start the full ingestion run from")
	check := flag.Bool("check", false, "Run only an incremental check for new tenders")
	timeout := flag.Duration("timeout", 2*time.Hour, "Run timeout")
	flag.Parse()

	cfg := config.Load()
	log := logger.Logger()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: connect database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		fmt.Fprintf(os.Stderr, "Error: run migrations: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := repository.NewTenderRepository(database)
	client := tendersource.NewClient(cfg.Source)
	limiter := ingest.NewLimiter(cfg.Source.RequestsPerSecond, 1)

	startTime := time.Now()

	if *check {
		checker := ingest.NewChecker(client, store, limiter, cfg.Source.StaticOrigin, log)
		stored, err := checker.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Check complete: %d new tenders stored (%.1fs elapsed)\n",
			stored, time.Since(startTime).Seconds())
		return
	}

	pipeline := ingest.NewPipeline(client, store, limiter, cfg.Source.StaticOrigin, log)
	final, err := pipeline.Run(ctx, *page)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: run ended in phase %s at page %d: %v\n",
			final.Phase, final.LastPage, err)
		os.Exit(1)
	}

	fmt.Printf("Ingestion %s: %d inserted, %d errored, last page %d of %d (%.1fs elapsed)\n",
		final.Phase, final.Inserted, final.Errored, final.LastPage, final.TotalPages,
		time.Since(startTime).Seconds())
}
