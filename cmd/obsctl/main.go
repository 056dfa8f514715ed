package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/aiwire/observatory/internal/config"
	"github.com/aiwire/observatory/internal/database"
	"github.com/aiwire/observatory/internal/logging"
	"github.com/aiwire/observatory/internal/models"
	"github.com/aiwire/observatory/internal/queue"
)

const usage = `usage: obsctl <command>

commands:
  ingest                        enqueue one feed ingest cycle
  trigger-briefing [YYYY-MM-DD] enqueue a briefing job for the given or today's date
  backfill                      migrate legacy rows into the current schema
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "obsctl: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "ingest":
		err = runIngest(ctx, cfg, logger)
	case "trigger-briefing":
		date := ""
		if len(os.Args) > 2 {
			date = os.Args[2]
		}
		err = runTriggerBriefing(ctx, cfg, logger, date)
	case "backfill":
		err = runBackfill(ctx, cfg, logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runIngest(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	queues, err := queue.NewClient(ctx, cfg.Redis.URL, cfg.Pipeline.MaxAttempts)
	if err != nil {
		return err
	}
	defer queues.Close()

	id, err := queues.Enqueue(ctx, queue.QueueIngest, models.IngestJob{Trigger: "manual"})
	if err != nil {
		return err
	}
	logger.Info("ingest cycle enqueued", "job_id", id)
	return nil
}

func runTriggerBriefing(ctx context.Context, cfg config.Config, logger *slog.Logger, date string) error {
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("bad date %q: want YYYY-MM-DD", date)
	}

	queues, err := queue.NewClient(ctx, cfg.Redis.URL, cfg.Pipeline.MaxAttempts)
	if err != nil {
		return err
	}
	defer queues.Close()

	id, err := queues.Enqueue(ctx, queue.QueueBriefing, models.BriefingJob{Date: date, Trigger: "manual"})
	if err != nil {
		return err
	}
	logger.Info("briefing enqueued", "date", date, "job_id", id)
	return nil
}

func runBackfill(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = database.Backfill(ctx, db, logger)
	return err
}
