package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/aiwire/observatory/internal/briefing"
	"github.com/aiwire/observatory/internal/broadcast"
	"github.com/aiwire/observatory/internal/cluster"
	"github.com/aiwire/observatory/internal/config"
	"github.com/aiwire/observatory/internal/database"
	"github.com/aiwire/observatory/internal/enrich"
	"github.com/aiwire/observatory/internal/events"
	"github.com/aiwire/observatory/internal/feeds"
	"github.com/aiwire/observatory/internal/ingest"
	"github.com/aiwire/observatory/internal/llm"
	"github.com/aiwire/observatory/internal/logging"
	"github.com/aiwire/observatory/internal/metrics"
	"github.com/aiwire/observatory/internal/models"
	"github.com/aiwire/observatory/internal/queue"
	"github.com/aiwire/observatory/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	logger.Info("starting observatory pipeline")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	queues, err := queue.NewClient(ctx, cfg.Redis.URL, cfg.Pipeline.MaxAttempts)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer queues.Close()
	logger.Info("queue substrate connected")

	collector, err := metrics.NewPipelineCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	// Repositories
	eventRepo := database.NewEventRepository(db)
	evidenceRepo := database.NewEvidenceRepository(db)
	artifactRepo := database.NewArtifactRepository(db)
	entityRepo := database.NewEntityRepository(db)
	topicRepo := database.NewTopicRepository(db)
	watchlistRepo := database.NewWatchlistRepository(db)
	briefingRepo := database.NewBriefingRepository(db)
	llmRunRepo := database.NewLLMRunRepository(db)

	// LLM client with run recording
	recorder := llm.NewRecorder(llmRunRepo, collector, logger)
	llmClient, err := llm.NewClient(cfg.LLM, logger, recorder)
	if err != nil {
		logger.Error("failed to init llm client", "error", err)
		os.Exit(1)
	}
	logger.Info("llm client ready", "provider", llmClient.Provider(), "model", llmClient.FastModel())

	// Pipeline components
	notifier := broadcast.NewHook(cfg.Broadcast.Endpoint, cfg.Broadcast.JWTSecret, collector, logger)
	adapters := feeds.BuildAdapters(cfg.Feeds, cfg.Pipeline.FetchTimeout, logger)
	dispatcher := ingest.NewDispatcher(adapters, queues, collector, logger)
	processor := snapshot.NewProcessor(evidenceRepo, cfg.Pipeline.FetchTimeout, cfg.Pipeline.SnapshotDedup, logger)
	materializer := events.NewMaterializer(eventRepo, evidenceRepo, queues, notifier, collector, logger)
	judge := cluster.NewJudge(evidenceRepo, eventRepo, llmClient, materializer, logger)
	fanin := enrich.NewFanInCoordinator()
	orchestrator := enrich.NewOrchestrator(
		eventRepo, evidenceRepo, artifactRepo, entityRepo, topicRepo, watchlistRepo,
		llmClient, fanin, notifier, collector, logger,
	)
	generator := briefing.NewGenerator(eventRepo, briefingRepo, llmClient, cfg.Pipeline.BriefingTopN, logger)

	// One worker pool per queue
	workers := []*queue.Worker{
		queue.NewWorker(queues, queue.QueueIngest, dispatcher.Handle, logger,
			queue.WithConcurrency(1), queue.WithMetrics(collector)),
		queue.NewWorker(queues, queue.QueueSnapshot, processor.Handle, logger,
			queue.WithConcurrency(cfg.Pipeline.WorkerConcurrency), queue.WithMetrics(collector)),
		queue.NewWorker(queues, queue.QueueCluster, judge.Handle, logger,
			queue.WithConcurrency(cfg.Pipeline.WorkerConcurrency), queue.WithMetrics(collector)),
		queue.NewWorker(queues, queue.QueueEnrich, orchestrator.Handle, logger,
			queue.WithConcurrency(cfg.Pipeline.WorkerConcurrency), queue.WithMetrics(collector)),
		queue.NewWorker(queues, queue.QueueBriefing, generator.Handle, logger,
			queue.WithConcurrency(1), queue.WithMetrics(collector)),
	}
	for _, w := range workers {
		w.Start(ctx)
	}
	logger.Info("queue workers started", "pools", len(workers))

	// Cron triggers
	scheduler := queue.NewScheduler(queues, logger)
	if err := scheduler.Upsert("ingest", cfg.Cron.IngestPattern, queue.QueueIngest, models.IngestJob{Trigger: "cron"}); err != nil {
		logger.Error("failed to schedule ingest", "error", err)
		os.Exit(1)
	}
	if err := scheduler.Upsert("briefing", cfg.Cron.BriefingPattern, queue.QueueBriefing, models.BriefingJob{Trigger: "cron"}); err != nil {
		logger.Error("failed to schedule briefing", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("scheduler started",
		"ingest", cfg.Cron.IngestPattern,
		"briefing", cfg.Cron.BriefingPattern)

	// Fan-in recovery sweeper
	sweeper := enrich.NewSweeper(eventRepo, queues, cfg.Pipeline.SweepInterval, logger)
	go sweeper.Run(ctx)

	// Ops HTTP listener
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := database.HealthCheck(r.Context(), db); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded","component":"database"}`))
			return
		}
		if err := queues.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded","component":"redis"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", collector.Handler())

	opsServer := &http.Server{
		Addr:    ":" + cfg.Ops.Port,
		Handler: mux,
	}
	go func() {
		logger.Info("ops listener started", "port", cfg.Ops.Port)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops listener failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ops.ShutdownTimeout)
	defer cancel()

	scheduler.Stop()
	for _, w := range workers {
		w.Stop()
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops listener shutdown incomplete", "error", err)
	}

	// Give async LLM run writes a moment to land before the DB handle closes.
	time.Sleep(time.Second)

	logger.Info("shutdown complete")
}
