package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/aiwire/observatory/internal/database"
	"github.com/aiwire/observatory/internal/models"
	"github.com/aiwire/observatory/internal/queue"
)

// Sweeper re-derives fan-in readiness from the artifact store. The in-memory
// coordinator loses state on restart; any event that holds both branch
// artifacts but no relationship artifact gets its join stage re-enqueued.
type Sweeper struct {
	events   *database.EventRepository
	queues   *queue.Client
	interval time.Duration
	limit    int
	logger   *slog.Logger
}

// NewSweeper creates a sweeper ticking at the given interval.
func NewSweeper(events *database.EventRepository, queues *queue.Client, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		events:   events,
		queues:   queues,
		interval: interval,
		limit:    50,
		logger:   logger,
	}
}

// Run sweeps until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", "error", err)
			} else if n > 0 {
				s.logger.Info("sweep re-enqueued stalled events", "count", n)
			}
		}
	}
}

// Sweep enqueues the relationship stage for every stalled event and returns
// how many it re-enqueued. Enqueueing is idempotent downstream: the handler
// skips when the relationship artifact already exists.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.events.EventsAwaitingRelationshipExtract(ctx, s.limit)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, id := range ids {
		_, err := s.queues.Enqueue(ctx, queue.QueueEnrich, models.EnrichJob{
			EventID: id,
			Stage:   models.StageRelationshipExtract,
		})
		if err != nil {
			return enqueued, err
		}
		enqueued++
	}
	return enqueued, nil
}
