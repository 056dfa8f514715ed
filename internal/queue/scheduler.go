package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler enqueues repeatable jobs on cron patterns. Entries are keyed by
// name so re-registering a job replaces its schedule instead of doubling it.
type Scheduler struct {
	client  *Client
	logger  *slog.Logger
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// NewScheduler creates a scheduler bound to the queue client. All patterns
// are interpreted in UTC.
func NewScheduler(client *Client, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		client:  client,
		logger:  logger,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		entries: make(map[string]cron.EntryID),
	}
}

// Upsert registers (or replaces) a named repeatable job. The payload is
// marshaled at fire time, so a shared payload value must not be mutated.
func (s *Scheduler) Upsert(name, pattern, queue string, payload any) error {
	if prev, ok := s.entries[name]; ok {
		s.cron.Remove(prev)
	}

	id, err := s.cron.AddFunc(pattern, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		jobID, err := s.client.Enqueue(ctx, queue, payload)
		if err != nil {
			s.logger.Error("failed to enqueue scheduled job",
				"schedule", name,
				"queue", queue,
				"error", err)
			return
		}
		s.logger.Info("scheduled job enqueued",
			"schedule", name,
			"queue", queue,
			"job_id", jobID)
	})
	if err != nil {
		return fmt.Errorf("invalid cron pattern %q for %s: %w", pattern, name, err)
	}

	s.entries[name] = id
	s.logger.Info("schedule registered", "schedule", name, "pattern", pattern, "queue", queue)
	return nil
}

// Start begins firing schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for in-flight fires to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
