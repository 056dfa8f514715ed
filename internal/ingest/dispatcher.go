package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/aiwire/observatory/internal/feeds"
	"github.com/aiwire/observatory/internal/metrics"
	"github.com/aiwire/observatory/internal/models"
	"github.com/aiwire/observatory/internal/queue"
)

// Dispatcher runs one collection cycle: every adapter in turn, each item
// normalized and fanned out as a snapshot job. A misbehaving adapter costs
// its own items only.
type Dispatcher struct {
	adapters []feeds.Adapter
	queues   *queue.Client
	metrics  *metrics.PipelineCollector
	logger   *slog.Logger
}

// NewDispatcher creates the collection dispatcher.
func NewDispatcher(adapters []feeds.Adapter, queues *queue.Client, collector *metrics.PipelineCollector, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		adapters: adapters,
		queues:   queues,
		metrics:  collector,
		logger:   logger,
	}
}

// Handle consumes one ingest job and enqueues snapshot work.
func (d *Dispatcher) Handle(ctx context.Context, job *queue.Job) (queue.Result, error) {
	var payload models.IngestJob
	if err := job.Bind(&payload); err != nil {
		return queue.Fail(err.Error()), nil
	}

	enqueued := d.Run(ctx, payload.Trigger)
	if enqueued == 0 {
		return queue.Skip("no items collected"), nil
	}
	return queue.OK(), nil
}

// Run executes the cycle and returns how many snapshot jobs were enqueued.
func (d *Dispatcher) Run(ctx context.Context, trigger string) int {
	start := time.Now()
	d.logger.Info("collection cycle started", "trigger", trigger, "adapters", len(d.adapters))

	enqueued := 0
	for _, adapter := range d.adapters {
		source := string(adapter.Name())

		items, err := adapter.Fetch(ctx)
		if err != nil {
			d.logger.Error("adapter fetch failed", "source", source, "error", err)
			continue
		}

		valid := 0
		for _, item := range items {
			if !item.Valid() {
				d.logger.Debug("dropping incomplete item", "source", source, "url", item.URL)
				continue
			}
			if _, err := d.queues.Enqueue(ctx, queue.QueueSnapshot, models.SnapshotJob{Item: item}); err != nil {
				d.logger.Error("failed to enqueue snapshot job",
					"source", source,
					"url", item.URL,
					"error", err)
				continue
			}
			valid++
		}

		if d.metrics != nil {
			d.metrics.AdapterItems(source, valid)
		}
		enqueued += valid
	}

	d.logger.Info("collection cycle finished",
		"trigger", trigger,
		"enqueued", enqueued,
		"duration_ms", time.Since(start).Milliseconds())
	return enqueued
}
