package queue

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/aiwire/observatory/internal/metrics"
)

// Handler processes one job. A returned error is a transient failure and
// triggers a backoff retry; domain outcomes are encoded in the Result.
type Handler func(ctx context.Context, job *Job) (Result, error)

// CompletionHook runs after a job finished (any terminal status) and after
// its chained jobs were enqueued.
type CompletionHook func(job *Job, res Result)

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithConcurrency sets how many jobs the worker processes in parallel.
func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithCompletionHook registers a hook invoked after each finished job.
func WithCompletionHook(hook CompletionHook) WorkerOption {
	return func(w *Worker) {
		w.hooks = append(w.hooks, hook)
	}
}

// WithMetrics attaches the pipeline collector.
func WithMetrics(collector *metrics.PipelineCollector) WorkerOption {
	return func(w *Worker) {
		w.metrics = collector
	}
}

// Worker consumes one named queue with bounded concurrency.
type Worker struct {
	client      *Client
	queue       string
	handler     Handler
	logger      *slog.Logger
	metrics     *metrics.PipelineCollector
	concurrency int
	hooks       []CompletionHook

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorker creates a worker for the named queue.
func NewWorker(client *Client, queue string, handler Handler, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		client:      client,
		queue:       queue,
		handler:     handler,
		logger:      logger.With("queue", queue),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the consumer goroutines and the delayed-job promoter.
// It returns immediately; call Stop to drain.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	if n, err := w.client.reclaim(ctx, w.queue); err != nil {
		w.logger.Error("failed to reclaim stranded jobs", "error", err)
	} else if n > 0 {
		w.logger.Info("reclaimed stranded jobs", "count", n)
	}

	w.wg.Add(1)
	go w.promoteLoop(ctx)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.consumeLoop(ctx)
	}

	w.logger.Info("worker started", "concurrency", w.concurrency)
}

// Stop signals the worker to finish in-flight jobs and waits for them.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) promoteLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.client.promoteDue(ctx, w.queue); err != nil && ctx.Err() == nil {
				w.logger.Error("failed to promote delayed jobs", "error", err)
			}
		}
	}
}

func (w *Worker) consumeLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, raw, err := w.client.dequeue(ctx, w.queue, 2*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to dequeue", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		w.process(ctx, job, raw)
	}
}

// ackTimeout bounds the post-handler writes (retry, chain, ack) that run on
// a context detached from shutdown cancellation.
const ackTimeout = 10 * time.Second

func (w *Worker) process(ctx context.Context, job *Job, raw string) {
	start := time.Now()
	job.Attempts++

	res, err := w.handler(ctx, job)

	// The worker context may be canceled while the handler is in flight; a
	// retry or chain write on that context would strand the job. The ack is
	// last: until it lands, the processing-list entry keeps the job
	// redeliverable.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
	defer cancel()

	if err != nil {
		if w.retryOrBury(opCtx, job, err) {
			w.ack(opCtx, raw)
		}
		return
	}

	for _, next := range res.Next {
		if _, err := w.client.Enqueue(opCtx, next.Queue, next.Payload); err != nil {
			w.logger.Error("failed to chain job, leaving for redelivery",
				"job_id", job.ID,
				"next_queue", next.Queue,
				"error", err)
			return
		}
	}

	if w.metrics != nil {
		w.metrics.ObserveJob(w.queue, string(res.Status), time.Since(start).Seconds())
	}

	switch res.Status {
	case StatusSkip:
		w.logger.Debug("job skipped", "job_id", job.ID, "reason", res.Reason)
	case StatusFail:
		w.logger.Warn("job failed", "job_id", job.ID, "reason", res.Reason)
	default:
		w.logger.Debug("job done",
			"job_id", job.ID,
			"duration_ms", time.Since(start).Milliseconds())
	}

	for _, hook := range w.hooks {
		hook(job, res)
	}

	w.ack(opCtx, raw)
}

func (w *Worker) ack(ctx context.Context, raw string) {
	if err := w.client.ack(ctx, w.queue, raw); err != nil {
		w.logger.Error("failed to ack job", "error", err)
	}
}

// retryOrBury makes the failure durable and reports whether it succeeded; a
// false return leaves the job on the processing list for redelivery.
func (w *Worker) retryOrBury(ctx context.Context, job *Job, cause error) bool {
	if job.Attempts >= job.MaxAttempts {
		if err := w.client.deadLetter(ctx, job); err != nil {
			w.logger.Error("failed to dead-letter job", "job_id", job.ID, "error", err)
			return false
		}
		if w.metrics != nil {
			w.metrics.JobDeadLettered(w.queue)
		}
		w.logger.Error("job dead-lettered",
			"job_id", job.ID,
			"attempts", job.Attempts,
			"error", cause)
		return true
	}

	delay := retryDelay(job.Attempts)
	if err := w.client.enqueueRetry(ctx, job, delay); err != nil {
		w.logger.Error("failed to schedule retry", "job_id", job.ID, "error", err)
		return false
	}
	if w.metrics != nil {
		w.metrics.JobRetried(w.queue)
	}
	w.logger.Warn("job retry scheduled",
		"job_id", job.ID,
		"attempt", job.Attempts,
		"delay", delay,
		"error", cause)
	return true
}

// retryDelay returns an exponential backoff with jitter, capped at 5 minutes.
func retryDelay(attempt int) time.Duration {
	base := time.Second * time.Duration(1<<uint(attempt))
	if base > 5*time.Minute {
		base = 5 * time.Minute
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 4))
	return base + jitter
}
