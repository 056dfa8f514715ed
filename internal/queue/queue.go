package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Job is one unit of work on a named queue.
type Job struct {
	ID          string          `json:"id"`
	Queue       string          `json:"queue"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// Bind unmarshals the job payload into v.
func (j *Job) Bind(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", j.Queue, err)
	}
	return nil
}

// Status encodes a handler outcome. Handlers never panic or leak errors
// across the queue boundary for domain failures; they return a Result.
type Status string

const (
	StatusOK   Status = "ok"
	StatusSkip Status = "skip"
	StatusFail Status = "fail" // permanent domain failure, no retry
)

// NextJob is a durable next-step marker: the worker enqueues it only after
// the handler's persisted side effects completed, which is what enforces
// per-snapshot pipeline ordering.
type NextJob struct {
	Queue   string
	Payload any
}

// Result is what a handler returns. Returning an error instead marks the
// job transient-failed and schedules a backoff retry.
type Result struct {
	Status Status
	Reason string
	Next   []NextJob
}

// OK builds a success result chaining zero or more downstream jobs.
func OK(next ...NextJob) Result {
	return Result{Status: StatusOK, Next: next}
}

// Skip builds a no-op result with a reason.
func Skip(reason string) Result {
	return Result{Status: StatusSkip, Reason: reason}
}

// Fail builds a permanent-failure result with a reason.
func Fail(reason string) Result {
	return Result{Status: StatusFail, Reason: reason}
}

// Client wraps the Redis connection behind queue operations. Each named
// queue is a Redis list (LPUSH/BLMOVE gives best-effort FIFO), a processing
// list holding in-flight entries until they are acked, a sorted set for
// delayed retries, and a plain list as the dead-letter store. Delivery is
// at-least-once: a job leaves the processing list only after its outcome is
// durable, so a crash mid-handler redelivers instead of losing work.
type Client struct {
	rdb         *redis.Client
	maxAttempts int
}

// NewClient connects to the queue substrate.
func NewClient(ctx context.Context, redisURL string, maxAttempts int) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	if maxAttempts < 1 {
		maxAttempts = 5
	}

	return &Client{rdb: rdb, maxAttempts: maxAttempts}, nil
}

// NewClientFromRedis wraps an existing connection; used by tests.
func NewClientFromRedis(rdb *redis.Client, maxAttempts int) *Client {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	return &Client{rdb: rdb, maxAttempts: maxAttempts}
}

func listKey(queue string) string       { return "queue:" + queue }
func processingKey(queue string) string { return "queue:" + queue + ":processing" }
func delayedKey(queue string) string    { return "queue:" + queue + ":delayed" }
func deadKey(queue string) string       { return "queue:" + queue + ":dead" }

// Enqueue pushes a job onto the named queue and returns its ID.
func (c *Client) Enqueue(ctx context.Context, queue string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := Job{
		ID:          uuid.NewString(),
		Queue:       queue,
		Payload:     data,
		Attempts:    0,
		MaxAttempts: c.maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := c.rdb.LPush(ctx, listKey(queue), raw).Err(); err != nil {
		return "", fmt.Errorf("failed to enqueue on %s: %w", queue, err)
	}
	return job.ID, nil
}

// enqueueRetry schedules the job to re-enter its queue after the delay.
func (c *Client) enqueueRetry(ctx context.Context, job *Job, delay time.Duration) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	score := float64(time.Now().Add(delay).UnixMilli())
	if err := c.rdb.ZAdd(ctx, delayedKey(job.Queue), redis.Z{Score: score, Member: raw}).Err(); err != nil {
		return fmt.Errorf("failed to schedule retry on %s: %w", job.Queue, err)
	}
	return nil
}

// deadLetter parks an exhausted job.
func (c *Client) deadLetter(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := c.rdb.LPush(ctx, deadKey(job.Queue), raw).Err(); err != nil {
		return fmt.Errorf("failed to dead-letter on %s: %w", job.Queue, err)
	}
	return nil
}

// promoteScript atomically moves due delayed jobs back onto the queue list.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 100)
for i, v in ipairs(due) do
	redis.call('ZREM', KEYS[1], v)
	redis.call('LPUSH', KEYS[2], v)
end
return #due
`)

// promoteDue moves delayed jobs whose time has come onto the live list.
func (c *Client) promoteDue(ctx context.Context, queue string) (int, error) {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	n, err := promoteScript.Run(ctx, c.rdb, []string{delayedKey(queue), listKey(queue)}, now).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to promote delayed jobs on %s: %w", queue, err)
	}
	return n, nil
}

// dequeue blocks up to timeout for the next job, moving its entry onto the
// processing list so a crash mid-handler cannot lose it. The raw entry is
// returned for the eventual ack.
func (c *Client) dequeue(ctx context.Context, queue string, timeout time.Duration) (*Job, string, error) {
	raw, err := c.rdb.BLMove(ctx, listKey(queue), processingKey(queue), "RIGHT", "LEFT", timeout).Result()
	if err == redis.Nil {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to dequeue from %s: %w", queue, err)
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// Drop the malformed entry or reclaim would redeliver it forever.
		c.rdb.LRem(ctx, processingKey(queue), 1, raw)
		return nil, "", fmt.Errorf("failed to decode job from %s: %w", queue, err)
	}
	return &job, raw, nil
}

// ack removes a finished job's entry from the processing list.
func (c *Client) ack(ctx context.Context, queue, raw string) error {
	if err := c.rdb.LRem(ctx, processingKey(queue), 1, raw).Err(); err != nil {
		return fmt.Errorf("failed to ack on %s: %w", queue, err)
	}
	return nil
}

// reclaim moves entries stranded on the processing list back onto the live
// list. Anything found there at worker startup belongs to a process that
// died mid-job.
func (c *Client) reclaim(ctx context.Context, queue string) (int, error) {
	moved := 0
	for {
		_, err := c.rdb.LMove(ctx, processingKey(queue), listKey(queue), "RIGHT", "LEFT").Result()
		if err == redis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to reclaim on %s: %w", queue, err)
		}
		moved++
	}
}

// Depth reports how many jobs are waiting on a queue (live list only).
func (c *Client) Depth(ctx context.Context, queue string) (int64, error) {
	n, err := c.rdb.LLen(ctx, listKey(queue)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read depth of %s: %w", queue, err)
	}
	return n, nil
}

// DeadCount reports how many jobs were dead-lettered on a queue.
func (c *Client) DeadCount(ctx context.Context, queue string) (int64, error) {
	n, err := c.rdb.LLen(ctx, deadKey(queue)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read dead letters of %s: %w", queue, err)
	}
	return n, nil
}

// Ping checks the substrate connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
