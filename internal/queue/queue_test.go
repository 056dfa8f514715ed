package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewClientFromRedis(rdb, 3), mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type echoPayload struct {
	Value string `json:"value"`
}

func TestEnqueueDequeueRoundtrip(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()

	id, err := client.Enqueue(ctx, "snapshot", echoPayload{Value: "hello"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	depth, err := client.Depth(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	job, raw, err := client.dequeue(ctx, "snapshot", 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.NotEmpty(t, raw)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, "snapshot", job.Queue)

	var p echoPayload
	require.NoError(t, job.Bind(&p))
	assert.Equal(t, "hello", p.Value)

	// The entry sits on the processing list until acked.
	inFlight, err := client.rdb.LLen(ctx, processingKey("snapshot")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), inFlight)

	require.NoError(t, client.ack(ctx, "snapshot", raw))
	inFlight, err = client.rdb.LLen(ctx, processingKey("snapshot")).Result()
	require.NoError(t, err)
	assert.Zero(t, inFlight)
}

func TestShutdownDoesNotLoseInFlightJob(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()

	started := make(chan struct{}, 1)
	handler := func(ctx context.Context, job *Job) (Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		return Result{}, ctx.Err()
	}

	w := NewWorker(client, "snapshot", handler, testLogger(), WithConcurrency(1))
	w.Start(ctx)

	_, err := client.Enqueue(ctx, "snapshot", echoPayload{Value: "x"})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not picked up")
	}
	w.Stop()

	// The interrupted attempt must survive somewhere durable: here as a
	// scheduled retry, with the processing entry acked away.
	delayed, err := client.rdb.ZCard(ctx, delayedKey("snapshot")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), delayed, "canceled attempt should be parked for retry")

	inFlight, err := client.rdb.LLen(ctx, processingKey("snapshot")).Result()
	require.NoError(t, err)
	assert.Zero(t, inFlight)

	dead, err := client.DeadCount(ctx, "snapshot")
	require.NoError(t, err)
	assert.Zero(t, dead)
}

func TestShutdownStillChainsNextJobs(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()

	started := make(chan struct{}, 1)
	handler := func(ctx context.Context, job *Job) (Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		// Side effects landed before cancellation; the chain write must not
		// be dropped with the worker context.
		return OK(NextJob{Queue: "cluster", Payload: echoPayload{Value: "next"}}), nil
	}

	w := NewWorker(client, "snapshot", handler, testLogger(), WithConcurrency(1))
	w.Start(ctx)

	_, err := client.Enqueue(ctx, "snapshot", echoPayload{Value: "x"})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not picked up")
	}
	w.Stop()

	depth, err := client.Depth(ctx, "cluster")
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth, "chained job should land despite shutdown")

	inFlight, err := client.rdb.LLen(ctx, processingKey("snapshot")).Result()
	require.NoError(t, err)
	assert.Zero(t, inFlight)
}

func TestReclaimRequeuesStrandedJobs(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()

	id, err := client.Enqueue(ctx, "snapshot", echoPayload{Value: "x"})
	require.NoError(t, err)

	// Dequeue without ever acking: the process died mid-handler.
	job, _, err := client.dequeue(ctx, "snapshot", 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, job)

	depth, err := client.Depth(ctx, "snapshot")
	require.NoError(t, err)
	require.Zero(t, depth)

	n, err := client.reclaim(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reclaimed, raw, err := client.dequeue(ctx, "snapshot", 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	assert.Equal(t, id, reclaimed.ID)
	require.NoError(t, client.ack(ctx, "snapshot", raw))
}

func TestWorkerProcessesJobs(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()

	var processed atomic.Int32
	done := make(chan struct{}, 1)

	handler := func(ctx context.Context, job *Job) (Result, error) {
		processed.Add(1)
		done <- struct{}{}
		return OK(), nil
	}

	w := NewWorker(client, "snapshot", handler, testLogger(), WithConcurrency(2))
	w.Start(ctx)
	defer w.Stop()

	_, err := client.Enqueue(ctx, "snapshot", echoPayload{Value: "x"})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed")
	}
	assert.Equal(t, int32(1), processed.Load())
}

func TestWorkerChainsNextJobs(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()

	done := make(chan struct{}, 1)
	handler := func(ctx context.Context, job *Job) (Result, error) {
		done <- struct{}{}
		return OK(NextJob{Queue: "cluster", Payload: echoPayload{Value: "next"}}), nil
	}

	w := NewWorker(client, "snapshot", handler, testLogger())
	w.Start(ctx)

	_, err := client.Enqueue(ctx, "snapshot", echoPayload{Value: "x"})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed")
	}
	w.Stop()

	depth, err := client.Depth(ctx, "cluster")
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth, "chained job should land on the downstream queue")
}

func TestWorkerRetriesTransientErrors(t *testing.T) {
	client, mr := testClient(t)
	ctx := context.Background()

	var attempts atomic.Int32
	handler := func(ctx context.Context, job *Job) (Result, error) {
		attempts.Add(1)
		return Result{}, errors.New("connection reset")
	}

	w := NewWorker(client, "snapshot", handler, testLogger(), WithConcurrency(1))
	w.Start(ctx)
	defer w.Stop()

	_, err := client.Enqueue(ctx, "snapshot", echoPayload{Value: "x"})
	require.NoError(t, err)

	// Each failure parks the job in the delayed set; fast-forward the clock
	// so the promoter moves it back until attempts are exhausted.
	deadline := time.After(15 * time.Second)
	for attempts.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected 3 attempts, got %d", attempts.Load())
		case <-time.After(50 * time.Millisecond):
			mr.FastForward(10 * time.Minute)
		}
	}

	require.Eventually(t, func() bool {
		dead, err := client.DeadCount(ctx, "snapshot")
		return err == nil && dead == 1
	}, 5*time.Second, 50*time.Millisecond, "exhausted job should be dead-lettered")

	assert.Equal(t, int32(3), attempts.Load())
}

func TestWorkerDoesNotRetryDomainFailures(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()

	var attempts atomic.Int32
	done := make(chan struct{}, 1)
	handler := func(ctx context.Context, job *Job) (Result, error) {
		attempts.Add(1)
		done <- struct{}{}
		return Fail("malformed input"), nil
	}

	w := NewWorker(client, "snapshot", handler, testLogger())
	w.Start(ctx)
	defer w.Stop()

	_, err := client.Enqueue(ctx, "snapshot", echoPayload{Value: "x"})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed")
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), attempts.Load(), "domain failures must not retry")

	dead, err := client.DeadCount(ctx, "snapshot")
	require.NoError(t, err)
	assert.Zero(t, dead)
}

func TestCompletionHooksFire(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []Status
	done := make(chan struct{}, 2)

	hook := func(job *Job, res Result) {
		mu.Lock()
		seen = append(seen, res.Status)
		mu.Unlock()
		done <- struct{}{}
	}

	handler := func(ctx context.Context, job *Job) (Result, error) {
		var p echoPayload
		if err := job.Bind(&p); err != nil {
			return Fail(err.Error()), nil
		}
		if p.Value == "skip" {
			return Skip("already seen"), nil
		}
		return OK(), nil
	}

	w := NewWorker(client, "snapshot", handler, testLogger(),
		WithConcurrency(1), WithCompletionHook(hook))
	w.Start(ctx)
	defer w.Stop()

	_, err := client.Enqueue(ctx, "snapshot", echoPayload{Value: "ok"})
	require.NoError(t, err)
	_, err = client.Enqueue(ctx, "snapshot", echoPayload{Value: "skip"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("hook did not fire")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []Status{StatusOK, StatusSkip}, seen)
}

func TestPromoteDueMovesOnlyRipeJobs(t *testing.T) {
	client, mr := testClient(t)
	ctx := context.Background()

	ripe := &Job{ID: "ripe", Queue: "snapshot", Payload: []byte(`{}`), MaxAttempts: 3}
	green := &Job{ID: "green", Queue: "snapshot", Payload: []byte(`{}`), MaxAttempts: 3}

	require.NoError(t, client.enqueueRetry(ctx, ripe, -time.Second))
	require.NoError(t, client.enqueueRetry(ctx, green, time.Hour))

	n, err := client.promoteDue(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	depth, err := client.Depth(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	mr.FastForward(2 * time.Hour)
	n, err = client.promoteDue(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSchedulerUpsertReplacesEntry(t *testing.T) {
	client, _ := testClient(t)

	s := NewScheduler(client, testLogger())
	require.NoError(t, s.Upsert("ingest", "0 */2 * * *", "ingest", echoPayload{}))
	require.NoError(t, s.Upsert("ingest", "0 5 * * *", "ingest", echoPayload{}))

	assert.Len(t, s.cron.Entries(), 1, "re-registering a schedule must replace it")

	err := s.Upsert("bad", "not a cron", "ingest", echoPayload{})
	assert.Error(t, err)
}
