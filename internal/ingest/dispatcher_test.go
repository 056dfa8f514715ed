package ingest

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aiwire/observatory/internal/feeds"
	"github.com/aiwire/observatory/internal/models"
	"github.com/aiwire/observatory/internal/queue"
)

type stubAdapter struct {
	name  models.SourceType
	items []models.RawItem
	err   error
}

func (s *stubAdapter) Name() models.SourceType { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	return s.items, s.err
}

func testQueueClient(t *testing.T) *queue.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return queue.NewClientFromRedis(rdb, 3)
}

func TestRunFansOutValidItems(t *testing.T) {
	client := testQueueClient(t)
	logger := slog.New(slog.DiscardHandler)

	adapters := []feeds.Adapter{
		&stubAdapter{
			name: models.SourceHackerNews,
			items: []models.RawItem{
				{SourceType: models.SourceHackerNews, ExternalID: "1", URL: "https://example.com/a", Title: "A"},
				{SourceType: models.SourceHackerNews, ExternalID: "2", URL: "", Title: "missing url"},
			},
		},
		&stubAdapter{name: models.SourceLobsters, err: errors.New("upstream down")},
		&stubAdapter{
			name: models.SourceDevTo,
			items: []models.RawItem{
				{SourceType: models.SourceDevTo, ExternalID: "3", URL: "https://example.com/b", Title: "B"},
			},
		},
	}

	d := NewDispatcher(adapters, client, nil, logger)
	enqueued := d.Run(context.Background(), "manual")

	if enqueued != 2 {
		t.Errorf("expected 2 enqueued jobs, got %d", enqueued)
	}

	depth, err := client.Depth(context.Background(), queue.QueueSnapshot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if depth != 2 {
		t.Errorf("expected snapshot queue depth 2, got %d", depth)
	}
}

func TestHandleSkipsEmptyCycle(t *testing.T) {
	client := testQueueClient(t)
	logger := slog.New(slog.DiscardHandler)

	d := NewDispatcher(nil, client, nil, logger)

	job := &queue.Job{Queue: queue.QueueIngest, Payload: []byte(`{"trigger":"cron"}`)}
	res, err := d.Handle(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != queue.StatusSkip {
		t.Errorf("expected skip for an empty cycle, got %s", res.Status)
	}
}
