package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

const (
	hnTopStoriesURL = "https://hacker-news.firebaseio.com/v0/topstories.json"
	hnItemURLFmt    = "https://hacker-news.firebaseio.com/v0/item/%d.json"
	hnMaxStories    = 30
)

// HackerNewsAdapter reads the Firebase API: the top-story ID list, then one
// request per story.
type HackerNewsAdapter struct {
	fetcher *fetcher
	logger  *slog.Logger
}

func NewHackerNewsAdapter(f *fetcher, logger *slog.Logger) *HackerNewsAdapter {
	return &HackerNewsAdapter{fetcher: f, logger: logger.With("adapter", "hackernews")}
}

func (a *HackerNewsAdapter) Name() models.SourceType {
	return models.SourceHackerNews
}

type hnItem struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	By    string `json:"by"`
	Score int    `json:"score"`
	Time  int64  `json:"time"`
	Dead  bool   `json:"dead"`
}

func (a *HackerNewsAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	var ids []int
	if err := a.fetcher.getJSON(ctx, hnTopStoriesURL, nil, &ids); err != nil {
		a.logger.Error("failed to fetch top stories", "error", err)
		return nil, nil
	}

	if len(ids) > hnMaxStories {
		ids = ids[:hnMaxStories]
	}

	var items []models.RawItem
	for _, id := range ids {
		var story hnItem
		if err := a.fetcher.getJSON(ctx, fmt.Sprintf(hnItemURLFmt, id), nil, &story); err != nil {
			a.logger.Warn("failed to fetch story", "id", id, "error", err)
			continue
		}
		if story.Dead || story.Type != "story" || story.Title == "" {
			continue
		}

		url := story.URL
		if url == "" {
			// Ask HN and similar text posts link back to the discussion.
			url = "https://news.ycombinator.com/item?id=" + strconv.Itoa(story.ID)
		}

		published := time.Unix(story.Time, 0).UTC()
		items = append(items, models.RawItem{
			SourceType:  models.SourceHackerNews,
			ExternalID:  strconv.Itoa(story.ID),
			URL:         url,
			Title:       strings.TrimSpace(story.Title),
			Author:      story.By,
			PublishedAt: &published,
			Score:       story.Score,
		})
	}

	a.logger.Info("fetched hackernews stories", "count", len(items))
	return items, nil
}
