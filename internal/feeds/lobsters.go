package feeds

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

const lobstersHottestURL = "https://lobste.rs/hottest.json"

// LobstersAdapter reads the hottest stories JSON endpoint.
type LobstersAdapter struct {
	fetcher *fetcher
	logger  *slog.Logger
}

func NewLobstersAdapter(f *fetcher, logger *slog.Logger) *LobstersAdapter {
	return &LobstersAdapter{fetcher: f, logger: logger.With("adapter", "lobsters")}
}

func (a *LobstersAdapter) Name() models.SourceType {
	return models.SourceLobsters
}

type lobstersStory struct {
	ShortID     string   `json:"short_id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	CommentsURL string   `json:"comments_url"`
	CreatedAt   string   `json:"created_at"`
	Score       int      `json:"score"`
	Tags        []string `json:"tags"`
	Submitter   string   `json:"submitter_user"`
}

func (a *LobstersAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	var stories []lobstersStory
	if err := a.fetcher.getJSON(ctx, lobstersHottestURL, nil, &stories); err != nil {
		a.logger.Error("failed to fetch hottest stories", "error", err)
		return nil, nil
	}

	var items []models.RawItem
	for _, story := range stories {
		link := story.URL
		if link == "" {
			link = story.CommentsURL
		}

		item := models.RawItem{
			SourceType: models.SourceLobsters,
			ExternalID: story.ShortID,
			URL:        link,
			Title:      strings.TrimSpace(story.Title),
			Author:     story.Submitter,
			Score:      story.Score,
			Tags:       story.Tags,
		}
		if t, err := time.Parse(time.RFC3339, story.CreatedAt); err == nil {
			utc := t.UTC()
			item.PublishedAt = &utc
		}
		if item.Valid() {
			items = append(items, item)
		}
	}

	a.logger.Info("fetched lobsters stories", "count", len(items))
	return items, nil
}
