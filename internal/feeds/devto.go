package feeds

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

const devToArticlesURL = "https://dev.to/api/articles?tag=ai&state=rising&per_page=25"

// DevToAdapter reads rising AI-tagged articles from the public REST API.
type DevToAdapter struct {
	fetcher *fetcher
	logger  *slog.Logger
}

func NewDevToAdapter(f *fetcher, logger *slog.Logger) *DevToAdapter {
	return &DevToAdapter{fetcher: f, logger: logger.With("adapter", "devto")}
}

func (a *DevToAdapter) Name() models.SourceType {
	return models.SourceDevTo
}

type devToArticle struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
	TagList     []string `json:"tag_list"`
	Reactions   int      `json:"public_reactions_count"`
	User        struct {
		Username string `json:"username"`
	} `json:"user"`
}

func (a *DevToAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	var articles []devToArticle
	if err := a.fetcher.getJSON(ctx, devToArticlesURL, nil, &articles); err != nil {
		a.logger.Error("failed to fetch articles", "error", err)
		return nil, nil
	}

	var items []models.RawItem
	for _, art := range articles {
		item := models.RawItem{
			SourceType: models.SourceDevTo,
			ExternalID: strconv.Itoa(art.ID),
			URL:        art.URL,
			Title:      strings.TrimSpace(art.Title),
			Author:     art.User.Username,
			Score:      art.Reactions,
			Tags:       art.TagList,
		}
		if t, err := time.Parse(time.RFC3339, art.PublishedAt); err == nil {
			utc := t.UTC()
			item.PublishedAt = &utc
		}
		if item.Valid() {
			items = append(items, item)
		}
	}

	a.logger.Info("fetched dev.to articles", "count", len(items))
	return items, nil
}
