package feeds

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

const newsAPIEverythingURL = "https://newsapi.org/v2/everything"

// NewsAPIAdapter reads mainstream press coverage of AI from NewsAPI.
type NewsAPIAdapter struct {
	fetcher *fetcher
	apiKey  string
	logger  *slog.Logger
}

func NewNewsAPIAdapter(f *fetcher, apiKey string, logger *slog.Logger) *NewsAPIAdapter {
	return &NewsAPIAdapter{fetcher: f, apiKey: apiKey, logger: logger.With("adapter", "newsapi")}
}

func (a *NewsAPIAdapter) Name() models.SourceType {
	return models.SourceNewsAPI
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Author      string `json:"author"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (a *NewsAPIAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	if a.apiKey == "" {
		a.logger.Info("newsapi key not configured, skipping")
		return nil, nil
	}

	query := url.Values{}
	query.Set("q", `"artificial intelligence" OR "large language model" OR OpenAI OR Anthropic`)
	query.Set("language", "en")
	query.Set("sortBy", "publishedAt")
	query.Set("pageSize", "25")
	query.Set("from", time.Now().Add(-24*time.Hour).UTC().Format("2006-01-02"))

	headers := map[string]string{"X-Api-Key": a.apiKey}

	var resp newsAPIResponse
	if err := a.fetcher.getJSON(ctx, newsAPIEverythingURL+"?"+query.Encode(), headers, &resp); err != nil {
		a.logger.Error("failed to fetch articles", "error", err)
		return nil, nil
	}
	if resp.Status != "ok" {
		a.logger.Error("newsapi returned non-ok status", "status", resp.Status)
		return nil, nil
	}

	var items []models.RawItem
	for _, art := range resp.Articles {
		// The API emits "[Removed]" placeholders for retracted articles.
		if art.Title == "" || art.Title == "[Removed]" {
			continue
		}

		item := models.RawItem{
			SourceType: models.SourceNewsAPI,
			ExternalID: art.URL,
			URL:        art.URL,
			Title:      strings.TrimSpace(art.Title),
			Author:     art.Author,
		}
		if art.Source.Name != "" {
			item.Tags = []string{art.Source.Name}
		}
		if t, err := time.Parse(time.RFC3339, art.PublishedAt); err == nil {
			utc := t.UTC()
			item.PublishedAt = &utc
		}
		if item.Valid() {
			items = append(items, item)
		}
	}

	a.logger.Info("fetched newsapi articles", "count", len(items))
	return items, nil
}
