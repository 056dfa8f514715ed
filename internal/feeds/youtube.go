package feeds

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

const youtubeSearchURL = "https://www.googleapis.com/youtube/v3/search"

// YouTubeAdapter searches recent AI videos with the Data API v3.
type YouTubeAdapter struct {
	fetcher *fetcher
	apiKey  string
	logger  *slog.Logger
}

func NewYouTubeAdapter(f *fetcher, apiKey string, logger *slog.Logger) *YouTubeAdapter {
	return &YouTubeAdapter{fetcher: f, apiKey: apiKey, logger: logger.With("adapter", "youtube")}
}

func (a *YouTubeAdapter) Name() models.SourceType {
	return models.SourceYouTube
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

func (a *YouTubeAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	if a.apiKey == "" {
		a.logger.Info("youtube api key not configured, skipping")
		return nil, nil
	}

	query := url.Values{}
	query.Set("part", "snippet")
	query.Set("q", "AI artificial intelligence LLM")
	query.Set("type", "video")
	query.Set("order", "date")
	query.Set("maxResults", "25")
	query.Set("publishedAfter", time.Now().Add(-48*time.Hour).UTC().Format(time.RFC3339))
	query.Set("key", a.apiKey)

	var resp youtubeSearchResponse
	if err := a.fetcher.getJSON(ctx, youtubeSearchURL+"?"+query.Encode(), nil, &resp); err != nil {
		a.logger.Error("failed to search videos", "error", err)
		return nil, nil
	}

	var items []models.RawItem
	for _, v := range resp.Items {
		if v.ID.VideoID == "" {
			continue
		}

		item := models.RawItem{
			SourceType: models.SourceYouTube,
			ExternalID: v.ID.VideoID,
			URL:        "https://www.youtube.com/watch?v=" + v.ID.VideoID,
			Title:      strings.TrimSpace(v.Snippet.Title),
			Author:     v.Snippet.ChannelTitle,
		}
		if t, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			utc := t.UTC()
			item.PublishedAt = &utc
		}
		if item.Valid() {
			items = append(items, item)
		}
	}

	a.logger.Info("fetched youtube videos", "count", len(items))
	return items, nil
}
