package feeds

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

const hfModelsURL = "https://huggingface.co/api/models?sort=trendingScore&direction=-1&limit=25"

// HuggingFaceAdapter surfaces trending model releases from the Hub API.
type HuggingFaceAdapter struct {
	fetcher *fetcher
	logger  *slog.Logger
}

func NewHuggingFaceAdapter(f *fetcher, logger *slog.Logger) *HuggingFaceAdapter {
	return &HuggingFaceAdapter{fetcher: f, logger: logger.With("adapter", "huggingface")}
}

func (a *HuggingFaceAdapter) Name() models.SourceType {
	return models.SourceHuggingFace
}

type hfModel struct {
	ID           string   `json:"id"`
	ModelID      string   `json:"modelId"`
	Likes        int      `json:"likes"`
	PipelineTag  string   `json:"pipeline_tag"`
	Tags         []string `json:"tags"`
	CreatedAt    string   `json:"createdAt"`
	LastModified string   `json:"lastModified"`
}

func (a *HuggingFaceAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	var hubModels []hfModel
	if err := a.fetcher.getJSON(ctx, hfModelsURL, nil, &hubModels); err != nil {
		a.logger.Error("failed to fetch trending models", "error", err)
		return nil, nil
	}

	var items []models.RawItem
	for _, m := range hubModels {
		id := m.ModelID
		if id == "" {
			id = m.ID
		}
		if id == "" {
			continue
		}

		var tags []string
		if m.PipelineTag != "" {
			tags = append(tags, m.PipelineTag)
		}

		item := models.RawItem{
			SourceType: models.SourceHuggingFace,
			ExternalID: id,
			URL:        "https://huggingface.co/" + id,
			Title:      "New model trending on Hugging Face: " + id,
			Author:     ownerOf(id),
			Score:      m.Likes,
			Tags:       tags,
		}
		if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
			utc := t.UTC()
			item.PublishedAt = &utc
		}
		items = append(items, item)
	}

	a.logger.Info("fetched huggingface models", "count", len(items))
	return items, nil
}

// ownerOf splits "org/model" repo IDs.
func ownerOf(repoID string) string {
	if i := strings.IndexByte(repoID, '/'); i > 0 {
		return repoID[:i]
	}
	return ""
}
