package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

const leaderboardURL = "https://huggingface.co/api/spaces/open-llm-leaderboard/open_llm_leaderboard"

// LeaderboardAdapter watches the open LLM leaderboard space for activity.
// The space API only exposes coarse metadata, so each cycle emits at most
// one item: a marker when the leaderboard changed since the last look.
type LeaderboardAdapter struct {
	fetcher *fetcher
	logger  *slog.Logger

	lastModified string
}

func NewLeaderboardAdapter(f *fetcher, logger *slog.Logger) *LeaderboardAdapter {
	return &LeaderboardAdapter{fetcher: f, logger: logger.With("adapter", "leaderboard")}
}

func (a *LeaderboardAdapter) Name() models.SourceType {
	return models.SourceLeaderboard
}

type hfSpace struct {
	ID           string `json:"id"`
	Likes        int    `json:"likes"`
	LastModified string `json:"lastModified"`
}

func (a *LeaderboardAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	var space hfSpace
	if err := a.fetcher.getJSON(ctx, leaderboardURL, nil, &space); err != nil {
		a.logger.Error("failed to fetch leaderboard space", "error", err)
		return nil, nil
	}

	if space.LastModified == "" || space.LastModified == a.lastModified {
		a.logger.Debug("leaderboard unchanged")
		return nil, nil
	}
	a.lastModified = space.LastModified

	modified, err := time.Parse(time.RFC3339, space.LastModified)
	if err != nil {
		modified = time.Now()
	}
	utc := modified.UTC()

	item := models.RawItem{
		SourceType:  models.SourceLeaderboard,
		ExternalID:  fmt.Sprintf("%s@%s", space.ID, space.LastModified),
		URL:         "https://huggingface.co/spaces/" + space.ID,
		Title:       "Open LLM Leaderboard rankings updated",
		PublishedAt: &utc,
		Score:       space.Likes,
	}

	a.logger.Info("leaderboard update detected", "modified", space.LastModified)
	return []models.RawItem{item}, nil
}
