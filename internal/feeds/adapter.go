package feeds

import (
	"context"
	"log/slog"
	"time"

	"github.com/aiwire/observatory/internal/config"
	"github.com/aiwire/observatory/internal/models"
)

// Adapter collects items from one external feed. Fetch failures are
// contained: an adapter logs and returns what it has (possibly nothing)
// rather than poisoning the ingestion cycle.
type Adapter interface {
	Name() models.SourceType
	Fetch(ctx context.Context) ([]models.RawItem, error)
}

// BuildAdapters constructs every adapter. Credential-gated adapters are
// still built when credentials are missing; they log once per cycle and
// return nothing.
func BuildAdapters(cfg config.FeedsConfig, fetchTimeout time.Duration, logger *slog.Logger) []Adapter {
	f := newFetcher(fetchTimeout, logger)

	return []Adapter{
		NewHackerNewsAdapter(f, logger),
		NewGitHubTrendingAdapter(f, logger),
		NewArxivAdapter(f, logger),
		NewRedditAdapter(f, cfg, logger),
		NewDevToAdapter(f, logger),
		NewLobstersAdapter(f, logger),
		NewHuggingFaceAdapter(f, logger),
		NewLeaderboardAdapter(f, logger),
		NewYouTubeAdapter(f, cfg.YouTubeAPIKey, logger),
		NewProductHuntAdapter(f, cfg.ProductHuntKey, cfg.ProductHuntSecret, logger),
		NewNewsAPIAdapter(f, cfg.NewsAPIKey, logger),
	}
}
