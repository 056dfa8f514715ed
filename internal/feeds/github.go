package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

const githubSearchURL = "https://api.github.com/search/repositories"

// GitHubTrendingAdapter approximates the trending page with the search API:
// repositories created in the last week, ordered by stars.
type GitHubTrendingAdapter struct {
	fetcher *fetcher
	logger  *slog.Logger
}

func NewGitHubTrendingAdapter(f *fetcher, logger *slog.Logger) *GitHubTrendingAdapter {
	return &GitHubTrendingAdapter{fetcher: f, logger: logger.With("adapter", "github_trending")}
}

func (a *GitHubTrendingAdapter) Name() models.SourceType {
	return models.SourceGitHubTrending
}

type githubSearchResponse struct {
	Items []struct {
		ID          int64     `json:"id"`
		FullName    string    `json:"full_name"`
		HTMLURL     string    `json:"html_url"`
		Description string    `json:"description"`
		Stars       int       `json:"stargazers_count"`
		Language    string    `json:"language"`
		CreatedAt   time.Time `json:"created_at"`
		Owner       struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"items"`
}

func (a *GitHubTrendingAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	since := time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	query := url.Values{}
	query.Set("q", fmt.Sprintf("created:>%s topic:ai", since))
	query.Set("sort", "stars")
	query.Set("order", "desc")
	query.Set("per_page", "25")

	var resp githubSearchResponse
	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if err := a.fetcher.getJSON(ctx, githubSearchURL+"?"+query.Encode(), headers, &resp); err != nil {
		a.logger.Error("failed to search repositories", "error", err)
		return nil, nil
	}

	var items []models.RawItem
	for _, repo := range resp.Items {
		title := repo.FullName
		if desc := strings.TrimSpace(repo.Description); desc != "" {
			title = fmt.Sprintf("%s: %s", repo.FullName, desc)
		}

		published := repo.CreatedAt
		item := models.RawItem{
			SourceType:  models.SourceGitHubTrending,
			ExternalID:  strconv.FormatInt(repo.ID, 10),
			URL:         repo.HTMLURL,
			Title:       title,
			Author:      repo.Owner.Login,
			PublishedAt: &published,
			Score:       repo.Stars,
		}
		if repo.Language != "" {
			item.Tags = []string{repo.Language}
		}
		items = append(items, item)
	}

	a.logger.Info("fetched trending repositories", "count", len(items))
	return items, nil
}
