package feeds

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/config"
	"github.com/aiwire/observatory/internal/models"
)

const (
	redditTokenURL  = "https://www.reddit.com/api/v1/access_token"
	redditAPIBase   = "https://oauth.reddit.com"
	redditPostLimit = 25
)

var redditSubreddits = []string{"MachineLearning", "LocalLLaMA", "artificial"}

// RedditAdapter reads hot posts from AI subreddits via the OAuth API,
// authenticating with the client-credentials grant.
type RedditAdapter struct {
	fetcher   *fetcher
	clientID  string
	secret    string
	userAgent string
	tokens    tokenCache
	logger    *slog.Logger
}

func NewRedditAdapter(f *fetcher, cfg config.FeedsConfig, logger *slog.Logger) *RedditAdapter {
	return &RedditAdapter{
		fetcher:   f,
		clientID:  cfg.RedditClientID,
		secret:    cfg.RedditClientSecret,
		userAgent: cfg.RedditUserAgent,
		logger:    logger.With("adapter", "reddit"),
	}
}

func (a *RedditAdapter) Name() models.SourceType {
	return models.SourceReddit
}

type redditTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Title      string  `json:"title"`
				URL        string  `json:"url"`
				Permalink  string  `json:"permalink"`
				Author     string  `json:"author"`
				Score      int     `json:"score"`
				CreatedUTC float64 `json:"created_utc"`
				Stickied   bool    `json:"stickied"`
				IsSelf     bool    `json:"is_self"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (a *RedditAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	if a.clientID == "" || a.secret == "" {
		a.logger.Info("reddit credentials not configured, skipping")
		return nil, nil
	}

	token, err := a.tokens.get(ctx, a.fetchToken)
	if err != nil {
		a.logger.Error("failed to obtain access token", "error", err)
		return nil, nil
	}

	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"User-Agent":    a.userAgent,
	}

	var items []models.RawItem
	for _, sub := range redditSubreddits {
		url := fmt.Sprintf("%s/r/%s/hot?limit=%d", redditAPIBase, sub, redditPostLimit)

		var listing redditListing
		if err := a.fetcher.getJSON(ctx, url, headers, &listing); err != nil {
			a.logger.Warn("failed to fetch subreddit", "subreddit", sub, "error", err)
			continue
		}

		for _, child := range listing.Data.Children {
			post := child.Data
			if post.Stickied || post.Title == "" {
				continue
			}

			link := post.URL
			if post.IsSelf || link == "" {
				link = "https://www.reddit.com" + post.Permalink
			}

			published := time.Unix(int64(post.CreatedUTC), 0).UTC()
			items = append(items, models.RawItem{
				SourceType:  models.SourceReddit,
				ExternalID:  post.ID,
				URL:         link,
				Title:       strings.TrimSpace(post.Title),
				Author:      post.Author,
				PublishedAt: &published,
				Score:       post.Score,
				Tags:        []string{sub},
			})
		}
	}

	a.logger.Info("fetched reddit posts", "count", len(items))
	return items, nil
}

func (a *RedditAdapter) fetchToken(ctx context.Context) (string, time.Duration, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(a.clientID + ":" + a.secret))
	headers := map[string]string{
		"Authorization": "Basic " + basic,
		"User-Agent":    a.userAgent,
	}

	var resp redditTokenResponse
	if err := a.fetcher.postForm(ctx, redditTokenURL, "grant_type=client_credentials", headers, &resp); err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	if resp.AccessToken == "" {
		return "", 0, fmt.Errorf("empty access token in response")
	}

	return resp.AccessToken, time.Duration(resp.ExpiresIn) * time.Second, nil
}
