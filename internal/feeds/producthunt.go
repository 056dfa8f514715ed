package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

const (
	productHuntTokenURL   = "https://api.producthunt.com/v2/oauth/token"
	productHuntGraphQLURL = "https://api.producthunt.com/v2/api/graphql"
)

const productHuntQuery = `{
  posts(order: VOTES, topic: "artificial-intelligence", first: 20) {
    edges {
      node {
        id
        name
        tagline
        url
        votesCount
        createdAt
        user { username }
      }
    }
  }
}`

// ProductHuntAdapter reads AI launches through the GraphQL API with a
// client-credentials token.
type ProductHuntAdapter struct {
	fetcher *fetcher
	key     string
	secret  string
	tokens  tokenCache
	logger  *slog.Logger
}

func NewProductHuntAdapter(f *fetcher, key, secret string, logger *slog.Logger) *ProductHuntAdapter {
	return &ProductHuntAdapter{
		fetcher: f,
		key:     key,
		secret:  secret,
		logger:  logger.With("adapter", "producthunt"),
	}
}

func (a *ProductHuntAdapter) Name() models.SourceType {
	return models.SourceProductHunt
}

type productHuntTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type productHuntResponse struct {
	Data struct {
		Posts struct {
			Edges []struct {
				Node struct {
					ID         string `json:"id"`
					Name       string `json:"name"`
					Tagline    string `json:"tagline"`
					URL        string `json:"url"`
					VotesCount int    `json:"votesCount"`
					CreatedAt  string `json:"createdAt"`
					User       struct {
						Username string `json:"username"`
					} `json:"user"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"posts"`
	} `json:"data"`
}

func (a *ProductHuntAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	if a.key == "" || a.secret == "" {
		a.logger.Info("producthunt credentials not configured, skipping")
		return nil, nil
	}

	token, err := a.tokens.get(ctx, a.fetchToken)
	if err != nil {
		a.logger.Error("failed to obtain access token", "error", err)
		return nil, nil
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	payload := map[string]string{"query": productHuntQuery}

	var resp productHuntResponse
	if err := a.fetcher.postJSON(ctx, productHuntGraphQLURL, payload, headers, &resp); err != nil {
		a.logger.Error("failed to query posts", "error", err)
		return nil, nil
	}

	var items []models.RawItem
	for _, edge := range resp.Data.Posts.Edges {
		node := edge.Node

		title := node.Name
		if tagline := strings.TrimSpace(node.Tagline); tagline != "" {
			title = fmt.Sprintf("%s: %s", node.Name, tagline)
		}

		item := models.RawItem{
			SourceType: models.SourceProductHunt,
			ExternalID: node.ID,
			URL:        node.URL,
			Title:      title,
			Author:     node.User.Username,
			Score:      node.VotesCount,
		}
		if t, err := time.Parse(time.RFC3339, node.CreatedAt); err == nil {
			utc := t.UTC()
			item.PublishedAt = &utc
		}
		if item.Valid() {
			items = append(items, item)
		}
	}

	a.logger.Info("fetched producthunt launches", "count", len(items))
	return items, nil
}

func (a *ProductHuntAdapter) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := fmt.Sprintf("client_id=%s&client_secret=%s&grant_type=client_credentials", a.key, a.secret)

	var resp productHuntTokenResponse
	if err := a.fetcher.postForm(ctx, productHuntTokenURL, form, nil, &resp); err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	if resp.AccessToken == "" {
		return "", 0, fmt.Errorf("empty access token in response")
	}

	ttl := time.Duration(resp.ExpiresIn) * time.Second
	if resp.ExpiresIn == 0 {
		ttl = 24 * time.Hour
	}
	return resp.AccessToken, ttl, nil
}
