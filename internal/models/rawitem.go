package models

import (
	"time"
)

// SourceType identifies the external feed an item came from.
type SourceType string

const (
	SourceHackerNews     SourceType = "hackernews"
	SourceGitHubTrending SourceType = "github_trending"
	SourceArxiv          SourceType = "arxiv"
	SourceReddit         SourceType = "reddit"
	SourceDevTo          SourceType = "devto"
	SourceLobsters       SourceType = "lobsters"
	SourceHuggingFace    SourceType = "huggingface"
	SourceLeaderboard    SourceType = "leaderboard"
	SourceYouTube        SourceType = "youtube"
	SourceProductHunt    SourceType = "producthunt"
	SourceNewsAPI        SourceType = "newsapi"
)

// RawItem is the normalized form every feed adapter emits.
type RawItem struct {
	SourceType  SourceType `json:"source_type"`
	ExternalID  string     `json:"external_id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Score       int        `json:"score,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// Valid reports whether the item carries enough to be worth snapshotting.
func (i RawItem) Valid() bool {
	return i.URL != "" && i.Title != "" && i.SourceType != ""
}
