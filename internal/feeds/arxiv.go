package feeds

import (
	"context"
	"encoding/xml"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

const arxivQueryURL = "http://export.arxiv.org/api/query"

// ArxivAdapter reads the Atom API for recent cs.AI / cs.CL / cs.LG papers.
type ArxivAdapter struct {
	fetcher *fetcher
	logger  *slog.Logger
}

func NewArxivAdapter(f *fetcher, logger *slog.Logger) *ArxivAdapter {
	return &ArxivAdapter{fetcher: f, logger: logger.With("adapter", "arxiv")}
}

func (a *ArxivAdapter) Name() models.SourceType {
	return models.SourceArxiv
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

func (a *ArxivAdapter) Fetch(ctx context.Context) ([]models.RawItem, error) {
	query := url.Values{}
	query.Set("search_query", "cat:cs.AI OR cat:cs.CL OR cat:cs.LG")
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")
	query.Set("max_results", "25")

	body, err := a.fetcher.getBytes(ctx, arxivQueryURL+"?"+query.Encode(), nil)
	if err != nil {
		a.logger.Error("failed to fetch arxiv feed", "error", err)
		return nil, nil
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		a.logger.Error("failed to parse arxiv feed", "error", err)
		return nil, nil
	}

	var items []models.RawItem
	for _, entry := range feed.Entries {
		item := parseArxivEntry(entry)
		if item.Valid() {
			items = append(items, item)
		}
	}

	a.logger.Info("fetched arxiv papers", "count", len(items))
	return items, nil
}

func parseArxivEntry(entry arxivEntry) models.RawItem {
	link := entry.ID
	for _, l := range entry.Links {
		if l.Rel == "alternate" && l.Href != "" {
			link = l.Href
			break
		}
	}

	var author string
	if len(entry.Authors) > 0 {
		author = entry.Authors[0].Name
	}

	var tags []string
	for _, c := range entry.Categories {
		if c.Term != "" {
			tags = append(tags, c.Term)
		}
	}

	item := models.RawItem{
		SourceType: models.SourceArxiv,
		ExternalID: entry.ID,
		URL:        link,
		Title:      collapseWhitespace(entry.Title),
		Author:     author,
		Tags:       tags,
	}

	if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		utc := t.UTC()
		item.PublishedAt = &utc
	}

	return item
}

// collapseWhitespace normalizes the newline-wrapped titles arXiv emits.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
