package feeds

import (
	"context"
	"encoding/xml"
	"errors"
	"testing"
	"time"
)

func TestParseArxivEntry(t *testing.T) {
	raw := `<entry>
		<id>http://arxiv.org/abs/2501.01234v1</id>
		<title>Scaling  Laws
  for Mixture-of-Experts</title>
		<published>2025-01-03T18:00:00Z</published>
		<author><name>Jane Doe</name></author>
		<author><name>John Roe</name></author>
		<link href="http://arxiv.org/abs/2501.01234v1" rel="alternate"/>
		<link href="http://arxiv.org/pdf/2501.01234v1" rel="related"/>
		<category term="cs.LG"/>
		<category term="cs.AI"/>
	</entry>`

	var entry arxivEntry
	if err := xml.Unmarshal([]byte(raw), &entry); err != nil {
		t.Fatalf("failed to parse entry: %v", err)
	}

	item := parseArxivEntry(entry)

	if item.Title != "Scaling Laws for Mixture-of-Experts" {
		t.Errorf("expected collapsed title, got %q", item.Title)
	}
	if item.URL != "http://arxiv.org/abs/2501.01234v1" {
		t.Errorf("expected alternate link, got %q", item.URL)
	}
	if item.Author != "Jane Doe" {
		t.Errorf("expected first author, got %q", item.Author)
	}
	if len(item.Tags) != 2 || item.Tags[0] != "cs.LG" {
		t.Errorf("expected category tags, got %v", item.Tags)
	}
	if item.PublishedAt == nil || item.PublishedAt.Day() != 3 {
		t.Errorf("expected parsed publish date, got %v", item.PublishedAt)
	}
	if !item.Valid() {
		t.Error("expected parsed entry to be valid")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain title", "plain title"},
		{"wrapped\n  title", "wrapped title"},
		{"  padded \t title  ", "padded title"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := collapseWhitespace(tt.in); got != tt.want {
			t.Errorf("collapseWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRateLimiterSpacesRequests(t *testing.T) {
	limiter := newRateLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.wait(ctx, "api.example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 100*time.Millisecond {
		t.Errorf("expected at least 100ms of pacing for 3 requests, got %v", elapsed)
	}
}

func TestRateLimiterPerHost(t *testing.T) {
	limiter := newRateLimiter(time.Hour)
	ctx := context.Background()

	if err := limiter.wait(ctx, "a.example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A different host must not inherit the first host's pacing.
	start := time.Now()
	if err := limiter.wait(ctx, "b.example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("expected no delay for an unrelated host")
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	limiter := newRateLimiter(time.Hour)

	if err := limiter.wait(context.Background(), "api.example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.wait(ctx, "api.example.com"); err == nil {
		t.Error("expected a context error while waiting out a long interval")
	}
}

func TestTokenCacheReusesUntilExpiry(t *testing.T) {
	var cache tokenCache
	calls := 0

	fetch := func(ctx context.Context) (string, time.Duration, error) {
		calls++
		return "token-1", time.Hour, nil
	}

	for i := 0; i < 3; i++ {
		token, err := cache.get(context.Background(), fetch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "token-1" {
			t.Errorf("expected cached token, got %q", token)
		}
	}

	if calls != 1 {
		t.Errorf("expected a single upstream fetch, got %d", calls)
	}
}

func TestTokenCacheRefreshesNearExpiry(t *testing.T) {
	var cache tokenCache
	calls := 0

	// 30s TTL minus the refresh margin leaves the token already stale.
	fetch := func(ctx context.Context) (string, time.Duration, error) {
		calls++
		return "short-lived", 30 * time.Second, nil
	}

	for i := 0; i < 2; i++ {
		if _, err := cache.get(context.Background(), fetch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if calls != 2 {
		t.Errorf("expected a refresh on each call, got %d fetches", calls)
	}
}

func TestTokenCachePropagatesErrors(t *testing.T) {
	var cache tokenCache

	_, err := cache.get(context.Background(), func(ctx context.Context) (string, time.Duration, error) {
		return "", 0, errors.New("upstream down")
	})
	if err == nil {
		t.Fatal("expected fetch error to propagate")
	}

	// A failed fetch must not poison the cache.
	token, err := cache.get(context.Background(), func(ctx context.Context) (string, time.Duration, error) {
		return "recovered", time.Hour, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "recovered" {
		t.Errorf("expected fresh token after recovery, got %q", token)
	}
}

func TestOwnerOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"meta-llama/Llama-4", "meta-llama"},
		{"gpt2", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ownerOf(tt.in); got != tt.want {
			t.Errorf("ownerOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
