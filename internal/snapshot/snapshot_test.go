package snapshot

import (
	"testing"

	"github.com/aiwire/observatory/internal/models"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "forces https",
			in:   "http://example.com/article",
			want: "https://example.com/article",
		},
		{
			name: "strips tracking params",
			in:   "https://example.com/a?utm_source=tw&utm_medium=social&utm_campaign=launch&ref=hn",
			want: "https://example.com/a",
		},
		{
			name: "keeps meaningful params",
			in:   "https://news.ycombinator.com/item?id=424242",
			want: "https://news.ycombinator.com/item?id=424242",
		},
		{
			name: "mixed params keep only the meaningful one",
			in:   "https://example.com/a?id=7&utm_source=tw",
			want: "https://example.com/a?id=7",
		},
		{
			name: "strips trailing slash",
			in:   "https://example.com/blog/post/",
			want: "https://example.com/blog/post",
		},
		{
			name: "lowercases host",
			in:   "https://Example.COM/Path",
			want: "https://example.com/Path",
		},
		{
			name: "drops fragment",
			in:   "https://example.com/a#section-2",
			want: "https://example.com/a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{
		"http://Example.com/a/?utm_source=x&id=1",
		"https://openai.com/blog/new-model/",
		"https://example.com/?ref=producthunt",
	}

	for _, in := range inputs {
		once, err := Canonicalize(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		twice, err := Canonicalize(once)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if once != twice {
			t.Errorf("canonicalization not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCanonicalizeRejectsHostless(t *testing.T) {
	for _, in := range []string{"", "not a url", "/relative/path"} {
		if _, err := Canonicalize(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestClassifyTrust(t *testing.T) {
	tests := []struct {
		domain string
		want   models.TrustTier
	}{
		{"openai.com", models.TierAuthoritative},
		{"www.anthropic.com", models.TierAuthoritative},
		{"arxiv.org", models.TierAuthoritative},
		{"techcrunch.com", models.TierStandard},
		{"www.theverge.com", models.TierStandard},
		{"someblog.dev", models.TierLow},
		{"news.ycombinator.com", models.TierLow},
		{"", models.TierLow},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			if got := ClassifyTrust(tt.domain); got != tt.want {
				t.Errorf("ClassifyTrust(%q) = %s, want %s", tt.domain, got, tt.want)
			}
		})
	}
}

func TestClassifyTrustSubdomains(t *testing.T) {
	// Policy entries cover subdomains of listed domains.
	if got := ClassifyTrust("openai.com"); got != models.TierAuthoritative {
		t.Fatalf("precondition failed: %s", got)
	}
	if got := ClassifyTrust("help.openai.com"); got != models.TierAuthoritative {
		t.Errorf("expected subdomain to inherit tier, got %s", got)
	}
}

func TestHashBodyFallsBackToTitle(t *testing.T) {
	withBody := hashBody([]byte("page content"), "Title")
	titleOnly := hashBody(nil, "Title")
	otherTitle := hashBody(nil, "Other")

	if withBody == titleOnly {
		t.Error("expected body hash to differ from title fallback")
	}
	if titleOnly == otherTitle {
		t.Error("expected different titles to hash differently")
	}
	if titleOnly != hashBody(nil, "Title") {
		t.Error("expected deterministic fallback hash")
	}
}
