package events

import (
	"testing"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"OpenAI Releases GPT-5", "openai releases gpt-5"},
		{"  Spaced\t\tOut \n Title ", "spaced out title"},
		{"already normalized", "already normalized"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	at := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)

	a := Fingerprint(models.SourceHackerNews, at, "OpenAI Releases GPT-5")
	b := Fingerprint(models.SourceHackerNews, at.Add(3*time.Hour), "openai  releases gpt-5")

	if a != b {
		t.Errorf("expected same-day variants to share a fingerprint: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("expected 32-char fingerprint, got %d", len(a))
	}
}

func TestFingerprintDiscriminates(t *testing.T) {
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	base := Fingerprint(models.SourceHackerNews, at, "OpenAI Releases GPT-5")

	if got := Fingerprint(models.SourceReddit, at, "OpenAI Releases GPT-5"); got == base {
		t.Error("expected different source types to produce different fingerprints")
	}
	if got := Fingerprint(models.SourceHackerNews, at.AddDate(0, 0, 1), "OpenAI Releases GPT-5"); got == base {
		t.Error("expected different days to produce different fingerprints")
	}
	if got := Fingerprint(models.SourceHackerNews, at, "OpenAI Releases GPT-6"); got == base {
		t.Error("expected different titles to produce different fingerprints")
	}
}

func TestFingerprintUsesUTCDay(t *testing.T) {
	// 23:30 -05:00 is 04:30 UTC the next day.
	loc := time.FixedZone("EST", -5*3600)
	local := time.Date(2026, 8, 20, 23, 30, 0, 0, loc)
	utc := time.Date(2026, 8, 21, 4, 30, 0, 0, time.UTC)

	if Fingerprint(models.SourceArxiv, local, "t") != Fingerprint(models.SourceArxiv, utc, "t") {
		t.Error("expected fingerprint to bucket on the UTC calendar day")
	}
}

func TestScoreConfidence(t *testing.T) {
	tests := []struct {
		name    string
		profile models.TrustProfile
		want    models.ConfidenceLevel
	}{
		{
			name:    "authoritative single source",
			profile: models.TrustProfile{SourceCount: 1, Tiers: []models.TrustTier{models.TierAuthoritative}},
			want:    models.ConfidenceHigh,
		},
		{
			name:    "authoritative among many",
			profile: models.TrustProfile{SourceCount: 4, Tiers: []models.TrustTier{models.TierLow, models.TierAuthoritative}},
			want:    models.ConfidenceHigh,
		},
		{
			name:    "three sources with standard",
			profile: models.TrustProfile{SourceCount: 3, Tiers: []models.TrustTier{models.TierStandard, models.TierLow}},
			want:    models.ConfidenceHigh,
		},
		{
			name:    "two sources with standard",
			profile: models.TrustProfile{SourceCount: 2, Tiers: []models.TrustTier{models.TierStandard, models.TierLow}},
			want:    models.ConfidenceMedium,
		},
		{
			name:    "two low-only sources",
			profile: models.TrustProfile{SourceCount: 2, Tiers: []models.TrustTier{models.TierLow}},
			want:    models.ConfidenceMedium,
		},
		{
			name:    "single standard source",
			profile: models.TrustProfile{SourceCount: 1, Tiers: []models.TrustTier{models.TierStandard}},
			want:    models.ConfidenceMedium,
		},
		{
			name:    "single low source",
			profile: models.TrustProfile{SourceCount: 1, Tiers: []models.TrustTier{models.TierLow}},
			want:    models.ConfidenceLow,
		},
		{
			name:    "no evidence",
			profile: models.TrustProfile{},
			want:    models.ConfidenceLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreConfidence(tt.profile); got != tt.want {
				t.Errorf("ScoreConfidence() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		confidence models.ConfidenceLevel
		want       models.EventStatus
	}{
		{models.ConfidenceHigh, models.EventStatusPublished},
		{models.ConfidenceMedium, models.EventStatusPublished},
		{models.ConfidenceLow, models.EventStatusQuarantined},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.confidence); got != tt.want {
			t.Errorf("StatusFor(%s) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}
