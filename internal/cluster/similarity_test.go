package cluster

import (
	"testing"

	"github.com/aiwire/observatory/internal/models"
)

func TestSimilarityIdentity(t *testing.T) {
	titles := []string{
		"openai releases gpt-5",
		"anthropic ships claude update",
	}

	for _, title := range titles {
		if got := Similarity(title, title); got != 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, want 1.0", title, title, got)
		}
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"openai releases gpt-5", "openai ships gpt-5 model"},
		{"meta llama 4 announced", "google gemini update"},
		{"", "something"},
	}

	for _, p := range pairs {
		ab := Similarity(p[0], p[1])
		ba := Similarity(p[1], p[0])
		if ab != ba {
			t.Errorf("Similarity not symmetric for %q / %q: %f vs %f", p[0], p[1], ab, ba)
		}
	}
}

func TestSimilarityBounds(t *testing.T) {
	pairs := [][2]string{
		{"openai releases gpt-5", "openai releases gpt-5"},
		{"completely different words", "nothing shared here at all"},
		{"", ""},
		{"single", ""},
	}

	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Similarity(%q, %q) = %f, out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestSimilarityRelatedTitlesScoreHigher(t *testing.T) {
	base := "openai releases gpt-5"
	related := Similarity(base, "openai releases gpt-5 to developers")
	unrelated := Similarity(base, "meta announces quarterly earnings")

	if related <= unrelated {
		t.Errorf("expected related title (%f) to outscore unrelated (%f)", related, unrelated)
	}
	if related < similarityThreshold {
		t.Errorf("expected related title to pass the %f prefilter, got %f", similarityThreshold, related)
	}
}

func TestSimilarityWordBoundaries(t *testing.T) {
	// Bigrams never span spaces, so the boundary gram "wy" must not appear.
	joined := Similarity("new york", "newyork")
	if joined == 1.0 {
		t.Error("expected word-boundary handling to distinguish spaced and joined forms")
	}
}

func TestSimilarityIgnoresPunctuation(t *testing.T) {
	// Apostrophes, hyphens, and trailing punctuation carry no signal; two
	// titles differing only in those must score as identical.
	pairs := [][2]string{
		{"openai's gpt-5: released!", "openais gpt5 released"},
		{"anthropic (claude) update", "anthropic claude update"},
	}

	for _, p := range pairs {
		if got := Similarity(p[0], p[1]); got != 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, want 1.0", p[0], p[1], got)
		}
	}
}

func TestSimilarityDisjoint(t *testing.T) {
	if got := Similarity("ab cd", "ef gh"); got != 0 {
		t.Errorf("expected 0 for disjoint bigram sets, got %f", got)
	}
}

func TestPrefilterOrdersAndCaps(t *testing.T) {
	window := make([]models.Event, 0, 15)
	// Twelve near-identical candidates and a few noise rows.
	for i := 0; i < 12; i++ {
		window = append(window, models.Event{
			ID:    string(rune('a' + i)),
			Title: "openai releases gpt-5",
		})
	}
	window = append(window,
		models.Event{ID: "noise-1", Title: "zzz qqq vvv"},
		models.Event{ID: "close", Title: "openai releases gpt-5 api"},
	)

	got := prefilter("OpenAI Releases GPT-5", window)

	if len(got) != maxCandidates {
		t.Fatalf("expected prefilter to cap at %d, got %d", maxCandidates, len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].score > got[i-1].score {
			t.Errorf("expected descending scores, got %f before %f", got[i-1].score, got[i].score)
		}
	}
}

func TestPrefilterDropsBelowThreshold(t *testing.T) {
	window := []models.Event{
		{ID: "1", Title: "completely unrelated quarterly report"},
	}

	if got := prefilter("openai releases gpt-5", window); len(got) != 0 {
		t.Errorf("expected no candidates, got %d", len(got))
	}
}
