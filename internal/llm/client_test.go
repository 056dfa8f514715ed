package llm

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/aiwire/observatory/internal/config"
)

func TestHashPromptStable(t *testing.T) {
	a := HashPrompt("summarize this event")
	b := HashPrompt("summarize this event")

	if a != b {
		t.Errorf("expected identical prompts to hash identically, got %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("expected 32-char hash, got %d chars", len(a))
	}
	if HashPrompt("different prompt") == a {
		t.Error("expected different prompts to hash differently")
	}
}

func TestHashInputFieldBoundaries(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide
	if HashInput("ab", "c") == HashInput("a", "bc") {
		t.Error("expected field boundaries to affect the hash")
	}
	if HashInput("evt-1", "title") != HashInput("evt-1", "title") {
		t.Error("expected deterministic input hash")
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status code", errors.New("error, status code: 429, message: slow down"), true},
		{"too many requests", errors.New("Too Many Requests"), true},
		{"rate limit text", errors.New("Rate limit reached. Try again in 2s"), true},
		{"timeout", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRateLimited(tt.err); got != tt.want {
				t.Errorf("isRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestEstimateCost(t *testing.T) {
	if got := estimateCost("ollama", "qwen2.5:14b", 10_000, 5_000); got != 0 {
		t.Errorf("expected local models to cost nothing, got %f", got)
	}

	got := estimateCost("deepseek", "deepseek-chat", 1_000_000, 1_000_000)
	want := 0.27 + 1.10
	if got < want-0.001 || got > want+0.001 {
		t.Errorf("expected deepseek-chat cost %.2f, got %f", want, got)
	}

	if estimateCost("deepseek", "unknown-model", 1_000_000, 0) <= 0 {
		t.Error("expected unknown hosted models to use the default rate")
	}
}

func TestNewClientRequiresBackend(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	_, err := NewClient(config.LLMConfig{}, logger, nil)
	if err == nil {
		t.Fatal("expected an error when no backend is configured")
	}

	c, err := NewClient(config.LLMConfig{BaseURL: "http://localhost:11434", ModelFast: "qwen2.5:14b"}, logger, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Provider() != "ollama" {
		t.Errorf("expected ollama provider, got %s", c.Provider())
	}

	c, err = NewClient(config.LLMConfig{DeepSeekKey: "sk-test"}, logger, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Provider() != "deepseek" {
		t.Errorf("expected deepseek provider, got %s", c.Provider())
	}
}
