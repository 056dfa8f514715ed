package cluster

import (
	"strings"
	"testing"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

func TestJudgeUserPromptListsCandidateFields(t *testing.T) {
	occurred := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	candidates := []scoredCandidate{
		{event: models.Event{
			ID:          "ev-1",
			Title:       "openai releases gpt-5",
			SourceCount: 4,
			OccurredAt:  occurred,
		}, score: 0.9},
		{event: models.Event{
			ID:          "ev-2",
			Title:       "anthropic ships claude update",
			SourceCount: 1,
			OccurredAt:  occurred,
		}, score: 0.4},
	}

	got := judgeUserPrompt("openai ships gpt-5 to developers", candidates)

	if !strings.Contains(got, "Headline: openai ships gpt-5 to developers") {
		t.Error("expected prompt to open with the headline")
	}
	wantLines := []string{
		`- id=ev-1 title="openai releases gpt-5" sources=4 occurred=2026-03-14`,
		`- id=ev-2 title="anthropic ships claude update" sources=1 occurred=2026-03-14`,
	}
	for _, line := range wantLines {
		if !strings.Contains(got, line) {
			t.Errorf("prompt missing candidate line %q\nprompt:\n%s", line, got)
		}
	}
}
