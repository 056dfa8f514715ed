package database

import (
	"testing"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

func TestOrderForBriefing(t *testing.T) {
	noon := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	input := []models.Event{
		{ID: "low", ImpactLevel: models.ImpactLow, SourceCount: 9, OccurredAt: noon},
		{ID: "high-late", ImpactLevel: models.ImpactHigh, SourceCount: 2, OccurredAt: noon.Add(time.Hour)},
		{ID: "breaking", ImpactLevel: models.ImpactBreaking, SourceCount: 1, OccurredAt: noon},
		{ID: "high-corroborated", ImpactLevel: models.ImpactHigh, SourceCount: 5, OccurredAt: noon},
		{ID: "high-early", ImpactLevel: models.ImpactHigh, SourceCount: 2, OccurredAt: noon.Add(-time.Hour)},
	}

	got := orderForBriefing(input, 0)

	want := []string{"breaking", "high-corroborated", "high-late", "high-early", "low"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestOrderForBriefingAppliesLimit(t *testing.T) {
	input := []models.Event{
		{ID: "a", ImpactLevel: models.ImpactBreaking},
		{ID: "b", ImpactLevel: models.ImpactHigh},
		{ID: "c", ImpactLevel: models.ImpactLow},
	}

	got := orderForBriefing(input, 2)
	if len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("expected top two by impact, got %s, %s", got[0].ID, got[1].ID)
	}
}
