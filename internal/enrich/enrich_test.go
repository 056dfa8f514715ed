package enrich

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/aiwire/observatory/internal/models"
)

func TestValidateArtifactHeadline(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"headline": "OpenAI releases new model", "impactLevel": "HIGH"}`, false},
		{"empty headline", `{"headline": "  ", "impactLevel": "LOW"}`, true},
		{"too long", `{"headline": "` + strings.Repeat("x", 201) + `", "impactLevel": "LOW"}`, true},
		{"bad impact", `{"headline": "ok", "impactLevel": "SEVERE"}`, true},
		{"malformed json", `{"headline": `, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifact(models.ArtifactHeadline, json.RawMessage(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArtifact() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateArtifactText(t *testing.T) {
	for _, typ := range []models.ArtifactType{
		models.ArtifactWhatHappened,
		models.ArtifactSummary,
		models.ArtifactWhyMatters,
		models.ArtifactGMTake,
	} {
		if err := ValidateArtifact(typ, json.RawMessage(`{"text": "something happened"}`)); err != nil {
			t.Errorf("%s: unexpected error: %v", typ, err)
		}
		if err := ValidateArtifact(typ, json.RawMessage(`{"text": ""}`)); err == nil {
			t.Errorf("%s: expected error for empty text", typ)
		}
	}
}

func TestValidateArtifactEntities(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"entities": [{"name": "OpenAI", "type": "COMPANY", "role": "SUBJECT", "confidence": 0.95}]}`, false},
		{"empty list", `{"entities": []}`, false},
		{"unknown type", `{"entities": [{"name": "X", "type": "ANIMAL", "role": "SUBJECT", "confidence": 0.5}]}`, true},
		{"unknown role", `{"entities": [{"name": "X", "type": "COMPANY", "role": "VILLAIN", "confidence": 0.5}]}`, true},
		{"missing name", `{"entities": [{"name": "", "type": "COMPANY", "role": "SUBJECT", "confidence": 0.5}]}`, true},
		{"confidence over one", `{"entities": [{"name": "X", "type": "COMPANY", "role": "SUBJECT", "confidence": 1.5}]}`, true},
		{"confidence negative", `{"entities": [{"name": "X", "type": "COMPANY", "role": "SUBJECT", "confidence": -0.1}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifact(models.ArtifactEntityExtract, json.RawMessage(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArtifact() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateArtifactTopics(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"topics": [{"slug": "model-release", "confidence": 0.8}]}`, false},
		{"uppercase slug", `{"topics": [{"slug": "Model-Release", "confidence": 0.8}]}`, true},
		{"edge hyphen", `{"topics": [{"slug": "-funding", "confidence": 0.8}]}`, true},
		{"empty slug", `{"topics": [{"slug": "", "confidence": 0.8}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifact(models.ArtifactTopicAssign, json.RawMessage(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArtifact() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateArtifactRelationships(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"relationships": [{"source": "openai", "target": "gpt-5", "type": "RELEASED", "confidence": 0.9}]}`, false},
		{"self referential", `{"relationships": [{"source": "openai", "target": "openai", "type": "RELEASED", "confidence": 0.9}]}`, true},
		{"unknown type", `{"relationships": [{"source": "a", "target": "b", "type": "DESTROYED", "confidence": 0.9}]}`, true},
		{"missing endpoint", `{"relationships": [{"source": "", "target": "b", "type": "RELEASED", "confidence": 0.9}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifact(models.ArtifactRelationshipExtract, json.RawMessage(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArtifact() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"OpenAI", "openai"},
		{"GPT-5", "gpt-5"},
		{"Hugging Face", "hugging-face"},
		{"  Meta AI  ", "meta-ai"},
		{"EU AI Act (2024)", "eu-ai-act-2024"},
		{"Llama 3.1", "llama-3-1"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if got := Slugify(tt.in); !isSlug(got) {
			t.Errorf("Slugify(%q) = %q is not a valid slug", tt.in, got)
		}
	}
}

func TestGateRelationship(t *testing.T) {
	authoritative := models.TrustProfile{Tiers: []models.TrustTier{models.TierAuthoritative}, SourceCount: 1}
	singleStandard := models.TrustProfile{Tiers: []models.TrustTier{models.TierStandard}, SourceCount: 1}
	twoLow := models.TrustProfile{Tiers: []models.TrustTier{models.TierLow}, SourceCount: 2}

	tests := []struct {
		name    string
		typ     models.RelationshipType
		profile models.TrustProfile
		want    models.RelationshipStatus
	}{
		{"low risk always approved", models.RelReleased, singleStandard, models.RelStatusApproved},
		{"medium risk single standard quarantined", models.RelFunded, singleStandard, models.RelStatusQuarantined},
		{"medium risk authoritative approved", models.RelFunded, authoritative, models.RelStatusApproved},
		{"high risk two sources approved", models.RelAcquired, twoLow, models.RelStatusApproved},
		{"high risk single standard quarantined", models.RelBeats, singleStandard, models.RelStatusQuarantined},
		{"unknown type rejected", models.RelationshipType("INVENTED"), authoritative, models.RelStatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GateRelationship(tt.typ, tt.profile); got != tt.want {
				t.Errorf("GateRelationship(%s) = %s, want %s", tt.typ, got, tt.want)
			}
		})
	}
}

// The gate never consults the model's confidence: admission must be identical
// whatever number the model attached to the claim.
func TestGateIgnoresModelConfidence(t *testing.T) {
	profile := models.TrustProfile{Tiers: []models.TrustTier{models.TierStandard}, SourceCount: 1}

	base := GateRelationship(models.RelAcquired, profile)
	for i := 0; i < 10; i++ {
		if got := GateRelationship(models.RelAcquired, profile); got != base {
			t.Fatalf("gate decision changed between identical calls: %s vs %s", got, base)
		}
	}
	if base != models.RelStatusQuarantined {
		t.Errorf("high-risk claim from single standard source should quarantine, got %s", base)
	}
}

func allRequiredArtifacts() map[models.ArtifactType]bool {
	present := make(map[models.ArtifactType]bool)
	for _, typ := range models.RequiredArtifacts {
		present[typ] = true
	}
	return present
}

func TestReadyForEnriched(t *testing.T) {
	complete := allRequiredArtifacts()

	missingSummary := allRequiredArtifacts()
	delete(missingSummary, models.ArtifactSummary)

	// GM_TAKE is optional; its absence must not hold the promotion back.
	withoutGMTake := allRequiredArtifacts()
	withoutGMTake[models.ArtifactGMTake] = false

	tests := []struct {
		name    string
		status  models.EventStatus
		present map[models.ArtifactType]bool
		want    bool
	}{
		{"published with all artifacts", models.EventStatusPublished, complete, true},
		{"published without optional take", models.EventStatusPublished, withoutGMTake, true},
		{"published missing summary", models.EventStatusPublished, missingSummary, false},
		{"raw never promotes", models.EventStatusRaw, complete, false},
		{"quarantined never promotes", models.EventStatusQuarantined, complete, false},
		{"blocked never promotes", models.EventStatusBlocked, complete, false},
		{"enriched stays put", models.EventStatusEnriched, complete, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readyForEnriched(tt.status, tt.present); got != tt.want {
				t.Errorf("readyForEnriched(%s) = %t, want %t", tt.status, got, tt.want)
			}
		})
	}
}

func TestVisibleStatuses(t *testing.T) {
	tests := []struct {
		status models.EventStatus
		want   bool
	}{
		{models.EventStatusPublished, true},
		{models.EventStatusEnriched, true},
		{models.EventStatusRaw, false},
		{models.EventStatusQuarantined, false},
		{models.EventStatusBlocked, false},
	}

	for _, tt := range tests {
		if got := visible(tt.status); got != tt.want {
			t.Errorf("visible(%s) = %t, want %t", tt.status, got, tt.want)
		}
	}
}

func TestFanInFiresOnce(t *testing.T) {
	c := NewFanInCoordinator()

	if c.BranchDone("ev1", models.StageEntityExtract) {
		t.Fatal("first branch alone should not fire")
	}
	if !c.BranchDone("ev1", models.StageTopicAssign) {
		t.Fatal("second branch should fire")
	}
	if c.Pending() != 0 {
		t.Errorf("state should be cleared after firing, pending = %d", c.Pending())
	}

	// A late duplicate starts a fresh round, it must not fire on its own.
	if c.BranchDone("ev1", models.StageTopicAssign) {
		t.Error("duplicate branch after fire should not fire again")
	}
}

func TestFanInIndependentEvents(t *testing.T) {
	c := NewFanInCoordinator()

	c.BranchDone("ev1", models.StageEntityExtract)
	c.BranchDone("ev2", models.StageTopicAssign)

	if c.Pending() != 2 {
		t.Fatalf("expected 2 pending events, got %d", c.Pending())
	}
	if c.BranchDone("ev1", models.StageEntityExtract) {
		t.Error("repeating the same branch should not fire")
	}
	if !c.BranchDone("ev1", models.StageTopicAssign) {
		t.Error("ev1 should fire when its pair completes")
	}
	if c.Pending() != 1 {
		t.Errorf("ev2 should still be pending, got %d", c.Pending())
	}
}

func TestFanInForget(t *testing.T) {
	c := NewFanInCoordinator()

	c.BranchDone("ev1", models.StageEntityExtract)
	c.Forget("ev1")

	if c.BranchDone("ev1", models.StageTopicAssign) {
		t.Error("forgotten event should need both branches again")
	}
}

func TestFanInConcurrentSingleFire(t *testing.T) {
	c := NewFanInCoordinator()

	const rounds = 100
	for i := 0; i < rounds; i++ {
		eventID := "ev-" + string(rune('a'+i%26)) + "-" + string(rune('0'+i%10))
		c.Forget(eventID)

		var wg sync.WaitGroup
		fires := make(chan bool, 2)
		for _, stage := range []models.EnrichStage{models.StageEntityExtract, models.StageTopicAssign} {
			wg.Add(1)
			go func(s models.EnrichStage) {
				defer wg.Done()
				if c.BranchDone(eventID, s) {
					fires <- true
				}
			}(stage)
		}
		wg.Wait()
		close(fires)

		count := 0
		for range fires {
			count++
		}
		if count != 1 {
			t.Fatalf("round %d: expected exactly one fire, got %d", i, count)
		}
	}
}
