package models

import (
	"encoding/json"
	"time"
)

// ArtifactType tags the kind of LLM output attached to an event.
type ArtifactType string

const (
	ArtifactHeadline            ArtifactType = "HEADLINE"
	ArtifactWhatHappened        ArtifactType = "WHAT_HAPPENED"
	ArtifactSummary             ArtifactType = "SUMMARY"
	ArtifactGMTake              ArtifactType = "GM_TAKE"
	ArtifactWhyMatters          ArtifactType = "WHY_MATTERS"
	ArtifactEntityExtract       ArtifactType = "ENTITY_EXTRACT"
	ArtifactTopicAssign         ArtifactType = "TOPIC_ASSIGN"
	ArtifactRelationshipExtract ArtifactType = "RELATIONSHIP_EXTRACT"
)

// RequiredArtifacts are the kinds an event must hold before it counts as enriched.
var RequiredArtifacts = []ArtifactType{
	ArtifactHeadline,
	ArtifactWhatHappened,
	ArtifactSummary,
	ArtifactWhyMatters,
}

// Artifact is a versioned, schema-validated LLM output attached to an event.
// (eventId, type, version) is unique; reads take the latest version.
type Artifact struct {
	ID        string          `json:"id"`
	EventID   string          `json:"event_id"`
	Type      ArtifactType    `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Version   int             `json:"version"`
	ModelUsed string          `json:"model_used"`
	CreatedAt time.Time       `json:"created_at"`
}

// LLMRun records a single LLM call: what was asked, what it cost, who owns it.
// Immutable.
type LLMRun struct {
	ID           string    `json:"id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	LatencyMs    int       `json:"latency_ms"`
	PromptHash   string    `json:"prompt_hash"` // SHA256(prompt)[:32]
	InputHash    string    `json:"input_hash"`  // SHA256(eventId|relevant fields)[:32]
	Processor    string    `json:"processor"`
	EventID      *string   `json:"event_id,omitempty"`
	Status       string    `json:"status"` // "success" or "error"
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
