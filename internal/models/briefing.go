package models

import (
	"encoding/json"
	"time"
)

// DailyBriefing is the once-a-day roundtable output, keyed by calendar date.
type DailyBriefing struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"` // YYYY-MM-DD, unique
	Payload     json.RawMessage `json:"payload"`
	TopEventIDs []string        `json:"top_event_ids"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Persona names a roundtable speaker.
type Persona string

const (
	PersonaGM       Persona = "GM"
	PersonaEngineer Persona = "Engineer"
	PersonaSkeptic  Persona = "Skeptic"
)

// MoveType names the rhetorical move a roundtable turn makes.
type MoveType string

const (
	MoveSetup        MoveType = "SETUP"
	MoveTechRead     MoveType = "TECH_READ"
	MoveRiskCheck    MoveType = "RISK_CHECK"
	MoveCrossExam    MoveType = "CROSS_EXAM"
	MoveEvidenceCall MoveType = "EVIDENCE_CALL"
	MoveTakeaway     MoveType = "TAKEAWAY"
	MoveCut          MoveType = "CUT"
)

// RoundtableTurn is one utterance in the briefing dialogue. EventRef is a
// 1-based index into the briefing's top events.
type RoundtableTurn struct {
	Persona  Persona  `json:"persona"`
	Move     MoveType `json:"move"`
	Text     string   `json:"text"`
	EventRef int      `json:"event_ref"`
}

// RoundtablePayload is the schema-validated briefing body.
type RoundtablePayload struct {
	Turns      []RoundtableTurn `json:"turns"`
	Prediction string           `json:"prediction"`
	Metadata   BriefingMeta     `json:"metadata"`
}

// BriefingMeta carries generation provenance.
type BriefingMeta struct {
	Model       string `json:"model"`
	EventCount  int    `json:"event_count"`
	GeneratedAt string `json:"generated_at"`
	Legacy      bool   `json:"legacy,omitempty"` // true when the single-turn fallback produced it
}
