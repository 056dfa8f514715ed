package models

import (
	"time"
)

// Event is the canonical real-world happening (a release, a paper, a funding
// round) that one or more evidence snapshots describe.
type Event struct {
	ID          string           `json:"id"`
	Fingerprint string           `json:"fingerprint"`
	Title       string           `json:"title"`
	TitleHr     *string          `json:"title_hr,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
	ImpactLevel ImpactLevel      `json:"impact_level"`
	Status      EventStatus      `json:"status"`
	Confidence  *ConfidenceLevel `json:"confidence,omitempty"`
	SourceCount int              `json:"source_count"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// EventStatus represents the lifecycle state of an event.
type EventStatus string

const (
	EventStatusRaw         EventStatus = "RAW"         // Materialized, not yet enriched
	EventStatusEnriched    EventStatus = "ENRICHED"    // Required artifacts present
	EventStatusPublished   EventStatus = "PUBLISHED"   // Visible to the query layer
	EventStatusQuarantined EventStatus = "QUARANTINED" // Held back pending corroboration
	EventStatusBlocked     EventStatus = "BLOCKED"     // Admin action only; pipeline never sets it
)

// ImpactLevel classifies how newsworthy an event is.
type ImpactLevel string

const (
	ImpactBreaking ImpactLevel = "BREAKING"
	ImpactHigh     ImpactLevel = "HIGH"
	ImpactMedium   ImpactLevel = "MEDIUM"
	ImpactLow      ImpactLevel = "LOW"
)

// impactRank orders impact levels for briefing selection, highest first.
var impactRank = map[ImpactLevel]int{
	ImpactBreaking: 3,
	ImpactHigh:     2,
	ImpactMedium:   1,
	ImpactLow:      0,
}

// Rank returns a sortable weight for the impact level. Unknown levels rank lowest.
func (l ImpactLevel) Rank() int {
	return impactRank[l]
}

// ConfidenceLevel grades an event's evidence profile. Derived solely from
// trust tiers and source count, never from model self-assessment.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// EventStatusHistory is an append-only audit record of a status transition.
type EventStatusHistory struct {
	ID         string       `json:"id"`
	EventID    string       `json:"event_id"`
	FromStatus *EventStatus `json:"from_status,omitempty"` // nil for the initial transition
	ToStatus   EventStatus  `json:"to_status"`
	Reason     string       `json:"reason"`
	CreatedAt  time.Time    `json:"created_at"`
}
