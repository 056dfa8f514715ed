package models

import (
	"time"
)

// EntityType classifies a canonical named entity.
type EntityType string

const (
	EntityCompany    EntityType = "COMPANY"
	EntityLab        EntityType = "LAB"
	EntityModel      EntityType = "MODEL"
	EntityProduct    EntityType = "PRODUCT"
	EntityPerson     EntityType = "PERSON"
	EntityRegulation EntityType = "REGULATION"
	EntityDataset    EntityType = "DATASET"
	EntityBenchmark  EntityType = "BENCHMARK"
)

// Entity is a canonical named entity, keyed by slug.
type Entity struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug"`
	Name      string     `json:"name"`
	NameHr    *string    `json:"name_hr,omitempty"`
	Type      EntityType `json:"type"`
	Aliases   []string   `json:"aliases,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// MentionRole describes how an entity figures in an event.
type MentionRole string

const (
	MentionSubject   MentionRole = "SUBJECT"
	MentionObject    MentionRole = "OBJECT"
	MentionMentioned MentionRole = "MENTIONED"
)

// Mention links an event to an entity with an extraction confidence in [0,1].
type Mention struct {
	EventID    string      `json:"event_id"`
	EntityID   string      `json:"entity_id"`
	Role       MentionRole `json:"role"`
	Confidence float64     `json:"confidence"`
}

// RelationshipType names a directed entity-to-entity claim. The ten variants
// span three risk classes; see RiskClass.
type RelationshipType string

const (
	RelReleased   RelationshipType = "RELEASED"
	RelAnnounced  RelationshipType = "ANNOUNCED"
	RelPublished  RelationshipType = "PUBLISHED"
	RelPartnered  RelationshipType = "PARTNERED"
	RelIntegrated RelationshipType = "INTEGRATED"
	RelFunded     RelationshipType = "FUNDED"
	RelAcquired   RelationshipType = "ACQUIRED"
	RelBanned     RelationshipType = "BANNED"
	RelBeats      RelationshipType = "BEATS"
	RelCriticized RelationshipType = "CRITICIZED"
)

// RiskClass groups relationship types by the harm of asserting them wrongly.
type RiskClass int

const (
	RiskLow RiskClass = iota
	RiskMedium
	RiskHigh
	RiskUnknown
)

var relationshipRisk = map[RelationshipType]RiskClass{
	RelReleased:   RiskLow,
	RelAnnounced:  RiskLow,
	RelPublished:  RiskLow,
	RelPartnered:  RiskMedium,
	RelIntegrated: RiskMedium,
	RelFunded:     RiskMedium,
	RelAcquired:   RiskHigh,
	RelBanned:     RiskHigh,
	RelBeats:      RiskHigh,
	RelCriticized: RiskHigh,
}

// Risk returns the risk class for the relationship type.
func (t RelationshipType) Risk() RiskClass {
	if r, ok := relationshipRisk[t]; ok {
		return r
	}
	return RiskUnknown
}

// RelationshipStatus tracks safety-gate admission.
type RelationshipStatus string

const (
	RelStatusPending     RelationshipStatus = "PENDING"
	RelStatusApproved    RelationshipStatus = "APPROVED"
	RelStatusQuarantined RelationshipStatus = "QUARANTINED"
	RelStatusRejected    RelationshipStatus = "REJECTED"
)

// Relationship is a directed edge between entities, evidenced by an event.
// ModelConfidence is recorded for analysis and never used in admission.
type Relationship struct {
	ID              string             `json:"id"`
	SourceEntityID  string             `json:"source_entity_id"`
	TargetEntityID  string             `json:"target_entity_id"`
	Type            RelationshipType   `json:"type"`
	EventID         string             `json:"event_id"`
	Status          RelationshipStatus `json:"status"`
	ModelConfidence float64            `json:"model_confidence"`
	CreatedAt       time.Time          `json:"created_at"`
}

// Topic is a canonical topic slug.
type Topic struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// EventTopic associates an event with a topic.
type EventTopic struct {
	EventID    string  `json:"event_id"`
	TopicID    string  `json:"topic_id"`
	Confidence float64 `json:"confidence"`
}

// Watchlist is a named set of entity slugs operators want flagged.
type Watchlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slugs     []string  `json:"slugs"`
	CreatedAt time.Time `json:"created_at"`
}

// WatchlistMatch records that an event mentioned a watched entity.
type WatchlistMatch struct {
	ID          string    `json:"id"`
	WatchlistID string    `json:"watchlist_id"`
	EventID     string    `json:"event_id"`
	EntitySlug  string    `json:"entity_slug"`
	CreatedAt   time.Time `json:"created_at"`
}
