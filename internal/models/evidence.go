package models

import (
	"time"
)

// TrustTier is the authority classification of a source's domain. It drives
// confidence scoring and the relationship safety gate.
type TrustTier string

const (
	TierAuthoritative TrustTier = "AUTHORITATIVE" // First-party: labs, regulators, journals
	TierStandard      TrustTier = "STANDARD"      // Established tech press
	TierLow           TrustTier = "LOW"           // Aggregators, forums, everything else
)

// EvidenceSource is the record for one canonical URL. Immutable after creation.
type EvidenceSource struct {
	ID           string    `json:"id"`
	RawURL       string    `json:"raw_url"`
	CanonicalURL string    `json:"canonical_url"`
	Domain       string    `json:"domain"`
	TrustTier    TrustTier `json:"trust_tier"`
	CreatedAt    time.Time `json:"created_at"`
}

// EvidenceSnapshot is one point-in-time retrieval of a source. Append-only;
// multiple snapshots per source record retrieval history.
type EvidenceSnapshot struct {
	ID          string     `json:"id"`
	SourceID    string     `json:"source_id"`
	SourceType  SourceType `json:"source_type"`
	Title       string     `json:"title"`
	Author      *string    `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ContentHash string     `json:"content_hash"` // SHA-256 of the fetched body
	FullText    *string    `json:"full_text,omitempty"`
	HTTPStatus  int        `json:"http_status"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// EvidenceRole describes how a snapshot supports an event.
type EvidenceRole string

const (
	RolePrimary    EvidenceRole = "PRIMARY"    // Exactly one per event
	RoleSupporting EvidenceRole = "SUPPORTING" // Corroborating coverage
	RoleContext    EvidenceRole = "CONTEXT"    // Background once an event is well supported
)

// EventEvidence links a snapshot to the event it supports.
type EventEvidence struct {
	EventID    string       `json:"event_id"`
	SnapshotID string       `json:"snapshot_id"`
	Role       EvidenceRole `json:"role"`
	CreatedAt  time.Time    `json:"created_at"`
}

// TrustProfile summarizes an event's evidence for the confidence scorer.
type TrustProfile struct {
	SourceCount int
	Tiers       []TrustTier
}

// HasTier reports whether any evidence source carries the given tier.
func (p TrustProfile) HasTier(tier TrustTier) bool {
	for _, t := range p.Tiers {
		if t == tier {
			return true
		}
	}
	return false
}
