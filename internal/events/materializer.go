package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aiwire/observatory/internal/database"
	"github.com/aiwire/observatory/internal/metrics"
	"github.com/aiwire/observatory/internal/models"
	"github.com/aiwire/observatory/internal/queue"
)

// Notifier pushes the publish announcement to live subscribers.
type Notifier interface {
	EventPublished(ctx context.Context, eventID string)
}

// Materializer turns cluster decisions into event rows and evidence links,
// then re-scores confidence. All writes are idempotent: the fingerprint
// unique index absorbs materialize races, the (event, snapshot) link absorbs
// replayed jobs.
type Materializer struct {
	events   *database.EventRepository
	evidence *database.EvidenceRepository
	queues   *queue.Client
	notifier Notifier
	metrics  *metrics.PipelineCollector
	logger   *slog.Logger
}

// NewMaterializer creates the materializer.
func NewMaterializer(
	events *database.EventRepository,
	evidence *database.EvidenceRepository,
	queues *queue.Client,
	notifier Notifier,
	collector *metrics.PipelineCollector,
	logger *slog.Logger,
) *Materializer {
	return &Materializer{
		events:   events,
		evidence: evidence,
		queues:   queues,
		notifier: notifier,
		metrics:  collector,
		logger:   logger,
	}
}

// PlaceNew materializes an event for a snapshot the judge called new. A
// concurrent worker may have won the fingerprint race; the loser's snapshot
// is attached as supporting evidence instead.
func (m *Materializer) PlaceNew(ctx context.Context, snap *models.EvidenceSnapshot) (*models.Event, error) {
	occurredAt := snap.FetchedAt
	if snap.PublishedAt != nil {
		occurredAt = *snap.PublishedAt
	}

	candidate := models.Event{
		Fingerprint: Fingerprint(snap.SourceType, occurredAt, snap.Title),
		Title:       snap.Title,
		OccurredAt:  occurredAt.UTC(),
		ImpactLevel: models.ImpactLow,
		Status:      models.EventStatusRaw,
		SourceCount: 1,
	}

	stored, created, err := m.events.MaterializeNew(ctx, candidate, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize event: %w", err)
	}

	if !created {
		m.logger.Info("fingerprint already materialized, attaching as match",
			"event_id", stored.ID,
			"snapshot_id", snap.ID)
		if err := m.PlaceMatch(ctx, stored.ID, snap); err != nil {
			return nil, err
		}
		return &stored, nil
	}

	m.logger.Info("event materialized",
		"event_id", stored.ID,
		"fingerprint", stored.Fingerprint,
		"snapshot_id", snap.ID)

	if err := m.Rescore(ctx, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// PlaceMatch links a snapshot to an existing event. Once an event has three
// supporting sources, further coverage is background context and no longer
// moves the score.
func (m *Materializer) PlaceMatch(ctx context.Context, eventID string, snap *models.EvidenceSnapshot) error {
	ev, err := m.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if ev == nil {
		return fmt.Errorf("matched event %s not found", eventID)
	}

	role := models.RoleSupporting
	supporting, err := m.events.SupportingCount(ctx, eventID)
	if err != nil {
		return err
	}
	if supporting >= 3 {
		role = models.RoleContext
	}

	attached, err := m.events.AttachEvidence(ctx, eventID, snap.ID, role)
	if err != nil {
		return err
	}
	if !attached {
		m.logger.Debug("snapshot already linked", "event_id", eventID, "snapshot_id", snap.ID)
		return nil
	}

	m.logger.Info("evidence attached",
		"event_id", eventID,
		"snapshot_id", snap.ID,
		"role", role)

	// Re-read: AttachEvidence bumped source_count.
	ev, err = m.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	return m.Rescore(ctx, ev)
}

// Rescore recomputes confidence from the evidence trust profile and applies
// the status mapping. Enrichment and the publish broadcast fire only on the
// transition into PUBLISHED; already-published events just absorb the new
// confidence.
func (m *Materializer) Rescore(ctx context.Context, ev *models.Event) error {
	profile, err := m.evidence.TrustProfile(ctx, ev.ID)
	if err != nil {
		return err
	}

	confidence := ScoreConfidence(profile)
	next := StatusFor(confidence)

	// Terminal or operator-owned states stay put. Visible events absorb the
	// refreshed confidence without moving: ENRICHED is not demoted to
	// PUBLISHED, and neither is pulled back to QUARANTINED.
	switch ev.Status {
	case models.EventStatusBlocked:
		return nil
	case models.EventStatusPublished, models.EventStatusEnriched:
		next = ev.Status
	}

	reason := fmt.Sprintf("scored %s from %d source(s)", confidence, profile.SourceCount)
	if err := m.events.SetConfidenceAndStatus(ctx, ev.ID, confidence, ev.Status, next, reason); err != nil {
		return err
	}

	if m.metrics != nil && next != ev.Status {
		m.metrics.EventTransition(string(next))
	}

	m.logger.Info("event scored",
		"event_id", ev.ID,
		"confidence", confidence,
		"status", next,
		"source_count", profile.SourceCount)

	if next == models.EventStatusPublished && ev.Status != models.EventStatusPublished {
		if _, err := m.queues.Enqueue(ctx, queue.QueueEnrich, models.EnrichJob{
			EventID: ev.ID,
			Stage:   models.StageCoreArtifacts,
		}); err != nil {
			return fmt.Errorf("failed to enqueue enrichment: %w", err)
		}
		if m.notifier != nil {
			m.notifier.EventPublished(ctx, ev.ID)
		}
	}

	return nil
}
