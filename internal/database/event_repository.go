package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aiwire/observatory/internal/models"
)

// EventRepository stores events, their evidence links, and the status
// history audit log.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a PostgreSQL-backed event repository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, fingerprint, title, title_hr, occurred_at, impact_level, status, confidence, source_count, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (models.Event, error) {
	var ev models.Event
	err := row.Scan(
		&ev.ID, &ev.Fingerprint, &ev.Title, &ev.TitleHr, &ev.OccurredAt,
		&ev.ImpactLevel, &ev.Status, &ev.Confidence, &ev.SourceCount,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	return ev, err
}

// GetByID retrieves an event by ID. Returns nil when absent.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = $1", id)

	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	return &ev, nil
}

// CandidatesInWindow returns events whose occurred_at falls inside
// [center-window, center+window], for the cluster judge's prefilter.
func (r *EventRepository) CandidatesInWindow(ctx context.Context, center time.Time, window time.Duration) ([]models.Event, error) {
	query := "SELECT " + eventColumns + ` FROM events
		WHERE occurred_at BETWEEN $1 AND $2
		ORDER BY occurred_at DESC
		LIMIT 200`

	rows, err := r.db.QueryContext(ctx, query, center.Add(-window), center.Add(window))
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MaterializeNew atomically upserts an event on its fingerprint, links the
// snapshot as PRIMARY evidence, and appends the initial status history row.
// Concurrent inserts on the same fingerprint resolve to a single row via the
// unique index; the loser gets created=false and should treat the result as
// a match.
func (r *EventRepository) MaterializeNew(ctx context.Context, ev models.Event, snapshotID string) (models.Event, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Event{}, false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now

	insert := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (fingerprint) DO NOTHING
		RETURNING ` + eventColumns

	stored, err := scanEvent(tx.QueryRowContext(ctx, insert,
		ev.ID, ev.Fingerprint, ev.Title, ev.TitleHr, ev.OccurredAt,
		ev.ImpactLevel, ev.Status, ev.Confidence, ev.SourceCount,
		ev.CreatedAt, ev.UpdatedAt,
	))
	if err == sql.ErrNoRows {
		// Lost the race: another worker materialized this fingerprint first.
		existing, err := scanEvent(tx.QueryRowContext(ctx,
			"SELECT "+eventColumns+" FROM events WHERE fingerprint = $1", ev.Fingerprint))
		if err != nil {
			return models.Event{}, false, fmt.Errorf("failed to load existing event: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return models.Event{}, false, fmt.Errorf("failed to commit tx: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return models.Event{}, false, fmt.Errorf("failed to insert event: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO event_evidence (event_id, snapshot_id, role, created_at)
		VALUES ($1, $2, $3, $4)`,
		stored.ID, snapshotID, models.RolePrimary, now,
	); err != nil {
		return models.Event{}, false, fmt.Errorf("failed to link primary evidence: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO event_status_history (id, event_id, from_status, to_status, reason, created_at)
		VALUES ($1, $2, NULL, $3, $4, $5)`,
		uuid.NewString(), stored.ID, models.EventStatusRaw, "materialized", now,
	); err != nil {
		return models.Event{}, false, fmt.Errorf("failed to append status history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Event{}, false, fmt.Errorf("failed to commit tx: %w", err)
	}

	return stored, true, nil
}

// AttachEvidence links a snapshot to an existing event with the given role
// and bumps source_count. The link is idempotent on (event_id, snapshot_id):
// re-processing the same snapshot neither duplicates the row nor increments
// the count twice. Returns whether a new link was created.
func (r *EventRepository) AttachEvidence(ctx context.Context, eventID, snapshotID string, role models.EvidenceRole) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO event_evidence (event_id, snapshot_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, snapshot_id) DO NOTHING`,
		eventID, snapshotID, role, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to attach evidence: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if inserted == 0 {
		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE events
		SET source_count = (SELECT COUNT(*) FROM event_evidence WHERE event_id = $1),
		    updated_at = $2
		WHERE id = $1`,
		eventID, time.Now().UTC(),
	); err != nil {
		return false, fmt.Errorf("failed to bump source count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit tx: %w", err)
	}
	return true, nil
}

// SupportingCount returns how many SUPPORTING links an event already has.
func (r *EventRepository) SupportingCount(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_evidence WHERE event_id = $1 AND role = $2",
		eventID, models.RoleSupporting,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count supporting evidence: %w", err)
	}
	return n, nil
}

// SetConfidenceAndStatus writes the scorer's output and appends the status
// transition to the history log in one transaction.
func (r *EventRepository) SetConfidenceAndStatus(ctx context.Context, eventID string, confidence models.ConfidenceLevel, from, to models.EventStatus, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE events SET confidence = $2, status = $3, updated_at = $4 WHERE id = $1`,
		eventID, confidence, to, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to update event confidence: %w", err)
	}

	if from != to {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO event_status_history (id, event_id, from_status, to_status, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), eventID, from, to, reason, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("failed to append status history: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateStatus transitions an event's status and records the audit entry.
func (r *EventRepository) UpdateStatus(ctx context.Context, eventID string, from, to models.EventStatus, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE events SET status = $2, updated_at = $3 WHERE id = $1",
		eventID, to, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO event_status_history (id, event_id, from_status, to_status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), eventID, from, to, reason, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}

	return tx.Commit()
}

// SetImpactLevel records the impact classification produced by enrichment.
func (r *EventRepository) SetImpactLevel(ctx context.Context, eventID string, level models.ImpactLevel) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE events SET impact_level = $2, updated_at = $3 WHERE id = $1",
		eventID, level, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set impact level: %w", err)
	}
	return nil
}

// TopEventsForDay returns the day's visible events (PUBLISHED or ENRICHED)
// ranked by impact level then source count, for briefing selection.
func (r *EventRepository) TopEventsForDay(ctx context.Context, day time.Time, limit int) ([]models.Event, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	query := "SELECT " + eventColumns + ` FROM events
		WHERE status IN ($1, $2) AND occurred_at >= $3 AND occurred_at < $4`

	rows, err := r.db.QueryContext(ctx, query,
		models.EventStatusPublished, models.EventStatusEnriched, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query top events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orderForBriefing(events, limit), nil
}

// orderForBriefing ranks events by impact, then corroboration, then recency.
func orderForBriefing(events []models.Event, limit int) []models.Event {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.ImpactLevel.Rank() != b.ImpactLevel.Rank() {
			return a.ImpactLevel.Rank() > b.ImpactLevel.Rank()
		}
		if a.SourceCount != b.SourceCount {
			return a.SourceCount > b.SourceCount
		}
		return a.OccurredAt.After(b.OccurredAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}

// EventsAwaitingRelationshipExtract returns IDs of events that hold both the
// entity and topic artifacts but no relationship artifact. The fan-in sweeper
// re-enqueues these after a crash loses the in-memory coordinator state.
func (r *EventRepository) EventsAwaitingRelationshipExtract(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT e.id FROM events e
		WHERE e.status IN ($1, $2)
		  AND EXISTS (SELECT 1 FROM artifacts a WHERE a.event_id = e.id AND a.type = $3)
		  AND EXISTS (SELECT 1 FROM artifacts a WHERE a.event_id = e.id AND a.type = $4)
		  AND NOT EXISTS (SELECT 1 FROM artifacts a WHERE a.event_id = e.id AND a.type = $5)
		LIMIT $6`

	rows, err := r.db.QueryContext(ctx, query,
		models.EventStatusPublished, models.EventStatusEnriched,
		models.ArtifactEntityExtract, models.ArtifactTopicAssign, models.ArtifactRelationshipExtract,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep candidates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StatusHistory returns the audit trail for an event, oldest first.
func (r *EventRepository) StatusHistory(ctx context.Context, eventID string) ([]models.EventStatusHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, from_status, to_status, reason, created_at
		FROM event_status_history
		WHERE event_id = $1
		ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var entries []models.EventStatusHistory
	for rows.Next() {
		var h models.EventStatusHistory
		if err := rows.Scan(&h.ID, &h.EventID, &h.FromStatus, &h.ToStatus, &h.Reason, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// IsUniqueViolation reports whether the error is a PostgreSQL unique-index
// violation, used by callers that race on natural keys.
func IsUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
