package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aiwire/observatory/internal/models"
)

// EvidenceRepository stores evidence sources and snapshots.
type EvidenceRepository struct {
	db *sql.DB
}

// NewEvidenceRepository creates a PostgreSQL-backed evidence repository.
func NewEvidenceRepository(db *sql.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// UpsertSource inserts the source if its canonical URL is new and returns the
// stored row either way. Sources are immutable after creation, so a conflict
// keeps the original trust tier.
func (r *EvidenceRepository) UpsertSource(ctx context.Context, src models.EvidenceSource) (models.EvidenceSource, error) {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO evidence_sources (id, raw_url, canonical_url, domain, trust_tier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (canonical_url) DO UPDATE SET canonical_url = EXCLUDED.canonical_url
		RETURNING id, raw_url, canonical_url, domain, trust_tier, created_at
	`

	var stored models.EvidenceSource
	err := r.db.QueryRowContext(ctx, query,
		src.ID, src.RawURL, src.CanonicalURL, src.Domain, src.TrustTier, src.CreatedAt,
	).Scan(&stored.ID, &stored.RawURL, &stored.CanonicalURL, &stored.Domain, &stored.TrustTier, &stored.CreatedAt)
	if err != nil {
		return models.EvidenceSource{}, fmt.Errorf("failed to upsert evidence source: %w", err)
	}

	return stored, nil
}

// GetSource retrieves a source by ID.
func (r *EvidenceRepository) GetSource(ctx context.Context, id string) (*models.EvidenceSource, error) {
	query := `
		SELECT id, raw_url, canonical_url, domain, trust_tier, created_at
		FROM evidence_sources
		WHERE id = $1
	`

	var src models.EvidenceSource
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&src.ID, &src.RawURL, &src.CanonicalURL, &src.Domain, &src.TrustTier, &src.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence source: %w", err)
	}

	return &src, nil
}

// CreateSnapshot persists a snapshot row.
func (r *EvidenceRepository) CreateSnapshot(ctx context.Context, snap models.EvidenceSnapshot) (models.EvidenceSnapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO evidence_snapshots
			(id, source_id, source_type, title, author, published_at, content_hash, full_text, http_status, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		snap.ID, snap.SourceID, snap.SourceType, snap.Title, snap.Author,
		snap.PublishedAt, snap.ContentHash, snap.FullText, snap.HTTPStatus, snap.FetchedAt,
	)
	if err != nil {
		return models.EvidenceSnapshot{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return snap, nil
}

// GetSnapshot retrieves a snapshot by ID.
func (r *EvidenceRepository) GetSnapshot(ctx context.Context, id string) (*models.EvidenceSnapshot, error) {
	query := `
		SELECT id, source_id, source_type, title, author, published_at, content_hash, full_text, http_status, fetched_at
		FROM evidence_snapshots
		WHERE id = $1
	`

	var snap models.EvidenceSnapshot
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&snap.ID, &snap.SourceID, &snap.SourceType, &snap.Title, &snap.Author,
		&snap.PublishedAt, &snap.ContentHash, &snap.FullText, &snap.HTTPStatus, &snap.FetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	return &snap, nil
}

// FindRecentSnapshot returns a snapshot of the given source with an identical
// content hash fetched after the cutoff, if one exists. Used to keep the
// snapshot processor idempotent on (canonicalUrl, contentHash).
func (r *EvidenceRepository) FindRecentSnapshot(ctx context.Context, sourceID, contentHash string, since time.Time) (*models.EvidenceSnapshot, error) {
	query := `
		SELECT id, source_id, source_type, title, author, published_at, content_hash, full_text, http_status, fetched_at
		FROM evidence_snapshots
		WHERE source_id = $1 AND content_hash = $2 AND fetched_at >= $3
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	var snap models.EvidenceSnapshot
	err := r.db.QueryRowContext(ctx, query, sourceID, contentHash, since).Scan(
		&snap.ID, &snap.SourceID, &snap.SourceType, &snap.Title, &snap.Author,
		&snap.PublishedAt, &snap.ContentHash, &snap.FullText, &snap.HTTPStatus, &snap.FetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recent snapshot: %w", err)
	}

	return &snap, nil
}

// LinkedEventID returns the event a snapshot is already attached to, or ""
// when it is unlinked. Used by the cluster judge's idempotency check.
func (r *EvidenceRepository) LinkedEventID(ctx context.Context, snapshotID string) (string, error) {
	var eventID string
	err := r.db.QueryRowContext(ctx,
		"SELECT event_id FROM event_evidence WHERE snapshot_id = $1 LIMIT 1", snapshotID,
	).Scan(&eventID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query snapshot linkage: %w", err)
	}
	return eventID, nil
}

// SnapshotsForEvent returns an event's evidence snapshots, primary first.
func (r *EvidenceRepository) SnapshotsForEvent(ctx context.Context, eventID string) ([]models.EvidenceSnapshot, error) {
	query := `
		SELECT snap.id, snap.source_id, snap.source_type, snap.title, snap.author,
		       snap.published_at, snap.content_hash, snap.full_text, snap.http_status, snap.fetched_at
		FROM event_evidence ee
		JOIN evidence_snapshots snap ON snap.id = ee.snapshot_id
		WHERE ee.event_id = $1
		ORDER BY CASE ee.role WHEN 'PRIMARY' THEN 0 WHEN 'SUPPORTING' THEN 1 ELSE 2 END, ee.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.EvidenceSnapshot
	for rows.Next() {
		var snap models.EvidenceSnapshot
		if err := rows.Scan(
			&snap.ID, &snap.SourceID, &snap.SourceType, &snap.Title, &snap.Author,
			&snap.PublishedAt, &snap.ContentHash, &snap.FullText, &snap.HTTPStatus, &snap.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// TrustProfile aggregates the trust tiers behind an event's evidence.
func (r *EvidenceRepository) TrustProfile(ctx context.Context, eventID string) (models.TrustProfile, error) {
	query := `
		SELECT DISTINCT s.trust_tier
		FROM event_evidence ee
		JOIN evidence_snapshots snap ON snap.id = ee.snapshot_id
		JOIN evidence_sources s ON s.id = snap.source_id
		WHERE ee.event_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return models.TrustProfile{}, fmt.Errorf("failed to query trust profile: %w", err)
	}
	defer rows.Close()

	profile := models.TrustProfile{}
	for rows.Next() {
		var tier models.TrustTier
		if err := rows.Scan(&tier); err != nil {
			return models.TrustProfile{}, fmt.Errorf("failed to scan trust tier: %w", err)
		}
		profile.Tiers = append(profile.Tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return models.TrustProfile{}, fmt.Errorf("failed to iterate trust tiers: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_evidence WHERE event_id = $1", eventID,
	).Scan(&count); err != nil {
		return models.TrustProfile{}, fmt.Errorf("failed to count evidence: %w", err)
	}
	profile.SourceCount = count

	return profile, nil
}
