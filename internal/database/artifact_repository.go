package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aiwire/observatory/internal/models"
)

// ArtifactRepository stores versioned LLM artifacts.
type ArtifactRepository struct {
	db *sql.DB
}

// NewArtifactRepository creates a PostgreSQL-backed artifact repository.
func NewArtifactRepository(db *sql.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Insert persists an artifact at version max(existing)+1. Two writers racing
// on the same (event, type) can both read the same MAX and collide on the
// unique index; the loser recomputes and tries again.
func (r *ArtifactRepository) Insert(ctx context.Context, eventID string, typ models.ArtifactType, payload json.RawMessage, modelUsed string) (models.Artifact, error) {
	for attempt := 0; ; attempt++ {
		art, err := r.insertNextVersion(ctx, eventID, typ, payload, modelUsed)
		if IsUniqueViolation(err) && attempt < 3 {
			continue
		}
		return art, err
	}
}

func (r *ArtifactRepository) insertNextVersion(ctx context.Context, eventID string, typ models.ArtifactType, payload json.RawMessage, modelUsed string) (models.Artifact, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) + 1 FROM artifacts WHERE event_id = $1 AND type = $2",
		eventID, typ,
	).Scan(&version); err != nil {
		return models.Artifact{}, fmt.Errorf("failed to compute artifact version: %w", err)
	}

	art := models.Artifact{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Type:      typ,
		Payload:   payload,
		Version:   version,
		ModelUsed: modelUsed,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO artifacts (id, event_id, type, payload, version, model_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		art.ID, art.EventID, art.Type, []byte(art.Payload), art.Version, art.ModelUsed, art.CreatedAt,
	); err != nil {
		if IsUniqueViolation(err) {
			return models.Artifact{}, err
		}
		return models.Artifact{}, fmt.Errorf("failed to insert artifact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Artifact{}, fmt.Errorf("failed to commit tx: %w", err)
	}

	return art, nil
}

// Latest returns the highest-version artifact of the given type, or nil.
func (r *ArtifactRepository) Latest(ctx context.Context, eventID string, typ models.ArtifactType) (*models.Artifact, error) {
	query := `
		SELECT id, event_id, type, payload, version, model_used, created_at
		FROM artifacts
		WHERE event_id = $1 AND type = $2
		ORDER BY version DESC
		LIMIT 1
	`

	var art models.Artifact
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, eventID, typ).Scan(
		&art.ID, &art.EventID, &art.Type, &payload, &art.Version, &art.ModelUsed, &art.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artifact: %w", err)
	}
	art.Payload = payload

	return &art, nil
}

// TypesPresent returns the set of artifact types an event currently holds.
func (r *ArtifactRepository) TypesPresent(ctx context.Context, eventID string) (map[models.ArtifactType]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT type FROM artifacts WHERE event_id = $1", eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifact types: %w", err)
	}
	defer rows.Close()

	present := make(map[models.ArtifactType]bool)
	for rows.Next() {
		var typ models.ArtifactType
		if err := rows.Scan(&typ); err != nil {
			return nil, fmt.Errorf("failed to scan artifact type: %w", err)
		}
		present[typ] = true
	}
	return present, rows.Err()
}
