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

// EntityRepository stores canonical entities, event mentions, and the
// relationship graph (adjacency rows, never object cycles).
type EntityRepository struct {
	db *sql.DB
}

// NewEntityRepository creates a PostgreSQL-backed entity repository.
func NewEntityRepository(db *sql.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// UpsertEntity inserts an entity keyed on slug, merging aliases on conflict.
func (r *EntityRepository) UpsertEntity(ctx context.Context, e models.Entity) (models.Entity, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	aliasesJSON, err := json.Marshal(e.Aliases)
	if err != nil {
		return models.Entity{}, fmt.Errorf("failed to marshal aliases: %w", err)
	}

	query := `
		INSERT INTO entities (id, slug, name, name_hr, type, aliases, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE SET aliases = EXCLUDED.aliases
		RETURNING id, slug, name, name_hr, type, aliases, created_at
	`

	var stored models.Entity
	var storedAliases []byte
	err = r.db.QueryRowContext(ctx, query,
		e.ID, e.Slug, e.Name, e.NameHr, e.Type, aliasesJSON, e.CreatedAt,
	).Scan(&stored.ID, &stored.Slug, &stored.Name, &stored.NameHr, &stored.Type, &storedAliases, &stored.CreatedAt)
	if err != nil {
		return models.Entity{}, fmt.Errorf("failed to upsert entity: %w", err)
	}

	if len(storedAliases) > 0 {
		if err := json.Unmarshal(storedAliases, &stored.Aliases); err != nil {
			return models.Entity{}, fmt.Errorf("failed to unmarshal aliases: %w", err)
		}
	}

	return stored, nil
}

// GetBySlug retrieves an entity by its canonical slug, or nil.
func (r *EntityRepository) GetBySlug(ctx context.Context, slug string) (*models.Entity, error) {
	var e models.Entity
	var aliases []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT id, slug, name, name_hr, type, aliases, created_at FROM entities WHERE slug = $1", slug,
	).Scan(&e.ID, &e.Slug, &e.Name, &e.NameHr, &e.Type, &aliases, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	if len(aliases) > 0 {
		if err := json.Unmarshal(aliases, &e.Aliases); err != nil {
			return nil, fmt.Errorf("failed to unmarshal aliases: %w", err)
		}
	}
	return &e, nil
}

// UpsertMention records an event-entity mention, overwriting role and
// confidence on re-extraction.
func (r *EntityRepository) UpsertMention(ctx context.Context, m models.Mention) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mentions (event_id, entity_id, role, confidence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, entity_id) DO UPDATE SET role = EXCLUDED.role, confidence = EXCLUDED.confidence`,
		m.EventID, m.EntityID, m.Role, m.Confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert mention: %w", err)
	}
	return nil
}

// MentionedSlugs returns the entity slugs mentioned by an event.
func (r *EntityRepository) MentionedSlugs(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.slug
		FROM mentions m
		JOIN entities e ON e.id = m.entity_id
		WHERE m.event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mentioned slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// CreateRelationship inserts a relationship proposal with its gate decision.
func (r *EntityRepository) CreateRelationship(ctx context.Context, rel models.Relationship) (models.Relationship, error) {
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO relationships
			(id, source_entity_id, target_entity_id, type, event_id, status, model_confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_entity_id, target_entity_id, type, event_id) DO NOTHING`,
		rel.ID, rel.SourceEntityID, rel.TargetEntityID, rel.Type, rel.EventID,
		rel.Status, rel.ModelConfidence, rel.CreatedAt,
	)
	if err != nil {
		return models.Relationship{}, fmt.Errorf("failed to insert relationship: %w", err)
	}

	return rel, nil
}
