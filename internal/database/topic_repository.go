package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aiwire/observatory/internal/models"
)

// TopicRepository stores canonical topics and event-topic associations.
type TopicRepository struct {
	db *sql.DB
}

// NewTopicRepository creates a PostgreSQL-backed topic repository.
func NewTopicRepository(db *sql.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// UpsertTopic inserts a topic keyed on slug and returns the stored row.
func (r *TopicRepository) UpsertTopic(ctx context.Context, slug string) (models.Topic, error) {
	query := `
		INSERT INTO topics (id, slug, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, slug, created_at
	`

	var t models.Topic
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), slug, time.Now().UTC()).
		Scan(&t.ID, &t.Slug, &t.CreatedAt)
	if err != nil {
		return models.Topic{}, fmt.Errorf("failed to upsert topic: %w", err)
	}
	return t, nil
}

// AssignTopic associates an event with a topic.
func (r *TopicRepository) AssignTopic(ctx context.Context, assoc models.EventTopic) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO event_topics (event_id, topic_id, confidence)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, topic_id) DO UPDATE SET confidence = EXCLUDED.confidence`,
		assoc.EventID, assoc.TopicID, assoc.Confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to assign topic: %w", err)
	}
	return nil
}
