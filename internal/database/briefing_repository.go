package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aiwire/observatory/internal/models"
)

// BriefingRepository stores daily briefings, one per calendar day.
type BriefingRepository struct {
	db *sql.DB
}

// NewBriefingRepository creates a PostgreSQL-backed briefing repository.
func NewBriefingRepository(db *sql.DB) *BriefingRepository {
	return &BriefingRepository{db: db}
}

// Upsert writes the briefing for its date, replacing any prior payload.
func (r *BriefingRepository) Upsert(ctx context.Context, b models.DailyBriefing) (models.DailyBriefing, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	query := `
		INSERT INTO daily_briefings (id, date, payload, top_event_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (date) DO UPDATE SET
			payload = EXCLUDED.payload,
			top_event_ids = EXCLUDED.top_event_ids,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		b.ID, b.Date, []byte(b.Payload), pq.Array(b.TopEventIDs), b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return models.DailyBriefing{}, fmt.Errorf("failed to upsert briefing: %w", err)
	}

	return b, nil
}

// GetByDate retrieves the briefing for a YYYY-MM-DD date, or nil.
func (r *BriefingRepository) GetByDate(ctx context.Context, date string) (*models.DailyBriefing, error) {
	query := `
		SELECT id, date, payload, top_event_ids, created_at, updated_at
		FROM daily_briefings
		WHERE date = $1
	`

	var b models.DailyBriefing
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, date).Scan(
		&b.ID, &b.Date, &payload, pq.Array(&b.TopEventIDs), &b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query briefing: %w", err)
	}
	b.Payload = json.RawMessage(payload)

	return &b, nil
}
