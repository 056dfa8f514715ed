package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aiwire/observatory/internal/models"
)

// WatchlistRepository stores operator watchlists and their matches.
type WatchlistRepository struct {
	db *sql.DB
}

// NewWatchlistRepository creates a PostgreSQL-backed watchlist repository.
func NewWatchlistRepository(db *sql.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// List returns all watchlists.
func (r *WatchlistRepository) List(ctx context.Context) ([]models.Watchlist, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, slugs, created_at FROM watchlists ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlists: %w", err)
	}
	defer rows.Close()

	var lists []models.Watchlist
	for rows.Next() {
		var w models.Watchlist
		if err := rows.Scan(&w.ID, &w.Name, pq.Array(&w.Slugs), &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist: %w", err)
		}
		lists = append(lists, w)
	}
	return lists, rows.Err()
}

// RecordMatch stores one watchlist hit, idempotent per (watchlist, event, slug).
func (r *WatchlistRepository) RecordMatch(ctx context.Context, m models.WatchlistMatch) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watchlist_matches (id, watchlist_id, event_id, entity_slug, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (watchlist_id, event_id, entity_slug) DO NOTHING`,
		m.ID, m.WatchlistID, m.EventID, m.EntitySlug, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record watchlist match: %w", err)
	}
	return nil
}
