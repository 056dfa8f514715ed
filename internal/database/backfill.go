package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// BackfillResult reports what the legacy migration moved.
type BackfillResult struct {
	Sources   int64
	Snapshots int64
	Evidence  int64
}

// Backfill migrates rows from the legacy single-table layout
// (legacy_sources: url, title, content, content_hash, source_type,
// published_at, event_id) into the evidence schema. Safe to re-run: every
// statement is idempotent on the target's natural key.
func Backfill(ctx context.Context, db *sql.DB, logger *slog.Logger) (BackfillResult, error) {
	var result BackfillResult

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO evidence_sources (id, raw_url, canonical_url, domain, trust_tier, created_at)
		SELECT gen_random_uuid(), ls.url, ls.url,
		       split_part(split_part(ls.url, '://', 2), '/', 1),
		       'LOW', COALESCE(ls.created_at, NOW())
		FROM legacy_sources ls
		ON CONFLICT (canonical_url) DO NOTHING`)
	if err != nil {
		return result, fmt.Errorf("failed to backfill sources: %w", err)
	}
	result.Sources, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `
		INSERT INTO evidence_snapshots
			(id, source_id, source_type, title, author, published_at, content_hash, full_text, http_status, fetched_at)
		SELECT gen_random_uuid(), es.id, ls.source_type, ls.title, NULL, ls.published_at,
		       COALESCE(ls.content_hash, ''), ls.content, 200, COALESCE(ls.created_at, NOW())
		FROM legacy_sources ls
		JOIN evidence_sources es ON es.canonical_url = ls.url
		WHERE NOT EXISTS (
			SELECT 1 FROM evidence_snapshots snap
			WHERE snap.source_id = es.id AND snap.content_hash = COALESCE(ls.content_hash, '')
		)`)
	if err != nil {
		return result, fmt.Errorf("failed to backfill snapshots: %w", err)
	}
	result.Snapshots, _ = res.RowsAffected()

	// Legacy rows that already pointed at an event become SUPPORTING evidence;
	// the materializer owns PRIMARY assignment for new events.
	res, err = tx.ExecContext(ctx, `
		INSERT INTO event_evidence (event_id, snapshot_id, role, created_at)
		SELECT ls.event_id, snap.id, 'SUPPORTING', NOW()
		FROM legacy_sources ls
		JOIN evidence_sources es ON es.canonical_url = ls.url
		JOIN evidence_snapshots snap ON snap.source_id = es.id
		WHERE ls.event_id IS NOT NULL
		  AND EXISTS (SELECT 1 FROM events e WHERE e.id = ls.event_id)
		ON CONFLICT (event_id, snapshot_id) DO NOTHING`)
	if err != nil {
		return result, fmt.Errorf("failed to backfill evidence links: %w", err)
	}
	result.Evidence, _ = res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `
		UPDATE events e
		SET source_count = sub.n
		FROM (SELECT event_id, COUNT(*) AS n FROM event_evidence GROUP BY event_id) sub
		WHERE sub.event_id = e.id AND e.source_count <> sub.n`); err != nil {
		return result, fmt.Errorf("failed to reconcile source counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit backfill: %w", err)
	}

	logger.Info("backfill complete",
		"sources", result.Sources,
		"snapshots", result.Snapshots,
		"evidence_links", result.Evidence)

	return result, nil
}
