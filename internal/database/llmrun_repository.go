package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aiwire/observatory/internal/models"
)

// LLMRunRepository stores the immutable log of LLM calls.
type LLMRunRepository struct {
	db *sql.DB
}

// NewLLMRunRepository creates a PostgreSQL-backed LLM run repository.
func NewLLMRunRepository(db *sql.DB) *LLMRunRepository {
	return &LLMRunRepository{db: db}
}

// Create inserts one run record.
func (r *LLMRunRepository) Create(ctx context.Context, run models.LLMRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO llm_runs
			(id, provider, model, input_tokens, output_tokens, total_tokens, cost_usd,
			 latency_ms, prompt_hash, input_hash, processor, event_id, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		run.ID, run.Provider, run.Model, run.InputTokens, run.OutputTokens, run.TotalTokens,
		run.CostUSD, run.LatencyMs, run.PromptHash, run.InputHash, run.Processor,
		run.EventID, run.Status, run.ErrorMessage, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert llm run: %w", err)
	}
	return nil
}

// CostSince sums estimated spend per processor from the given time.
func (r *LLMRunRepository) CostSince(ctx context.Context, since time.Time) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT processor, COALESCE(SUM(cost_usd), 0)
		FROM llm_runs
		WHERE created_at >= $1
		GROUP BY processor`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query llm costs: %w", err)
	}
	defer rows.Close()

	costs := make(map[string]float64)
	for rows.Next() {
		var processor string
		var cost float64
		if err := rows.Scan(&processor, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan llm cost: %w", err)
		}
		costs[processor] = cost
	}
	return costs, rows.Err()
}
