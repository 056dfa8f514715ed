package briefing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aiwire/observatory/internal/database"
	"github.com/aiwire/observatory/internal/llm"
	"github.com/aiwire/observatory/internal/models"
	"github.com/aiwire/observatory/internal/queue"
)

// Generator produces the daily roundtable briefing from the day's top events.
type Generator struct {
	events    *database.EventRepository
	briefings *database.BriefingRepository
	llm       *llm.Client
	topN      int
	logger    *slog.Logger
}

// NewGenerator creates a briefing generator selecting the top N events per day.
func NewGenerator(events *database.EventRepository, briefings *database.BriefingRepository, client *llm.Client, topN int, logger *slog.Logger) *Generator {
	if topN <= 0 {
		topN = 5
	}
	return &Generator{
		events:    events,
		briefings: briefings,
		llm:       client,
		topN:      topN,
		logger:    logger,
	}
}

// Handle consumes one briefing job. An empty date means the previous UTC day,
// which is what the 05:00 UTC cron trigger wants.
func (g *Generator) Handle(ctx context.Context, job *queue.Job) (queue.Result, error) {
	var payload models.BriefingJob
	if err := job.Bind(&payload); err != nil {
		return queue.Fail(err.Error()), nil
	}

	date := payload.Date
	if date == "" {
		date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return queue.Fail(fmt.Sprintf("bad date %q: %v", payload.Date, err)), nil
	}

	events, err := g.events.TopEventsForDay(ctx, day, g.topN)
	if err != nil {
		return queue.Result{}, err
	}
	if len(events) == 0 {
		return queue.Skip(fmt.Sprintf("no events for %s", date)), nil
	}

	briefing, err := g.Generate(ctx, date, events)
	if err != nil {
		g.logger.Error("briefing generation failed, nothing persisted",
			"date", date, "error", err)
		return queue.Fail(err.Error()), nil
	}

	if _, err := g.briefings.Upsert(ctx, *briefing); err != nil {
		return queue.Result{}, err
	}

	g.logger.Info("daily briefing persisted",
		"date", date,
		"events", len(events),
		"trigger", payload.Trigger)
	return queue.OK(), nil
}

// Generate runs the roundtable prompt and, when its output fails schema
// validation, the legacy single-turn fallback. Both failing means no briefing
// for the day.
func (g *Generator) Generate(ctx context.Context, date string, events []models.Event) (*models.DailyBriefing, error) {
	roundtable, rtErr := g.generatePayload(ctx, date, events, false)
	if rtErr == nil {
		return g.assemble(date, events, roundtable, false)
	}
	g.logger.Warn("roundtable generation failed, trying legacy fallback",
		"date", date, "error", rtErr)

	legacy, legacyErr := g.generatePayload(ctx, date, events, true)
	if legacyErr != nil {
		return nil, fmt.Errorf("roundtable failed (%v); legacy fallback failed: %w", rtErr, legacyErr)
	}
	return g.assemble(date, events, legacy, true)
}

func (g *Generator) generatePayload(ctx context.Context, date string, events []models.Event, legacy bool) (*models.RoundtablePayload, error) {
	system, user, processor := roundtableSystemPrompt, roundtablePrompt(date, events), "briefing_roundtable"
	if legacy {
		system, user, processor = legacySystemPrompt, legacyPrompt(date, events), "briefing_legacy"
	}

	content, err := g.llm.Complete(ctx, llm.Request{
		System:    system,
		User:      user,
		MaxTokens: 3000,
		Processor: processor,
		InputHash: llm.HashInput(date, processor),
	})
	if err != nil {
		return nil, err
	}

	var payload models.RoundtablePayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("malformed briefing payload: %w", err)
	}

	if legacy {
		err = ValidateLegacy(payload, len(events))
	} else {
		err = ValidateRoundtable(payload, len(events))
	}
	if err != nil {
		return nil, fmt.Errorf("briefing schema validation failed: %w", err)
	}
	return &payload, nil
}

func (g *Generator) assemble(date string, events []models.Event, payload *models.RoundtablePayload, legacy bool) (*models.DailyBriefing, error) {
	payload.Metadata = models.BriefingMeta{
		Model:       g.llm.FastModel(),
		EventCount:  len(events),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Legacy:      legacy,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal briefing payload: %w", err)
	}

	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}

	return &models.DailyBriefing{
		Date:        date,
		Payload:     raw,
		TopEventIDs: ids,
	}, nil
}
