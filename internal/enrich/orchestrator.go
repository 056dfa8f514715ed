package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aiwire/observatory/internal/database"
	"github.com/aiwire/observatory/internal/events"
	"github.com/aiwire/observatory/internal/llm"
	"github.com/aiwire/observatory/internal/metrics"
	"github.com/aiwire/observatory/internal/models"
	"github.com/aiwire/observatory/internal/queue"
)

// Orchestrator drives the enrichment flow as queue-stage handlers:
//
//	core_artifacts -> entity_extract || topic_assign -> relationship_extract -> watchlist_match
//
// Each stage is idempotent (skip when its artifact already exists at the
// current version) and a stage failure quarantines the event instead of
// propagating downstream.
type Orchestrator struct {
	events     *database.EventRepository
	evidence   *database.EvidenceRepository
	artifacts  *database.ArtifactRepository
	entities   *database.EntityRepository
	topics     *database.TopicRepository
	watchlists *database.WatchlistRepository
	llm        *llm.Client
	fanin      *FanInCoordinator
	notifier   events.Notifier
	metrics    *metrics.PipelineCollector
	logger     *slog.Logger
}

// NewOrchestrator creates the enrichment orchestrator.
func NewOrchestrator(
	eventRepo *database.EventRepository,
	evidence *database.EvidenceRepository,
	artifacts *database.ArtifactRepository,
	entities *database.EntityRepository,
	topics *database.TopicRepository,
	watchlists *database.WatchlistRepository,
	client *llm.Client,
	fanin *FanInCoordinator,
	notifier events.Notifier,
	collector *metrics.PipelineCollector,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		events:     eventRepo,
		evidence:   evidence,
		artifacts:  artifacts,
		entities:   entities,
		topics:     topics,
		watchlists: watchlists,
		llm:        client,
		fanin:      fanin,
		notifier:   notifier,
		metrics:    collector,
		logger:     logger,
	}
}

// Handle consumes one enrichment stage job.
func (o *Orchestrator) Handle(ctx context.Context, job *queue.Job) (queue.Result, error) {
	var payload models.EnrichJob
	if err := job.Bind(&payload); err != nil {
		return queue.Fail(err.Error()), nil
	}

	ev, err := o.events.GetByID(ctx, payload.EventID)
	if err != nil {
		return queue.Result{}, err
	}
	if ev == nil {
		return queue.Fail(fmt.Sprintf("event %s not found", payload.EventID)), nil
	}
	if ev.Status == models.EventStatusBlocked {
		return queue.Skip("event is blocked"), nil
	}

	switch payload.Stage {
	case models.StageCoreArtifacts:
		return o.handleCore(ctx, ev)
	case models.StageEntityExtract:
		return o.handleBranch(ctx, ev, models.StageEntityExtract)
	case models.StageTopicAssign:
		return o.handleBranch(ctx, ev, models.StageTopicAssign)
	case models.StageRelationshipExtract:
		return o.handleRelationships(ctx, ev)
	case models.StageWatchlistMatch:
		return o.handleWatchlist(ctx, ev)
	default:
		return queue.Fail(fmt.Sprintf("unknown stage %q", payload.Stage)), nil
	}
}

// readyForEnriched reports whether completing the artifact work should move
// the event to ENRICHED: every required artifact is present and the event is
// sitting in PUBLISHED. Already-ENRICHED events stay put; quarantined and
// blocked ones never advance from here.
func readyForEnriched(status models.EventStatus, present map[models.ArtifactType]bool) bool {
	if status != models.EventStatusPublished {
		return false
	}
	for _, typ := range models.RequiredArtifacts {
		if !present[typ] {
			return false
		}
	}
	return true
}

// visible reports whether the event is exposed by the query layer, which is
// when artifact updates are worth broadcasting.
func visible(status models.EventStatus) bool {
	return status == models.EventStatusPublished || status == models.EventStatusEnriched
}

// evidenceText joins the full text of an event's snapshots, primary first.
func (o *Orchestrator) evidenceText(ctx context.Context, eventID string) (string, error) {
	snaps, err := o.evidence.SnapshotsForEvent(ctx, eventID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, snap := range snaps {
		if snap.FullText == nil {
			continue
		}
		sb.WriteString(*snap.FullText)
		sb.WriteString("\n\n")
		if sb.Len() > 8000 {
			break
		}
	}
	return sb.String(), nil
}

// quarantine moves the event out of the flow with a reason and clears any
// fan-in state.
func (o *Orchestrator) quarantine(ctx context.Context, ev *models.Event, reason string) queue.Result {
	o.fanin.Forget(ev.ID)

	if err := o.events.UpdateStatus(ctx, ev.ID, ev.Status, models.EventStatusQuarantined, reason); err != nil {
		o.logger.Error("failed to quarantine event", "event_id", ev.ID, "error", err)
	} else if o.metrics != nil {
		o.metrics.EventTransition(string(models.EventStatusQuarantined))
	}

	o.logger.Warn("event quarantined", "event_id", ev.ID, "reason", reason)
	return queue.Fail(reason)
}

// generateArtifact runs one LLM call, validates the output against the
// kind's schema, and persists it.
func (o *Orchestrator) generateArtifact(ctx context.Context, ev *models.Event, typ models.ArtifactType, system, user string) (json.RawMessage, error) {
	content, err := o.llm.Complete(ctx, llm.Request{
		System:    system,
		User:      user,
		MaxTokens: 1000,
		Processor: "enrich_" + strings.ToLower(string(typ)),
		EventID:   &ev.ID,
		InputHash: llm.HashInput(ev.ID, string(typ), ev.Title),
	})
	if err != nil {
		return nil, err
	}

	payload := json.RawMessage(content)
	if err := ValidateArtifact(typ, payload); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", typ, err)
	}

	if _, err := o.artifacts.Insert(ctx, ev.ID, typ, payload, o.llm.FastModel()); err != nil {
		return nil, err
	}
	return payload, nil
}

// handleCore produces the editorial artifacts and fans out the extraction
// branches.
func (o *Orchestrator) handleCore(ctx context.Context, ev *models.Event) (queue.Result, error) {
	present, err := o.artifacts.TypesPresent(ctx, ev.ID)
	if err != nil {
		return queue.Result{}, err
	}

	text, err := o.evidenceText(ctx, ev.ID)
	if err != nil {
		return queue.Result{}, err
	}

	if !present[models.ArtifactHeadline] {
		payload, err := o.generateArtifact(ctx, ev, models.ArtifactHeadline,
			coreSystemPrompt, headlinePrompt(ev, text))
		if err != nil {
			return o.quarantine(ctx, ev, fmt.Sprintf("headline generation failed: %v", err)), nil
		}
		present[models.ArtifactHeadline] = true

		var headline HeadlinePayload
		if err := json.Unmarshal(payload, &headline); err == nil {
			if err := o.events.SetImpactLevel(ctx, ev.ID, models.ImpactLevel(headline.ImpactLevel)); err != nil {
				return queue.Result{}, err
			}
		}
	}

	for _, typ := range []models.ArtifactType{
		models.ArtifactWhatHappened,
		models.ArtifactSummary,
		models.ArtifactWhyMatters,
	} {
		if present[typ] {
			continue
		}
		if _, err := o.generateArtifact(ctx, ev, typ, coreSystemPrompt, textPrompt(ev, text, typ)); err != nil {
			return o.quarantine(ctx, ev, fmt.Sprintf("%s generation failed: %v", typ, err)), nil
		}
		present[typ] = true
	}

	// GM_TAKE is editorial garnish, not part of the required set; losing it
	// does not quarantine the event.
	if !present[models.ArtifactGMTake] {
		if _, err := o.generateArtifact(ctx, ev, models.ArtifactGMTake, coreSystemPrompt, textPrompt(ev, text, models.ArtifactGMTake)); err != nil {
			o.logger.Warn("gm take generation failed, continuing", "event_id", ev.ID, "error", err)
		}
	}

	o.logger.Info("core artifacts complete", "event_id", ev.ID)

	if readyForEnriched(ev.Status, present) {
		if err := o.events.UpdateStatus(ctx, ev.ID, ev.Status, models.EventStatusEnriched, "required artifacts complete"); err != nil {
			return queue.Result{}, err
		}
		if o.metrics != nil {
			o.metrics.EventTransition(string(models.EventStatusEnriched))
		}
	}

	if o.notifier != nil && visible(ev.Status) {
		o.notifier.EventPublished(ctx, ev.ID)
	}

	return queue.OK(
		queue.NextJob{Queue: queue.QueueEnrich, Payload: models.EnrichJob{EventID: ev.ID, Stage: models.StageEntityExtract}},
		queue.NextJob{Queue: queue.QueueEnrich, Payload: models.EnrichJob{EventID: ev.ID, Stage: models.StageTopicAssign}},
	), nil
}

// handleBranch runs one side of the fan-out and fires the join when both
// branches have landed.
func (o *Orchestrator) handleBranch(ctx context.Context, ev *models.Event, stage models.EnrichStage) (queue.Result, error) {
	var err error
	switch stage {
	case models.StageEntityExtract:
		err = o.extractEntities(ctx, ev)
	case models.StageTopicAssign:
		err = o.assignTopics(ctx, ev)
	}
	if err != nil {
		return o.quarantine(ctx, ev, fmt.Sprintf("%s failed: %v", stage, err)), nil
	}

	if o.fanin.BranchDone(ev.ID, stage) {
		o.logger.Debug("fan-in complete", "event_id", ev.ID)
		return queue.OK(queue.NextJob{
			Queue:   queue.QueueEnrich,
			Payload: models.EnrichJob{EventID: ev.ID, Stage: models.StageRelationshipExtract},
		}), nil
	}
	return queue.OK(), nil
}

func (o *Orchestrator) extractEntities(ctx context.Context, ev *models.Event) error {
	var payload json.RawMessage

	if existing, err := o.artifacts.Latest(ctx, ev.ID, models.ArtifactEntityExtract); err != nil {
		return err
	} else if existing != nil {
		payload = existing.Payload
	} else {
		text, err := o.evidenceText(ctx, ev.ID)
		if err != nil {
			return err
		}
		payload, err = o.generateArtifact(ctx, ev, models.ArtifactEntityExtract,
			entitySystemPrompt, entityPrompt(ev, text))
		if err != nil {
			return err
		}
	}

	var extracted EntityExtractPayload
	if err := json.Unmarshal(payload, &extracted); err != nil {
		return fmt.Errorf("failed to decode entity payload: %w", err)
	}

	for _, e := range extracted.Entities {
		entity, err := o.entities.UpsertEntity(ctx, models.Entity{
			Slug: Slugify(e.Name),
			Name: e.Name,
			Type: models.EntityType(e.Type),
		})
		if err != nil {
			return err
		}
		if err := o.entities.UpsertMention(ctx, models.Mention{
			EventID:    ev.ID,
			EntityID:   entity.ID,
			Role:       models.MentionRole(e.Role),
			Confidence: e.Confidence,
		}); err != nil {
			return err
		}
	}

	o.logger.Info("entities extracted", "event_id", ev.ID, "count", len(extracted.Entities))
	return nil
}

func (o *Orchestrator) assignTopics(ctx context.Context, ev *models.Event) error {
	var payload json.RawMessage

	if existing, err := o.artifacts.Latest(ctx, ev.ID, models.ArtifactTopicAssign); err != nil {
		return err
	} else if existing != nil {
		payload = existing.Payload
	} else {
		text, err := o.evidenceText(ctx, ev.ID)
		if err != nil {
			return err
		}
		payload, err = o.generateArtifact(ctx, ev, models.ArtifactTopicAssign,
			topicSystemPrompt, topicPrompt(ev, text))
		if err != nil {
			return err
		}
	}

	var assigned TopicAssignPayload
	if err := json.Unmarshal(payload, &assigned); err != nil {
		return fmt.Errorf("failed to decode topic payload: %w", err)
	}

	for _, t := range assigned.Topics {
		topic, err := o.topics.UpsertTopic(ctx, t.Slug)
		if err != nil {
			return err
		}
		if err := o.topics.AssignTopic(ctx, models.EventTopic{
			EventID:    ev.ID,
			TopicID:    topic.ID,
			Confidence: t.Confidence,
		}); err != nil {
			return err
		}
	}

	o.logger.Info("topics assigned", "event_id", ev.ID, "count", len(assigned.Topics))
	return nil
}

// handleRelationships proposes relationships between the event's mentioned
// entities and passes every proposal through the safety gate.
func (o *Orchestrator) handleRelationships(ctx context.Context, ev *models.Event) (queue.Result, error) {
	next := queue.NextJob{
		Queue:   queue.QueueEnrich,
		Payload: models.EnrichJob{EventID: ev.ID, Stage: models.StageWatchlistMatch},
	}

	if existing, err := o.artifacts.Latest(ctx, ev.ID, models.ArtifactRelationshipExtract); err != nil {
		return queue.Result{}, err
	} else if existing != nil {
		return queue.OK(next), nil
	}

	slugs, err := o.entities.MentionedSlugs(ctx, ev.ID)
	if err != nil {
		return queue.Result{}, err
	}

	// Relationships need two endpoints; a thin mention set gets an empty
	// artifact so the sweeper sees the stage as done.
	if len(slugs) < 2 {
		empty, _ := json.Marshal(RelationshipExtractPayload{Relationships: []ProposedRelationship{}})
		if _, err := o.artifacts.Insert(ctx, ev.ID, models.ArtifactRelationshipExtract, empty, "none"); err != nil {
			return queue.Result{}, err
		}
		return queue.OK(next), nil
	}

	text, err := o.evidenceText(ctx, ev.ID)
	if err != nil {
		return queue.Result{}, err
	}

	payload, err := o.generateArtifact(ctx, ev, models.ArtifactRelationshipExtract,
		relationshipSystemPrompt, relationshipPrompt(ev, text, slugs))
	if err != nil {
		return o.quarantine(ctx, ev, fmt.Sprintf("relationship extraction failed: %v", err)), nil
	}

	var proposals RelationshipExtractPayload
	if err := json.Unmarshal(payload, &proposals); err != nil {
		return queue.Result{}, fmt.Errorf("failed to decode relationship payload: %w", err)
	}

	profile, err := o.evidence.TrustProfile(ctx, ev.ID)
	if err != nil {
		return queue.Result{}, err
	}

	known := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		known[s] = true
	}

	for _, p := range proposals.Relationships {
		if !known[p.Source] || !known[p.Target] {
			o.logger.Warn("relationship references unknown entity, dropping",
				"event_id", ev.ID, "source", p.Source, "target", p.Target)
			continue
		}

		source, err := o.entities.GetBySlug(ctx, p.Source)
		if err != nil {
			return queue.Result{}, err
		}
		target, err := o.entities.GetBySlug(ctx, p.Target)
		if err != nil {
			return queue.Result{}, err
		}
		if source == nil || target == nil {
			continue
		}

		typ := models.RelationshipType(p.Type)
		status := GateRelationship(typ, profile)

		if _, err := o.entities.CreateRelationship(ctx, models.Relationship{
			SourceEntityID:  source.ID,
			TargetEntityID:  target.ID,
			Type:            typ,
			EventID:         ev.ID,
			Status:          status,
			ModelConfidence: p.Confidence,
		}); err != nil {
			return queue.Result{}, err
		}

		if o.metrics != nil {
			o.metrics.RelationshipGated(string(status))
		}
		o.logger.Info("relationship gated",
			"event_id", ev.ID,
			"type", typ,
			"risk", typ.Risk(),
			"status", status)
	}

	return queue.OK(next), nil
}

// handleWatchlist is the terminal stage: flag events that mention watched
// entities.
func (o *Orchestrator) handleWatchlist(ctx context.Context, ev *models.Event) (queue.Result, error) {
	lists, err := o.watchlists.List(ctx)
	if err != nil {
		return queue.Result{}, err
	}
	if len(lists) == 0 {
		return queue.Skip("no watchlists configured"), nil
	}

	slugs, err := o.entities.MentionedSlugs(ctx, ev.ID)
	if err != nil {
		return queue.Result{}, err
	}

	mentioned := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		mentioned[s] = true
	}

	matches := 0
	for _, list := range lists {
		for _, watched := range list.Slugs {
			if !mentioned[watched] {
				continue
			}
			if err := o.watchlists.RecordMatch(ctx, models.WatchlistMatch{
				WatchlistID: list.ID,
				EventID:     ev.ID,
				EntitySlug:  watched,
			}); err != nil {
				return queue.Result{}, err
			}
			matches++
			o.logger.Info("watchlist match",
				"event_id", ev.ID,
				"watchlist", list.Name,
				"entity", watched)
		}
	}

	if matches == 0 {
		return queue.Skip("no watchlist matches"), nil
	}
	return queue.OK(), nil
}
