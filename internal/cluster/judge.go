package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/database"
	"github.com/aiwire/observatory/internal/events"
	"github.com/aiwire/observatory/internal/llm"
	"github.com/aiwire/observatory/internal/models"
	"github.com/aiwire/observatory/internal/queue"
)

const (
	candidateWindow     = 72 * time.Hour
	similarityThreshold = 0.15
	maxCandidates       = 10
)

// Judge decides whether a snapshot describes an already-known event or a
// new one. The prefilter is deterministic; only ambiguous cases reach the
// LLM, and every failure mode defaults to new (a duplicate event is
// recoverable, a wrongly merged one is not).
type Judge struct {
	evidence     *database.EvidenceRepository
	events       *database.EventRepository
	llm          *llm.Client
	materializer *events.Materializer
	logger       *slog.Logger
}

// NewJudge creates the cluster judge.
func NewJudge(
	evidence *database.EvidenceRepository,
	eventRepo *database.EventRepository,
	client *llm.Client,
	materializer *events.Materializer,
	logger *slog.Logger,
) *Judge {
	return &Judge{
		evidence:     evidence,
		events:       eventRepo,
		llm:          client,
		materializer: materializer,
		logger:       logger,
	}
}

// Handle consumes one cluster job.
func (j *Judge) Handle(ctx context.Context, job *queue.Job) (queue.Result, error) {
	var payload models.ClusterJob
	if err := job.Bind(&payload); err != nil {
		return queue.Fail(err.Error()), nil
	}

	snap, err := j.evidence.GetSnapshot(ctx, payload.SnapshotID)
	if err != nil {
		return queue.Result{}, err
	}
	if snap == nil {
		return queue.Fail(fmt.Sprintf("snapshot %s not found", payload.SnapshotID)), nil
	}

	// Replayed jobs: a linked snapshot has already been judged.
	linked, err := j.evidence.LinkedEventID(ctx, snap.ID)
	if err != nil {
		return queue.Result{}, err
	}
	if linked != "" {
		return queue.Skip("snapshot already linked to event " + linked), nil
	}

	matchID, err := j.decide(ctx, snap)
	if err != nil {
		return queue.Result{}, err
	}

	if matchID == "" {
		if _, err := j.materializer.PlaceNew(ctx, snap); err != nil {
			return queue.Result{}, err
		}
		return queue.OK(), nil
	}

	if err := j.materializer.PlaceMatch(ctx, matchID, snap); err != nil {
		return queue.Result{}, err
	}
	return queue.OK(), nil
}

// decide returns the matched event ID, or "" for new.
func (j *Judge) decide(ctx context.Context, snap *models.EvidenceSnapshot) (string, error) {
	center := snap.FetchedAt
	if snap.PublishedAt != nil {
		center = *snap.PublishedAt
	}

	window, err := j.events.CandidatesInWindow(ctx, center, candidateWindow)
	if err != nil {
		return "", err
	}

	candidates := prefilter(snap.Title, window)
	if len(candidates) == 0 {
		j.logger.Debug("no candidates above threshold", "snapshot_id", snap.ID)
		return "", nil
	}

	return j.judgeWithLLM(ctx, snap, candidates)
}

type scoredCandidate struct {
	event models.Event
	score float64
}

// prefilter keeps the top candidates by bigram similarity.
func prefilter(title string, window []models.Event) []scoredCandidate {
	normalized := events.NormalizeTitle(title)

	var scored []scoredCandidate
	for _, ev := range window {
		s := Similarity(normalized, events.NormalizeTitle(ev.Title))
		if s >= similarityThreshold {
			scored = append(scored, scoredCandidate{event: ev, score: s})
		}
	}

	sort.Slice(scored, func(i, k int) bool { return scored[i].score > scored[k].score })
	if len(scored) > maxCandidates {
		scored = scored[:maxCandidates]
	}
	return scored
}

type verdict struct {
	MatchedEventID string  `json:"matchedEventId"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

const judgeSystemPrompt = `You deduplicate AI news. Given a headline and a list of recent events, decide whether the headline reports one of those events or something new. Respond with JSON only: {"matchedEventId": "<id or empty string>", "confidence": <0..1>, "reason": "<one sentence>"}`

// judgeUserPrompt lists each candidate with its id, title, source count, and
// occurrence date so the model can weigh corroboration alongside wording.
func judgeUserPrompt(headline string, candidates []scoredCandidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Headline: %s\n\nRecent events:\n", headline)
	for _, c := range candidates {
		fmt.Fprintf(&sb, "- id=%s title=%q sources=%d occurred=%s\n",
			c.event.ID, c.event.Title, c.event.SourceCount, c.event.OccurredAt.Format("2006-01-02"))
	}
	sb.WriteString("\nIf the headline covers one of these events, return its id; otherwise return an empty matchedEventId.")
	return sb.String()
}

func (j *Judge) judgeWithLLM(ctx context.Context, snap *models.EvidenceSnapshot, candidates []scoredCandidate) (string, error) {
	content, err := j.llm.Complete(ctx, llm.Request{
		System:    judgeSystemPrompt,
		User:      judgeUserPrompt(snap.Title, candidates),
		MaxTokens: 300,
		Processor: "cluster_judge",
		InputHash: llm.HashInput(snap.ID, snap.Title),
	})
	if err != nil {
		j.logger.Warn("llm judge failed, defaulting to new", "snapshot_id", snap.ID, "error", err)
		return "", nil
	}

	var v verdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		j.logger.Warn("unparseable judge verdict, defaulting to new",
			"snapshot_id", snap.ID,
			"error", err)
		return "", nil
	}

	if v.MatchedEventID == "" {
		return "", nil
	}

	// Only IDs from the candidate list are accepted; anything else is a
	// hallucination and falls back to new.
	for _, c := range candidates {
		if c.event.ID == v.MatchedEventID {
			j.logger.Info("judge matched snapshot to event",
				"snapshot_id", snap.ID,
				"event_id", v.MatchedEventID,
				"reason", v.Reason)
			return v.MatchedEventID, nil
		}
	}

	j.logger.Warn("judge returned unknown event id, defaulting to new",
		"snapshot_id", snap.ID,
		"returned_id", v.MatchedEventID)
	return "", nil
}
