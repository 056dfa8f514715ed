package models

// Job payloads carried on the pipeline queues. A payload only holds the
// identifiers the next stage needs; everything else is re-read from the
// store so replayed jobs see current state.

// IngestJob triggers a full collection cycle over the feed adapters.
type IngestJob struct {
	Trigger string `json:"trigger"` // "cron" or "manual"
}

// SnapshotJob carries one raw item to be canonicalized and captured.
type SnapshotJob struct {
	Item RawItem `json:"item"`
}

// ClusterJob asks the judge to place a snapshot against recent events.
type ClusterJob struct {
	SnapshotID string `json:"snapshot_id"`
}

// EnrichStage names one step of the enrichment flow.
type EnrichStage string

const (
	StageCoreArtifacts       EnrichStage = "core_artifacts"
	StageEntityExtract       EnrichStage = "entity_extract"
	StageTopicAssign         EnrichStage = "topic_assign"
	StageRelationshipExtract EnrichStage = "relationship_extract"
	StageWatchlistMatch      EnrichStage = "watchlist_match"
)

// EnrichJob advances one event through one enrichment stage.
type EnrichJob struct {
	EventID string      `json:"event_id"`
	Stage   EnrichStage `json:"stage"`
}

// BriefingJob requests the daily briefing for a date (YYYY-MM-DD); an empty
// date means yesterday.
type BriefingJob struct {
	Date    string `json:"date,omitempty"`
	Trigger string `json:"trigger"`
}
