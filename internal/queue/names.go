package queue

// Queue names. Each pipeline stage consumes exactly one queue.
const (
	QueueIngest   = "ingest"
	QueueSnapshot = "snapshot"
	QueueCluster  = "cluster"
	QueueEnrich   = "enrich"
	QueueBriefing = "briefing"
)
