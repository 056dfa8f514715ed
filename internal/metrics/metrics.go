package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineCollector exposes Prometheus metrics for the ingestion and
// enrichment pipeline.
type PipelineCollector struct {
	registry *prometheus.Registry

	jobsProcessed *prometheus.CounterVec
	jobsRetried   *prometheus.CounterVec
	jobsDead      *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec

	llmTokens  *prometheus.CounterVec
	llmCostUSD *prometheus.CounterVec
	llmCalls   *prometheus.CounterVec

	eventsByStatus     *prometheus.CounterVec
	broadcastFailures  prometheus.Counter
	adapterItems       *prometheus.CounterVec
	relationshipsGated *prometheus.CounterVec
}

// NewPipelineCollector constructs a collector with the pipeline's counters
// and histograms registered on a private registry.
func NewPipelineCollector() (*PipelineCollector, error) {
	registry := prometheus.NewRegistry()

	c := &PipelineCollector{
		registry: registry,
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "observatory",
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Jobs processed per queue, labeled by outcome.",
		}, []string{"queue", "outcome"}),
		jobsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "observatory",
			Subsystem: "queue",
			Name:      "jobs_retried_total",
			Help:      "Jobs scheduled for retry per queue.",
		}, []string{"queue"}),
		jobsDead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "observatory",
			Subsystem: "queue",
			Name:      "jobs_dead_lettered_total",
			Help:      "Jobs dead-lettered after exhausting attempts.",
		}, []string{"queue"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "observatory",
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Handler latency distribution per queue.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "observatory",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "LLM tokens consumed, labeled by processor and direction.",
		}, []string{"processor", "direction"}),
		llmCostUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "observatory",
			Subsystem: "llm",
			Name:      "cost_usd_total",
			Help:      "Estimated LLM spend in USD per processor.",
		}, []string{"processor"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "observatory",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM calls, labeled by processor and status.",
		}, []string{"processor", "status"}),
		eventsByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "observatory",
			Subsystem: "events",
			Name:      "transitions_total",
			Help:      "Event status transitions.",
		}, []string{"to_status"}),
		broadcastFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "observatory",
			Subsystem: "broadcast",
			Name:      "failures_total",
			Help:      "Broadcast POSTs that did not reach the SSE endpoint.",
		}),
		adapterItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "observatory",
			Subsystem: "feeds",
			Name:      "items_total",
			Help:      "Raw items collected per feed adapter.",
		}, []string{"source"}),
		relationshipsGated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "observatory",
			Subsystem: "safety",
			Name:      "relationships_total",
			Help:      "Relationship proposals by gate decision.",
		}, []string{"decision"}),
	}

	collectors := []prometheus.Collector{
		c.jobsProcessed, c.jobsRetried, c.jobsDead, c.jobDuration,
		c.llmTokens, c.llmCostUSD, c.llmCalls,
		c.eventsByStatus, c.broadcastFailures, c.adapterItems, c.relationshipsGated,
	}
	for _, col := range collectors {
		if err := registry.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *PipelineCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveJob records one handled job.
func (c *PipelineCollector) ObserveJob(queue, outcome string, seconds float64) {
	c.jobsProcessed.WithLabelValues(queue, outcome).Inc()
	c.jobDuration.WithLabelValues(queue).Observe(seconds)
}

// JobRetried records a retry scheduling.
func (c *PipelineCollector) JobRetried(queue string) {
	c.jobsRetried.WithLabelValues(queue).Inc()
}

// JobDeadLettered records an exhausted job.
func (c *PipelineCollector) JobDeadLettered(queue string) {
	c.jobsDead.WithLabelValues(queue).Inc()
}

// ObserveLLM records tokens, cost and status for one LLM call.
func (c *PipelineCollector) ObserveLLM(processor string, inputTokens, outputTokens int, costUSD float64, success bool) {
	c.llmTokens.WithLabelValues(processor, "input").Add(float64(inputTokens))
	c.llmTokens.WithLabelValues(processor, "output").Add(float64(outputTokens))
	c.llmCostUSD.WithLabelValues(processor).Add(costUSD)
	status := "success"
	if !success {
		status = "error"
	}
	c.llmCalls.WithLabelValues(processor, status).Inc()
}

// EventTransition records a status change.
func (c *PipelineCollector) EventTransition(toStatus string) {
	c.eventsByStatus.WithLabelValues(toStatus).Inc()
}

// BroadcastFailed records a failed broadcast POST.
func (c *PipelineCollector) BroadcastFailed() {
	c.broadcastFailures.Inc()
}

// AdapterItems records how many items a feed adapter returned.
func (c *PipelineCollector) AdapterItems(source string, n int) {
	c.adapterItems.WithLabelValues(source).Add(float64(n))
}

// RelationshipGated records a safety-gate decision.
func (c *PipelineCollector) RelationshipGated(decision string) {
	c.relationshipsGated.WithLabelValues(decision).Inc()
}
