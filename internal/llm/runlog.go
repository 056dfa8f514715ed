package llm

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aiwire/observatory/internal/database"
	"github.com/aiwire/observatory/internal/metrics"
	"github.com/aiwire/observatory/internal/models"
)

// Recorder persists one llm_runs row per call, asynchronously so the
// pipeline never blocks on its own audit trail.
type Recorder struct {
	repo    *database.LLMRunRepository
	metrics *metrics.PipelineCollector
	logger  *slog.Logger
}

// NewRecorder creates a run recorder.
func NewRecorder(repo *database.LLMRunRepository, collector *metrics.PipelineCollector, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, metrics: collector, logger: logger}
}

// RunParams carries everything the recorder needs about one call.
type RunParams struct {
	Provider  string
	Model     string
	Processor string
	EventID   *string
	Prompt    string
	InputHash string
	Usage     openai.Usage
	Latency   time.Duration
	Err       error
}

// Record writes the run in the background.
func (r *Recorder) Record(p RunParams) {
	run := models.LLMRun{
		Provider:     p.Provider,
		Model:        p.Model,
		InputTokens:  p.Usage.PromptTokens,
		OutputTokens: p.Usage.CompletionTokens,
		TotalTokens:  p.Usage.TotalTokens,
		CostUSD:      estimateCost(p.Provider, p.Model, p.Usage.PromptTokens, p.Usage.CompletionTokens),
		LatencyMs:    int(p.Latency.Milliseconds()),
		PromptHash:   HashPrompt(p.Prompt),
		InputHash:    p.InputHash,
		Processor:    p.Processor,
		EventID:      p.EventID,
		Status:       "success",
	}
	if p.Err != nil {
		run.Status = "error"
		msg := p.Err.Error()
		run.ErrorMessage = &msg
	}

	if r.metrics != nil {
		r.metrics.ObserveLLM(p.Processor, run.InputTokens, run.OutputTokens, run.CostUSD, p.Err == nil)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.repo.Create(ctx, run); err != nil {
			r.logger.Error("failed to record llm run",
				"processor", p.Processor,
				"error", err)
		}
	}()
}

// estimateCost applies rough per-1M-token pricing. Local Ollama models cost
// nothing; hosted models use published rates with a conservative default.
func estimateCost(provider, model string, inputTokens, outputTokens int) float64 {
	if provider == "ollama" {
		return 0
	}

	var inPer1M, outPer1M float64
	switch model {
	case "deepseek-chat":
		inPer1M = 0.27
		outPer1M = 1.10
	case "deepseek-reasoner":
		inPer1M = 0.55
		outPer1M = 2.19
	default:
		inPer1M = 0.50
		outPer1M = 2.00
	}

	return (float64(inputTokens)/1_000_000)*inPer1M +
		(float64(outputTokens)/1_000_000)*outPer1M
}
