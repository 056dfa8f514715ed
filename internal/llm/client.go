package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aiwire/observatory/internal/config"
)

const deepSeekBaseURL = "https://api.deepseek.com/v1"

// Client wraps an OpenAI-compatible chat-completions endpoint. The primary
// backend is a local Ollama server; DeepSeek serves as the hosted fallback
// when no base URL is configured.
type Client struct {
	api      *openai.Client
	provider string
	config   config.LLMConfig
	logger   *slog.Logger
	recorder *Recorder
}

// NewClient builds the chat client from config. Returns an error when
// neither backend is configured: every processor downstream needs one.
func NewClient(cfg config.LLMConfig, logger *slog.Logger, recorder *Recorder) (*Client, error) {
	provider := cfg.Provider()

	var clientCfg openai.ClientConfig
	switch provider {
	case "ollama":
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/v1"
	case "deepseek":
		clientCfg = openai.DefaultConfig(cfg.DeepSeekKey)
		clientCfg.BaseURL = deepSeekBaseURL
	default:
		return nil, fmt.Errorf("no llm backend configured: set OLLAMA_BASE_URL or DEEPSEEK_API_KEY")
	}

	logger.Info("initialized llm client",
		"provider", provider,
		"model_fast", cfg.ModelFast,
		"model_backup", cfg.ModelBackup,
		"timeout", cfg.Timeout)

	return &Client{
		api:      openai.NewClientWithConfig(clientCfg),
		provider: provider,
		config:   cfg,
		logger:   logger,
		recorder: recorder,
	}, nil
}

// Provider reports which backend the client talks to.
func (c *Client) Provider() string {
	return c.provider
}

// FastModel returns the model used for routine extraction work.
func (c *Client) FastModel() string {
	return c.config.ModelFast
}

// BackupModel returns the model used when the fast model misbehaves.
func (c *Client) BackupModel() string {
	return c.config.ModelBackup
}

// Request describes one JSON-mode chat completion.
type Request struct {
	Model     string
	System    string
	User      string
	MaxTokens int
	Processor string  // which pipeline stage is calling, for the run log
	EventID   *string // owning event, when known
	InputHash string  // SHA256 of the domain inputs, for replay detection
}

// Complete performs a JSON-mode chat completion with retry on rate limiting.
// The raw message content is returned; callers own parsing and validation.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.config.ModelFast
	}

	prompt := req.System + "\n\n" + req.User

	request := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: c.config.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	}
	if req.MaxTokens > 0 {
		request.MaxTokens = req.MaxTokens
	}

	maxRetries := 3
	baseDelay := time.Second

	var resp openai.ChatCompletionResponse
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		apiCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		start := time.Now()
		resp, err = c.api.CreateChatCompletion(apiCtx, request)
		latency := time.Since(start)
		cancel()

		if c.recorder != nil {
			c.recorder.Record(RunParams{
				Provider:  c.provider,
				Model:     model,
				Processor: req.Processor,
				EventID:   req.EventID,
				Prompt:    prompt,
				InputHash: req.InputHash,
				Usage:     resp.Usage,
				Latency:   latency,
				Err:       err,
			})
		}

		if err == nil {
			break
		}

		if isRateLimited(err) && attempt < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<uint(attempt))
			delay += time.Duration(rand.Intn(500)) * time.Millisecond
			c.logger.Warn("llm rate limited, retrying",
				"processor", req.Processor,
				"attempt", attempt+1,
				"delay_ms", delay.Milliseconds())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}
		break
	}

	if err != nil {
		return "", fmt.Errorf("llm call failed for %s: %w", req.Processor, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices from model %s", model)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty response from model %s (finish_reason: %s)",
			model, resp.Choices[0].FinishReason)
	}

	return content, nil
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(msg, "Rate limit")
}

// HashPrompt returns the truncated SHA-256 digest used for prompt identity
// in the run log.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])[:32]
}

// HashInput digests the domain inputs of a call so identical re-runs can be
// spotted in the log. Fields are joined with a separator that cannot appear
// in IDs.
func HashInput(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])[:32]
}
