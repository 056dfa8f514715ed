package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aiwire/observatory/internal/metrics"
)

const (
	requestTimeout = 5 * time.Second
	tokenTTL       = 2 * time.Minute
)

// Hook posts publish notifications to the SSE broadcast endpoint. Delivery is
// best effort: a failure is logged and counted, never retried. Subscribers
// that miss a push catch up from the query layer.
type Hook struct {
	endpoint  string
	jwtSecret []byte
	client    *http.Client
	metrics   *metrics.PipelineCollector
	logger    *slog.Logger
}

// NewHook creates a broadcast hook. An empty endpoint disables it.
func NewHook(endpoint, jwtSecret string, collector *metrics.PipelineCollector, logger *slog.Logger) *Hook {
	return &Hook{
		endpoint:  endpoint,
		jwtSecret: []byte(jwtSecret),
		client:    &http.Client{Timeout: requestTimeout},
		metrics:   collector,
		logger:    logger,
	}
}

type notification struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
}

// EventPublished notifies the broadcast endpoint that an event became
// visible.
func (h *Hook) EventPublished(ctx context.Context, eventID string) {
	if h.endpoint == "" {
		return
	}

	if err := h.post(ctx, notification{Type: "new_event", EventID: eventID}); err != nil {
		if h.metrics != nil {
			h.metrics.BroadcastFailed()
		}
		h.logger.Warn("broadcast notification failed", "event_id", eventID, "error", err)
		return
	}

	h.logger.Debug("broadcast notification sent", "event_id", eventID)
}

func (h *Hook) post(ctx context.Context, n notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := h.serviceToken()
	if err != nil {
		return fmt.Errorf("failed to sign service token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("broadcast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("broadcast endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// serviceToken mints a short-lived HS256 token identifying the pipeline to
// the broadcast endpoint.
func (h *Hook) serviceToken() (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   "pipeline",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}
