package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const userAgent = "observatory/1.0 (+https://github.com/aiwire/observatory)"

// fetcher is the shared HTTP plumbing for all adapters: one client, one
// user agent, and a per-host pacing limit so no upstream sees bursts.
type fetcher struct {
	client  *http.Client
	limiter *rateLimiter
	logger  *slog.Logger
}

func newFetcher(timeout time.Duration, logger *slog.Logger) *fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &fetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: newRateLimiter(1500 * time.Millisecond),
		logger:  logger,
	}
}

// do performs one paced request and returns the body on HTTP 200.
func (f *fetcher) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	if err := f.limiter.wait(ctx, req.URL.Host); err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, req.URL.Host)
	}

	return body, nil
}

// getBytes fetches a URL with optional extra headers.
func (f *fetcher) getBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return f.do(ctx, req)
}

// getJSON fetches a URL and decodes the JSON response into v.
func (f *fetcher) getJSON(ctx context.Context, url string, headers map[string]string, v any) error {
	body, err := f.getBytes(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// postForm posts url-encoded form data and decodes the JSON response.
func (f *fetcher) postForm(ctx context.Context, url string, form string, headers map[string]string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(form))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	body, err := f.do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// postJSON posts a JSON body and decodes the JSON response.
func (f *fetcher) postJSON(ctx context.Context, url string, payload any, headers map[string]string, v any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	body, err := f.do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// rateLimiter enforces a minimum interval between requests to the same host.
type rateLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{
		last:     make(map[string]time.Time),
		interval: interval,
	}
}

func (l *rateLimiter) wait(ctx context.Context, key string) error {
	l.mu.Lock()
	now := time.Now()
	next := l.last[key].Add(l.interval)
	if next.Before(now) {
		next = now
	}
	l.last[key] = next
	l.mu.Unlock()

	delay := time.Until(next)
	if delay <= 0 {
		return nil
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tokenCache holds one OAuth access token until shortly before expiry.
type tokenCache struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
}

// get returns the cached token, calling fetch when the cache is cold or
// within a minute of expiring.
func (c *tokenCache) get(ctx context.Context, fetch func(ctx context.Context) (string, time.Duration, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiry) {
		return c.token, nil
	}

	token, ttl, err := fetch(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiry = time.Now().Add(ttl - time.Minute)
	return token, nil
}
