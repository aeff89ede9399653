package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookChannel posts envelopes as JSON to the relay endpoint.
type WebhookChannel struct {
	url   string
	token string
	http  *http.Client
}

// NewWebhookChannel builds a relay channel. token is sent as a bearer
// credential when set.
func NewWebhookChannel(url, token string, timeout time.Duration) (*WebhookChannel, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("webhook channel: url is required")
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookChannel{
		url:   url,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: timeout},
	}, nil
}

// Name implements Channel.
func (c *WebhookChannel) Name() string { return "relay" }

// Deliver implements Channel.
func (c *WebhookChannel) Deliver(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", env.ID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &WebhookError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
}

// WebhookError reports a non-2xx relay response.
type WebhookError struct {
	Status int
	Body   string
}

func (e *WebhookError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("relay responded %d", e.Status)
	}
	return fmt.Sprintf("relay responded %d: %s", e.Status, e.Body)
}
