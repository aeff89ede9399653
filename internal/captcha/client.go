package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

var (
	// ErrIncomplete is returned for verifications missing id or solution.
	ErrIncomplete = errors.New("captcha: verification incomplete")
	// ErrRejected is returned when the service does not accept the solution.
	ErrRejected = errors.New("captcha: verification rejected")
)

// Client verifies widget results server side.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient builds a verification client. When baseURL is empty every
// complete verification is accepted locally.
func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		secret:  strings.TrimSpace(secret),
		http:    &http.Client{Timeout: timeout},
	}
}

// Local reports whether the client runs without a remote service.
func (c *Client) Local() bool {
	return c == nil || c.baseURL == ""
}

type verifyRequest struct {
	ID       string `json:"id"`
	Solution string `json:"solution"`
	Token    string `json:"token,omitempty"`
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// Verify checks v with the captcha service.
func (c *Client) Verify(ctx context.Context, v Verification) error {
	if !v.Complete() {
		return ErrIncomplete
	}
	if c.Local() {
		return nil
	}

	endpoint, err := url.JoinPath(c.baseURL, "verify")
	if err != nil {
		return err
	}
	payload, err := json.Marshal(verifyRequest{
		ID:       strings.TrimSpace(v.ID),
		Solution: strings.TrimSpace(v.Solution),
		Token:    strings.TrimSpace(v.Token),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("captcha: verify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("captcha: verify status %d: %s", resp.StatusCode, drainError(resp.Body))
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("captcha: decode response: %w", err)
	}
	if !body.Valid || resp.StatusCode >= http.StatusBadRequest {
		if body.Reason != "" {
			return fmt.Errorf("%w: %s", ErrRejected, body.Reason)
		}
		return ErrRejected
	}
	return nil
}

func drainError(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
