// Package transcribe submits media to the hosted speech-to-text service.
// Transcription is always submit-now/callback-later: the service POSTs its
// result to our callback endpoint once the transcript is ready.
package transcribe

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

const defaultTimeout = 15 * time.Second

// Options controls how the transcription client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client wraps the transcription HTTP API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// SubmitRequest describes one transcription submission. WebhookSecret, when
// set, is the HMAC key the service must sign its callback delivery with.
type SubmitRequest struct {
	MediaURL      string
	CallbackURL   string
	ProjectID     string
	Language      string
	WebhookSecret string
}

// SubmitAck acknowledges an accepted submission.
type SubmitAck struct {
	JobRef string
}

type submitPayload struct {
	AudioURL      string `json:"audio_url"`
	WebhookURL    string `json:"webhook_url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
	Reference     string `json:"reference"`
	Language      string `json:"language_code,omitempty"`
	SRT           bool   `json:"srt"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewClient constructs a transcription client.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("transcribe: api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("transcribe: base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{apiKey: opts.APIKey, baseURL: baseURL, client: client}, nil
}

// Submit dispatches a transcription job. Network and service errors surface as
// ErrUnavailable; the adapter performs no retries of its own.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitAck, error) {
	if req.MediaURL == "" || req.CallbackURL == "" {
		return nil, errors.New("transcribe: media url and callback url are required")
	}
	body, err := json.Marshal(submitPayload{
		AudioURL:      req.MediaURL,
		WebhookURL:    req.CallbackURL,
		WebhookSecret: req.WebhookSecret,
		Reference:     req.ProjectID,
		Language:      req.Language,
		SRT:           true,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcripts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if decoded.ID == "" {
		return nil, fmt.Errorf("%w: response missing job id", ErrUnavailable)
	}
	return &SubmitAck{JobRef: decoded.ID}, nil
}

// ErrUnavailable marks transport or service failures from the transcription
// endpoint.
var ErrUnavailable = errors.New("transcription service unavailable")
