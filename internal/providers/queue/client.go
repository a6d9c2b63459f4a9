// Package queue publishes payloads to the hosted at-least-once job queue. The
// queue re-POSTs each payload to the given destination URL later; delivery
// authenticity is checked with an HMAC signature header.
package queue

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SignatureHeader carries the HMAC of the delivered body.
const SignatureHeader = "X-Queue-Signature"

const defaultTimeout = 10 * time.Second

// ErrUnavailable marks transport or service failures from the queue.
var ErrUnavailable = errors.New("job queue unavailable")

// Options controls how the queue client is configured.
type Options struct {
	BaseURL    string
	Token      string
	SigningKey string
	HTTPClient *http.Client
}

// Client wraps the queue's publish API.
type Client struct {
	baseURL    string
	token      string
	signingKey string
	client     *http.Client
}

// NewClient constructs a queue client.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("queue: base url is required")
	}
	if opts.Token == "" {
		return nil, errors.New("queue: token is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		token:      opts.Token,
		signingKey: opts.SigningKey,
		client:     client,
	}, nil
}

// Publish hands payload to the queue for later delivery to destination. The
// queue owns retries from here; the client makes exactly one attempt. When a
// signing key is configured the payload signature travels with the publish
// and the queue replays it on every delivery to the destination.
func (c *Client) Publish(ctx context.Context, destination string, payload []byte) error {
	if destination == "" {
		return errors.New("queue: destination is required")
	}
	endpoint := c.baseURL + "/publish/" + destination
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.signingKey != "" {
		req.Header.Set(SignatureHeader, Sign(c.signingKey, payload))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Sign computes the delivery signature for body.
func Sign(signingKey string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write(body)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an inbound delivery's signature header against body.
// An empty signing key disables verification (development mode).
func VerifySignature(signingKey string, body []byte, signature string) bool {
	if signingKey == "" {
		return true
	}
	expected := Sign(signingKey, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
