package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"chainpost/internal/providers/queue"
)

// Loopback stands in for the transcription service when no API key is
// configured. It accepts submissions and shortly after delivers a synthetic
// completed result to the callback URL, so the asynchronous flow behaves the
// same in development as in production.
type Loopback struct {
	client *http.Client
	delay  time.Duration
}

func NewLoopback(client *http.Client, delay time.Duration) *Loopback {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Loopback{client: client, delay: delay}
}

func (l *Loopback) Submit(ctx context.Context, req SubmitRequest) (*SubmitAck, error) {
	if req.MediaURL == "" || req.CallbackURL == "" {
		return nil, fmt.Errorf("transcribe: media url and callback url are required")
	}
	go l.deliver(req)
	return &SubmitAck{JobRef: "loopback-" + req.ProjectID}, nil
}

func (l *Loopback) deliver(req SubmitRequest) {
	time.Sleep(l.delay)

	text := syntheticTranscript(req.MediaURL)
	body, _ := json.Marshal(map[string]string{
		"reference": req.ProjectID,
		"status":    "completed",
		"text":      text,
		"srt":       "1\n00:00:00,000 --> 00:00:02,000\n" + text + "\n",
	})
	httpReq, err := http.NewRequest(http.MethodPost, req.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.WebhookSecret != "" {
		httpReq.Header.Set(queue.SignatureHeader, queue.Sign(req.WebhookSecret, body))
	}
	resp, err := l.client.Do(httpReq)
	if err != nil {
		return
	}
	resp.Body.Close()
}

func syntheticTranscript(mediaURL string) string {
	name := path.Base(mediaURL)
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	if name == "" || name == "." || name == "/" {
		name = "your clip"
	}
	return "Sample transcript for " + name + "."
}
