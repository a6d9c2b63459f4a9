package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Direct delivers payloads straight to the destination URL instead of going
// through the managed queue. Used in development when no queue token is
// configured; deliveries are signed the same way so callback verification
// still applies.
type Direct struct {
	signingKey string
	client     *http.Client
}

func NewDirect(signingKey string, client *http.Client) *Direct {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Direct{signingKey: signingKey, client: client}
}

func (d *Direct) Publish(ctx context.Context, destination string, payload []byte) error {
	if destination == "" {
		return errors.New("queue: destination is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.signingKey != "" {
		req.Header.Set(SignatureHeader, Sign(d.signingKey, payload))
	}
	resp, err := d.client.Do(req)
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
