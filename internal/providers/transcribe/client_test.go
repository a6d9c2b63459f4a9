package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubmitSendsCallbackAndReference(t *testing.T) {
	var got submitPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcripts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(submitResponse{ID: "tr_123", Status: "queued"})
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ack, err := client.Submit(context.Background(), SubmitRequest{
		MediaURL:      "https://cdn.example/media.mp4",
		CallbackURL:   "https://api.example/v1/callbacks/caption",
		ProjectID:     "proj-1",
		WebhookSecret: "cb-secret",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ack.JobRef != "tr_123" {
		t.Fatalf("JobRef = %q", ack.JobRef)
	}
	if got.WebhookURL != "https://api.example/v1/callbacks/caption" || got.Reference != "proj-1" || !got.SRT {
		t.Fatalf("payload = %+v", got)
	}
	if got.WebhookSecret != "cb-secret" {
		t.Fatalf("webhook secret = %q", got.WebhookSecret)
	}
}

func TestSubmitServiceErrorMapsToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Submit(context.Background(), SubmitRequest{MediaURL: "u", CallbackURL: "cb"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Options{BaseURL: "https://x"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
