package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chainpost/internal/providers/queue"
)

func TestLoopbackDeliversCompletedCallback(t *testing.T) {
	received := make(chan map[string]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode callback: %v", err)
		}
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	lb := NewLoopback(srv.Client(), time.Millisecond)
	ack, err := lb.Submit(context.Background(), SubmitRequest{
		MediaURL:    "https://cdn.example.com/uploads/user-1/demo.mp4",
		CallbackURL: srv.URL + "/v1/callbacks/caption",
		ProjectID:   "proj-1",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if ack.JobRef != "loopback-proj-1" {
		t.Fatalf("job ref = %q", ack.JobRef)
	}

	select {
	case body := <-received:
		if body["reference"] != "proj-1" || body["status"] != "completed" {
			t.Fatalf("callback body = %v", body)
		}
		if body["text"] == "" || body["srt"] == "" {
			t.Fatalf("callback missing transcript fields: %v", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not delivered")
	}
}

func TestLoopbackSignsDeliveries(t *testing.T) {
	type delivery struct {
		body      []byte
		signature string
	}
	received := make(chan delivery, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		received <- delivery{body: raw, signature: r.Header.Get(queue.SignatureHeader)}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	lb := NewLoopback(srv.Client(), time.Millisecond)
	_, err := lb.Submit(context.Background(), SubmitRequest{
		MediaURL:      "https://cdn.example.com/uploads/user-1/demo.mp4",
		CallbackURL:   srv.URL + "/v1/callbacks/caption",
		ProjectID:     "proj-1",
		WebhookSecret: "cb-secret",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case d := <-received:
		if d.signature == "" {
			t.Fatal("delivery carried no signature")
		}
		if !queue.VerifySignature("cb-secret", d.body, d.signature) {
			t.Fatalf("signature %q does not verify against the delivered body", d.signature)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not delivered")
	}
}

func TestLoopbackRequiresURLs(t *testing.T) {
	lb := NewLoopback(nil, time.Millisecond)
	if _, err := lb.Submit(context.Background(), SubmitRequest{ProjectID: "proj-1"}); err == nil {
		t.Fatal("expected error for missing urls")
	}
}
