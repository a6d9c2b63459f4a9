package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chainpost/internal/domain"
	"chainpost/internal/processing"
	"chainpost/internal/providers/queue"
)

const callbackProjectID = "0b9f8a3e-8c6c-43a2-9a60-1f2d4f3f9a11"

func TestCallbackCaptionSuccess(t *testing.T) {
	jobs := &fakeJobs{}
	app := &App{Logger: discardLogger(), Jobs: jobs}

	payload := `{"reference":"` + callbackProjectID + `","status":"completed","text":"Hello world","srt":"1\n00:00:00,000 --> 00:00:01,000\nHello world\n"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/caption", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	app.CallbackCaption(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if jobs.captionRes == nil {
		t.Fatal("caption callback not forwarded")
	}
	if jobs.captionRes.ProjectID != callbackProjectID || jobs.captionRes.Text != "Hello world" {
		t.Fatalf("result = %+v", jobs.captionRes)
	}
	if jobs.captionRes.ErrorCode != "" {
		t.Fatalf("unexpected error code %q", jobs.captionRes.ErrorCode)
	}
}

func TestCallbackCaptionFailureVariant(t *testing.T) {
	jobs := &fakeJobs{}
	app := &App{Logger: discardLogger(), Jobs: jobs}

	payload := `{"reference":"` + callbackProjectID + `","status":"error"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/caption", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	app.CallbackCaption(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if jobs.captionRes.ErrorCode != "transcription_failed" {
		t.Fatalf("error code = %q", jobs.captionRes.ErrorCode)
	}
}

func TestCallbackCaptionSignedDelivery(t *testing.T) {
	jobs := &fakeJobs{}
	app := &App{Logger: discardLogger(), Jobs: jobs, QueueSigningKey: "sign-key"}

	payload := []byte(`{"reference":"` + callbackProjectID + `","status":"completed","text":"Hello world"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/caption", bytes.NewReader(payload))
	req.Header.Set(queue.SignatureHeader, queue.Sign("sign-key", payload))
	rec := httptest.NewRecorder()
	app.CallbackCaption(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if jobs.captionRes == nil || jobs.captionRes.ProjectID != callbackProjectID {
		t.Fatalf("result = %+v", jobs.captionRes)
	}
}

func TestCallbackCaptionRejectsBadSignature(t *testing.T) {
	jobs := &fakeJobs{}
	app := &App{Logger: discardLogger(), Jobs: jobs, QueueSigningKey: "sign-key"}

	payload := `{"reference":"` + callbackProjectID + `","status":"completed","text":"forged result"}`
	tests := []struct {
		name      string
		signature string
	}{
		{name: "unsigned", signature: ""},
		{name: "forged", signature: "not-the-hmac"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/caption", strings.NewReader(payload))
			if tc.signature != "" {
				req.Header.Set(queue.SignatureHeader, tc.signature)
			}
			rec := httptest.NewRecorder()
			app.CallbackCaption(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if jobs.captionCalls != 0 {
				t.Fatal("callback forwarded despite bad signature")
			}
		})
	}
}

func TestCallbackCaptionValidation(t *testing.T) {
	app := &App{Logger: discardLogger(), Jobs: &fakeJobs{}}

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "not-json"},
		{name: "missing reference", payload: `{"status":"completed","text":"hi"}`},
		{name: "unknown status", payload: `{"reference":"` + callbackProjectID + `","status":"maybe"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/caption", strings.NewReader(tc.payload))
			rec := httptest.NewRecorder()
			app.CallbackCaption(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCallbackCaptionConflictAcked(t *testing.T) {
	jobs := &fakeJobs{err: domain.ErrConflict}
	app := &App{Logger: discardLogger(), Jobs: jobs}

	payload := `{"reference":"` + callbackProjectID + `","status":"completed","text":"late delivery"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/caption", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	app.CallbackCaption(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 ack", rec.Code)
	}
	if body := decodeJSON(t, rec); body["status"] != "ignored" {
		t.Fatalf("body = %v", body)
	}
}

func TestCallbackCaptionUnknownProject(t *testing.T) {
	jobs := &fakeJobs{err: domain.ErrNotFound}
	app := &App{Logger: discardLogger(), Jobs: jobs}

	payload := `{"reference":"` + callbackProjectID + `","status":"completed","text":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/caption", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	app.CallbackCaption(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCallbackPost(t *testing.T) {
	jobs := &fakeJobs{}
	app := &App{Logger: discardLogger(), Jobs: jobs, QueueSigningKey: "sign-key"}

	payload, _ := json.Marshal(processing.PostJobPayload{
		ProjectID:  callbackProjectID,
		Transcript: "Hello world",
		Platforms:  []string{"x"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/post", bytes.NewReader(payload))
	req.Header.Set(queue.SignatureHeader, queue.Sign("sign-key", payload))
	rec := httptest.NewRecorder()
	app.CallbackPost(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if jobs.postPayload == nil || jobs.postPayload.ProjectID != callbackProjectID {
		t.Fatalf("payload = %+v", jobs.postPayload)
	}
}

func TestCallbackPostRejectsBadSignature(t *testing.T) {
	jobs := &fakeJobs{}
	app := &App{Logger: discardLogger(), Jobs: jobs, QueueSigningKey: "sign-key"}

	payload := []byte(`{"project_id":"` + callbackProjectID + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/post", bytes.NewReader(payload))
	req.Header.Set(queue.SignatureHeader, "forged")
	rec := httptest.NewRecorder()
	app.CallbackPost(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if jobs.postCalls != 0 {
		t.Fatalf("job handled despite bad signature")
	}
}

func TestCallbackPostSignatureOptional(t *testing.T) {
	jobs := &fakeJobs{}
	app := &App{Logger: discardLogger(), Jobs: jobs}

	payload := []byte(`{"project_id":"` + callbackProjectID + `","transcript":"hi","platforms":["x"]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/post", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	app.CallbackPost(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if jobs.postCalls != 1 {
		t.Fatalf("post calls = %d", jobs.postCalls)
	}
}
