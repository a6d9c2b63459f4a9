package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"chainpost/internal/domain"
	"chainpost/internal/processing"
	"chainpost/internal/providers/queue"
)

// captionCallbackRequest is the webhook body delivered by the transcription
// service. Status selects which of the remaining fields are meaningful.
type captionCallbackRequest struct {
	Reference string `json:"reference" validate:"required,uuid"`
	Status    string `json:"status" validate:"required,oneof=completed error"`
	Text      string `json:"text"`
	SRT       string `json:"srt"`
	ErrorCode string `json:"error_code"`
}

// CallbackCaption receives transcription results for caption projects. The
// delivery must carry the HMAC the service was given at submit time; anyone
// who merely knows a project id cannot settle it. Deliveries are
// at-least-once; replays of an already resolved project are acknowledged
// without effect so the sender stops retrying.
func (a *App) CallbackCaption(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read body")
		return
	}
	if !queue.VerifySignature(a.QueueSigningKey, body, r.Header.Get(queue.SignatureHeader)) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid callback signature")
		return
	}

	var req captionCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.validate().Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid callback fields")
		return
	}

	result := processing.CaptionResult{
		ProjectID: req.Reference,
		Text:      req.Text,
		SRT:       req.SRT,
	}
	if req.Status == "error" {
		result.ErrorCode = req.ErrorCode
		if result.ErrorCode == "" {
			result.ErrorCode = "transcription_failed"
		}
	}

	if err := a.Jobs.HandleCaptionCallback(r.Context(), result); err != nil {
		a.callbackError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CallbackPost receives chained post-generation jobs re-delivered by the
// queue. The body is the outbox payload verbatim, authenticated by HMAC.
func (a *App) CallbackPost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read body")
		return
	}
	if !queue.VerifySignature(a.QueueSigningKey, body, r.Header.Get(queue.SignatureHeader)) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid queue signature")
		return
	}

	var payload processing.PostJobPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if payload.ProjectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project_id required")
		return
	}

	if err := a.Jobs.HandlePostJob(r.Context(), payload); err != nil {
		a.callbackError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// callbackError acknowledges conflicts with 200 so senders stop retrying
// deliveries that can never apply, and maps everything else as usual.
func (a *App) callbackError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrConflict) {
		a.json(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	a.domainError(w, err)
}
