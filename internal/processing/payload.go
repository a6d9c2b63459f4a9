package processing

// PostJobPayload is the chained post-generation job carried through the outbox
// and the external queue. The queue re-POSTs it verbatim to the post callback
// endpoint, so the eventual delivery updates the same project record.
type PostJobPayload struct {
	ProjectID  string   `json:"project_id"`
	Transcript string   `json:"transcript"`
	Platforms  []string `json:"platforms"`
	Locale     string   `json:"locale,omitempty"`
}

// CaptionResult is the tagged result of a transcription callback. Exactly one
// of the success fields (Text/SRT) or ErrorCode is meaningful.
type CaptionResult struct {
	ProjectID string
	Text      string
	SRT       string
	ErrorCode string
}

// Failed reports whether the result is the failure variant.
func (r CaptionResult) Failed() bool {
	return r.ErrorCode != ""
}
