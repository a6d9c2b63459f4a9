// Package postgen turns transcripts into platform-tailored social posts using
// the hosted Gemini API.
package postgen

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	defaultModel   = "gemini-1.5-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// ErrUnavailable marks transport or service failures from the model endpoint.
var ErrUnavailable = errors.New("post generation service unavailable")

// Options controls how the generator is configured. An empty APIKey switches
// the client into deterministic synthetic mode, keeping the pipeline
// exercisable in local and CI environments.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client generates social posts from transcripts.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// GenerateRequest describes one post-generation call.
type GenerateRequest struct {
	Transcript string
	Platforms  []string
	Locale     string
	ProjectID  string
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// postsPayload is the fixed JSON shape requested from the model.
type postsPayload struct {
	Posts map[string]string `json:"posts"`
}

// NewClient constructs a post generator.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}
}

// Generate returns one post per requested platform. Without an API key the
// result is synthesized deterministically from the transcript; with one, a
// remote failure surfaces as ErrUnavailable rather than silently degrading,
// so the project can be marked failed.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (map[string]string, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, errors.New("postgen: transcript is required")
	}
	if len(req.Platforms) == 0 {
		return nil, errors.New("postgen: at least one platform is required")
	}
	if c.apiKey == "" {
		return c.syntheticPosts(req), nil
	}
	return c.remotePosts(ctx, req)
}

func (c *Client) remotePosts(ctx context.Context, req GenerateRequest) (map[string]string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildPrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.6,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	text := extractText(out)
	if text == "" {
		return nil, fmt.Errorf("%w: empty candidate", ErrUnavailable)
	}
	var parsed postsPayload
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: unexpected response shape: %v", ErrUnavailable, err)
	}
	posts := make(map[string]string, len(req.Platforms))
	for _, platform := range req.Platforms {
		post := strings.TrimSpace(parsed.Posts[platform])
		if post == "" {
			return nil, fmt.Errorf("%w: missing post for platform %q", ErrUnavailable, platform)
		}
		posts[platform] = post
	}
	return posts, nil
}

// syntheticPosts derives stable post text from the transcript so local runs
// and tests are reproducible.
func (c *Client) syntheticPosts(req GenerateRequest) map[string]string {
	summary := summarize(req.Transcript, 140)
	posts := make(map[string]string, len(req.Platforms))
	for _, platform := range req.Platforms {
		seed := sha256.Sum256([]byte(req.ProjectID + "|" + platform + "|" + req.Transcript))
		tag := hex.EncodeToString(seed[:4])
		posts[platform] = fmt.Sprintf("%s #%s", summary, tag)
	}
	return posts
}

func buildPrompt(req GenerateRequest) string {
	var b strings.Builder
	b.WriteString("Write one social media post per platform based on this transcript.\n")
	b.WriteString("Platforms: " + strings.Join(req.Platforms, ", ") + "\n")
	if req.Locale != "" {
		b.WriteString("Write in the language for locale " + req.Locale + ".\n")
	}
	b.WriteString(`Respond with JSON of the shape {"posts": {"<platform>": "<post text>"}}.` + "\n")
	b.WriteString("Transcript:\n")
	b.WriteString(req.Transcript)
	return b.String()
}

func extractText(out geminiResponse) string {
	for _, candidate := range out.Candidates {
		for _, part := range candidate.Content.Parts {
			if text := strings.TrimSpace(part.Text); text != "" {
				return text
			}
		}
	}
	return ""
}

func summarize(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
