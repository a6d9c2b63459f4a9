package postgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestGenerateSyntheticIsDeterministic(t *testing.T) {
	client := NewClient(Options{})
	req := GenerateRequest{
		Transcript: "Hello world, welcome to the show",
		Platforms:  []string{"x", "linkedin"},
		ProjectID:  "proj-1",
	}
	first, err := client.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := client.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("synthetic posts not deterministic: %v vs %v", first, second)
	}
	for _, platform := range req.Platforms {
		if first[platform] == "" {
			t.Fatalf("missing post for %s", platform)
		}
	}
}

func TestGenerateRemoteParsesFixedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"text": `{"posts": {"x": "Short and punchy", "instagram": "Longer with hashtags"}}`,
					}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "key", BaseURL: server.URL})
	posts, err := client.Generate(context.Background(), GenerateRequest{
		Transcript: "hello",
		Platforms:  []string{"x", "instagram"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if posts["x"] != "Short and punchy" || posts["instagram"] != "Longer with hashtags" {
		t.Fatalf("posts = %v", posts)
	}
}

func TestGenerateRemoteErrorMapsToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "key", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), GenerateRequest{Transcript: "hi", Platforms: []string{"x"}})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestGenerateRequiresTranscriptAndPlatforms(t *testing.T) {
	client := NewClient(Options{})
	if _, err := client.Generate(context.Background(), GenerateRequest{Platforms: []string{"x"}}); err == nil {
		t.Fatal("expected error for empty transcript")
	}
	if _, err := client.Generate(context.Background(), GenerateRequest{Transcript: "hi"}); err == nil {
		t.Fatal("expected error for empty platforms")
	}
}
