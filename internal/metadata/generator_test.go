package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"onemin/internal/analysis"
	"onemin/internal/config"
	"onemin/internal/services"
	"onemin/internal/services/llm"
)

func sampleResult(transcript string) *analysis.Result {
	return &analysis.Result{
		Asset: analysis.MediaAsset{
			Path:            "/videos/skate_day.mp4",
			DurationSeconds: 90,
			Width:           1920,
			Height:          1080,
		},
		Frames:     []string{"a.jpg", "b.jpg", "c.jpg"},
		Transcript: transcript,
	}
}

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

func chatServer(t *testing.T, content string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		payload := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
}

func newTestGenerator(t *testing.T, provider, baseURL, key string) *Generator {
	t.Helper()
	gen, err := NewGenerator(config.LLM{
		Provider: provider,
		APIKey:   key,
		BaseURL:  baseURL,
		Model:    "test-model",
	}, "22", nil, WithLLMOptions(llm.WithSleeper(func(time.Duration) {})))
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	return gen
}

func TestGenerateParsesModelResponse(t *testing.T) {
	var captured capturedRequest
	server := chatServer(t, "```json\n"+`{"title":"  I Tried The CRAZIEST Kickflip  ","description":"Hook line.\nMore.","tags":["skate","#kickflip","Skate",""],"category_id":24,"suggested_thumbnail_index":"2"}`+"\n```", &captured)
	defer server.Close()

	gen := newTestGenerator(t, "openrouter", server.URL, "key")
	meta, err := gen.Generate(context.Background(), sampleResult("we are skating today"))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if meta.Title != "I Tried The CRAZIEST Kickflip" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	if strings.Join(meta.Tags, ",") != "skate,kickflip" {
		t.Fatalf("unexpected tags %v", meta.Tags)
	}
	if meta.CategoryID != "24" {
		t.Fatalf("unexpected category %q", meta.CategoryID)
	}
	if meta.SuggestedThumbnailIndex != 2 {
		t.Fatalf("unexpected thumbnail index %d", meta.SuggestedThumbnailIndex)
	}
	if captured.Model != "test-model" {
		t.Fatalf("unexpected model %q", captured.Model)
	}
	if len(captured.Messages) != 2 || !strings.Contains(captured.Messages[1].Content, "we are skating today") {
		t.Fatalf("expected transcript in prompt, got %+v", captured.Messages)
	}
	if !strings.Contains(captured.Messages[1].Content, "skate_day.mp4") {
		t.Fatal("expected filename in prompt")
	}
}

func TestGenerateTruncatesTranscript(t *testing.T) {
	var captured capturedRequest
	server := chatServer(t, `{"title":"T","description":"D","tags":[],"category_id":"22"}`, &captured)
	defer server.Close()

	long := strings.Repeat("a", config.TranscriptCharLimit) + "OVERFLOW"
	gen := newTestGenerator(t, "openai", server.URL, "key")
	if _, err := gen.Generate(context.Background(), sampleResult(long)); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if strings.Contains(captured.Messages[1].Content, "OVERFLOW") {
		t.Fatal("expected transcript to be truncated")
	}
}

func TestGenerateDefaultsCategory(t *testing.T) {
	server := chatServer(t, `{"title":"T","description":"D","tags":["x"],"suggested_thumbnail_index":-3}`, nil)
	defer server.Close()

	meta, err := newTestGenerator(t, "deepseek", server.URL, "key").Generate(context.Background(), sampleResult("t"))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if meta.CategoryID != "22" {
		t.Fatalf("expected default category, got %q", meta.CategoryID)
	}
	if meta.SuggestedThumbnailIndex != 0 {
		t.Fatalf("expected negative index clamped to 0, got %d", meta.SuggestedThumbnailIndex)
	}
}

func TestAnthropicOmitsResponseFormat(t *testing.T) {
	var captured capturedRequest
	server := chatServer(t, `{"title":"T","description":"D","tags":[]}`, &captured)
	defer server.Close()

	if _, err := newTestGenerator(t, "anthropic", server.URL, "key").Generate(context.Background(), sampleResult("t")); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if captured.ResponseFormat != nil {
		t.Fatalf("expected no response_format for anthropic, got %v", captured.ResponseFormat)
	}
}

func TestUnknownProviderIsValidationError(t *testing.T) {
	_, err := NewGenerator(config.LLM{Provider: "mystery"}, "22", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMissingKeyNamesEnvVar(t *testing.T) {
	gen := newTestGenerator(t, "gemini", "http://127.0.0.1:1", "")
	_, err := gen.Generate(context.Background(), sampleResult("t"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected error to name the key, got %v", err)
	}
}

func TestUnparseableResponseIsAdapterFailure(t *testing.T) {
	cases := map[string]string{
		"prose":    "I cannot help with that.",
		"no title": `{"description":"D"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			server := chatServer(t, content, nil)
			defer server.Close()
			_, err := newTestGenerator(t, "openrouter", server.URL, "key").Generate(context.Background(), sampleResult("t"))
			if !errors.Is(err, services.ErrExternalTool) {
				t.Fatalf("expected ErrExternalTool, got %v", err)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	base := Metadata{Title: "Gen", Description: "Gen desc", Tags: []string{"a"}, CategoryID: "22"}
	out := base.Apply(Overrides{Title: "Mine", Tags: []string{"x", "y"}})
	if out.Title != "Mine" || out.Description != "Gen desc" || strings.Join(out.Tags, ",") != "x,y" {
		t.Fatalf("unexpected override result %+v", out)
	}
	if base.Title != "Gen" || base.Tags[0] != "a" {
		t.Fatal("Apply must not mutate the receiver")
	}
}

func TestTruncateHelpers(t *testing.T) {
	if got := truncateRunes("héllo", 2); got != "hé" {
		t.Fatalf("truncateRunes = %q", got)
	}
	if got := truncateBytes("héllo", 2); got != "h" {
		t.Fatalf("truncateBytes = %q", got)
	}
}
