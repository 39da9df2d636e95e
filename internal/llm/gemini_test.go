package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.0-pro"},
		{"gemini-2.5-pro", "gemini-2.5-pro"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, geminiModels); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intent":     map[string]any{"type": "string", "enum": []any{"explain", "tutor"}},
			"confidence": map[string]any{"type": "number"},
			"follow_up":  map[string]any{"type": "boolean"},
			"symbols": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []any{"intent", "confidence"},
	}

	schema := buildGeminiSchema(def)

	if schema.Type != "OBJECT" {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	if len(schema.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(schema.Properties))
	}
	if got := schema.Properties["intent"]; got.Type != "STRING" || len(got.Enum) != 2 {
		t.Fatalf("intent = %+v", got)
	}
	if schema.Properties["confidence"].Type != "NUMBER" {
		t.Fatalf("expected NUMBER for confidence, got %s", schema.Properties["confidence"].Type)
	}
	if schema.Properties["follow_up"].Type != "BOOLEAN" {
		t.Fatalf("expected BOOLEAN, got %s", schema.Properties["follow_up"].Type)
	}
	if schema.Properties["symbols"].Items.Type != "STRING" {
		t.Fatalf("expected STRING items, got %s", schema.Properties["symbols"].Items.Type)
	}
	if len(schema.Required) != 2 {
		t.Fatalf("expected 2 required fields, got %d", len(schema.Required))
	}
}

func newTestGeminiProvider(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "test-key", BaseURL: server.URL}, "gemini-flash")
	if err != nil {
		t.Fatalf("NewGeminiProvider: %v", err)
	}
	return p
}

func geminiReply(text, finish string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
			"finishReason": finish,
		}},
		"usageMetadata": map[string]any{
			"promptTokenCount":        30,
			"candidatesTokenCount":    10,
			"totalTokenCount":         40,
			"cachedContentTokenCount": 12,
		},
		"modelVersion": "gemini-2.0-flash-001",
	}
}

func TestGeminiProvider_FreeText(t *testing.T) {
	p := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiReply("A* expands the lowest f = g + h first.", "STOP"))
	})

	resp, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "How does A* pick a node?"}},
		MaxTokens: 128,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Text(resp); got != "A* expands the lowest f = g + h first." {
		t.Fatalf("Text() = %q", got)
	}
	if resp.Usage.TotalTokens != 40 || resp.Usage.CachedInputTokens != 12 {
		t.Fatalf("usage = %+v", resp.Usage)
	}
	if resp.Model != "gemini-2.0-flash-001" {
		t.Fatalf("Model = %q", resp.Model)
	}
}

func TestGeminiProvider_SafetyStop(t *testing.T) {
	p := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiReply("", "SAFETY"))
	})

	_, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "q"}},
		MaxTokens: 16,
	})
	if !IsRefused(err) {
		t.Fatalf("expected ErrRefused, got: %T (%v)", err, err)
	}
}

func TestGeminiRefusal(t *testing.T) {
	blocked := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: "PROHIBITED_CONTENT"},
	}
	if err := geminiRefusal(blocked); !IsRefused(err) {
		t.Fatalf("blocked prompt: got %v", err)
	}

	for _, r := range []genai.FinishReason{genai.FinishReasonStop, genai.FinishReasonMaxTokens} {
		res := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: r}}}
		if err := geminiRefusal(res); err != nil {
			t.Fatalf("%s: unexpected refusal %v", r, err)
		}
	}
	if err := geminiRefusal(&genai.GenerateContentResponse{}); err != nil {
		t.Fatalf("empty response: %v", err)
	}
}

func TestGeminiError(t *testing.T) {
	limited := fmt.Errorf("generate: %w", genai.APIError{
		Code:    http.StatusTooManyRequests,
		Message: "quota",
		Details: []map[string]any{
			{"@type": "type.googleapis.com/google.rpc.QuotaFailure"},
			{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "12s"},
		},
	})
	var rl *ErrRateLimit
	if err := geminiError(limited); !errors.As(err, &rl) || rl.RetryAfter != 12*time.Second {
		t.Fatalf("rate limit: got %T (%v)", err, err)
	}

	if err := geminiError(genai.APIError{Code: http.StatusForbidden}); !IsAuth(err) {
		t.Fatalf("forbidden: got %T (%v)", err, err)
	}

	var unavail *ErrProviderUnavailable
	if err := geminiError(errors.New("dial tcp: refused")); !errors.As(err, &unavail) {
		t.Fatalf("transport: got %T (%v)", err, err)
	}
}

func TestBuildGeminiSchema_BoundsAndOrdering(t *testing.T) {
	schema := buildGeminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"zeta":       map[string]any{"type": []any{"string", "null"}},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"steps":      map[string]any{"type": "array", "minItems": 1, "items": map[string]any{"type": "string"}},
			"alpha":      map[string]any{"type": "string"},
		},
		"required":             []any{"steps", "confidence"},
		"additionalProperties": false,
	})

	want := []string{"steps", "confidence", "alpha", "zeta"}
	if len(schema.PropertyOrdering) != len(want) {
		t.Fatalf("ordering = %v", schema.PropertyOrdering)
	}
	for i := range want {
		if schema.PropertyOrdering[i] != want[i] {
			t.Fatalf("ordering = %v, want %v", schema.PropertyOrdering, want)
		}
	}

	conf := schema.Properties["confidence"]
	if conf.Minimum == nil || *conf.Minimum != 0 || conf.Maximum == nil || *conf.Maximum != 1 {
		t.Fatalf("confidence bounds = %v..%v", conf.Minimum, conf.Maximum)
	}
	if steps := schema.Properties["steps"]; steps.MinItems == nil || *steps.MinItems != 1 {
		t.Fatalf("steps minItems = %v", steps.MinItems)
	}
	zeta := schema.Properties["zeta"]
	if zeta.Type != genai.TypeString || zeta.Nullable == nil || !*zeta.Nullable {
		t.Fatalf("zeta = %+v", zeta)
	}
}
