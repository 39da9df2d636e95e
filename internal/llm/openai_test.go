package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newOpenAICompatible("test-key", server.URL+"/v1", "gpt-4o-mini", nil)
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": finish,
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     40,
			"completion_tokens": 25,
			"total_tokens":      65,
		},
	}
}

func TestOpenAIProvider_Structured(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion(`{"answer":"A queue."}`, "stop"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System:    "Answer briefly.",
		Messages:  []Message{{Role: RoleUser, Content: "What does BFS use?"}},
		MaxTokens: 256,
		Schema:    answerSchema(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out struct{ Answer string }
	if err := Decode(resp, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Answer != "A queue." {
		t.Fatalf("answer = %q", out.Answer)
	}
	if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 25 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestOpenAIProvider_TruncatedStructured(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion(`{"answer":"A que`, "length"))
	})

	_, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "q"}},
		MaxTokens: 5,
		Schema:    answerSchema(),
	})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got: %T (%v)", err, err)
	}
}

func TestOpenAIProvider_RateLimit(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Rate limit exceeded", "type": "rate_limit_error"},
		})
	})

	_, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "test"}},
		MaxTokens: 100,
	})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T (%v)", err, err)
	}
}

func TestNewOpenAIProvider(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIConfig{}, "gpt-4o"); err == nil {
		t.Fatal("expected error for empty API key")
	}
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: "https://example.test/v1"}, "gpt-4o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "gpt-4o" {
		t.Fatalf("ModelID() = %q", p.ModelID())
	}
}

func TestNewOpenRouterProvider(t *testing.T) {
	t.Run("empty API key", func(t *testing.T) {
		if _, err := NewOpenRouterProvider(OpenRouterConfig{}, "google/gemini-2.0-flash-exp"); err == nil {
			t.Fatal("expected error for empty API key")
		}
	})

	t.Run("model passes through unmapped", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test"}, "gpt-4o-mini")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "gpt-4o-mini" {
			t.Errorf("model = %q", p.ModelID())
		}
	})
}

func TestOpenAIProvider_ContentFilter(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion("", "content_filter"))
	})

	_, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "q"}},
		MaxTokens: 16,
	})
	if !IsRefused(err) {
		t.Fatalf("expected ErrRefused, got: %T (%v)", err, err)
	}
}

func TestOpenAIProvider_CachedTokensAndAuth(t *testing.T) {
	t.Run("cached tokens", func(t *testing.T) {
		p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
			c := chatCompletion("ok", "stop")
			c["usage"] = map[string]any{
				"prompt_tokens":         40,
				"completion_tokens":     2,
				"total_tokens":          42,
				"prompt_tokens_details": map[string]any{"cached_tokens": 32},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(c)
		})
		resp, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}, MaxTokens: 16})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Usage.CachedInputTokens != 32 {
			t.Fatalf("CachedInputTokens = %d", resp.Usage.CachedInputTokens)
		}
	})

	t.Run("bad key", func(t *testing.T) {
		p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "Incorrect API key provided", "type": "invalid_request_error"},
			})
		})
		_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}, MaxTokens: 16})
		if !IsAuth(err) {
			t.Fatalf("expected ErrAuth, got: %T (%v)", err, err)
		}
	})
}

func TestOpenAIProvider_ReasoningModelOmitsTemperature(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion("ok", "stop"))
	}))
	t.Cleanup(server.Close)

	p := newOpenAICompatible("k", server.URL+"/v1", "o4-mini", nil)
	if _, err := p.Generate(context.Background(), Request{
		Messages:    []Message{{Role: RoleUser, Content: "q"}},
		MaxTokens:   16,
		Temperature: 0.3,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(body, "temperature") {
		t.Fatalf("temperature sent to a reasoning model: %s", body)
	}
}

func TestIsReasoningModel(t *testing.T) {
	tests := map[string]bool{
		"o4-mini":            true,
		"o3":                 true,
		"openai/o1-preview":  true,
		"gpt-5-mini":         true,
		"gpt-4o":             false,
		"gpt-4o-mini":        false,
		"anthropic/claude-3": false,
	}
	for model, want := range tests {
		if got := isReasoningModel(model); got != want {
			t.Errorf("isReasoningModel(%q) = %v, want %v", model, got, want)
		}
	}
}

func TestOpenRouterAttributionHeaders(t *testing.T) {
	var referer, title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer, title = r.Header.Get("HTTP-Referer"), r.Header.Get("X-Title")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion("ok", "stop"))
	}))
	t.Cleanup(server.Close)

	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "sk-or-test",
		BaseURL: server.URL + "/v1",
		AppName: "Luminate",
		SiteURL: "https://luminate.example",
	}, "openai/gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}, MaxTokens: 8}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if referer != "https://luminate.example" || title != "Luminate" {
		t.Fatalf("headers = %q, %q", referer, title)
	}
}
