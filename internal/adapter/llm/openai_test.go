package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"papertalk/internal/port"
)

func TestOpenAIGenerator_Generate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Attention is all you need."}}]}`))
	}))
	defer server.Close()

	g := NewOllamaGenerator("llama3", server.URL+"/")
	answer, err := g.Generate(context.Background(), "What is needed?", port.GenerateOptions{Temperature: 0.2, MaxTokens: 1024})
	if err != nil {
		t.Fatal(err)
	}

	if answer != "Attention is all you need." {
		t.Errorf("unexpected answer %q", answer)
	}
	if got.Model != "llama3" || got.Temperature != 0.2 || got.MaxTokens != 1024 {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "What is needed?" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
}

func TestOpenAIGenerator_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewOllamaGenerator("llama3", server.URL)
	if _, err := g.Generate(context.Background(), "q", port.GenerateOptions{}); err == nil {
		t.Error("expected error for 429 response")
	}
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	g := NewOllamaGenerator("llama3", server.URL)
	answer, err := g.Generate(context.Background(), "q", port.GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if answer != "" {
		t.Errorf("expected empty answer, got %q", answer)
	}
}

func TestNewOpenAIGenerator_MissingKey(t *testing.T) {
	t.Setenv("PAPERTALK_TEST_LLM_KEY", "")
	if _, err := NewOpenAIGenerator("PAPERTALK_TEST_LLM_KEY", "gpt-4o-mini", ""); err == nil {
		t.Error("expected error for missing API key")
	}
}
