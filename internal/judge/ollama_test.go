package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clausecheck/clausecheck/internal/model"
)

func TestOllamaProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Decode request: %v", err)
		}
		if req.Model != "llama3.1:8b" {
			t.Errorf("Unexpected model %q", req.Model)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:    req.Model,
			Response: validResponse,
			Done:     true,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(model.LLMConfig{
		Provider: "ollama",
		Model:    "llama3.1:8b",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewOllamaProvider failed: %v", err)
	}

	raw, err := provider.Complete(context.Background(), "judge this rule")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !strings.Contains(raw, `"status": "compliant"`) {
		t.Errorf("Unexpected response: %s", raw)
	}
}

func TestOllamaProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ollamaError{Error: "model not found"})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(model.LLMConfig{Model: "missing", BaseURL: server.URL})
	_, err := provider.Complete(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("Expected model-not-found error, got %v", err)
	}
}

func TestOllamaProvider_RequiresModel(t *testing.T) {
	provider, _ := NewOllamaProvider(model.LLMConfig{})
	if _, err := provider.Complete(context.Background(), "prompt"); err == nil {
		t.Error("Expected error without a model name")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(model.LLMConfig{Model: "llama3.1:8b", BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available")
	}

	server.Close()
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected unavailable after server shutdown")
	}
}
