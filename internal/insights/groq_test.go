package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/howshous/analytics/internal/common/config"
)

func groqTestConfig(endpoint string) config.AIConfig {
	return config.AIConfig{
		APIKey:         "test-key",
		Endpoint:       endpoint,
		Model:          "llama-3.1-8b-instant",
		RequestTimeout: 5 * time.Second,
	}
}

func TestGroqClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "llama-3.1-8b-instant" {
			t.Errorf("model = %q", req.Model)
		}
		if req.Temperature != 0.5 {
			t.Errorf("temperature = %v, want 0.5", req.Temperature)
		}
		if req.MaxTokens != 800 {
			t.Errorf("max_tokens = %d, want 800", req.MaxTokens)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{
				{Message: chatMessage{Role: "assistant", Content: "Your views are up."}},
			},
		})
	}))
	defer server.Close()

	client := NewGroqClient(groqTestConfig(server.URL))

	reply, err := client.Complete(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "Your views are up." {
		t.Errorf("reply = %q", reply)
	}
}

func TestGroqClientUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewGroqClient(groqTestConfig(server.URL))

	if _, err := client.Complete(context.Background(), "system", "user"); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestGroqClientEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewGroqClient(groqTestConfig(server.URL))

	if _, err := client.Complete(context.Background(), "system", "user"); err == nil {
		t.Error("expected error on empty choices")
	}
}

func TestGroqClientContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewGroqClient(groqTestConfig(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := client.Complete(ctx, "system", "user"); err == nil {
		t.Error("expected error on cancelled context")
	}
}
