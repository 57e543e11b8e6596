package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cliplift/internal/services"
	"cliplift/internal/services/ollama"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*ollama.Client, *atomic.Int64) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var slept atomic.Int64
	client := ollama.NewClient(
		ollama.Config{BaseURL: server.URL, Model: "test-model"},
		ollama.WithRetryMaxAttempts(3),
		ollama.WithRetryBackoff(time.Millisecond, 10*time.Millisecond),
		ollama.WithSleeper(func(time.Duration) { slept.Add(1) }),
	)
	return client, &slept
}

func TestGenerateReturnsResponseText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["stream"] != false {
			t.Error("requests must disable streaming")
		}
		if payload["format"] != "json" {
			t.Error("requests must ask for json output")
		}
		json.NewEncoder(w).Encode(map[string]any{"response": `{"ok":true}`, "done": true})
	})

	response, err := client.Generate(context.Background(), ollama.Request{Prompt: "score this"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if response != `{"ok":true}` {
		t.Fatalf("unexpected response %q", response)
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var hits atomic.Int64
	client, slept := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"response": "ok", "done": true})
	})

	response, err := client.Generate(context.Background(), ollama.Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("generate after retries: %v", err)
	}
	if response != "ok" {
		t.Fatalf("unexpected response %q", response)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
	if slept.Load() != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", slept.Load())
	}
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int64
	client, slept := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	if _, err := client.Generate(context.Background(), ollama.Request{Prompt: "p"}); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if hits.Load() != 1 {
		t.Fatalf("client errors must not be retried, got %d attempts", hits.Load())
	}
	if slept.Load() != 0 {
		t.Fatalf("expected no sleeps, got %d", slept.Load())
	}
}

func TestGenerateExhaustsRetriesAndWrapsError(t *testing.T) {
	var hits atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), ollama.Request{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
	if !services.IsTransient(err) {
		t.Fatalf("exhausted retries must surface as a transient external failure: %v", err)
	}
}

func TestGenerateSendsBearerTokenWhenConfigured(t *testing.T) {
	var header atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"response": "ok", "done": true})
	}))
	t.Cleanup(server.Close)

	client := ollama.NewClient(ollama.Config{BaseURL: server.URL, Model: "cloud-model", APIKey: "sk-secret"})
	if _, err := client.Generate(context.Background(), ollama.Request{Prompt: "p"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if header.Load() != "Bearer sk-secret" {
		t.Fatalf("expected bearer token header, got %v", header.Load())
	}
}
