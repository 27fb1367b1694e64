package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/council/config"
)

func testClient(baseURL string) *GatewayClient {
	return NewGatewayClient(config.GatewayConfig{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Timeout:     5 * time.Second,
		Temperature: 0.7,
	})
}

func sseHandler(t *testing.T, frames []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}
		var body struct {
			Model  string `json:"model"`
			Stream bool   `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !body.Stream {
			t.Errorf("expected stream:true in request")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func delta(content string) string {
	return fmt.Sprintf(`{"choices":[{"delta":{"content":%q}}]}`, content)
}

func TestStreamYieldsFragmentsInOrder(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		delta("Hello"),
		delta(", "),
		delta("world"),
	}))
	defer srv.Close()

	stream, err := testClient(srv.URL).Stream(context.Background(), "gpt-4o", []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	var got []string
	for stream.Next() {
		got = append(got, stream.Current())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if strings.Join(got, "") != "Hello, world" {
		t.Fatalf("unexpected fragments: %v", got)
	}
	if usage := stream.Usage(); usage.Tokens != 3 {
		t.Fatalf("expected 3 tokens, got %d", usage.Tokens)
	}
}

func TestStreamSkipsUnparseableAndEmptyFrames(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		"not json at all",
		`{"choices":[]}`,
		`{"choices":[{"delta":{"content":""}}]}`,
		delta("ok"),
	}))
	defer srv.Close()

	stream, err := testClient(srv.URL).Stream(context.Background(), "gpt-4o", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	var got []string
	for stream.Next() {
		got = append(got, stream.Current())
	}
	if len(got) != 1 || got[0] != "ok" {
		t.Fatalf("expected only parseable content, got %v", got)
	}
	if usage := stream.Usage(); usage.Tokens != 1 {
		t.Fatalf("skipped frames must not count as tokens, got %d", usage.Tokens)
	}
}

func TestStreamSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Stream(context.Background(), "missing", nil)
	if err == nil {
		t.Fatalf("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("error should carry the status code: %v", err)
	}
}

func TestCompleteBuffersWholeStream(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{delta("a"), delta("b"), delta("c")}))
	defer srv.Close()

	text, usage, err := testClient(srv.URL).Complete(context.Background(), "gpt-4o", []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "abc" {
		t.Fatalf("unexpected text %q", text)
	}
	if usage.Tokens != 3 {
		t.Fatalf("expected 3 tokens, got %d", usage.Tokens)
	}
}

func TestCompleteHonorsTemperatureOverride(t *testing.T) {
	var seen struct {
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).Complete(context.Background(), "gpt-4o", nil,
		WithTemperature(0.3), WithMaxTokens(128))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if seen.Temperature != 0.3 {
		t.Fatalf("expected temperature override 0.3, got %v", seen.Temperature)
	}
	if seen.MaxTokens != 128 {
		t.Fatalf("expected max_tokens 128, got %d", seen.MaxTokens)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":[{"id":"gpt-4o","owned_by":"openai"},{"id":"claude-3"}]}`)
	}))
	defer srv.Close()

	models, err := testClient(srv.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].ID != "gpt-4o" || models[0].Provider != "openai" {
		t.Fatalf("unexpected first model: %+v", models[0])
	}
	if models[1].Provider != "unknown" {
		t.Fatalf("missing owner must default to unknown, got %q", models[1].Provider)
	}
}

func TestTestModel(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{delta("Hi!")}))
	defer srv.Close()

	if !testClient(srv.URL).TestModel(context.Background(), "gpt-4o") {
		t.Fatalf("expected model to test available")
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusBadGateway)
	}))
	defer down.Close()

	if testClient(down.URL).TestModel(context.Background(), "gpt-4o") {
		t.Fatalf("expected model to test unavailable")
	}
}
