package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/council/config"
)

// GatewayClient talks to an OpenAI-compatible chat-completions gateway
// (a LiteLLM proxy or any endpoint speaking the same protocol).
type GatewayClient struct {
	baseURL     string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewGatewayClient creates a gateway client from config.
func NewGatewayClient(cfg config.GatewayConfig) *GatewayClient {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 10 * time.Second
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connect}).DialContext,
	}
	return &GatewayClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

func (c *GatewayClient) headers(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *GatewayClient) resolve(opts []CallOption) callOptions {
	o := callOptions{maxTokens: c.maxTokens}
	for _, fn := range opts {
		fn(&o)
	}
	if o.temperature == nil {
		t := c.temperature
		o.temperature = &t
	}
	return o
}

// Stream starts a streaming chat completion. Fragments are the content deltas
// of the SSE frames; the stream ends at the [DONE] sentinel.
func (c *GatewayClient) Stream(ctx context.Context, modelID string, messages []Message, opts ...CallOption) (Stream, error) {
	o := c.resolve(opts)
	body := chatRequest{
		Model:       modelID,
		Messages:    messages,
		Temperature: *o.temperature,
		MaxTokens:   o.maxTokens,
		Stream:      true,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return &sseStream{
		body:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
		started: time.Now(),
	}, nil
}

// Complete runs a streaming completion to the end and returns the buffered
// text. Used for the chairman call, which the caller never sees chunked.
func (c *GatewayClient) Complete(ctx context.Context, modelID string, messages []Message, opts ...CallOption) (string, Usage, error) {
	stream, err := c.Stream(ctx, modelID, messages, opts...)
	if err != nil {
		return "", Usage{}, err
	}
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		sb.WriteString(stream.Current())
	}
	if err := stream.Err(); err != nil {
		return "", Usage{}, err
	}
	return sb.String(), stream.Usage(), nil
}

// ListModels fetches the models the gateway can route to.
func (c *GatewayClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data []struct {
			ID      string `json:"id"`
			OwnedBy string `json:"owned_by"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	models := make([]ModelInfo, 0, len(payload.Data))
	for _, m := range payload.Data {
		owner := m.OwnedBy
		if owner == "" {
			owner = "unknown"
		}
		models = append(models, ModelInfo{ID: m.ID, Name: m.ID, Provider: owner, Available: true})
	}
	return models, nil
}

// TestModel probes a model with a one-token completion.
func (c *GatewayClient) TestModel(ctx context.Context, modelID string) bool {
	_, _, err := c.Complete(ctx, modelID,
		[]Message{{Role: "user", Content: "Hi"}},
		WithMaxTokens(5))
	return err == nil
}

// sseStream reads "data: {...}" frames from a chat-completions response body
// and surfaces the content deltas one fragment at a time.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	started time.Time

	current string
	tokens  int
	err     error
	done    bool
}

func (s *sseStream) Next() bool {
	if s.done {
		return false
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if strings.TrimSpace(data) == "[DONE]" {
			s.finish(nil)
			return false
		}

		var frame struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			// fragments we cannot parse are skipped, matching the
			// tolerant behavior of OpenAI-compatible clients
			continue
		}
		if len(frame.Choices) == 0 || frame.Choices[0].Delta.Content == "" {
			continue
		}
		s.current = frame.Choices[0].Delta.Content
		s.tokens++
		return true
	}
	s.finish(s.scanner.Err())
	return false
}

func (s *sseStream) finish(err error) {
	s.done = true
	s.err = err
	_ = s.body.Close()
}

func (s *sseStream) Current() string { return s.current }
func (s *sseStream) Err() error      { return s.err }

func (s *sseStream) Usage() Usage {
	return Usage{Tokens: s.tokens, Elapsed: time.Since(s.started)}
}

func (s *sseStream) Close() error {
	s.done = true
	return s.body.Close()
}
