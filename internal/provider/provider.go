// Package provider defines the text-generation capability the council engine
// is built on: submit a prompt to a model, receive a lazy stream of text
// fragments plus final usage metadata.
package provider

import (
	"context"
	"time"
)

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage carries the final metadata of one generation call.
type Usage struct {
	Tokens  int
	Elapsed time.Duration
}

// Stream is a lazy, cancellable sequence of text fragments. Usage is valid
// only after Next has returned false with a nil Err.
type Stream interface {
	// Next advances to the next fragment. It returns false when the stream
	// is exhausted or failed; consult Err to tell the two apart.
	Next() bool
	// Current returns the fragment produced by the last successful Next.
	Current() string
	Err() error
	Usage() Usage
	Close() error
}

// ModelInfo describes one model the gateway can route to.
type ModelInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	Available bool   `json:"available"`
}

// Provider is the interface all generation backends must satisfy.
type Provider interface {
	// Stream starts a streaming completion for one model.
	Stream(ctx context.Context, modelID string, messages []Message, opts ...CallOption) (Stream, error)
	// Complete runs a completion to the end, buffering fragments internally.
	Complete(ctx context.Context, modelID string, messages []Message, opts ...CallOption) (string, Usage, error)
}

// Catalog lists models and probes their availability. Satisfied by the
// gateway client alongside Provider.
type Catalog interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
	TestModel(ctx context.Context, modelID string) bool
}

type callOptions struct {
	temperature *float64
	maxTokens   int
}

// CallOption overrides per-call generation parameters.
type CallOption func(*callOptions)

// WithTemperature overrides the client's default sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *callOptions) { o.temperature = &t }
}

// WithMaxTokens caps the number of generated tokens for this call.
func WithMaxTokens(n int) CallOption {
	return func(o *callOptions) { o.maxTokens = n }
}
