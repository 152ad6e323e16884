// Package llm defines the narrative generation provider interface.
//
// LlamaKeeper treats the language model as a pluggable backend: the autonomy
// engine talks to the Provider interface and never to a concrete API.
package llm

import "context"

// Provider is the interface every LLM backend must satisfy.
//
// Implementations exist for Ollama (local-first, the project default) and
// OpenAI-compatible APIs.
type Provider interface {
	// Generate produces text from a single prompt.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateWithMessages produces text from a conversation history
	// (system, user, and assistant messages).
	GenerateWithMessages(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	// Close releases provider resources.
	Close() error
}

// Message is a single message in a conversation.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// GenerateOptions contains sampling parameters for text generation.
type GenerateOptions struct {
	// Temperature controls randomness (0.0-2.0).
	Temperature float64

	// MaxTokens limits the length of the response.
	MaxTokens int

	// TopP controls nucleus sampling (0.0-1.0).
	TopP float64

	// Stop contains sequences that end generation early.
	Stop []string
}

// GenerateOption configures a single generation call.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
//
// Example:
//
//	text, _ := provider.Generate(ctx, prompt, llm.WithTemperature(0.9))
func WithTemperature(temp float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Temperature = temp
	}
}

// WithMaxTokens limits the response length.
//
// Example:
//
//	text, _ := provider.Generate(ctx, prompt, llm.WithMaxTokens(300))
func WithMaxTokens(max int) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.MaxTokens = max
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(topP float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.TopP = topP
	}
}

// WithStop sets the stop sequences.
func WithStop(stop []string) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Stop = stop
	}
}

// ApplyGenerateOptions resolves a slice of GenerateOption against defaults.
//
// Defaults: Temperature=0.8, MaxTokens=500, TopP=0.9. These match the
// generation profile used for character actions and dialogue.
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		Temperature: 0.8,
		MaxTokens:   500,
		TopP:        0.9,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
