// Package openai implements the llm.Provider interface against the OpenAI
// API or any OpenAI-compatible endpoint.
package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Arnaud58/LlamaKeeper/pkg/llm"
)

// Client is an OpenAI-backed LLM client.
type Client struct {
	client *openai.Client
	model  string
}

// Config is the configuration for the OpenAI client.
type Config struct {
	// APIKey is the API key (required).
	APIKey string

	// Model is the model name. Defaults to "gpt-4".
	Model string

	// BaseURL overrides the official endpoint. Useful for proxies and
	// OpenAI-compatible servers.
	BaseURL string
}

// NewClient creates an OpenAI client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4"
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Generate produces text from a single prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	messages := []llm.Message{
		{Role: "user", Content: prompt},
	}
	return c.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateWithMessages produces text from a conversation history.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		TopP:        float32(options.TopP),
		Stop:        options.Stop,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from openai")
	}

	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the SDK client needs no explicit shutdown.
func (c *Client) Close() error {
	return nil
}
