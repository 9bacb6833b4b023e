// Package llm wraps the external completion and embedding services.
package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

// CompletionRequest describes one chat-style completion call.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
	JSONMode    bool
}

type ClientConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
}

// Client is the raw openai client wrapper. It performs exactly one request
// per call; retry policy lives in the Gateway.
type Client struct {
	client         *openai.Client
	model          string
	embeddingModel openai.EmbeddingModel
}

func NewClient(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	embeddingModel := openai.AdaEmbeddingV2
	if cfg.EmbeddingModel != "" {
		var m openai.EmbeddingModel
		if err := m.UnmarshalText([]byte(cfg.EmbeddingModel)); err == nil && m != openai.Unknown {
			embeddingModel = m
		}
	}
	return &Client{
		client:         openai.NewClient(cfg.APIKey),
		model:          model,
		embeddingModel: embeddingModel,
	}
}

// Complete issues a single chat completion request.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Embedding returns the embedding vector for a single text.
func (c *Client) Embedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: c.embeddingModel,
		Input: []string{text},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return resp.Data[0].Embedding, nil
}
