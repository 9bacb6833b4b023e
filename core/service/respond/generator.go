// Package respond generates draft replies for classified emails.
package respond

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"mailtriage/core/agent/llm"
	"mailtriage/core/domain"
	"mailtriage/pkg/apperr"
)

const responseSystemPrompt = `You are a professional customer service assistant. Generate helpful, empathetic, and actionable email responses. Respond with JSON only.`

// MaxContentLength bounds the generated reply content.
const MaxContentLength = 2000

type completionGateway interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

type Generator struct {
	gateway       completionGateway
	maxTokens     int
	maxContentLen int
	temperature   float32
	log           zerolog.Logger
}

type GeneratorConfig struct {
	MaxTokens        int
	MaxContentLength int
	Temperature      float64
}

func NewGenerator(gateway completionGateway, cfg GeneratorConfig, log zerolog.Logger) *Generator {
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}
	maxContentLen := cfg.MaxContentLength
	if maxContentLen == 0 {
		maxContentLen = MaxContentLength
	}
	return &Generator{
		gateway:       gateway,
		maxTokens:     maxTokens,
		maxContentLen: maxContentLen,
		temperature:   float32(cfg.Temperature),
		log:           log,
	}
}

// aiResponse is the strict shape expected from the model.
type aiResponse struct {
	Content          string   `json:"content"`
	Tone             string   `json:"tone"`
	SuggestedActions []string `json:"suggested_actions"`
	Confidence       *float64 `json:"confidence"`
}

// Generate builds a reply for the email and its classification. Unlike
// classification there is no safe default reply: malformed structured
// output fails with apperr.CodeResponseParse and gateway exhaustion
// propagates. Callers surface both to a human agent.
func (g *Generator) Generate(ctx context.Context, email *domain.Email, classification *domain.Classification) (domain.Response, error) {
	raw, err := g.gateway.Complete(ctx, llm.CompletionRequest{
		System:      responseSystemPrompt,
		Prompt:      buildResponsePrompt(email, classification),
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		JSONMode:    true,
	})
	if err != nil {
		return domain.Response{}, err
	}

	parsed, err := parseResponse(raw)
	if err != nil {
		return domain.Response{}, apperr.ResponseParse(llm.Truncate(raw, 500), err)
	}

	confidence := 0.8 // model default when omitted
	if parsed.Confidence != nil {
		confidence = domain.ClampConfidence(*parsed.Confidence)
	}

	response := domain.Response{
		Content:          llm.Truncate(parsed.Content, g.maxContentLen),
		Tone:             parsed.Tone,
		SuggestedActions: parsed.SuggestedActions,
		Confidence:       confidence,
	}

	g.log.Info().
		Str("category", string(classification.Category)).
		Str("tone", response.Tone).
		Msg("generated response")

	return response, nil
}

func parseResponse(raw string) (*aiResponse, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result aiResponse
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("failed to parse response output: %w", err)
	}
	if result.Content == "" {
		return nil, fmt.Errorf("response output missing content")
	}
	if result.Tone == "" {
		return nil, fmt.Errorf("response output missing tone")
	}
	return &result, nil
}

// buildResponsePrompt embeds the email and its classification fields.
func buildResponsePrompt(email *domain.Email, c *domain.Classification) string {
	return fmt.Sprintf(`Generate a professional email response based on the following information:

Original Email:
Subject: %s
From: %s
Content: %s

Classification:
Category: %s
Priority: %s
Sentiment: %s
Keywords: %s

Respond with this exact JSON structure:
{
  "content": "professional email response content",
  "tone": "tone of the response (professional, friendly, empathetic, etc.)",
  "suggested_actions": ["list", "of", "suggested", "follow-up", "actions"],
  "confidence": 0.0-1.0
}

Guidelines:
- Be professional and courteous
- Address the customer's concerns directly
- Provide helpful information or next steps
- Match the tone to the email category and sentiment
- Keep the response concise but complete`,
		llm.TruncateSubject(email.Subject),
		email.Sender,
		llm.TruncateBody(email.Body),
		c.Category, c.Priority, c.Sentiment,
		strings.Join(c.Keywords, ", "))
}
