// Package classify combines the completion-based classification call with
// local text signals into one structured classification per email.
package classify

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

const (
	maxKeywords = 10

	// Confidence recorded when the default category is substituted for an
	// unrecognized or unparseable model response.
	fallbackConfidence = 0.2
)

// urgentKeywords force priority to urgent regardless of category.
var urgentKeywords = []string{
	"urgent", "emergency", "critical", "asap", "immediately",
	"broken", "down", "not working", "error", "failed",
}

// completionGateway is the retrying completion dependency.
type completionGateway interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// signalAnalyzer provides the local text signals merged into the result.
type signalAnalyzer interface {
	Sentiment(text string) domain.Sentiment
	Keywords(text string, maxKeywords int) []string
	Entities(text string) []domain.Entity
}

type Engine struct {
	gateway     completionGateway
	analyzer    signalAnalyzer
	maxTokens   int
	temperature float32
	log         zerolog.Logger
}

type EngineConfig struct {
	MaxTokens   int
	Temperature float64
}

func NewEngine(gateway completionGateway, analyzer signalAnalyzer, cfg EngineConfig, log zerolog.Logger) *Engine {
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}
	return &Engine{
		gateway:     gateway,
		analyzer:    analyzer,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
		log:         log,
	}
}

// aiClassification is the strict shape expected from the model.
type aiClassification struct {
	Category    string    `json:"category"`
	SubCategory string    `json:"subcategory"`
	Confidence  flexFloat `json:"confidence"`
	Reasoning   string    `json:"reasoning"`
}

// flexFloat accepts a JSON number or a quoted number; models return both.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	var v float64
	if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*f = flexFloat(v)
	return nil
}

// Classify produces one Classification for the email. The completion call
// degrades gracefully: an unrecognized or unparseable model category is
// coerced to the default category, and retry exhaustion at the gateway
// resolves to the default category as well. Only context cancellation and
// non-availability gateway errors propagate.
func (e *Engine) Classify(ctx context.Context, email *domain.Email) (domain.Classification, error) {
	content := email.Content()

	category := domain.CategoryGeneral
	subCategory := ""
	confidence := 0.0
	fallback := false

	raw, err := e.gateway.Complete(ctx, llm.CompletionRequest{
		System:      classificationSystemPrompt,
		Prompt:      buildClassificationPrompt(email),
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
		JSONMode:    true,
	})
	switch {
	case err == nil:
		parsed, parseErr := parseClassification(raw)
		if parseErr != nil {
			e.log.Warn().Err(parseErr).Str("raw", llm.Truncate(raw, 200)).
				Msg("unparseable classification response, using default category")
			confidence = fallbackConfidence
			fallback = true
			break
		}
		parsedCategory, known := domain.ParseCategory(parsed.Category)
		category = parsedCategory
		subCategory = parsed.SubCategory
		confidence = domain.ClampConfidence(float64(parsed.Confidence))
		if !known {
			e.log.Warn().Str("category", parsed.Category).
				Msg("unrecognized category from model, coerced to default")
			confidence = fallbackConfidence
			fallback = true
		}
	case apperr.IsCode(err, apperr.CodeCompletionUnavailable):
		// Retry exhaustion resolves to the default category.
		e.log.Error().Err(err).Msg("completion unavailable, falling back to default category")
		confidence = 0
		fallback = true
	default:
		// Cancellation or validation failures propagate; no partial state.
		return domain.Classification{}, err
	}

	classification := domain.Classification{
		Category:    category,
		SubCategory: subCategory,
		Priority:    derivePriority(email, category),
		Sentiment:   e.analyzer.Sentiment(content),
		Confidence:  confidence,
		Keywords:    e.analyzer.Keywords(content, maxKeywords),
		Entities:    e.analyzer.Entities(content),
		Fallback:    fallback,
	}

	e.log.Info().
		Str("category", string(classification.Category)).
		Str("priority", string(classification.Priority)).
		Str("sentiment", string(classification.Sentiment)).
		Bool("fallback", classification.Fallback).
		Msg("email classified")

	return classification, nil
}

// parseClassification strictly parses the model output; markdown code
// fences are stripped first.
func parseClassification(raw string) (*aiClassification, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result aiClassification
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification response: %w", err)
	}
	if result.Category == "" {
		return nil, fmt.Errorf("classification response missing category")
	}
	return &result, nil
}

// derivePriority is a pure function of (category, urgent-keyword presence).
// Urgent keywords override everything else.
func derivePriority(email *domain.Email, category domain.Category) domain.Priority {
	content := strings.ToLower(email.Subject + " " + email.Body)

	for _, keyword := range urgentKeywords {
		if strings.Contains(content, keyword) {
			return domain.PriorityUrgent
		}
	}

	switch category {
	case domain.CategoryComplaint:
		return domain.PriorityHigh
	case domain.CategoryTechnical, domain.CategoryBilling:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}
