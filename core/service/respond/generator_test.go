package respond

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"mailtriage/core/agent/llm"
	"mailtriage/core/domain"
	"mailtriage/pkg/apperr"
)

type fakeGateway struct {
	response string
	err      error
}

func (f *fakeGateway) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testGenerator(gateway *fakeGateway) *Generator {
	return NewGenerator(gateway, GeneratorConfig{}, zerolog.Nop())
}

func testClassification() *domain.Classification {
	return &domain.Classification{
		Category:  domain.CategoryBilling,
		Priority:  domain.PriorityMedium,
		Sentiment: domain.SentimentNegative,
		Keywords:  []string{"refund", "charge"},
	}
}

func TestGenerateParsesStructuredResponse(t *testing.T) {
	gateway := &fakeGateway{
		response: `{
			"content": "Thank you for reaching out. We have issued a refund.",
			"tone": "empathetic",
			"suggested_actions": ["verify refund", "follow up in 3 days"],
			"confidence": 0.85
		}`,
	}
	generator := testGenerator(gateway)

	email := &domain.Email{Subject: "Refund", Body: "Please refund me", Sender: "a@b.com"}
	response, err := generator.Generate(context.Background(), email, testClassification())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(response.Content, "refund") {
		t.Errorf("unexpected content: %q", response.Content)
	}
	if response.Tone != "empathetic" {
		t.Errorf("expected tone empathetic, got %q", response.Tone)
	}
	if len(response.SuggestedActions) != 2 {
		t.Errorf("expected 2 suggested actions, got %d", len(response.SuggestedActions))
	}
	if response.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %f", response.Confidence)
	}
}

func TestGenerateMalformedOutputFails(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "Dear customer, thank you..."},
		{"missing content", `{"tone": "friendly"}`},
		{"missing tone", `{"content": "hello"}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := testGenerator(&fakeGateway{response: tt.response})
			email := &domain.Email{Subject: "s", Body: "b", Sender: "a@b.com"}

			_, err := generator.Generate(context.Background(), email, testClassification())
			if err == nil {
				t.Fatal("expected parse error, no default reply may be substituted")
			}
			if !apperr.IsCode(err, apperr.CodeResponseParse) {
				t.Errorf("expected RESPONSE_PARSE, got %v", err)
			}
		})
	}
}

func TestGenerateParseErrorCarriesRawOutput(t *testing.T) {
	generator := testGenerator(&fakeGateway{response: "garbled model output"})
	email := &domain.Email{Subject: "s", Body: "b", Sender: "a@b.com"}

	_, err := generator.Generate(context.Background(), email, testClassification())
	appErr := apperr.AsAppError(err)
	raw, ok := appErr.Details["raw"].(string)
	if !ok || !strings.Contains(raw, "garbled") {
		t.Errorf("expected raw output in error details, got %v", appErr.Details)
	}
}

func TestGeneratePropagatesGatewayFailure(t *testing.T) {
	generator := testGenerator(&fakeGateway{err: apperr.CompletionUnavailable(3, nil)})
	email := &domain.Email{Subject: "s", Body: "b", Sender: "a@b.com"}

	_, err := generator.Generate(context.Background(), email, testClassification())
	if !apperr.IsCode(err, apperr.CodeCompletionUnavailable) {
		t.Errorf("expected COMPLETION_UNAVAILABLE to propagate, got %v", err)
	}
}

func TestGenerateDefaultsConfidenceWhenOmitted(t *testing.T) {
	gateway := &fakeGateway{
		response: `{"content": "Thanks for your message.", "tone": "professional"}`,
	}
	generator := testGenerator(gateway)
	email := &domain.Email{Subject: "s", Body: "b", Sender: "a@b.com"}

	response, err := generator.Generate(context.Background(), email, testClassification())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Confidence != 0.8 {
		t.Errorf("expected default confidence 0.8, got %f", response.Confidence)
	}
}

func TestGenerateTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("x", 3000)
	gateway := &fakeGateway{
		response: `{"content": "` + long + `", "tone": "professional"}`,
	}
	generator := testGenerator(gateway)
	email := &domain.Email{Subject: "s", Body: "b", Sender: "a@b.com"}

	response, err := generator.Generate(context.Background(), email, testClassification())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.Content) > MaxContentLength+3 {
		t.Errorf("content not truncated: %d chars", len(response.Content))
	}
}
