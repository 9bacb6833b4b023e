package classify

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"mailtriage/core/agent/llm"
	"mailtriage/core/domain"
	"mailtriage/core/service/textsignal"
	"mailtriage/pkg/apperr"
)

// fakeGateway returns a scripted response or error.
type fakeGateway struct {
	response string
	err      error
	calls    int
}

func (f *fakeGateway) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testEngine(gateway *fakeGateway) *Engine {
	return NewEngine(gateway, textsignal.NewAnalyzer(), EngineConfig{}, zerolog.Nop())
}

func testEmail(subject, body string) *domain.Email {
	return &domain.Email{Subject: subject, Body: body, Sender: "customer@example.com"}
}

func TestClassifyParsesModelResponse(t *testing.T) {
	gateway := &fakeGateway{
		response: `{"category": "billing", "subcategory": "refund", "confidence": 0.92, "reasoning": "refund request"}`,
	}
	engine := testEngine(gateway)

	result, err := engine.Classify(context.Background(), testEmail(
		"Refund please",
		"I was charged $49.99 twice, please refund the duplicate charge.",
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Category != domain.CategoryBilling {
		t.Errorf("expected billing, got %s", result.Category)
	}
	if result.SubCategory != "refund" {
		t.Errorf("expected subcategory refund, got %q", result.SubCategory)
	}
	if result.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %f", result.Confidence)
	}
	if result.Fallback {
		t.Error("expected no fallback for a valid response")
	}
	if result.Priority != domain.PriorityMedium {
		t.Errorf("expected medium priority for billing, got %s", result.Priority)
	}
	if len(result.Keywords) == 0 {
		t.Error("expected keywords from local analysis")
	}

	foundMoney := false
	for _, e := range result.Entities {
		if e.Type == "money" && e.Value == "$49.99" {
			foundMoney = true
		}
	}
	if !foundMoney {
		t.Error("expected money entity from local analysis")
	}
}

func TestClassifyCoercesUnknownCategory(t *testing.T) {
	gateway := &fakeGateway{
		response: `{"category": "philosophy", "confidence": 0.99}`,
	}
	engine := testEngine(gateway)

	result, err := engine.Classify(context.Background(), testEmail("Hello", "Just a question about life"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Category != domain.CategoryGeneral {
		t.Errorf("expected general for unknown category, got %s", result.Category)
	}
	if !result.Fallback {
		t.Error("expected fallback flag for coerced category")
	}
	if result.Confidence > 0.5 {
		t.Errorf("expected low confidence for coerced category, got %f", result.Confidence)
	}
}

func TestClassifyHandlesGarbageResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I think this is a billing email"},
		{"empty object", "{}"},
		{"truncated json", `{"category": "bil`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &fakeGateway{response: tt.response}
			engine := testEngine(gateway)

			result, err := engine.Classify(context.Background(), testEmail("Subject", "Body text here"))
			if err != nil {
				t.Fatalf("malformed response must not raise: %v", err)
			}
			if result.Category != domain.CategoryGeneral {
				t.Errorf("expected general, got %s", result.Category)
			}
			if !result.Fallback {
				t.Error("expected fallback flag")
			}
		})
	}
}

func TestClassifyStripsCodeFences(t *testing.T) {
	gateway := &fakeGateway{
		response: "```json\n{\"category\": \"technical\", \"confidence\": 0.8}\n```",
	}
	engine := testEngine(gateway)

	result, err := engine.Classify(context.Background(), testEmail("Bug", "The app crashes on login"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Category != domain.CategoryTechnical {
		t.Errorf("expected technical, got %s", result.Category)
	}
}

func TestClassifyAcceptsQuotedConfidence(t *testing.T) {
	gateway := &fakeGateway{
		response: `{"category": "support", "confidence": "0.75"}`,
	}
	engine := testEngine(gateway)

	result, err := engine.Classify(context.Background(), testEmail("Help", "How do I reset my password?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0.75 {
		t.Errorf("expected confidence 0.75, got %f", result.Confidence)
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	gateway := &fakeGateway{
		response: `{"category": "inquiry", "confidence": 7.5}`,
	}
	engine := testEngine(gateway)

	result, err := engine.Classify(context.Background(), testEmail("Question", "What are your opening hours?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Errorf("confidence out of range: %f", result.Confidence)
	}
}

func TestClassifyFallsBackWhenCompletionUnavailable(t *testing.T) {
	gateway := &fakeGateway{err: apperr.CompletionUnavailable(3, nil)}
	engine := testEngine(gateway)

	result, err := engine.Classify(context.Background(), testEmail("Hi", "Quick question about my account"))
	if err != nil {
		t.Fatalf("gateway exhaustion must resolve to the default category, got error: %v", err)
	}
	if result.Category != domain.CategoryGeneral {
		t.Errorf("expected general, got %s", result.Category)
	}
	if !result.Fallback {
		t.Error("expected fallback flag")
	}
	if result.Sentiment == "" {
		t.Error("local signals must still be computed")
	}
}

func TestClassifyPropagatesCancellation(t *testing.T) {
	gateway := &fakeGateway{err: context.Canceled}
	engine := testEngine(gateway)

	_, err := engine.Classify(context.Background(), testEmail("Hi", "Body"))
	if err == nil {
		t.Fatal("expected cancellation to propagate")
	}
}

func TestDerivePriority(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		category domain.Category
		expected domain.Priority
	}{
		{
			name:     "urgent keyword in subject overrides category",
			subject:  "URGENT: need help",
			body:     "please respond",
			category: domain.CategoryInquiry,
			expected: domain.PriorityUrgent,
		},
		{
			name:     "system down in body",
			subject:  "production issue",
			body:     "the system is down since this morning",
			category: domain.CategoryGeneral,
			expected: domain.PriorityUrgent,
		},
		{
			name:     "complaint is high",
			subject:  "very disappointed",
			body:     "your service was disappointing",
			category: domain.CategoryComplaint,
			expected: domain.PriorityHigh,
		},
		{
			name:     "technical is medium",
			subject:  "question about the API",
			body:     "which version should I use?",
			category: domain.CategoryTechnical,
			expected: domain.PriorityMedium,
		},
		{
			name:     "billing is medium",
			subject:  "invoice question",
			body:     "about my last invoice",
			category: domain.CategoryBilling,
			expected: domain.PriorityMedium,
		},
		{
			name:     "support defaults to low",
			subject:  "how to export data",
			body:     "is there a guide?",
			category: domain.CategorySupport,
			expected: domain.PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := testEmail(tt.subject, tt.body)
			if got := derivePriority(email, tt.category); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestClassifyCategoryAlwaysInEnum(t *testing.T) {
	responses := []string{
		`{"category": "spam", "confidence": 0.9}`,
		`{"category": "ORDER", "confidence": 0.9}`,
		`{"category": "", "confidence": 0.9}`,
		`not json at all`,
	}

	engine := func(resp string) *Engine {
		return testEngine(&fakeGateway{response: resp})
	}

	for _, resp := range responses {
		result, err := engine(resp).Classify(context.Background(), testEmail("s", "b"))
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", resp, err)
		}
		valid := false
		for _, c := range domain.Categories {
			if result.Category == c {
				valid = true
			}
		}
		if !valid {
			t.Errorf("category %q not in enum for response %q", result.Category, resp)
		}
		if result.Confidence < 0 || result.Confidence > 1 {
			t.Errorf("confidence out of range: %f", result.Confidence)
		}
	}
}
