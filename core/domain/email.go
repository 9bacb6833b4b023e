package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"mailtriage/pkg/apperr"
)

// Category represents the primary email category.
type Category string

const (
	CategorySupport   Category = "support"
	CategoryComplaint Category = "complaint"
	CategoryInquiry   Category = "inquiry"
	CategoryOrder     Category = "order"
	CategoryBilling   Category = "billing"
	CategoryTechnical Category = "technical"
	CategoryGeneral   Category = "general" // default/fallback category
)

// Categories lists every valid category, in wire order.
var Categories = []Category{
	CategorySupport,
	CategoryComplaint,
	CategoryInquiry,
	CategoryOrder,
	CategoryBilling,
	CategoryTechnical,
	CategoryGeneral,
}

// ParseCategory maps a wire-level string to a Category.
// Unrecognized values return CategoryGeneral with ok=false so callers
// can record the coercion instead of propagating an out-of-set value.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return CategoryGeneral, false
}

// Priority represents the derived email priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Sentiment represents the keyword-derived sentiment of an email.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Entity is a typed value extracted from email text (email address,
// phone number, order id, money amount).
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Email field limits.
const (
	MaxSubjectLength = 200
	MaxBodyLength    = 10000
)

// Email is a raw inbound email. Immutable once received.
type Email struct {
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Sender      string            `json:"sender"`
	Attachments []string          `json:"attachments,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate checks field constraints before the email enters the pipeline.
func (e *Email) Validate() error {
	if e.Sender == "" {
		return apperr.MissingField("sender")
	}
	if !strings.Contains(e.Sender, "@") {
		return apperr.InputValidation("sender", "not a valid email address")
	}
	if e.Subject == "" && e.Body == "" {
		return apperr.InputValidation("email", "subject and body are both empty")
	}
	if utf8.RuneCountInString(e.Subject) > MaxSubjectLength {
		return apperr.InputValidation("subject", "exceeds 200 characters")
	}
	if utf8.RuneCountInString(e.Body) > MaxBodyLength {
		return apperr.InputValidation("body", "exceeds 10000 characters")
	}
	return nil
}

// Content returns the combined subject+body text used for analysis.
func (e *Email) Content() string {
	return "Subject: " + e.Subject + "\n\nBody: " + e.Body
}

// Classification is the structured output of the classification engine.
type Classification struct {
	Category    Category  `json:"category"`
	SubCategory string    `json:"sub_category,omitempty"`
	Priority    Priority  `json:"priority"`
	Sentiment   Sentiment `json:"sentiment"`
	Confidence  float64   `json:"confidence"`
	Keywords    []string  `json:"keywords"`
	Entities    []Entity  `json:"entities"`

	// Fallback is true when the completion service returned an
	// unrecognized category (or was unavailable) and the default
	// category was substituted.
	Fallback bool `json:"fallback,omitempty"`
}

// Response is the generated draft reply for an email.
type Response struct {
	Content          string   `json:"content"`
	Tone             string   `json:"tone"`
	SuggestedActions []string `json:"suggested_actions"`
	Confidence       float64  `json:"confidence"`
}

// ProcessingResult is the terminal artifact of one pipeline run.
type ProcessingResult struct {
	EmailID        string         `json:"email_id"`
	Classification Classification `json:"classification"`
	Response       Response       `json:"response"`
	ProcessingTime float64        `json:"processing_time"` // seconds
	Timestamp      time.Time      `json:"timestamp"`
}

// ClampConfidence bounds a confidence score to [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
